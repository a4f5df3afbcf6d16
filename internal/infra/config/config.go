// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Transport TransportConfig `yaml:"transport"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig represents the HTTP API configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// PlaybackConfig represents playback scheduling configuration.
type PlaybackConfig struct {
	SkipQuorum           int `yaml:"skip_quorum" default:"3" validate:"gte=1"`
	DefaultVolumePercent int `yaml:"default_volume_percent" default:"60" validate:"gte=0,lte=200"`
}

// TransportConfig selects and configures the voice transport backend.
type TransportConfig struct {
	Type    string        `yaml:"type" default:"loopback" validate:"oneof=loopback discord"`
	Discord DiscordConfig `yaml:"discord"`
}

// DiscordConfig represents Discord gateway configuration.
type DiscordConfig struct {
	Token string `yaml:"token"`
}

// ResolverConfig represents the source resolver configuration.
type ResolverConfig struct {
	Providers []ProviderConfig `yaml:"providers" validate:"required,min=1,dive"`
}

// ProviderConfig represents a single resolver provider configuration.
type ProviderConfig struct {
	Type     string         `yaml:"type" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Output string `yaml:"output" default:"stdout"`
	File   string `yaml:"file"`
}

// Load loads configuration from a YAML file. Environment variables take
// precedence over file values for credentials.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		c.Transport.Discord.Token = v
	}
	spotifyEnv := map[string]string{
		"SPOTIFY_CLIENT_ID":     "client_id",
		"SPOTIFY_CLIENT_SECRET": "client_secret",
		"SPOTIFY_REFRESH_TOKEN": "refresh_token",
	}
	for env, key := range spotifyEnv {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		for i := range c.Resolver.Providers {
			if c.Resolver.Providers[i].Type == "spotify" {
				if c.Resolver.Providers[i].Settings == nil {
					c.Resolver.Providers[i].Settings = make(map[string]any)
				}
				c.Resolver.Providers[i].Settings[key] = v
				break
			}
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Transport.Type == "discord" && c.Transport.Discord.Token == "" {
		return errors.New("transport.discord.token is required when transport.type is discord")
	}

	return nil
}
