package resolver

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/aurora-bot/aurora/internal/app/player"
	"github.com/aurora-bot/aurora/internal/domain/track"
	"github.com/aurora-bot/aurora/internal/infra/audio"
)

// StaticConfig holds the settings for the static resolver provider.
type StaticConfig struct {
	DurationSec int `yaml:"duration_sec" mapstructure:"duration_sec" default:"180" validate:"gte=1"`
}

// Static resolves every query to a synthetic track of fixed duration. Meant
// for development and load testing without any catalog credentials.
type Static struct {
	duration time.Duration
}

// NewStatic creates a static resolver from provider settings.
func NewStatic(settings map[string]any) (*Static, error) {
	var cfg StaticConfig
	if err := mapstructure.Decode(settings, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &Static{duration: time.Duration(cfg.DurationSec) * time.Second}, nil
}

// Name returns the provider name.
func (s *Static) Name() string {
	return "static"
}

// Resolve fabricates a track titled after the query.
func (s *Static) Resolve(_ context.Context, query string) (*Resolved, error) {
	if query == "" {
		return nil, errors.Wrap(ErrResolution, "empty query")
	}
	t := track.Track{
		ID:       uuid.New().String(),
		Title:    query,
		Duration: s.duration,
	}
	return &Resolved{Track: t, Source: newSourceForTrack(t)}, nil
}

// newSourceForTrack builds the clock-driven source backing a resolved track.
func newSourceForTrack(t track.Track) player.Source {
	return audio.NewClockSource(t.Duration)
}
