// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/aurora-bot/aurora/internal/api/rest"
	"github.com/aurora-bot/aurora/internal/app/notification"
	"github.com/aurora-bot/aurora/internal/app/player"
	"github.com/aurora-bot/aurora/internal/app/registry"
	"github.com/aurora-bot/aurora/internal/infra/config"
	"github.com/aurora-bot/aurora/internal/infra/discord"
	"github.com/aurora-bot/aurora/internal/infra/logger"
	"github.com/aurora-bot/aurora/internal/infra/resolver"
	"github.com/aurora-bot/aurora/internal/infra/transport"
)

var (
	app        = kingpin.New("aurora-server", "Aurora playback scheduler server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	notifications := notification.NewManager()
	notifier := player.MultiNotifier{notifications}

	var tp transport.Provider
	switch cfg.Transport.Type {
	case "discord":
		gw, err := discord.Open(cfg.Transport.Discord.Token)
		if err != nil {
			return fmt.Errorf("failed to open discord gateway: %w", err)
		}
		defer func() {
			if err := gw.Close(); err != nil {
				zlog.Warn().Err(err).Msg("failed to close discord gateway")
			}
		}()
		tp = gw
		notifier = append(notifier, discord.NewNotifier(gw))
	default:
		tp = transport.NewLoopback()
	}

	res, err := resolver.NewChainFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build resolver: %w", err)
	}

	reg := registry.New(tp, notifier, cfg.Playback.SkipQuorum)
	defer reg.CloseAll()

	api := rest.NewServer(reg, res, notifications, cfg.Playback.DefaultVolumePercent)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zlog.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn().Err(err).Msg("http shutdown incomplete")
	}
	_ = api.Shutdown(shutdownCtx)

	return nil
}
