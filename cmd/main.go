package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/reels/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	configPath := defaultConfigPath
	if p := os.Getenv("REELS_CONFIG"); p != "" {
		configPath = p
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}
	shared.ConfigureLogger(logger, config.Log)

	opts := RunnerOpts{Config: config, ConfigPath: configPath, Logger: logger}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		logger.Debug("upload ledger unavailable", "path", config.Database.Path, "error", err)
	} else {
		defer db.Close()
		opts.DB = db
	}

	runner := NewRunner(opts)

	app := &cli.Command{
		Name:     "reels",
		Usage:    "Validate, upload & publish training videos",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			return
		}
		if errors.Is(err, shared.ErrAuthFailed) {
			logger.Error("login failed", "error", err)
			os.Exit(2)
		}
		if errors.Is(err, shared.ErrNotAuthenticated) || errors.Is(err, shared.ErrTokenExpired) {
			logger.Error("authentication required, run `reels auth login`", "error", err)
			os.Exit(2)
		}
		logger.Error("application error", "error", err)
		os.Exit(1)
	}
}
