package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/kirinyoku/atelier/docs"
	"github.com/kirinyoku/atelier/internal/app"
	"github.com/kirinyoku/atelier/internal/config"
)

// @title Atelier API
// @version 1.0
// @description Booking backend for a ceramics studio: open studio slots, workshops, reviews and the gallery.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.basic BasicAuth
func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx := context.Background()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}
