package main

import (
	"context"
	"log/slog"
	"os"
	_ "time/tzdata"

	_ "github.com/santafilomena/staycore/docs"
	"github.com/santafilomena/staycore/internal/app"
	"github.com/santafilomena/staycore/internal/config"
)

// @title Staycore API
// @version 1.0
// @description Room catalog and booking API for Hotel Santa Filomena.
// @host localhost:8080
// @BasePath /
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		logger.Error("application finished with error", "error", err)
		application.Close()
		os.Exit(1)
	}
}
