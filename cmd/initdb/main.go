// Command initdb creates the task and result tables and exits.
package main

import (
	"context"
	"log/slog"
	"os"

	"webprobe/internal/config"
	"webprobe/internal/database"
	"webprobe/internal/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg.App.LogLevel)

	pool, err := database.NewDatabasePool(&database.PoolConfig{
		DSN:          cfg.Database.URL,
		MaxOpenConns: 1,
		LogLevel:     logger.GormLevel(cfg.App.Debug),
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Migrate(context.Background()); err != nil {
		slog.Error("failed to create tables", "error", err)
		pool.Close()
		os.Exit(1)
	}

	slog.Info("database tables created")
}
