package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"webprobe/internal/broker"
	"webprobe/internal/config"
	"webprobe/internal/database"
	"webprobe/internal/logger"
	"webprobe/internal/monitoring"
	"webprobe/internal/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger.Setup(cfg.App.LogLevel)
	slog.Info("starting service", "app", cfg.App.Name, "debug", cfg.App.Debug)

	pool, err := database.NewDatabasePool(poolConfig(cfg))
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Migrate(context.Background()); err != nil {
		return err
	}

	probe, err := broker.NewRedisProbe(probeConfig(cfg))
	if err != nil {
		slog.Warn("broker probe disabled", "error", err)
	}
	defer probe.Close()

	router, err := server.NewRouter(server.Dependencies{
		Config:  cfg,
		Pool:    pool,
		Broker:  probe,
		Metrics: monitoring.NewCollector(),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case s := <-sig:
		slog.Info("shutdown signal received", "signal", s.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	slog.Info("server stopped")
	return nil
}

func poolConfig(cfg *config.Config) *database.PoolConfig {
	return &database.PoolConfig{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		LogLevel:        logger.GormLevel(cfg.App.Debug),
	}
}

func probeConfig(cfg *config.Config) *broker.ProbeConfig {
	probe := broker.DefaultProbeConfig()
	probe.Addr = cfg.GetRedisAddr()
	probe.URL = cfg.Redis.URL
	return probe
}
