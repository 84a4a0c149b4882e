// Command server runs the sparkz-live API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sparkz-live/internal/api"
	"sparkz-live/internal/auth"
	"sparkz-live/internal/config"
	"sparkz-live/internal/observability/logging"
	"sparkz-live/internal/observability/metrics"
	"sparkz-live/internal/server"
	"sparkz-live/internal/storage"
	"sparkz-live/internal/video"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Init(logging.Config{Level: cfg.LogLevel})
	recorder := metrics.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storeOpts := []storage.Option{
		storage.WithApplicationName(cfg.Database.ApplicationName),
	}
	if cfg.Database.MaxConns > 0 || cfg.Database.MinConns > 0 {
		storeOpts = append(storeOpts, storage.WithPoolLimits(cfg.Database.MaxConns, cfg.Database.MinConns))
	}
	if cfg.Database.MaxConnLifetime > 0 {
		storeOpts = append(storeOpts, storage.WithMaxConnLifetime(cfg.Database.MaxConnLifetime))
	}
	if cfg.Database.AcquireTimeout > 0 {
		storeOpts = append(storeOpts, storage.WithAcquireTimeout(cfg.Database.AcquireTimeout))
	}
	store, err := storage.NewPostgresRepository(ctx, cfg.Database.DSN, storeOpts...)
	if err != nil {
		return fmt.Errorf("connect storage: %w", err)
	}
	defer store.Close()

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, auth.WithTokenTTL(cfg.Auth.TokenTTL))
	if err != nil {
		return fmt.Errorf("configure tokens: %w", err)
	}

	provider, err := video.NewClient(video.Config{
		BaseURL:     cfg.Provider.BaseURL,
		TokenID:     cfg.Provider.TokenID,
		TokenSecret: cfg.Provider.TokenSecret,
	})
	if err != nil {
		return fmt.Errorf("configure video provider: %w", err)
	}

	handler := api.NewHandler(store, tokens, provider)
	handler.Logger = logging.WithComponent(logger, "api")
	handler.Metrics = recorder

	srv, err := server.New(handler, server.Config{
		Addr: cfg.Addr,
		RateLimit: server.RateLimitConfig{
			GlobalRPS:     cfg.RateLimit.GlobalRPS,
			GlobalBurst:   cfg.RateLimit.GlobalBurst,
			LoginLimit:    cfg.RateLimit.LoginLimit,
			LoginWindow:   cfg.RateLimit.LoginWindow,
			RedisAddr:     cfg.RateLimit.RedisAddr,
			RedisUsername: cfg.RateLimit.RedisUsername,
			RedisPassword: cfg.RateLimit.RedisPassword,
			RedisTimeout:  cfg.RateLimit.RedisTimeout,
		},
		Logger:  logging.WithComponent(logger, "http"),
		Metrics: recorder,
	})
	if err != nil {
		return fmt.Errorf("configure server: %w", err)
	}

	logger.Info("server starting", "addr", cfg.Addr)
	if err := srv.Run(ctx, cfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
