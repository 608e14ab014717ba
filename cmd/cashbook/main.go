package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"cashbook/internal/auth"
	"cashbook/internal/backend"
	"cashbook/internal/categories"
	"cashbook/internal/cli"
	"cashbook/internal/config"
	apphttp "cashbook/internal/http"
	"cashbook/internal/log"
	"cashbook/internal/metrics"
	"cashbook/internal/middleware/ratelimit"
	"cashbook/internal/summary"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		log.New(log.DefaultConfig()).Error("Failed to load .env file", log.FieldError, err)
		os.Exit(1)
	}

	cfg, err := cli.LoadAndValidateConfig(os.Getenv)
	if err != nil {
		log.New(log.DefaultConfig()).Error("Invalid configuration", log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if err := run(logger, cfg); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(logger *log.Logger, cfg *config.Config) error {
	ctx := context.Background()
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backend.FromAppConfig(cfg))
	if err != nil {
		return fmt.Errorf("initialize %s backend: %w", cfg.DataBackend, err)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	}()

	users, _ := auth.ParseUsers(cfg.AuthUsers) // validated above
	m := metrics.New()
	registry := categories.NewRegistry(result.Backend.Store, cfg.CategoryCacheTTL)
	agg := summary.NewAggregator(result.Backend.Store, registry, summary.WithMonthWindow(cfg.ReportMonthWindow))

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Service:    result.Backend.Service(m),
		Aggregator: agg,
		Categories: registry,
		Store:      result.Backend.Store,
		Currency:   cfg.Currency(),
		Metrics:    m,
		Users:      users,
		Logger:     logger,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
			CleanupInterval:   5 * time.Minute,
			IdleTimeout:       10 * time.Minute,
		},
		MaxUploadBytes: cfg.MaxUploadBytes,
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		return err
	}

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting cashbook server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"attachments", cfg.AttachmentBackend,
		"auth_enabled", len(users) > 0)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		srv.Stop()
		return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
	}

	<-done
	return nil
}
