package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/assignpro/assignpro-web/config"
	"github.com/assignpro/assignpro-web/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logStartupInfo(ctx, logger, &cfg)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close session slot failed", "error", cerr)
		}
	}()

	return app.Run(ctx, nil)
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting assignpro web",
		"addr", cfg.HTTP.Addr,
		"dev", cfg.IsDev,
		"auth_mode", cfg.Auth.Mode,
		"slot_backend", cfg.Slot.Backend,
		"metrics", cfg.Observability.Metrics.IsEnabled(),
	)
}
