package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/assignpro/assignpro-web/config"
	httpx "github.com/assignpro/assignpro-web/internal/http"
)

// httpHandlerConfig contains what the router and its middleware need.
type httpHandlerConfig struct {
	Config   *config.AppConfig
	Services httpx.RouterServices
	Logger   *slog.Logger
}

// buildHTTPHandler wraps the router. Order: Recover -> Logging -> Router.
func buildHTTPHandler(cfg httpHandlerConfig) (http.Handler, error) {
	router, err := httpx.NewRouter(cfg.Services)
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}
	return httpx.Chain(router,
		httpx.Recover(cfg.Logger),
		httpx.Logging(cfg.Logger),
	), nil
}

func newServer(addr string, handler http.Handler) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Covers the longest /auth/status?wait= hold.
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(cfg.Context, timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
