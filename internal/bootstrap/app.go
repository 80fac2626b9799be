package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/assignpro/assignpro-web/config"
	httpx "github.com/assignpro/assignpro-web/internal/http"
	"github.com/assignpro/assignpro-web/internal/service"
)

// App is the wired web application: one session store shared by every request.
type App struct {
	Config  *config.AppConfig
	Session *service.SessionService
	Handler http.Handler

	slot   Slot
	ready  atomic.Bool
	logger *slog.Logger
}

// NewApp opens the slot, builds the credential backend and metrics, and wires the router.
// The session store starts resolving; Run hydrates it.
func NewApp(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	slot, err := OpenSlot(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, slot: slot, logger: logger}

	creds, err := BuildCredentials(ctx, cfg.Auth, logger)
	if err != nil {
		return nil, app.closeAfter(err)
	}
	m, err := BuildMetrics(cfg.Observability.Metrics)
	if err != nil {
		return nil, app.closeAfter(err)
	}

	app.Session = service.NewSessionService(service.SessionServiceOptions{
		Slot:      slot.Store,
		Verifier:  creds.Verifier,
		Registrar: creds.Registrar,
		Metrics:   m.Sink,
		Logger:    logger,
	})

	app.Handler, err = buildHTTPHandler(httpHandlerConfig{
		Config: cfg,
		Services: httpx.RouterServices{
			Session:        app.Session,
			Metrics:        m.Sink,
			MetricsHandler: m.Handler,
			Ready:          app.ready.Load,
			IsDev:          cfg.IsDev,
			Logger:         logger,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, app.closeAfter(err)
	}
	return app, nil
}

// Ready reports whether the initial hydration has finished.
func (a *App) Ready() bool { return a.ready.Load() }

// Hydrate runs the store's one-time initialization and marks the app ready.
func (a *App) Hydrate(ctx context.Context) {
	s := a.Session.Initialize(ctx)
	a.ready.Store(true)
	attrs := []any{"authenticated", s.Authenticated()}
	if s.Current != nil {
		attrs = append(attrs, "role", s.Current.Role)
	}
	a.logger.InfoContext(ctx, "session hydrated", attrs...)
}

// Run serves HTTP on ln (or on the configured address when ln is nil) and hydrates the session
// concurrently, so requests arriving first see the loading state. It returns when ctx is done
// or the server fails.
func (a *App) Run(ctx context.Context, ln net.Listener) error {
	srv := newServer(a.Config.HTTP.Addr, a.Handler)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Hydrate(gctx)
		return nil
	})

	g.Go(func() error {
		a.logger.InfoContext(gctx, "starting HTTP server", "addr", srv.Addr)
		var err error
		if ln != nil {
			err = srv.Serve(ln)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return ShutdownHTTPServer(ShutdownConfig{
			Context: context.WithoutCancel(gctx),
			Server:  srv,
			Timeout: a.Config.HTTP.ShutdownTimeout,
			Logger:  a.logger,
		})
	})

	return g.Wait()
}

// Close releases the slot connection.
func (a *App) Close() error {
	if a.slot.Close == nil {
		return nil
	}
	if err := a.slot.Close(); err != nil {
		return fmt.Errorf("close %s slot: %w", a.slot.Backend, err)
	}
	return nil
}

func (a *App) closeAfter(err error) error {
	if cerr := a.Close(); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}
