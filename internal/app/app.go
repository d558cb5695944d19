// Package app wires the execution router's dependency graph from
// configuration and manages the process lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantbot/smartrouter/internal/config"
	"github.com/quantbot/smartrouter/internal/server"
	"github.com/quantbot/smartrouter/internal/server/handler"
	"github.com/quantbot/smartrouter/internal/server/ws"
)

// shutdownGrace is how long in-flight requests get to finish on shutdown.
const shutdownGrace = 15 * time.Second

// App is the root application object. It owns the configuration, logger, and
// the cleanup chain produced while wiring.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the WebSocket hub and the HTTP API, and
// blocks until the context is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Int("venues", len(a.cfg.Venues.Venues)),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		cleanup()
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	defer cleanup()

	hub := ws.NewHub(a.logger)
	deps.Router.OnFill(hub.PublishFill).OnResult(hub.PublishResult)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	if a.cfg.Server.Enabled {
		handlers := server.Handlers{
			Health: handler.NewHealthHandler(a.logger),
			Route:  handler.NewRouteHandler(deps.Router, a.logger),
			Stats:  handler.NewStatsHandler(deps.Router),
			Venues: handler.NewVenueHandler(deps.Registry),
		}
		if deps.Store != nil {
			handlers.Executions = handler.NewExecutionHandler(deps.Store, a.logger)
		}
		if deps.BookCache != nil {
			handlers.Books = handler.NewBookHandler(deps.BookCache, a.logger)
		}

		srv := server.NewServer(server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
		}, handlers, hub, a.logger)

		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	a.logger.Info("application stopped")
	return err
}
