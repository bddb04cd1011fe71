package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbscan/internal/server"
	"github.com/alanyoungcy/arbscan/internal/server/handler"
)

// DetectMode runs the venue feeds and the detection pipeline without the
// HTTP read API. Optional integrations (Redis mirror, Postgres archive,
// S3 export, alerts) still run when enabled.
func (a *App) DetectMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting detect mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startPipeline(ctx, g, deps)

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// FullMode runs the detection pipeline plus the HTTP read API and the
// WebSocket stream.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startPipeline(ctx, g, deps)

	if a.cfg.Server.Enabled {
		startedAt := time.Now().UTC()

		handlers := server.Handlers{
			Health:        handler.NewHealthHandler(deps.Scan, startedAt, a.logger),
			Prices:        handler.NewPriceHandler(deps.Scan, a.logger),
			Opportunities: handler.NewOpportunityHandler(deps.Scan, a.logger),
		}
		if deps.Archive != nil {
			handlers.Archive = handler.NewArchiveHandler(deps.Archive, a.logger)
		}

		srv := server.NewServer(server.Config{
			Port:            a.cfg.Server.Port,
			CORSOrigins:     a.cfg.Server.CORSOrigins,
			APIKey:          a.cfg.Server.APIKey,
			RateLimitPerMin: a.cfg.Server.RateLimitPerMin,
		}, handlers, deps.Hub, deps.RateLimiter, a.logger)

		if deps.Hub != nil {
			g.Go(func() error {
				return deps.Hub.Run(ctx)
			})
			g.Go(func() error {
				return deps.Hub.Pump(ctx, deps.Scan.Subscribe())
			})
		}

		g.Go(func() error {
			return srv.Start()
		})

		// Shut the listener down when the pipeline context ends so Start
		// returns and the group can drain.
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("server shutdown failed", slog.String("error", err.Error()))
			}
			return ctx.Err()
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// startPipeline launches the goroutines shared by all modes: the feed
// supervisor, the sink dispatch worker, and the optional Redis mirror and
// S3 export loops.
func (a *App) startPipeline(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	g.Go(func() error {
		defer deps.Supervisor.Stop()
		return deps.Supervisor.Run(ctx)
	})

	if deps.SinkQueue != nil {
		g.Go(func() error {
			return deps.SinkQueue.Run(ctx)
		})
	}

	if deps.Mirror != nil {
		observations := deps.Scan.Subscribe()
		g.Go(func() error {
			return deps.Mirror.Run(ctx, observations)
		})
	}

	if deps.Exporter != nil {
		g.Go(func() error {
			return deps.Exporter.Run(ctx)
		})
	}
}
