package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/arbscan/internal/blob/s3"
	"github.com/alanyoungcy/arbscan/internal/cache/redis"
	"github.com/alanyoungcy/arbscan/internal/config"
	"github.com/alanyoungcy/arbscan/internal/detector"
	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/feed"
	"github.com/alanyoungcy/arbscan/internal/ledger"
	"github.com/alanyoungcy/arbscan/internal/notify"
	"github.com/alanyoungcy/arbscan/internal/pricestore"
	"github.com/alanyoungcy/arbscan/internal/server/middleware"
	"github.com/alanyoungcy/arbscan/internal/server/ws"
	"github.com/alanyoungcy/arbscan/internal/service"
	"github.com/alanyoungcy/arbscan/internal/store/postgres"
	"github.com/alanyoungcy/arbscan/internal/symbols"
	"github.com/alanyoungcy/arbscan/internal/venue"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Core pipeline.
	Store      *pricestore.Store
	Ledger     *ledger.Ledger
	Detector   *detector.Detector
	Supervisor *feed.Supervisor
	Scan       *service.ScanService

	// SinkQueue decouples external opportunity sinks from ingestion; nil
	// when no sinks are configured.
	SinkQueue *detector.SinkQueue

	// Optional integrations; nil when disabled in config.
	Mirror      *redis.Mirror
	Exporter    *s3blob.Exporter
	Archive     *postgres.OpportunityStore
	RateLimiter middleware.RateLimiter
	Hub         *ws.Hub
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// Sinks receiving every detected opportunity, in emission order.
	var oppSinks []domain.OpportunitySink

	// --- Redis mirror (optional) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		publisher := redis.NewPublisher(redisClient)
		oppSinks = append(oppSinks, publisher)

		// Observation mirroring consumes a supervisor subscription, so Redis
		// latency drops mirror writes instead of stalling venue read loops.
		deps.Mirror = redis.NewMirror(publisher, logger)

		deps.RateLimiter = redis.NewLimiter(redisClient)
	}

	// --- PostgreSQL archive (optional) ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.Archive = postgres.NewOpportunityStore(pgClient.Pool())
		oppSinks = append(oppSinks, deps.Archive)
	}

	// --- Notifications (optional) ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		oppSinks = append(oppSinks, notify.NewAlerter(senders, cfg.Notify.MinProfitPct, logger))
	}

	// --- WebSocket hub (only when the HTTP server runs) ---
	if cfg.Server.Enabled {
		deps.Hub = ws.NewHub(logger)
		oppSinks = append(oppSinks, deps.Hub)
	}

	// --- Core pipeline ---
	deps.Store = pricestore.New()
	deps.Ledger = ledger.New(cfg.Ledger.MaxEntries)

	// External sinks dispatch through a bounded queue so one slow
	// collaborator never stalls ingestion.
	var detectorSinks []domain.OpportunitySink
	if len(oppSinks) > 0 {
		deps.SinkQueue = detector.NewSinkQueue(oppSinks, cfg.Detector.SinkBuffer, logger)
		detectorSinks = []domain.OpportunitySink{deps.SinkQueue}
	}

	deps.Detector = detector.New(detector.Config{
		MinProfitPct: cfg.Detector.MinProfitPct,
		MaxAge:       cfg.Detector.MaxAge.Duration,
		FeePct:       cfg.FeeTable(),
	}, deps.Store, deps.Ledger, detectorSinks, logger)

	observers := []feed.Observer{deps.Detector}

	norm := symbols.NewNormalizer(cfg.Symbols)

	adapters := make([]venue.Adapter, 0, len(cfg.Venues))
	for _, vc := range cfg.Venues {
		adapter, err := venue.ForConfig(vc, norm, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: venue %s: %w", vc.Name, err)
		}
		adapters = append(adapters, adapter)
	}

	deps.Supervisor = feed.NewSupervisor(feed.Config{
		Backoff: venue.Backoff{
			Base: cfg.Feed.ReconnectBase.Duration,
			Max:  cfg.Feed.ReconnectMax.Duration,
		},
		MaxReconnectAttempts: cfg.Feed.MaxReconnectAttempts,
		ShutdownTimeout:      cfg.Feed.ShutdownTimeout.Duration,
		SubscriberBuffer:     cfg.Feed.SubscriberBuffer,
	}, adapters, deps.Store, observers, logger)

	deps.Scan = service.NewScanService(deps.Store, deps.Ledger, deps.Supervisor, cfg.Ledger.TopPairs)

	// --- S3 export (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Exporter = s3blob.NewExporter(
			s3blob.NewWriter(s3Client),
			deps.Ledger,
			cfg.S3.Prefix,
			cfg.S3.ExportInterval.Duration,
			logger,
		)
	}

	return deps, cleanup, nil
}
