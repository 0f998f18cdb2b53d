package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vietddude/relay/internal/core/config"
	"github.com/vietddude/relay/internal/core/worker"
	"github.com/vietddude/relay/internal/delivery/breaker"
	"github.com/vietddude/relay/internal/delivery/health"
	"github.com/vietddude/relay/internal/delivery/processor"
	"github.com/vietddude/relay/internal/delivery/queue"
	"github.com/vietddude/relay/internal/delivery/sender"
	"github.com/vietddude/relay/internal/delivery/source"
	"github.com/vietddude/relay/internal/delivery/tracker"
	redisclient "github.com/vietddude/relay/internal/infra/redis"
	"github.com/vietddude/relay/internal/infra/storage"
	"github.com/vietddude/relay/internal/infra/storage/memory"
	"github.com/vietddude/relay/internal/infra/storage/postgres"
	"github.com/vietddude/relay/internal/infra/transport"
)

// Relay is the main application struct wiring the delivery pipeline.
type Relay struct {
	cfg config.AppConfig

	src          *source.ChannelSource
	proc         *processor.Processor
	breakers     *breaker.Registry
	track        *tracker.Tracker
	pruner       *worker.Pruner
	healthServer *health.Server

	db          *postgres.DB
	redisClient *redisclient.Client

	prunerCancel context.CancelFunc
}

// NewRelay creates a Relay instance with all dependencies initialized.
func NewRelay(cfg config.AppConfig) (*Relay, error) {
	r := &Relay{cfg: cfg}

	// 1. Storage
	var repo storage.DeliveryRepository
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate("migrations"); err != nil {
			return nil, err
		}
		r.db = db
		repo = postgres.NewDeliveryRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		repo = memory.NewDeliveryRepo()
		slog.Info("Using Memory storage")
	}

	// 2. Dead-letter queue (optional)
	var dead queue.DeadLetterSink
	if cfg.Redis.URL != "" {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		r.redisClient = rc
		dead = redisclient.NewDeadLetterQueue(rc)
		slog.Info("Dead-letter queue enabled")
	}

	// 3. Pipeline
	r.breakers = breaker.NewRegistry(cfg.Breaker)
	r.track = tracker.New(repo)
	snd := sender.New(transport.NewHTTPTransport(), r.breakers, r.track)
	q := queue.New(cfg.Queue, snd, dead)

	r.src = source.NewChannelSource(0)
	r.proc = processor.New(r.src, q, snd)

	for i := range cfg.Subscriptions {
		if err := r.proc.AddSubscription(&cfg.Subscriptions[i]); err != nil {
			return nil, err
		}
	}

	// 4. Supporting workers
	r.pruner = worker.NewPruner(cfg.Retention, repo)
	monitor := health.NewMonitor(r.proc, r.breakers)
	r.healthServer = health.NewServer(monitor, cfg.Server.Port)

	return r, nil
}

// Start starts the pipeline, health server and background workers.
func (r *Relay) Start(ctx context.Context) error {
	if err := r.proc.Start(ctx); err != nil {
		return err
	}

	prunerCtx, cancel := context.WithCancel(context.Background())
	r.prunerCancel = cancel
	go r.pruner.Start(prunerCtx)

	go func() {
		slog.Info("Health server listening", "port", r.cfg.Server.Port)
		if err := r.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Health server error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the pipeline down, draining in-flight deliveries.
func (r *Relay) Stop(ctx context.Context) error {
	if r.prunerCancel != nil {
		r.prunerCancel()
	}
	if err := r.healthServer.Stop(ctx); err != nil {
		slog.Warn("Health server shutdown error", "error", err)
	}

	err := r.proc.Stop(ctx)

	if r.redisClient != nil {
		_ = r.redisClient.Close()
	}
	if r.db != nil {
		_ = r.db.Close()
	}
	return err
}

// Processor exposes the event processor for subscription management.
func (r *Relay) Processor() *processor.Processor {
	return r.proc
}

// Source exposes the in-process event source for event injection.
func (r *Relay) Source() *source.ChannelSource {
	return r.src
}

// Tracker exposes the delivery tracker for statistics queries.
func (r *Relay) Tracker() *tracker.Tracker {
	return r.track
}
