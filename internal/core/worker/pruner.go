package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/relay/internal/infra/storage"
)

// Pruner deletes old delivery records based on retention policy.
type Pruner struct {
	retention time.Duration
	repo      storage.DeliveryRepository
}

// NewPruner creates a new Pruner worker. A non-positive retention disables
// pruning.
func NewPruner(retention time.Duration, repo storage.DeliveryRepository) *Pruner {
	return &Pruner{retention: retention, repo: repo}
}

// Start runs the pruner loop until ctx is cancelled.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	interval := min(p.retention/10, time.Hour)
	interval = max(interval, time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().Add(-p.retention)
	n, err := p.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to prune delivery records", "error", err)
		return
	}
	if n > 0 {
		slog.Debug("Pruned delivery records", "count", n, "cutoff", cutoff)
	}
}
