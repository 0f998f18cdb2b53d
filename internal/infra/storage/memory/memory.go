package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/relay/internal/infra/storage"
)

// DeliveryRepo is an in-memory storage.DeliveryRepository used in tests and
// when no database is configured.
type DeliveryRepo struct {
	mu      sync.RWMutex
	records []*storage.DeliveryRecord
}

func NewDeliveryRepo() *DeliveryRepo {
	return &DeliveryRepo{}
}

func (r *DeliveryRepo) Insert(ctx context.Context, rec *storage.DeliveryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records = append(r.records, &cp)
	return nil
}

func (r *DeliveryRepo) GetStats(ctx context.Context, webhookID string) (*storage.DeliveryStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &storage.DeliveryStats{WebhookID: webhookID}
	var totalMs int64
	for _, rec := range r.records {
		if rec.WebhookID != webhookID {
			continue
		}
		stats.Total++
		if rec.Success {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
		totalMs += rec.ResponseTimeMs
		if stats.Total == 1 || rec.ResponseTimeMs < stats.MinResponseMs {
			stats.MinResponseMs = rec.ResponseTimeMs
		}
		if rec.ResponseTimeMs > stats.MaxResponseMs {
			stats.MaxResponseMs = rec.ResponseTimeMs
		}
		if rec.DeliveredAt != nil &&
			(stats.LastDelivered == nil || rec.DeliveredAt.After(*stats.LastDelivered)) {
			stats.LastDelivered = rec.DeliveredAt
		}
	}
	if stats.Total > 0 {
		stats.AvgResponseMs = float64(totalMs) / float64(stats.Total)
	}
	return stats, nil
}

func (r *DeliveryRepo) ListByWebhook(ctx context.Context, webhookID string, limit int) ([]*storage.DeliveryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	var out []*storage.DeliveryRecord
	for _, rec := range r.records {
		if rec.WebhookID == webhookID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *DeliveryRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	var pruned int64
	for _, rec := range r.records {
		if rec.CreatedAt.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return pruned, nil
}
