// Package tracker records delivery outcomes to persistent storage.
package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/relay/internal/core/domain"
	"github.com/vietddude/relay/internal/infra/storage"
)

// Tracker persists one record per send attempt and aggregates statistics.
// Persistence failures are logged and swallowed: a tracking error must never
// mask the delivery outcome it records.
type Tracker struct {
	repo storage.DeliveryRepository
}

// New creates a tracker over a delivery repository.
func New(repo storage.DeliveryRepository) *Tracker {
	return &Tracker{repo: repo}
}

// Track persists one attempt record. DeliveredAt is set only when the result
// indicates a successful 2xx delivery.
func (t *Tracker) Track(ctx context.Context, d *domain.Delivery, res *domain.Result) {
	if t == nil || t.repo == nil || d == nil || res == nil {
		return
	}

	now := time.Now().UTC()
	rec := &storage.DeliveryRecord{
		ID:             uuid.New().String(),
		DeliveryID:     d.ID,
		SubscriptionID: d.SubscriptionID,
		WebhookID:      d.WebhookID,
		Attempt:        d.Attempts,
		Success:        res.Success,
		StatusCode:     res.StatusCode,
		ResponseTimeMs: res.ResponseTime.Milliseconds(),
		Error:          res.Error,
		CreatedAt:      now,
	}
	if res.Delivered() {
		rec.DeliveredAt = &now
	}

	if err := t.repo.Insert(ctx, rec); err != nil {
		slog.Error("Failed to track delivery attempt",
			"delivery_id", d.ID, "webhook_id", d.WebhookID, "error", err)
	}
}

// Stats aggregates historical attempt records for a webhook endpoint.
func (t *Tracker) Stats(ctx context.Context, webhookID string) (*storage.DeliveryStats, error) {
	return t.repo.GetStats(ctx, webhookID)
}
