package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no records exist for a lookup.
var ErrNotFound = errors.New("record not found")

// DeliveryRecord is one persisted send attempt. Records are append-only:
// every attempt produces a new record, never an update of a prior one.
type DeliveryRecord struct {
	ID             string     `db:"id"`
	DeliveryID     string     `db:"delivery_id"`
	SubscriptionID string     `db:"subscription_id"`
	WebhookID      string     `db:"webhook_id"`
	Attempt        int        `db:"attempt"`
	Success        bool       `db:"success"`
	StatusCode     int        `db:"status_code"`
	ResponseTimeMs int64      `db:"response_time_ms"`
	Error          string     `db:"error"`
	DeliveredAt    *time.Time `db:"delivered_at"`
	CreatedAt      time.Time  `db:"created_at"`
}

// DeliveryStats aggregates historical records for one webhook endpoint.
type DeliveryStats struct {
	WebhookID     string     `db:"webhook_id"     json:"webhook_id"`
	Total         int        `db:"total"          json:"total"`
	Succeeded     int        `db:"succeeded"      json:"succeeded"`
	Failed        int        `db:"failed"         json:"failed"`
	AvgResponseMs float64    `db:"avg_response_ms" json:"avg_response_ms"`
	MinResponseMs int64      `db:"min_response_ms" json:"min_response_ms"`
	MaxResponseMs int64      `db:"max_response_ms" json:"max_response_ms"`
	LastDelivered *time.Time `db:"last_delivered" json:"last_delivered,omitempty"`
}

// DeliveryRepository handles delivery attempt storage.
type DeliveryRepository interface {
	// Insert appends one attempt record.
	Insert(ctx context.Context, rec *DeliveryRecord) error

	// GetStats aggregates records for a webhook id.
	GetStats(ctx context.Context, webhookID string) (*DeliveryStats, error)

	// ListByWebhook returns the most recent records for a webhook id.
	ListByWebhook(ctx context.Context, webhookID string, limit int) ([]*DeliveryRecord, error)

	// DeleteOlderThan prunes records created before the cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
