package domain

import "time"

// DeliveryStatus tracks a delivery through its lifecycle.
type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "pending"
	DeliveryProcessing DeliveryStatus = "processing"
	DeliveryCompleted  DeliveryStatus = "completed"
	DeliveryFailed     DeliveryStatus = "failed"
)

// Delivery is one attempted or completed transmission of a matched event to
// one webhook destination. Created by the event processor at match time,
// mutated by the queue and sender as attempts proceed.
//
// Attempts counts retries consumed so far: 0 for the initial attempt,
// incremented each time the delivery is re-queued. MaxAttempts is the
// webhook's retry budget, so a delivery makes at most MaxAttempts+1 sends.
type Delivery struct {
	ID             string         `json:"id"`
	SubscriptionID string         `json:"subscription_id"`
	WebhookID      string         `json:"webhook_id"`
	Event          *Event         `json:"event"`
	Payload        map[string]any `json:"payload,omitempty"`
	Attempts       int            `json:"attempts"`
	MaxAttempts    int            `json:"max_attempts"`
	Status         DeliveryStatus `json:"status"`
	LastError      string         `json:"last_error,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Terminal reports whether the delivery has reached a final state.
func (d *Delivery) Terminal() bool {
	return d.Status == DeliveryCompleted || d.Status == DeliveryFailed
}
