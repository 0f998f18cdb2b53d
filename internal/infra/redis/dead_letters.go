package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vietddude/relay/internal/core/domain"
)

const deadLetterTTL = 7 * 24 * time.Hour

// DeadLetter holds a terminally failed delivery for later inspection or
// manual requeue.
type DeadLetter struct {
	Delivery *domain.Delivery `json:"delivery"`
	Reason   string           `json:"reason"`
	FailedAt time.Time        `json:"failed_at"`
}

// DeadLetterQueue stores terminally failed deliveries in Redis, keyed per
// webhook so operators can requeue one endpoint at a time.
type DeadLetterQueue struct {
	rdb *redis.Client
}

// NewDeadLetterQueue creates a Redis-backed dead-letter queue.
func NewDeadLetterQueue(client *Client) *DeadLetterQueue {
	return &DeadLetterQueue{rdb: client.rdb}
}

// Key helpers
func queueKey(webhookID string) string {
	return fmt.Sprintf("dead_letters:%s", webhookID)
}

func entryKey(webhookID, deliveryID string) string {
	return fmt.Sprintf("dead_letter:%s:%s", webhookID, deliveryID)
}

// Push records a terminally failed delivery.
func (q *DeadLetterQueue) Push(ctx context.Context, d *domain.Delivery, reason string) error {
	dl := DeadLetter{Delivery: d, Reason: reason, FailedAt: time.Now().UTC()}
	data, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	if err := q.rdb.Set(ctx, entryKey(d.WebhookID, d.ID), data, deadLetterTTL).Err(); err != nil {
		return fmt.Errorf("failed to set dead letter: %w", err)
	}

	// Sorted by failure time so the oldest comes back first.
	if err := q.rdb.ZAdd(ctx, queueKey(d.WebhookID), redis.Z{
		Score:  float64(dl.FailedAt.Unix()),
		Member: d.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to dead letter queue: %w", err)
	}

	return nil
}

// Next returns the oldest dead letter for a webhook, or nil when empty.
func (q *DeadLetterQueue) Next(ctx context.Context, webhookID string) (*DeadLetter, error) {
	ids, err := q.rdb.ZRange(ctx, queueKey(webhookID), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	data, err := q.rdb.Get(ctx, entryKey(webhookID, ids[0])).Bytes()
	if err == redis.Nil {
		// Entry expired but the id is still queued; drop it.
		q.rdb.ZRem(ctx, queueKey(webhookID), ids[0])
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dead letter: %w", err)
	}

	var dl DeadLetter
	if err := json.Unmarshal(data, &dl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dead letter: %w", err)
	}
	return &dl, nil
}

// Remove deletes a dead letter after it has been requeued or discarded.
func (q *DeadLetterQueue) Remove(ctx context.Context, webhookID, deliveryID string) error {
	if err := q.rdb.ZRem(ctx, queueKey(webhookID), deliveryID).Err(); err != nil {
		return fmt.Errorf("failed to remove from dead letter queue: %w", err)
	}
	if err := q.rdb.Del(ctx, entryKey(webhookID, deliveryID)).Err(); err != nil {
		return fmt.Errorf("failed to delete dead letter: %w", err)
	}
	return nil
}

// Count returns the number of dead letters queued for a webhook.
func (q *DeadLetterQueue) Count(ctx context.Context, webhookID string) (int64, error) {
	n, err := q.rdb.ZCard(ctx, queueKey(webhookID)).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return n, nil
}
