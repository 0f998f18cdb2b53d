package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"time"

	"github.com/vietddude/relay/internal/infra/storage"
)

// DeliveryRepo implements storage.DeliveryRepository on PostgreSQL.
type DeliveryRepo struct {
	db *DB
}

func NewDeliveryRepo(db *DB) *DeliveryRepo {
	return &DeliveryRepo{db: db}
}

func (r *DeliveryRepo) Insert(ctx context.Context, rec *storage.DeliveryRecord) error {
	query := `
		INSERT INTO webhook_deliveries
			(id, delivery_id, subscription_id, webhook_id, attempt, success,
			 status_code, response_time_ms, error, delivered_at, created_at)
		VALUES
			(:id, :delivery_id, :subscription_id, :webhook_id, :attempt, :success,
			 :status_code, :response_time_ms, :error, :delivered_at, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("insert delivery record: %w", err)
	}
	return nil
}

func (r *DeliveryRepo) GetStats(ctx context.Context, webhookID string) (*storage.DeliveryStats, error) {
	query := `
		SELECT
			webhook_id,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE success) AS succeeded,
			COUNT(*) FILTER (WHERE NOT success) AS failed,
			COALESCE(AVG(response_time_ms), 0) AS avg_response_ms,
			COALESCE(MIN(response_time_ms), 0) AS min_response_ms,
			COALESCE(MAX(response_time_ms), 0) AS max_response_ms,
			MAX(delivered_at) AS last_delivered
		FROM webhook_deliveries
		WHERE webhook_id = $1
		GROUP BY webhook_id
	`
	var stats storage.DeliveryStats
	if err := r.db.GetContext(ctx, &stats, query, webhookID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &storage.DeliveryStats{WebhookID: webhookID}, nil
		}
		return nil, fmt.Errorf("get delivery stats: %w", err)
	}
	return &stats, nil
}

func (r *DeliveryRepo) ListByWebhook(ctx context.Context, webhookID string, limit int) ([]*storage.DeliveryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, delivery_id, subscription_id, webhook_id, attempt, success,
		       status_code, response_time_ms, error, delivered_at, created_at
		FROM webhook_deliveries
		WHERE webhook_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	var recs []*storage.DeliveryRecord
	if err := r.db.SelectContext(ctx, &recs, query, webhookID, limit); err != nil {
		return nil, fmt.Errorf("list delivery records: %w", err)
	}
	return recs, nil
}

func (r *DeliveryRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM webhook_deliveries WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune delivery records: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
