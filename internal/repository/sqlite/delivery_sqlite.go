package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"acceptapi/internal/model"
	"acceptapi/internal/repository"
)

// DeliveryRepository handles notification delivery persistence.
type DeliveryRepository struct {
	db *sql.DB
}

func NewDeliveryRepository(db *sql.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

var _ repository.DeliveryRepository = (*DeliveryRepository)(nil)

// Record inserts all rows in one transaction.
func (r *DeliveryRepository) Record(ctx context.Context, deliveries []model.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
		INSERT INTO notification_deliveries (document_id, channel, status, attempts, error, delivered_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, d := range deliveries {
		if _, err := tx.ExecContext(ctx, q, d.DocumentID, d.Channel, d.Status, d.Attempts, d.Error, d.DeliveredAt.UTC()); err != nil {
			return fmt.Errorf("insert delivery %s: %w", d.Channel, err)
		}
	}
	return tx.Commit()
}

// ListByDocument returns the rows recorded for documentID.
func (r *DeliveryRepository) ListByDocument(ctx context.Context, documentID string) ([]model.Delivery, error) {
	const q = `
		SELECT document_id, channel, status, attempts, error, delivered_at
		FROM notification_deliveries
		WHERE document_id = ?
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	out := make([]model.Delivery, 0)
	for rows.Next() {
		var d model.Delivery
		if err := rows.Scan(&d.DocumentID, &d.Channel, &d.Status, &d.Attempts, &d.Error, &d.DeliveredAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
