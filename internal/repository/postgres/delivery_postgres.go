package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"acceptapi/internal/model"
	"acceptapi/internal/repository"
)

// DeliveryPostgres stores notification outcomes in PostgreSQL.
type DeliveryPostgres struct {
	db *sql.DB
}

func NewDeliveryPostgres(db *sql.DB) *DeliveryPostgres {
	return &DeliveryPostgres{db: db}
}

var _ repository.DeliveryRepository = (*DeliveryPostgres)(nil)

// Record inserts all rows in one transaction.
func (r *DeliveryPostgres) Record(ctx context.Context, deliveries []model.Delivery) error {
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
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, d := range deliveries {
		if _, err := tx.ExecContext(ctx, q, d.DocumentID, d.Channel, d.Status, d.Attempts, d.Error, d.DeliveredAt); err != nil {
			return fmt.Errorf("insert delivery %s: %w", d.Channel, err)
		}
	}
	return tx.Commit()
}

// ListByDocument returns the delivery rows for documentID.
func (r *DeliveryPostgres) ListByDocument(ctx context.Context, documentID string) ([]model.Delivery, error) {
	const q = `
		SELECT document_id, channel, status, attempts, error, delivered_at
		FROM notification_deliveries
		WHERE document_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Delivery, 0)
	for rows.Next() {
		var d model.Delivery
		if err := rows.Scan(&d.DocumentID, &d.Channel, &d.Status, &d.Attempts, &d.Error, &d.DeliveredAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
