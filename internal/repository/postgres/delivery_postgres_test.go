package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"acceptapi/internal/model"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryPostgres_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDeliveryPostgres(db)
	ctx := context.Background()
	now := time.Now().UTC()

	rows := []model.Delivery{
		{DocumentID: "doc", Channel: "slack", Status: model.DeliveryDelivered, Attempts: 1, DeliveredAt: now},
		{DocumentID: "doc", Channel: "sms", Status: model.DeliveryFailed, Attempts: 3, Error: "401", DeliveredAt: now},
	}

	t.Run("commits all rows", func(t *testing.T) {
		mock.ExpectBegin()
		for _, d := range rows {
			mock.ExpectExec("INSERT INTO notification_deliveries").
				WithArgs(d.DocumentID, d.Channel, d.Status, d.Attempts, d.Error, d.DeliveredAt).
				WillReturnResult(sqlmock.NewResult(1, 1))
		}
		mock.ExpectCommit()

		assert.NoError(t, repo.Record(ctx, rows))
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO notification_deliveries").
			WillReturnError(errors.New("fk violation"))
		mock.ExpectRollback()

		err := repo.Record(ctx, rows)
		assert.ErrorContains(t, err, "insert delivery slack")
	})

	t.Run("nothing to record", func(t *testing.T) {
		assert.NoError(t, repo.Record(ctx, nil))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliveryPostgres_ListByDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDeliveryPostgres(db)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM notification_deliveries WHERE document_id = ?").
		WithArgs("doc").
		WillReturnRows(sqlmock.NewRows([]string{"document_id", "channel", "status", "attempts", "error", "delivered_at"}).
			AddRow("doc", "webhook", model.DeliveryDelivered, 2, "", now))

	got, err := repo.ListByDocument(context.Background(), "doc")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "webhook", got[0].Channel)
	assert.Equal(t, 2, got[0].Attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
