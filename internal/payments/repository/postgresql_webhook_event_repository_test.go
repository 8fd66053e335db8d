package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mediaplace/payments/internal/errors"
	paymentsDomain "github.com/mediaplace/payments/internal/payments/domain"
)

func newTestEvent(t *testing.T) *paymentsDomain.WebhookEvent {
	t.Helper()

	envelope := &paymentsDomain.EventEnvelope{
		ID:      "evt_test_123",
		Type:    "payment_intent.succeeded",
		Created: time.Now().Unix(),
	}
	return paymentsDomain.NewWebhookEvent(envelope, []byte(`{"id":"evt_test_123"}`), time.Now())
}

func TestPostgreSQLWebhookEventRepository_RecordIfNew(t *testing.T) {
	t.Run("inserts new event", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		event := newTestEvent(t)

		mock.ExpectExec("INSERT INTO webhook_events").
			WithArgs(
				event.ID, event.ProviderEventID, event.Type, event.RawType,
				event.CreatedAt, event.Payload, event.ProcessingStatus,
				nil, event.ReceivedAt, nil,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewPostgreSQLWebhookEventRepository(db)
		inserted, err := repo.RecordIfNew(context.Background(), event)
		require.NoError(t, err)
		assert.True(t, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports duplicate on conflict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		event := newTestEvent(t)

		// ON CONFLICT DO NOTHING affects zero rows on a replayed delivery.
		mock.ExpectExec("INSERT INTO webhook_events").
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewPostgreSQLWebhookEventRepository(db)
		inserted, err := repo.RecordIfNew(context.Background(), event)
		require.NoError(t, err)
		assert.False(t, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps database errors", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("INSERT INTO webhook_events").
			WillReturnError(assert.AnError)

		repo := NewPostgreSQLWebhookEventRepository(db)
		_, err = repo.RecordIfNew(context.Background(), newTestEvent(t))
		require.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestPostgreSQLWebhookEventRepository_GetByProviderEventID(t *testing.T) {
	columns := []string{
		"id", "provider_event_id", "type", "raw_type", "created_at",
		"payload", "processing_status", "last_error", "received_at", "processed_at",
	}

	t.Run("returns event", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		id := uuid.Must(uuid.NewV7())
		now := time.Now().UTC()
		mock.ExpectQuery("SELECT (.+) FROM webhook_events").
			WithArgs("evt_test_123").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(
				id, "evt_test_123", "payment_intent.succeeded", "payment_intent.succeeded",
				now, []byte(`{}`), "processed", nil, now, now,
			))

		repo := NewPostgreSQLWebhookEventRepository(db)
		event, err := repo.GetByProviderEventID(context.Background(), "evt_test_123")
		require.NoError(t, err)
		assert.Equal(t, id, event.ID)
		assert.Equal(t, paymentsDomain.EventPaymentSucceeded, event.Type)
		assert.Equal(t, paymentsDomain.ProcessingStatusProcessed, event.ProcessingStatus)
		require.NotNil(t, event.ProcessedAt)
	})

	t.Run("maps missing row to not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT (.+) FROM webhook_events").
			WithArgs("evt_missing").
			WillReturnRows(sqlmock.NewRows(columns))

		repo := NewPostgreSQLWebhookEventRepository(db)
		event, err := repo.GetByProviderEventID(context.Background(), "evt_missing")
		assert.Nil(t, event)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestPostgreSQLWebhookEventRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.Must(uuid.NewV7())
	processedAt := time.Now().UTC()
	lastError := "order not found for payment reference"

	mock.ExpectExec("UPDATE webhook_events").
		WithArgs(paymentsDomain.ProcessingStatusFailed, &lastError, &processedAt, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgreSQLWebhookEventRepository(db)
	err = repo.UpdateStatus(
		context.Background(), id, paymentsDomain.ProcessingStatusFailed, &lastError, &processedAt,
	)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLWebhookEventRepository_DeleteOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cutoff := time.Now().AddDate(0, 0, -90)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectExec("DELETE FROM webhook_events").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 42))

	repo := NewPostgreSQLWebhookEventRepository(db)

	count, err := repo.CountOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)

	deleted, err := repo.DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(42), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
