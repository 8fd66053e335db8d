package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/mediaplace/payments/internal/database"
	apperrors "github.com/mediaplace/payments/internal/errors"
	paymentsDomain "github.com/mediaplace/payments/internal/payments/domain"
)

// MySQLWebhookEventRepository implements WebhookEvent persistence for MySQL
// databases.
type MySQLWebhookEventRepository struct {
	db *sql.DB
}

// RecordIfNew atomically inserts the event unless its provider event ID is
// already present. INSERT IGNORE reports zero affected rows on a duplicate.
func (m *MySQLWebhookEventRepository) RecordIfNew(
	ctx context.Context,
	event *paymentsDomain.WebhookEvent,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT IGNORE INTO webhook_events
			  (id, provider_event_id, type, raw_type, created_at, payload, processing_status, last_error, received_at, processed_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := querier.ExecContext(
		ctx,
		query,
		event.ID,
		event.ProviderEventID,
		event.Type,
		event.RawType,
		event.CreatedAt,
		event.Payload,
		event.ProcessingStatus,
		event.LastError,
		event.ReceivedAt,
		event.ProcessedAt,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to record webhook event")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read webhook event insert result")
	}
	return rows == 1, nil
}

// GetByProviderEventID retrieves a ledger row by the provider-assigned event ID.
func (m *MySQLWebhookEventRepository) GetByProviderEventID(
	ctx context.Context,
	providerEventID string,
) (*paymentsDomain.WebhookEvent, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, provider_event_id, type, raw_type, created_at, payload, processing_status, last_error, received_at, processed_at
			  FROM webhook_events
			  WHERE provider_event_id = ?
			  LIMIT 1`

	var event paymentsDomain.WebhookEvent
	err := querier.QueryRowContext(ctx, query, providerEventID).Scan(
		&event.ID,
		&event.ProviderEventID,
		&event.Type,
		&event.RawType,
		&event.CreatedAt,
		&event.Payload,
		&event.ProcessingStatus,
		&event.LastError,
		&event.ReceivedAt,
		&event.ProcessedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, paymentsDomain.ErrEventNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get webhook event")
	}

	return &event, nil
}

// UpdateStatus records the processing outcome of a ledger row.
func (m *MySQLWebhookEventRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status paymentsDomain.ProcessingStatus,
	lastError *string,
	processedAt *time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE webhook_events
			  SET processing_status = ?, last_error = ?, processed_at = ?
			  WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, status, lastError, processedAt, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update webhook event status")
	}
	return nil
}

// CountOlderThan counts ledger rows received before the cutoff.
func (m *MySQLWebhookEventRepository) CountOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT COUNT(*) FROM webhook_events WHERE received_at < ?`

	var count int64
	if err := querier.QueryRowContext(ctx, query, cutoff).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count webhook events")
	}
	return count, nil
}

// DeleteOlderThan deletes ledger rows received before the cutoff and returns
// how many were removed.
func (m *MySQLWebhookEventRepository) DeleteOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM webhook_events WHERE received_at < ?`

	result, err := querier.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete webhook events")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read webhook event delete result")
	}
	return rows, nil
}

// NewMySQLWebhookEventRepository creates a new MySQL WebhookEvent repository
// instance.
func NewMySQLWebhookEventRepository(db *sql.DB) *MySQLWebhookEventRepository {
	return &MySQLWebhookEventRepository{db: db}
}
