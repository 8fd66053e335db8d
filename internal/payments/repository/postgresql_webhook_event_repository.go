// Package repository implements data persistence for the payment engine.
// Repositories support both PostgreSQL and MySQL; the webhook-event ledger is
// append-only and the insert itself is the idempotency claim.
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

// PostgreSQLWebhookEventRepository implements WebhookEvent persistence for
// PostgreSQL databases.
type PostgreSQLWebhookEventRepository struct {
	db *sql.DB
}

// RecordIfNew atomically inserts the event unless its provider event ID is
// already present. Returns true when the row was inserted, false when this
// delivery is a duplicate.
func (p *PostgreSQLWebhookEventRepository) RecordIfNew(
	ctx context.Context,
	event *paymentsDomain.WebhookEvent,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO webhook_events
			  (id, provider_event_id, type, raw_type, created_at, payload, processing_status, last_error, received_at, processed_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  ON CONFLICT (provider_event_id) DO NOTHING`

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
func (p *PostgreSQLWebhookEventRepository) GetByProviderEventID(
	ctx context.Context,
	providerEventID string,
) (*paymentsDomain.WebhookEvent, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, provider_event_id, type, raw_type, created_at, payload, processing_status, last_error, received_at, processed_at
			  FROM webhook_events
			  WHERE provider_event_id = $1
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
func (p *PostgreSQLWebhookEventRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status paymentsDomain.ProcessingStatus,
	lastError *string,
	processedAt *time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE webhook_events
			  SET processing_status = $1, last_error = $2, processed_at = $3
			  WHERE id = $4`

	_, err := querier.ExecContext(ctx, query, status, lastError, processedAt, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update webhook event status")
	}
	return nil
}

// CountOlderThan counts ledger rows received before the cutoff.
func (p *PostgreSQLWebhookEventRepository) CountOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COUNT(*) FROM webhook_events WHERE received_at < $1`

	var count int64
	if err := querier.QueryRowContext(ctx, query, cutoff).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count webhook events")
	}
	return count, nil
}

// DeleteOlderThan deletes ledger rows received before the cutoff and returns
// how many were removed.
func (p *PostgreSQLWebhookEventRepository) DeleteOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM webhook_events WHERE received_at < $1`

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

// NewPostgreSQLWebhookEventRepository creates a new PostgreSQL WebhookEvent
// repository instance.
func NewPostgreSQLWebhookEventRepository(db *sql.DB) *PostgreSQLWebhookEventRepository {
	return &PostgreSQLWebhookEventRepository{db: db}
}
