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

// PostgreSQLRetrySessionRepository implements RetrySession persistence for
// PostgreSQL databases. Updates are guarded by an optimistic version check.
type PostgreSQLRetrySessionRepository struct {
	db *sql.DB
}

const postgreSQLRetrySessionColumns = `session_id, owner_id, kind, current_attempt, max_attempts,
		base_delay_ms, max_delay_ms, backoff_multiplier, next_retry_at, status,
		retryable_error_codes, error_context, version, created_at, updated_at`

// Create inserts a new retry session into the PostgreSQL database.
func (p *PostgreSQLRetrySessionRepository) Create(
	ctx context.Context,
	session *paymentsDomain.RetrySession,
) error {
	querier := database.GetTx(ctx, p.db)

	row, err := encodeRetrySession(session)
	if err != nil {
		return err
	}

	query := `INSERT INTO retry_sessions (` + postgreSQLRetrySessionColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = querier.ExecContext(
		ctx,
		query,
		session.SessionID,
		session.OwnerID,
		session.Kind,
		session.CurrentAttempt,
		session.MaxAttempts,
		row.baseDelayMs,
		row.maxDelayMs,
		session.BackoffMultiplier,
		session.NextRetryAt,
		session.Status,
		row.retryableCodes,
		row.errorContext,
		session.Version,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create retry session")
	}
	return nil
}

// GetBySessionID retrieves a retry session by its identifier.
func (p *PostgreSQLRetrySessionRepository) GetBySessionID(
	ctx context.Context,
	sessionID uuid.UUID,
) (*paymentsDomain.RetrySession, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgreSQLRetrySessionColumns + `
			  FROM retry_sessions
			  WHERE session_id = $1
			  LIMIT 1`

	session, err := scanRetrySession(querier.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, paymentsDomain.ErrSessionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get retry session")
	}
	return session, nil
}

// GetActiveByOwner retrieves the non-terminal session for an owner and kind,
// if one exists. At most one active session per owner and kind is maintained.
func (p *PostgreSQLRetrySessionRepository) GetActiveByOwner(
	ctx context.Context,
	ownerID string,
	kind paymentsDomain.SessionKind,
) (*paymentsDomain.RetrySession, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgreSQLRetrySessionColumns + `
			  FROM retry_sessions
			  WHERE owner_id = $1 AND kind = $2 AND status IN ('pending', 'scheduled')
			  ORDER BY created_at DESC
			  LIMIT 1`

	session, err := scanRetrySession(querier.QueryRowContext(ctx, query, ownerID, kind))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, paymentsDomain.ErrSessionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get active retry session")
	}
	return session, nil
}

// ListDue retrieves scheduled sessions whose next retry time has passed,
// oldest first.
func (p *PostgreSQLRetrySessionRepository) ListDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*paymentsDomain.RetrySession, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgreSQLRetrySessionColumns + `
			  FROM retry_sessions
			  WHERE status = 'scheduled' AND next_retry_at <= $1
			  ORDER BY next_retry_at ASC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list due retry sessions")
	}
	defer rows.Close()

	return collectRetrySessions(rows)
}

// ListByStatus retrieves sessions in the given status, newest first.
func (p *PostgreSQLRetrySessionRepository) ListByStatus(
	ctx context.Context,
	status paymentsDomain.SessionStatus,
	limit int,
	offset int,
) ([]*paymentsDomain.RetrySession, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgreSQLRetrySessionColumns + `
			  FROM retry_sessions
			  WHERE status = $1
			  ORDER BY updated_at DESC
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list retry sessions")
	}
	defer rows.Close()

	return collectRetrySessions(rows)
}

// Update persists the session's mutable fields. The WHERE clause carries the
// version the caller loaded; zero affected rows means a concurrent writer won
// and the caller must reload.
func (p *PostgreSQLRetrySessionRepository) Update(
	ctx context.Context,
	session *paymentsDomain.RetrySession,
) error {
	querier := database.GetTx(ctx, p.db)

	row, err := encodeRetrySession(session)
	if err != nil {
		return err
	}

	query := `UPDATE retry_sessions
			  SET current_attempt = $1, next_retry_at = $2, status = $3,
				  retryable_error_codes = $4, error_context = $5,
				  version = version + 1, updated_at = $6
			  WHERE session_id = $7 AND version = $8`

	result, err := querier.ExecContext(
		ctx,
		query,
		session.CurrentAttempt,
		session.NextRetryAt,
		session.Status,
		row.retryableCodes,
		row.errorContext,
		session.UpdatedAt,
		session.SessionID,
		session.Version,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update retry session")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read retry session update result")
	}
	if rows == 0 {
		return paymentsDomain.ErrStaleSession
	}

	session.Version++
	return nil
}

// Delete removes a retry session.
func (p *PostgreSQLRetrySessionRepository) Delete(ctx context.Context, sessionID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM retry_sessions WHERE session_id = $1`

	result, err := querier.ExecContext(ctx, query, sessionID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete retry session")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read retry session delete result")
	}
	if rows == 0 {
		return paymentsDomain.ErrSessionNotFound
	}
	return nil
}

// CountTerminalOlderThan counts terminal sessions last updated before the cutoff.
func (p *PostgreSQLRetrySessionRepository) CountTerminalOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COUNT(*) FROM retry_sessions
			  WHERE status IN ('dead_letter', 'succeeded') AND updated_at < $1`

	var count int64
	if err := querier.QueryRowContext(ctx, query, cutoff).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count terminal retry sessions")
	}
	return count, nil
}

// DeleteTerminalOlderThan deletes terminal sessions last updated before the
// cutoff and returns how many were removed.
func (p *PostgreSQLRetrySessionRepository) DeleteTerminalOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM retry_sessions
			  WHERE status IN ('dead_letter', 'succeeded') AND updated_at < $1`

	result, err := querier.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete terminal retry sessions")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read retry session delete result")
	}
	return rows, nil
}

// NewPostgreSQLRetrySessionRepository creates a new PostgreSQL RetrySession
// repository instance.
func NewPostgreSQLRetrySessionRepository(db *sql.DB) *PostgreSQLRetrySessionRepository {
	return &PostgreSQLRetrySessionRepository{db: db}
}
