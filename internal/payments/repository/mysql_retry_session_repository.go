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

// MySQLRetrySessionRepository implements RetrySession persistence for MySQL
// databases. Updates are guarded by an optimistic version check.
type MySQLRetrySessionRepository struct {
	db *sql.DB
}

const mySQLRetrySessionColumns = `session_id, owner_id, kind, current_attempt, max_attempts,
		base_delay_ms, max_delay_ms, backoff_multiplier, next_retry_at, status,
		retryable_error_codes, error_context, version, created_at, updated_at`

// Create inserts a new retry session into the MySQL database.
func (m *MySQLRetrySessionRepository) Create(
	ctx context.Context,
	session *paymentsDomain.RetrySession,
) error {
	querier := database.GetTx(ctx, m.db)

	row, err := encodeRetrySession(session)
	if err != nil {
		return err
	}

	query := `INSERT INTO retry_sessions (` + mySQLRetrySessionColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

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
func (m *MySQLRetrySessionRepository) GetBySessionID(
	ctx context.Context,
	sessionID uuid.UUID,
) (*paymentsDomain.RetrySession, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mySQLRetrySessionColumns + `
			  FROM retry_sessions
			  WHERE session_id = ?
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
// if one exists.
func (m *MySQLRetrySessionRepository) GetActiveByOwner(
	ctx context.Context,
	ownerID string,
	kind paymentsDomain.SessionKind,
) (*paymentsDomain.RetrySession, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mySQLRetrySessionColumns + `
			  FROM retry_sessions
			  WHERE owner_id = ? AND kind = ? AND status IN ('pending', 'scheduled')
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
func (m *MySQLRetrySessionRepository) ListDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*paymentsDomain.RetrySession, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mySQLRetrySessionColumns + `
			  FROM retry_sessions
			  WHERE status = 'scheduled' AND next_retry_at <= ?
			  ORDER BY next_retry_at ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list due retry sessions")
	}
	defer rows.Close()

	return collectRetrySessions(rows)
}

// ListByStatus retrieves sessions in the given status, newest first.
func (m *MySQLRetrySessionRepository) ListByStatus(
	ctx context.Context,
	status paymentsDomain.SessionStatus,
	limit int,
	offset int,
) ([]*paymentsDomain.RetrySession, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mySQLRetrySessionColumns + `
			  FROM retry_sessions
			  WHERE status = ?
			  ORDER BY updated_at DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list retry sessions")
	}
	defer rows.Close()

	return collectRetrySessions(rows)
}

// Update persists the session's mutable fields, guarded by the version the
// caller loaded. Zero affected rows means a concurrent writer won.
func (m *MySQLRetrySessionRepository) Update(
	ctx context.Context,
	session *paymentsDomain.RetrySession,
) error {
	querier := database.GetTx(ctx, m.db)

	row, err := encodeRetrySession(session)
	if err != nil {
		return err
	}

	query := `UPDATE retry_sessions
			  SET current_attempt = ?, next_retry_at = ?, status = ?,
				  retryable_error_codes = ?, error_context = ?,
				  version = version + 1, updated_at = ?
			  WHERE session_id = ? AND version = ?`

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
func (m *MySQLRetrySessionRepository) Delete(ctx context.Context, sessionID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM retry_sessions WHERE session_id = ?`

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
func (m *MySQLRetrySessionRepository) CountTerminalOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT COUNT(*) FROM retry_sessions
			  WHERE status IN ('dead_letter', 'succeeded') AND updated_at < ?`

	var count int64
	if err := querier.QueryRowContext(ctx, query, cutoff).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count terminal retry sessions")
	}
	return count, nil
}

// DeleteTerminalOlderThan deletes terminal sessions last updated before the
// cutoff and returns how many were removed.
func (m *MySQLRetrySessionRepository) DeleteTerminalOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM retry_sessions
			  WHERE status IN ('dead_letter', 'succeeded') AND updated_at < ?`

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

// NewMySQLRetrySessionRepository creates a new MySQL RetrySession repository
// instance.
func NewMySQLRetrySessionRepository(db *sql.DB) *MySQLRetrySessionRepository {
	return &MySQLRetrySessionRepository{db: db}
}
