package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	apperrors "github.com/mediaplace/payments/internal/errors"
	paymentsDomain "github.com/mediaplace/payments/internal/payments/domain"
)

// retrySessionRow is the flat column form of a RetrySession. Delays are stored
// as milliseconds, the error code set and error context as JSON documents.
type retrySessionRow struct {
	retryableCodes []byte
	errorContext   []byte
	baseDelayMs    int64
	maxDelayMs     int64
}

// encodeRetrySession converts domain fields to their column form.
func encodeRetrySession(session *paymentsDomain.RetrySession) (*retrySessionRow, error) {
	codes, err := json.Marshal(session.RetryableErrorCodes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode retryable error codes")
	}

	var errorContext []byte
	if session.ErrorContext != nil {
		errorContext, err = json.Marshal(session.ErrorContext)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to encode error context")
		}
	}

	return &retrySessionRow{
		retryableCodes: codes,
		errorContext:   errorContext,
		baseDelayMs:    session.BaseDelay.Milliseconds(),
		maxDelayMs:     session.MaxDelay.Milliseconds(),
	}, nil
}

// decodeInto fills the JSON and duration fields of session from the row.
func (r *retrySessionRow) decodeInto(session *paymentsDomain.RetrySession) error {
	if len(r.retryableCodes) > 0 {
		if err := json.Unmarshal(r.retryableCodes, &session.RetryableErrorCodes); err != nil {
			return apperrors.Wrap(err, "failed to decode retryable error codes")
		}
	}
	if len(r.errorContext) > 0 {
		var details paymentsDomain.ErrorDetails
		if err := json.Unmarshal(r.errorContext, &details); err != nil {
			return apperrors.Wrap(err, "failed to decode error context")
		}
		session.ErrorContext = &details
	}
	session.BaseDelay = time.Duration(r.baseDelayMs) * time.Millisecond
	session.MaxDelay = time.Duration(r.maxDelayMs) * time.Millisecond
	return nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRetrySession scans one session in column order. sql.ErrNoRows passes
// through untouched so callers can map it to their sentinel.
func scanRetrySession(scanner rowScanner) (*paymentsDomain.RetrySession, error) {
	var session paymentsDomain.RetrySession
	var row retrySessionRow

	err := scanner.Scan(
		&session.SessionID,
		&session.OwnerID,
		&session.Kind,
		&session.CurrentAttempt,
		&session.MaxAttempts,
		&row.baseDelayMs,
		&row.maxDelayMs,
		&session.BackoffMultiplier,
		&session.NextRetryAt,
		&session.Status,
		&row.retryableCodes,
		&row.errorContext,
		&session.Version,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := row.decodeInto(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

// collectRetrySessions drains rows into domain sessions.
func collectRetrySessions(rows *sql.Rows) ([]*paymentsDomain.RetrySession, error) {
	var sessions []*paymentsDomain.RetrySession
	for rows.Next() {
		session, err := scanRetrySession(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan retry session")
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate retry sessions")
	}
	return sessions, nil
}
