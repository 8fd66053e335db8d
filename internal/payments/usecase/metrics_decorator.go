package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mediaplace/payments/internal/metrics"
	paymentsDomain "github.com/mediaplace/payments/internal/payments/domain"
)

// dispatcherWithMetrics decorates DispatcherUseCase with metrics
// instrumentation.
type dispatcherWithMetrics struct {
	next    DispatcherUseCase
	metrics metrics.BusinessMetrics
}

// NewDispatcherWithMetrics wraps a DispatcherUseCase with metrics recording.
func NewDispatcherWithMetrics(useCase DispatcherUseCase, m metrics.BusinessMetrics) DispatcherUseCase {
	return &dispatcherWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Dispatch records metrics for inbound webhook processing. The dispatch status
// (processed, duplicate, unhandled, logged) is the metric status so duplicate
// storms are visible separately from real throughput.
func (d *dispatcherWithMetrics) Dispatch(
	ctx context.Context,
	rawBody []byte,
	signatureHeader string,
) (*paymentsDomain.DispatchResult, error) {
	start := time.Now()
	result, err := d.next.Dispatch(ctx, rawBody, signatureHeader)

	status := "error"
	if err == nil {
		status = string(result.Status)
	}

	d.metrics.RecordOperation(ctx, "payments", "webhook_dispatch", status)
	d.metrics.RecordDuration(ctx, "payments", "webhook_dispatch", time.Since(start), status)

	return result, err
}

// Redispatch records metrics for retry-driven re-dispatch operations.
func (d *dispatcherWithMetrics) Redispatch(ctx context.Context, providerEventID string) error {
	start := time.Now()
	err := d.next.Redispatch(ctx, providerEventID)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "payments", "webhook_redispatch", status)
	d.metrics.RecordDuration(ctx, "payments", "webhook_redispatch", time.Since(start), status)

	return err
}

// schedulerWithMetrics decorates RetrySchedulerUseCase with metrics
// instrumentation on the operator-facing and failure-path operations.
type schedulerWithMetrics struct {
	next    RetrySchedulerUseCase
	metrics metrics.BusinessMetrics
}

// NewRetrySchedulerWithMetrics wraps a RetrySchedulerUseCase with metrics
// recording.
func NewRetrySchedulerWithMetrics(
	useCase RetrySchedulerUseCase,
	m metrics.BusinessMetrics,
) RetrySchedulerUseCase {
	return &schedulerWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (s *schedulerWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "payments", operation, status)
	s.metrics.RecordDuration(ctx, "payments", operation, time.Since(start), status)
}

func (s *schedulerWithMetrics) RecordFailure(
	ctx context.Context,
	ownerID string,
	kind paymentsDomain.SessionKind,
	details *paymentsDomain.ErrorDetails,
) (*paymentsDomain.RetrySession, error) {
	start := time.Now()
	session, err := s.next.RecordFailure(ctx, ownerID, kind, details)
	s.record(ctx, "retry_record_failure", start, err)
	return session, err
}

func (s *schedulerWithMetrics) ResolveSuccess(
	ctx context.Context,
	ownerID string,
	kind paymentsDomain.SessionKind,
) error {
	start := time.Now()
	err := s.next.ResolveSuccess(ctx, ownerID, kind)
	s.record(ctx, "retry_resolve_success", start, err)
	return err
}

func (s *schedulerWithMetrics) DueSessions(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*paymentsDomain.RetrySession, error) {
	return s.next.DueSessions(ctx, now, limit)
}

func (s *schedulerWithMetrics) Advance(
	ctx context.Context,
	session *paymentsDomain.RetrySession,
	outcome paymentsDomain.AttemptOutcome,
) error {
	start := time.Now()
	err := s.next.Advance(ctx, session, outcome)

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case session.Status == paymentsDomain.SessionStatusDeadLetter:
		status = "dead_letter"
	}
	s.metrics.RecordOperation(ctx, "payments", "retry_advance", status)
	s.metrics.RecordDuration(ctx, "payments", "retry_advance", time.Since(start), status)

	return err
}

func (s *schedulerWithMetrics) ShouldAutoRetry(session *paymentsDomain.RetrySession) bool {
	return s.next.ShouldAutoRetry(session)
}

func (s *schedulerWithMetrics) NextDelay(session *paymentsDomain.RetrySession) time.Duration {
	return s.next.NextDelay(session)
}

func (s *schedulerWithMetrics) ListDeadLetter(
	ctx context.Context,
	limit int,
	offset int,
) ([]*paymentsDomain.RetrySession, error) {
	return s.next.ListDeadLetter(ctx, limit, offset)
}

func (s *schedulerWithMetrics) Reprocess(
	ctx context.Context,
	sessionID uuid.UUID,
) (*paymentsDomain.RetrySession, error) {
	start := time.Now()
	session, err := s.next.Reprocess(ctx, sessionID)
	s.record(ctx, "retry_reprocess", start, err)
	return session, err
}

func (s *schedulerWithMetrics) DeleteDeadLetter(ctx context.Context, sessionID uuid.UUID) error {
	start := time.Now()
	err := s.next.DeleteDeadLetter(ctx, sessionID)
	s.record(ctx, "retry_delete_dead_letter", start, err)
	return err
}

func (s *schedulerWithMetrics) CountTerminalOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	return s.next.CountTerminalOlderThan(ctx, cutoff)
}

func (s *schedulerWithMetrics) DeleteTerminalOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	return s.next.DeleteTerminalOlderThan(ctx, cutoff)
}
