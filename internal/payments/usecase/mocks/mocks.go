// Package mocks provides mock implementations for testing payment use cases
// and handlers.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	paymentsDomain "github.com/mediaplace/payments/internal/payments/domain"
)

// MockWebhookEventRepository is a mock implementation of
// usecase.WebhookEventRepository for testing.
type MockWebhookEventRepository struct {
	mock.Mock
}

func (m *MockWebhookEventRepository) RecordIfNew(
	ctx context.Context,
	event *paymentsDomain.WebhookEvent,
) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

func (m *MockWebhookEventRepository) GetByProviderEventID(
	ctx context.Context,
	providerEventID string,
) (*paymentsDomain.WebhookEvent, error) {
	args := m.Called(ctx, providerEventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentsDomain.WebhookEvent), args.Error(1)
}

func (m *MockWebhookEventRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status paymentsDomain.ProcessingStatus,
	lastError *string,
	processedAt *time.Time,
) error {
	args := m.Called(ctx, id, status, lastError, processedAt)
	return args.Error(0)
}

func (m *MockWebhookEventRepository) CountOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWebhookEventRepository) DeleteOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockRetrySessionRepository is a mock implementation of
// usecase.RetrySessionRepository for testing.
type MockRetrySessionRepository struct {
	mock.Mock
}

func (m *MockRetrySessionRepository) Create(
	ctx context.Context,
	session *paymentsDomain.RetrySession,
) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockRetrySessionRepository) GetBySessionID(
	ctx context.Context,
	sessionID uuid.UUID,
) (*paymentsDomain.RetrySession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentsDomain.RetrySession), args.Error(1)
}

func (m *MockRetrySessionRepository) GetActiveByOwner(
	ctx context.Context,
	ownerID string,
	kind paymentsDomain.SessionKind,
) (*paymentsDomain.RetrySession, error) {
	args := m.Called(ctx, ownerID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentsDomain.RetrySession), args.Error(1)
}

func (m *MockRetrySessionRepository) ListDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*paymentsDomain.RetrySession, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*paymentsDomain.RetrySession), args.Error(1)
}

func (m *MockRetrySessionRepository) ListByStatus(
	ctx context.Context,
	status paymentsDomain.SessionStatus,
	limit int,
	offset int,
) ([]*paymentsDomain.RetrySession, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*paymentsDomain.RetrySession), args.Error(1)
}

func (m *MockRetrySessionRepository) Update(
	ctx context.Context,
	session *paymentsDomain.RetrySession,
) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockRetrySessionRepository) Delete(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockRetrySessionRepository) CountTerminalOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRetrySessionRepository) DeleteTerminalOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockOrderStore is a mock implementation of usecase.OrderStore for testing.
type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) FindByPaymentReference(
	ctx context.Context,
	paymentReference string,
) (*paymentsDomain.Order, error) {
	args := m.Called(ctx, paymentReference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentsDomain.Order), args.Error(1)
}

func (m *MockOrderStore) UpdateStatus(
	ctx context.Context,
	orderID uuid.UUID,
	update paymentsDomain.OrderUpdate,
) error {
	args := m.Called(ctx, orderID, update)
	return args.Error(0)
}

// MockRetrySchedulerUseCase is a mock implementation of
// usecase.RetrySchedulerUseCase for testing.
type MockRetrySchedulerUseCase struct {
	mock.Mock
}

func (m *MockRetrySchedulerUseCase) RecordFailure(
	ctx context.Context,
	ownerID string,
	kind paymentsDomain.SessionKind,
	details *paymentsDomain.ErrorDetails,
) (*paymentsDomain.RetrySession, error) {
	args := m.Called(ctx, ownerID, kind, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentsDomain.RetrySession), args.Error(1)
}

func (m *MockRetrySchedulerUseCase) ResolveSuccess(
	ctx context.Context,
	ownerID string,
	kind paymentsDomain.SessionKind,
) error {
	args := m.Called(ctx, ownerID, kind)
	return args.Error(0)
}

func (m *MockRetrySchedulerUseCase) DueSessions(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*paymentsDomain.RetrySession, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*paymentsDomain.RetrySession), args.Error(1)
}

func (m *MockRetrySchedulerUseCase) Advance(
	ctx context.Context,
	session *paymentsDomain.RetrySession,
	outcome paymentsDomain.AttemptOutcome,
) error {
	args := m.Called(ctx, session, outcome)
	return args.Error(0)
}

func (m *MockRetrySchedulerUseCase) ShouldAutoRetry(session *paymentsDomain.RetrySession) bool {
	args := m.Called(session)
	return args.Bool(0)
}

func (m *MockRetrySchedulerUseCase) NextDelay(session *paymentsDomain.RetrySession) time.Duration {
	args := m.Called(session)
	return args.Get(0).(time.Duration)
}

func (m *MockRetrySchedulerUseCase) ListDeadLetter(
	ctx context.Context,
	limit int,
	offset int,
) ([]*paymentsDomain.RetrySession, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*paymentsDomain.RetrySession), args.Error(1)
}

func (m *MockRetrySchedulerUseCase) Reprocess(
	ctx context.Context,
	sessionID uuid.UUID,
) (*paymentsDomain.RetrySession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentsDomain.RetrySession), args.Error(1)
}

func (m *MockRetrySchedulerUseCase) DeleteDeadLetter(
	ctx context.Context,
	sessionID uuid.UUID,
) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockRetrySchedulerUseCase) CountTerminalOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRetrySchedulerUseCase) DeleteTerminalOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockDispatcherUseCase is a mock implementation of usecase.DispatcherUseCase
// for testing.
type MockDispatcherUseCase struct {
	mock.Mock
}

func (m *MockDispatcherUseCase) Dispatch(
	ctx context.Context,
	rawBody []byte,
	signatureHeader string,
) (*paymentsDomain.DispatchResult, error) {
	args := m.Called(ctx, rawBody, signatureHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentsDomain.DispatchResult), args.Error(1)
}

func (m *MockDispatcherUseCase) Redispatch(ctx context.Context, providerEventID string) error {
	args := m.Called(ctx, providerEventID)
	return args.Error(0)
}

// MockRetrier is a mock implementation of usecase.Retrier for testing.
type MockRetrier struct {
	mock.Mock
}

func (m *MockRetrier) Retry(
	ctx context.Context,
	session *paymentsDomain.RetrySession,
) paymentsDomain.AttemptOutcome {
	args := m.Called(ctx, session)
	return args.Get(0).(paymentsDomain.AttemptOutcome)
}

// MockSignatureVerifier is a mock implementation of service.SignatureVerifier
// for testing.
type MockSignatureVerifier struct {
	mock.Mock
}

func (m *MockSignatureVerifier) Verify(
	rawBody []byte,
	signatureHeader string,
	now time.Time,
) (*paymentsDomain.EventEnvelope, error) {
	args := m.Called(rawBody, signatureHeader, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentsDomain.EventEnvelope), args.Error(1)
}
