// Package mocks provides hand-written test doubles for the cart use case
// interfaces.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	cartDomain "github.com/mediaplace/payments/internal/cart/domain"
)

// MockCartStore is a mock implementation of usecase.CartStore for testing.
type MockCartStore struct {
	mock.Mock
}

func (m *MockCartStore) GetBySession(ctx context.Context, sessionID string) (*cartDomain.Cart, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartDomain.Cart), args.Error(1)
}

func (m *MockCartStore) Save(ctx context.Context, cart *cartDomain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *MockCartStore) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// MockSnapshotManager is a mock implementation of usecase.SnapshotManager for
// testing.
type MockSnapshotManager struct {
	mock.Mock
}

func (m *MockSnapshotManager) Snapshot(ctx context.Context, cart *cartDomain.Cart, force bool) {
	m.Called(ctx, cart, force)
}

func (m *MockSnapshotManager) Validate(snapshot *cartDomain.CartSnapshot, userID string) error {
	args := m.Called(snapshot, userID)
	return args.Error(0)
}

func (m *MockSnapshotManager) Restore(ctx context.Context, sessionID, userID string) (*cartDomain.Cart, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartDomain.Cart), args.Error(1)
}

func (m *MockSnapshotManager) Discard(ctx context.Context, sessionID string) {
	m.Called(ctx, sessionID)
}

// MockCartUseCase is a mock implementation of usecase.CartUseCase for testing.
type MockCartUseCase struct {
	mock.Mock
}

func (m *MockCartUseCase) Get(ctx context.Context, sessionID, userID string) (*cartDomain.Cart, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartDomain.Cart), args.Error(1)
}

func (m *MockCartUseCase) AddItem(
	ctx context.Context,
	sessionID, userID string,
	item cartDomain.CartItem,
) (*cartDomain.Cart, error) {
	args := m.Called(ctx, sessionID, userID, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartDomain.Cart), args.Error(1)
}

func (m *MockCartUseCase) UpdateQuantity(
	ctx context.Context,
	sessionID, userID string,
	mediaOutletID uuid.UUID,
	quantity int,
) (*cartDomain.Cart, error) {
	args := m.Called(ctx, sessionID, userID, mediaOutletID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartDomain.Cart), args.Error(1)
}

func (m *MockCartUseCase) RemoveItem(
	ctx context.Context,
	sessionID, userID string,
	mediaOutletID uuid.UUID,
) (*cartDomain.Cart, error) {
	args := m.Called(ctx, sessionID, userID, mediaOutletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartDomain.Cart), args.Error(1)
}

// MockRecoveryUseCase is a mock implementation of usecase.RecoveryUseCase for
// testing.
type MockRecoveryUseCase struct {
	mock.Mock
}

func (m *MockRecoveryUseCase) Issue(ctx context.Context, sessionID, userID string) (string, error) {
	args := m.Called(ctx, sessionID, userID)
	return args.String(0), args.Error(1)
}

func (m *MockRecoveryUseCase) Redeem(
	ctx context.Context,
	token, sessionID, userID string,
) (*cartDomain.Cart, error) {
	args := m.Called(ctx, token, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartDomain.Cart), args.Error(1)
}
