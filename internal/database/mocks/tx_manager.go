// Package mocks provides mock implementations for testing database consumers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTxManager is a mock implementation of database.TxManager for testing.
type MockTxManager struct {
	mock.Mock
}

// WithTx mocks the WithTx method of TxManager.
func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

// PassthroughTxManager runs the callback directly without a transaction.
// Use it when the test cares about what happens inside WithTx, not the
// transaction mechanics.
type PassthroughTxManager struct{}

// WithTx invokes fn with the caller's context.
func (p *PassthroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
