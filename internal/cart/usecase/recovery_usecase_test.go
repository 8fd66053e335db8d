package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cartDomain "github.com/mediaplace/payments/internal/cart/domain"
	cartService "github.com/mediaplace/payments/internal/cart/service"
	"github.com/mediaplace/payments/internal/cart/storage"
	"github.com/mediaplace/payments/internal/cart/usecase/mocks"
	apperrors "github.com/mediaplace/payments/internal/errors"
)

func newTestRecoveryUseCase(
	t *testing.T,
	store CartStore,
	snapshots SnapshotManager,
	kv storage.KVStore,
) *recoveryUseCase {
	t.Helper()

	signer, err := cartService.NewTokenSigner([]byte("master-key"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	useCase := NewRecoveryUseCase(store, snapshots, signer, kv, cartDomain.RecoveryTokenTTL, logger)
	return useCase.(*recoveryUseCase)
}

func abandonedCart() *cartDomain.Cart {
	return &cartDomain.Cart{
		SessionID: "sess_old",
		UserID:    "user_1",
		Items:     []cartDomain.CartItem{testItem()},
		UpdatedAt: time.Now().UTC().Add(-48 * time.Hour),
	}
}

func TestRecoveryUseCase_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a verifiable token", func(t *testing.T) {
		store := &mocks.MockCartStore{}
		useCase := newTestRecoveryUseCase(t, store, &mocks.MockSnapshotManager{}, storage.NewMemoryStore())
		cart := abandonedCart()

		store.On("GetBySession", mock.Anything, "sess_old").Return(cart, nil).Once()

		token, err := useCase.Issue(ctx, "sess_old", "user_1")
		require.NoError(t, err)

		claims, err := useCase.signer.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "user_1", claims.UserID)
		assert.Equal(t, cart.Items, claims.Items)
		assert.Equal(t, 1, claims.AttemptCount)
		assert.False(t, claims.Expired(time.Now()))
	})

	t.Run("attempt count grows with each issued link", func(t *testing.T) {
		store := &mocks.MockCartStore{}
		useCase := newTestRecoveryUseCase(t, store, &mocks.MockSnapshotManager{}, storage.NewMemoryStore())

		store.On("GetBySession", mock.Anything, "sess_old").Return(abandonedCart(), nil).Twice()

		first, err := useCase.Issue(ctx, "sess_old", "user_1")
		require.NoError(t, err)
		second, err := useCase.Issue(ctx, "sess_old", "user_1")
		require.NoError(t, err)

		firstClaims, err := useCase.signer.Verify(first)
		require.NoError(t, err)
		secondClaims, err := useCase.signer.Verify(second)
		require.NoError(t, err)

		assert.Equal(t, 1, firstClaims.AttemptCount)
		assert.Equal(t, 2, secondClaims.AttemptCount)
	})

	t.Run("refuses an empty cart", func(t *testing.T) {
		store := &mocks.MockCartStore{}
		useCase := newTestRecoveryUseCase(t, store, &mocks.MockSnapshotManager{}, storage.NewMemoryStore())

		store.On("GetBySession", mock.Anything, "sess_old").
			Return(&cartDomain.Cart{SessionID: "sess_old", UserID: "user_1"}, nil).
			Once()

		_, err := useCase.Issue(ctx, "sess_old", "user_1")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestRecoveryUseCase_Redeem(t *testing.T) {
	ctx := context.Background()

	issueToken := func(t *testing.T, useCase *recoveryUseCase, store *mocks.MockCartStore) string {
		t.Helper()
		store.On("GetBySession", mock.Anything, "sess_old").Return(abandonedCart(), nil).Once()
		token, err := useCase.Issue(ctx, "sess_old", "user_1")
		require.NoError(t, err)
		return token
	}

	t.Run("rebuilds the cart in the new session", func(t *testing.T) {
		store := &mocks.MockCartStore{}
		snapshots := &mocks.MockSnapshotManager{}
		useCase := newTestRecoveryUseCase(t, store, snapshots, storage.NewMemoryStore())
		token := issueToken(t, useCase, store)

		store.On("Save", mock.Anything, mock.MatchedBy(func(cart *cartDomain.Cart) bool {
			return cart.SessionID == "sess_new" && cart.UserID == "user_1" && len(cart.Items) == 1
		})).Return(nil).Once()
		snapshots.On("Snapshot", mock.Anything, mock.Anything, true).Once()

		cart, err := useCase.Redeem(ctx, token, "sess_new", "user_1")
		require.NoError(t, err)
		assert.Equal(t, "sess_new", cart.SessionID)
		assert.Len(t, cart.Items, 1)

		store.AssertExpectations(t)
		snapshots.AssertExpectations(t)
	})

	t.Run("tokens are single use", func(t *testing.T) {
		store := &mocks.MockCartStore{}
		snapshots := &mocks.MockSnapshotManager{}
		useCase := newTestRecoveryUseCase(t, store, snapshots, storage.NewMemoryStore())
		token := issueToken(t, useCase, store)

		store.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
		snapshots.On("Snapshot", mock.Anything, mock.Anything, true).Once()

		_, err := useCase.Redeem(ctx, token, "sess_new", "user_1")
		require.NoError(t, err)

		_, err = useCase.Redeem(ctx, token, "sess_new", "user_1")
		assert.ErrorIs(t, err, cartDomain.ErrTokenUsed)
	})

	t.Run("refuses a foreign owner", func(t *testing.T) {
		store := &mocks.MockCartStore{}
		useCase := newTestRecoveryUseCase(t, store, &mocks.MockSnapshotManager{}, storage.NewMemoryStore())
		token := issueToken(t, useCase, store)

		_, err := useCase.Redeem(ctx, token, "sess_new", "user_2")
		assert.ErrorIs(t, err, cartDomain.ErrOwnerMismatch)
	})

	t.Run("refuses an expired token", func(t *testing.T) {
		store := &mocks.MockCartStore{}
		useCase := newTestRecoveryUseCase(t, store, &mocks.MockSnapshotManager{}, storage.NewMemoryStore())
		token := issueToken(t, useCase, store)

		useCase.now = func() time.Time {
			return time.Now().Add(cartDomain.RecoveryTokenTTL + time.Hour)
		}

		_, err := useCase.Redeem(ctx, token, "sess_new", "user_1")
		assert.ErrorIs(t, err, cartDomain.ErrTokenExpired)
	})

	t.Run("refuses a forged token", func(t *testing.T) {
		useCase := newTestRecoveryUseCase(
			t,
			&mocks.MockCartStore{},
			&mocks.MockSnapshotManager{},
			storage.NewMemoryStore(),
		)

		_, err := useCase.Redeem(ctx, "forged.token", "sess_new", "user_1")
		assert.ErrorIs(t, err, cartDomain.ErrTokenInvalid)
	})

	t.Run("a failed save releases the single-use marker", func(t *testing.T) {
		store := &mocks.MockCartStore{}
		snapshots := &mocks.MockSnapshotManager{}
		useCase := newTestRecoveryUseCase(t, store, snapshots, storage.NewMemoryStore())
		token := issueToken(t, useCase, store)

		store.On("Save", mock.Anything, mock.Anything).Return(assert.AnError).Once()

		_, err := useCase.Redeem(ctx, token, "sess_new", "user_1")
		assert.Error(t, err)

		// The shopper can retry the same link.
		store.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
		snapshots.On("Snapshot", mock.Anything, mock.Anything, true).Once()

		_, err = useCase.Redeem(ctx, token, "sess_new", "user_1")
		assert.NoError(t, err)
	})
}
