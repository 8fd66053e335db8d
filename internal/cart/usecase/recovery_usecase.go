package usecase

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	cartDomain "github.com/mediaplace/payments/internal/cart/domain"
	cartService "github.com/mediaplace/payments/internal/cart/service"
	"github.com/mediaplace/payments/internal/cart/storage"
	apperrors "github.com/mediaplace/payments/internal/errors"
)

type recoveryUseCase struct {
	store     CartStore
	snapshots SnapshotManager
	signer    cartService.TokenSigner
	kv        storage.KVStore
	tokenTTL  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// Issue signs a recovery token embedding the session's current cart. The
// token reconstructs the cart from the link itself, so it stays redeemable
// after the session and its snapshot are gone.
func (u *recoveryUseCase) Issue(ctx context.Context, sessionID, userID string) (string, error) {
	cart, err := u.store.GetBySession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if len(cart.Items) == 0 {
		return "", apperrors.Wrap(apperrors.ErrInvalidInput, "cannot issue a recovery token for an empty cart")
	}

	now := u.now()
	claims := &cartDomain.RecoveryClaims{
		TokenID:      uuid.Must(uuid.NewV7()),
		UserID:       userID,
		Items:        cart.Items,
		AbandonedAt:  cart.UpdatedAt,
		AttemptCount: u.bumpAttemptCount(ctx, userID),
		ExpiresAt:    now.Add(u.tokenTTL),
	}

	token, err := u.signer.Sign(claims)
	if err != nil {
		return "", err
	}

	u.logger.Info("issued cart recovery token",
		slog.String("token_id", claims.TokenID.String()),
		slog.String("user_id", userID),
		slog.Int("attempt_count", claims.AttemptCount),
	)

	return token, nil
}

// Redeem validates the token and replaces the session's remote cart with the
// embedded items. Tokens are single-use: the used marker is claimed before
// the cart is rebuilt so a replayed link can never re-apply the incentive.
func (u *recoveryUseCase) Redeem(
	ctx context.Context,
	token, sessionID, userID string,
) (*cartDomain.Cart, error) {
	claims, err := u.signer.Verify(token)
	if err != nil {
		return nil, err
	}

	if claims.UserID != userID {
		return nil, cartDomain.ErrOwnerMismatch
	}
	if claims.Expired(u.now()) {
		return nil, cartDomain.ErrTokenExpired
	}

	claimed, err := u.kv.SetIfAbsent(ctx, usedTokenKey(claims.TokenID), []byte("1"), u.tokenTTL)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to claim recovery token")
	}
	if !claimed {
		return nil, cartDomain.ErrTokenUsed
	}

	cart := &cartDomain.Cart{
		SessionID: sessionID,
		UserID:    userID,
		Items:     claims.Items,
	}

	if err := u.store.Save(ctx, cart); err != nil {
		// Free the marker so the shopper can retry the link.
		if removeErr := u.kv.Remove(ctx, usedTokenKey(claims.TokenID)); removeErr != nil {
			u.logger.Warn("failed to release recovery token marker",
				slog.String("token_id", claims.TokenID.String()),
				slog.Any("error", removeErr),
			)
		}
		return nil, err
	}

	u.snapshots.Snapshot(ctx, cart, true)

	u.logger.Info("redeemed cart recovery token",
		slog.String("token_id", claims.TokenID.String()),
		slog.String("user_id", userID),
		slog.Int("items", len(cart.Items)),
	)

	return cart, nil
}

// bumpAttemptCount tracks how many recovery links the user has been issued.
// The counter lives in the KV store and is best-effort: a counter failure
// never blocks token issuance.
func (u *recoveryUseCase) bumpAttemptCount(ctx context.Context, userID string) int {
	key := "recovery:attempts:" + userID

	count := 0
	if raw, err := u.kv.Get(ctx, key); err == nil {
		if parsed, parseErr := strconv.Atoi(string(raw)); parseErr == nil {
			count = parsed
		}
	}

	count++
	if err := u.kv.Set(ctx, key, []byte(strconv.Itoa(count)), u.tokenTTL); err != nil {
		u.logger.Warn("failed to persist recovery attempt count",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	return count
}

func usedTokenKey(tokenID uuid.UUID) string {
	return "recovery:used:" + tokenID.String()
}

// NewRecoveryUseCase creates the abandoned-cart recovery use case.
func NewRecoveryUseCase(
	store CartStore,
	snapshots SnapshotManager,
	signer cartService.TokenSigner,
	kv storage.KVStore,
	tokenTTL time.Duration,
	logger *slog.Logger,
) RecoveryUseCase {
	return &recoveryUseCase{
		store:     store,
		snapshots: snapshots,
		signer:    signer,
		kv:        kv,
		tokenTTL:  tokenTTL,
		logger:    logger,
		now:       time.Now,
	}
}
