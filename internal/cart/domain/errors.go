// Package domain defines the core domain models for the cart durability
// layer: checksummed snapshots, recovery tokens and the cart itself.
package domain

import (
	"github.com/mediaplace/payments/internal/errors"
)

var (
	// ErrCartReadOnly indicates a mutation was attempted on a cart restored
	// from a local snapshot while the remote store is unreachable.
	ErrCartReadOnly = errors.Wrap(errors.ErrConflict, "cart is read-only until reconciled with the remote store")

	// ErrSnapshotCorrupt indicates the local snapshot failed checksum or
	// schema validation and was discarded.
	ErrSnapshotCorrupt = errors.Wrap(errors.ErrInvalidInput, "cart snapshot failed validation")

	// ErrOwnerMismatch indicates the snapshot or token belongs to a different
	// user than the current session.
	ErrOwnerMismatch = errors.Wrap(errors.ErrForbidden, "cart owner does not match the current user")

	// ErrTokenInvalid indicates the recovery token failed signature or
	// structural validation.
	ErrTokenInvalid = errors.Wrap(errors.ErrInvalidInput, "recovery token is invalid")

	// ErrTokenExpired indicates the recovery token is past its expiry.
	ErrTokenExpired = errors.Wrap(errors.ErrInvalidInput, "recovery token has expired")

	// ErrTokenUsed indicates the recovery token was already redeemed.
	ErrTokenUsed = errors.Wrap(errors.ErrConflict, "recovery token has already been redeemed")

	// ErrCartNotFound indicates no remote cart exists for the session.
	ErrCartNotFound = errors.Wrap(errors.ErrNotFound, "cart not found")

	// ErrItemNotFound indicates the line item is not in the cart.
	ErrItemNotFound = errors.Wrap(errors.ErrNotFound, "cart item not found")
)
