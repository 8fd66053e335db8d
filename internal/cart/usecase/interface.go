// Package usecase implements the cart durability layer: the remote cart
// collaborator, the checksummed local snapshot manager and abandoned-cart
// recovery.
package usecase

import (
	"context"

	"github.com/google/uuid"

	cartDomain "github.com/mediaplace/payments/internal/cart/domain"
)

// CartStore is the authoritative remote cart collaborator.
type CartStore interface {
	// GetBySession retrieves the cart for the session. Returns ErrCartNotFound
	// when no cart exists yet.
	GetBySession(ctx context.Context, sessionID string) (*cartDomain.Cart, error)
	// Save upserts the whole cart.
	Save(ctx context.Context, cart *cartDomain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

// SnapshotManager maintains the checksummed local backup of the cart.
type SnapshotManager interface {
	// Snapshot persists a backup of the cart. Writes are debounced unless
	// force is set; confirmed mutations always force. Persistence failures
	// are absorbed: the manager keeps an in-process copy as a last resort.
	Snapshot(ctx context.Context, cart *cartDomain.Cart, force bool)
	// Validate checks the snapshot's checksum, schema version and owner.
	Validate(snapshot *cartDomain.CartSnapshot, userID string) error
	// Restore loads the cart, remote-first. When the remote store is
	// unreachable it falls back to a valid local snapshot marked read-only;
	// corrupt or foreign snapshots are discarded and an empty cart returned.
	Restore(ctx context.Context, sessionID, userID string) (*cartDomain.Cart, error)
	// Discard removes the persisted snapshot for the session.
	Discard(ctx context.Context, sessionID string)
}

// CartUseCase exposes cart reads and guarded mutations.
type CartUseCase interface {
	Get(ctx context.Context, sessionID, userID string) (*cartDomain.Cart, error)
	// AddItem upserts a line item. A second concurrent mutation on the same
	// session is rejected with ErrOperationInFlight, never queued.
	AddItem(ctx context.Context, sessionID, userID string, item cartDomain.CartItem) (*cartDomain.Cart, error)
	UpdateQuantity(
		ctx context.Context,
		sessionID, userID string,
		mediaOutletID uuid.UUID,
		quantity int,
	) (*cartDomain.Cart, error)
	RemoveItem(
		ctx context.Context,
		sessionID, userID string,
		mediaOutletID uuid.UUID,
	) (*cartDomain.Cart, error)
}

// RecoveryUseCase issues and redeems abandoned-cart recovery tokens.
type RecoveryUseCase interface {
	// Issue signs a recovery token embedding the session's current cart.
	Issue(ctx context.Context, sessionID, userID string) (string, error)
	// Redeem validates the token, enforces owner match and single use, and
	// replaces the session's remote cart with the embedded items.
	Redeem(ctx context.Context, token, sessionID, userID string) (*cartDomain.Cart, error)
}
