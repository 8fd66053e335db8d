package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	cartDomain "github.com/mediaplace/payments/internal/cart/domain"
	apperrors "github.com/mediaplace/payments/internal/errors"
)

// sessionGuard is the per-session single-flight guard: at most one mutating
// cart operation runs at a time per session. A second concurrent call is
// rejected, never queued, so rapid double-clicks cannot race a lost update
// against the remote store.
type sessionGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func newSessionGuard() *sessionGuard {
	return &sessionGuard{inFlight: make(map[string]struct{})}
}

// TryAcquire claims the session. Returns false when a mutation is already in
// flight.
func (g *sessionGuard) TryAcquire(sessionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inFlight[sessionID]; busy {
		return false
	}
	g.inFlight[sessionID] = struct{}{}
	return true
}

// Release frees the session. The in-flight operation is never cancelled; it
// completes and updates state before the session opens up again.
func (g *sessionGuard) Release(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, sessionID)
}

type cartUseCase struct {
	store     CartStore
	snapshots SnapshotManager
	guard     *sessionGuard
	logger    *slog.Logger

	mu       sync.Mutex
	readOnly map[string]struct{}
}

// Get retrieves the cart, remote-first with local snapshot fallback. Reads
// are not guarded; only mutations contend for the session.
func (u *cartUseCase) Get(ctx context.Context, sessionID, userID string) (*cartDomain.Cart, error) {
	cart, err := u.snapshots.Restore(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	u.markReadOnly(sessionID, cart.ReadOnly)
	return cart, nil
}

// AddItem upserts a line item. Adding an outlet already in the cart replaces
// its line item.
func (u *cartUseCase) AddItem(
	ctx context.Context,
	sessionID, userID string,
	item cartDomain.CartItem,
) (*cartDomain.Cart, error) {
	if item.Quantity < 1 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "quantity must be at least 1")
	}

	return u.mutate(ctx, sessionID, userID, func(cart *cartDomain.Cart) error {
		if i := cart.FindItem(item.MediaOutletID); i >= 0 {
			cart.Items[i] = item
		} else {
			cart.Items = append(cart.Items, item)
		}
		return nil
	})
}

// UpdateQuantity changes the quantity of an existing line item.
func (u *cartUseCase) UpdateQuantity(
	ctx context.Context,
	sessionID, userID string,
	mediaOutletID uuid.UUID,
	quantity int,
) (*cartDomain.Cart, error) {
	if quantity < 1 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "quantity must be at least 1")
	}

	return u.mutate(ctx, sessionID, userID, func(cart *cartDomain.Cart) error {
		i := cart.FindItem(mediaOutletID)
		if i < 0 {
			return cartDomain.ErrItemNotFound
		}
		cart.Items[i].Quantity = quantity
		return nil
	})
}

// RemoveItem drops a line item from the cart.
func (u *cartUseCase) RemoveItem(
	ctx context.Context,
	sessionID, userID string,
	mediaOutletID uuid.UUID,
) (*cartDomain.Cart, error) {
	return u.mutate(ctx, sessionID, userID, func(cart *cartDomain.Cart) error {
		i := cart.FindItem(mediaOutletID)
		if i < 0 {
			return cartDomain.ErrItemNotFound
		}
		cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
		return nil
	})
}

// mutate runs one guarded mutation against the authoritative cart: claim the
// session, fetch the remote cart, apply, save, force a snapshot.
func (u *cartUseCase) mutate(
	ctx context.Context,
	sessionID, userID string,
	apply func(cart *cartDomain.Cart) error,
) (*cartDomain.Cart, error) {
	if !u.guard.TryAcquire(sessionID) {
		return nil, apperrors.Wrap(apperrors.ErrOperationInFlight, "cart mutation already in flight for session")
	}
	defer u.guard.Release(sessionID)

	cart, err := u.store.GetBySession(ctx, sessionID)
	if err != nil {
		if apperrors.Is(err, cartDomain.ErrCartNotFound) {
			cart = emptyCart(sessionID, userID)
		} else if u.isReadOnly(sessionID) {
			// The session is running on a restored local snapshot and the
			// remote store is still unreachable.
			return nil, cartDomain.ErrCartReadOnly
		} else {
			return nil, err
		}
	}

	if cart.UserID != "" && cart.UserID != userID {
		return nil, cartDomain.ErrOwnerMismatch
	}
	cart.UserID = userID

	if err := apply(cart); err != nil {
		return nil, err
	}

	if err := u.store.Save(ctx, cart); err != nil {
		return nil, err
	}

	// The remote write succeeded: the session is reconciled.
	u.markReadOnly(sessionID, false)
	u.snapshots.Snapshot(ctx, cart, true)

	return cart, nil
}

func (u *cartUseCase) markReadOnly(sessionID string, readOnly bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if readOnly {
		u.readOnly[sessionID] = struct{}{}
	} else {
		delete(u.readOnly, sessionID)
	}
}

func (u *cartUseCase) isReadOnly(sessionID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	_, ok := u.readOnly[sessionID]
	return ok
}

// NewCartUseCase creates the guarded cart use case.
func NewCartUseCase(
	store CartStore,
	snapshots SnapshotManager,
	logger *slog.Logger,
) CartUseCase {
	return &cartUseCase{
		store:     store,
		snapshots: snapshots,
		guard:     newSessionGuard(),
		logger:    logger,
		readOnly:  make(map[string]struct{}),
	}
}
