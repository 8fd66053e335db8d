package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	cartDomain "github.com/mediaplace/payments/internal/cart/domain"
	"github.com/mediaplace/payments/internal/cart/storage"
	apperrors "github.com/mediaplace/payments/internal/errors"
)

// SnapshotConfig holds the tunables of the snapshot manager.
type SnapshotConfig struct {
	// DebounceInterval is the minimum interval between persisted snapshots
	// of the same session. Forced snapshots ignore it.
	DebounceInterval time.Duration
	// TTL is how long a persisted snapshot is kept.
	TTL time.Duration
	// RemoteTimeout bounds the authoritative cart fetch during restore.
	RemoteTimeout time.Duration
}

type snapshotManager struct {
	store  CartStore
	kv     storage.KVStore
	config SnapshotConfig
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
	// lastPersist tracks the debounce window per session.
	lastPersist map[string]time.Time
	// lastSnapshot is the in-process fallback used when the KV store is down.
	lastSnapshot map[string]*cartDomain.CartSnapshot
}

// Snapshot persists a checksummed backup of the cart. Snapshot never fails
// the caller: a KV write error only degrades durability to the in-process
// copy.
func (s *snapshotManager) Snapshot(ctx context.Context, cart *cartDomain.Cart, force bool) {
	now := s.now()

	s.mu.Lock()
	if !force {
		if last, ok := s.lastPersist[cart.SessionID]; ok && now.Sub(last) < s.config.DebounceInterval {
			s.mu.Unlock()
			return
		}
	}
	snapshot := cartDomain.NewCartSnapshot(cart, now)
	s.lastPersist[cart.SessionID] = now
	s.lastSnapshot[cart.SessionID] = snapshot
	s.mu.Unlock()

	encoded, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Error("failed to encode cart snapshot",
			slog.String("session_id", cart.SessionID),
			slog.Any("error", err),
		)
		return
	}

	if err := s.kv.Set(ctx, snapshotKey(cart.SessionID), encoded, s.config.TTL); err != nil {
		s.logger.Warn("cart snapshot write failed, keeping in-process copy only",
			slog.String("session_id", cart.SessionID),
			slog.Any("error", err),
		)
	}
}

// Validate checks the snapshot's schema version, checksum and owner.
func (s *snapshotManager) Validate(snapshot *cartDomain.CartSnapshot, userID string) error {
	if snapshot == nil || !snapshot.Valid() {
		return cartDomain.ErrSnapshotCorrupt
	}
	if snapshot.UserID != userID {
		return cartDomain.ErrOwnerMismatch
	}
	return nil
}

// Restore loads the cart remote-first. The remote fetch is bounded by the
// configured timeout; a timed-out fetch is a fetch failure, not a crash. The
// local snapshot is used only when it validates and belongs to the current
// user, and the restored cart is marked read-only until reconciled.
func (s *snapshotManager) Restore(
	ctx context.Context,
	sessionID, userID string,
) (*cartDomain.Cart, error) {
	remoteCtx, cancel := context.WithTimeout(ctx, s.config.RemoteTimeout)
	defer cancel()

	cart, err := s.store.GetBySession(remoteCtx, sessionID)
	if err == nil {
		s.Snapshot(ctx, cart, false)
		return cart, nil
	}
	if apperrors.Is(err, cartDomain.ErrCartNotFound) {
		// The remote store is reachable; the cart genuinely is empty.
		return emptyCart(sessionID, userID), nil
	}

	s.logger.Warn("remote cart fetch failed, trying local snapshot",
		slog.String("session_id", sessionID),
		slog.Any("error", err),
	)

	snapshot := s.loadSnapshot(ctx, sessionID)
	if snapshot == nil {
		return emptyCart(sessionID, userID), nil
	}

	if err := s.Validate(snapshot, userID); err != nil {
		s.logger.Error("cart snapshot failed validation, discarding backup",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
		s.Discard(ctx, sessionID)
		return emptyCart(sessionID, userID), nil
	}

	return &cartDomain.Cart{
		SessionID: sessionID,
		UserID:    userID,
		Items:     snapshot.Items,
		ReadOnly:  true,
		UpdatedAt: snapshot.Timestamp,
	}, nil
}

// Discard removes the persisted snapshot and the in-process copy.
func (s *snapshotManager) Discard(ctx context.Context, sessionID string) {
	s.mu.Lock()
	delete(s.lastSnapshot, sessionID)
	delete(s.lastPersist, sessionID)
	s.mu.Unlock()

	if err := s.kv.Remove(ctx, snapshotKey(sessionID)); err != nil {
		s.logger.Warn("failed to remove cart snapshot",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
	}
}

// loadSnapshot reads the persisted snapshot, falling back to the in-process
// copy when the KV store is unavailable.
func (s *snapshotManager) loadSnapshot(ctx context.Context, sessionID string) *cartDomain.CartSnapshot {
	encoded, err := s.kv.Get(ctx, snapshotKey(sessionID))
	if err != nil {
		if !apperrors.Is(err, storage.ErrKeyNotFound) {
			s.logger.Warn("cart snapshot read failed, using in-process copy",
				slog.String("session_id", sessionID),
				slog.Any("error", err),
			)
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.lastSnapshot[sessionID]
		}
		return nil
	}

	var snapshot cartDomain.CartSnapshot
	if err := json.Unmarshal(encoded, &snapshot); err != nil {
		// Undecodable backups count as corrupt, same as a checksum mismatch.
		return &cartDomain.CartSnapshot{}
	}
	return &snapshot
}

func emptyCart(sessionID, userID string) *cartDomain.Cart {
	return &cartDomain.Cart{
		SessionID: sessionID,
		UserID:    userID,
		Items:     []cartDomain.CartItem{},
	}
}

func snapshotKey(sessionID string) string {
	return "snapshot:" + sessionID
}

// NewSnapshotManager creates the snapshot manager.
func NewSnapshotManager(
	store CartStore,
	kv storage.KVStore,
	config SnapshotConfig,
	logger *slog.Logger,
) SnapshotManager {
	return &snapshotManager{
		store:        store,
		kv:           kv,
		config:       config,
		logger:       logger,
		now:          time.Now,
		lastPersist:  make(map[string]time.Time),
		lastSnapshot: make(map[string]*cartDomain.CartSnapshot),
	}
}
