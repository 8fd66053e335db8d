package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// SnapshotSchemaVersion is bumped whenever the snapshot serialization
// changes; snapshots from other schema versions are discarded on restore.
const SnapshotSchemaVersion = 1

// CartItem is one line item: a placement slot in a media outlet's niche.
type CartItem struct {
	// MediaOutletID identifies the publication the placement runs in.
	MediaOutletID uuid.UUID `json:"media_outlet_id"`
	// NicheID identifies the content niche the placement is priced under.
	NicheID        uuid.UUID `json:"niche_id"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Currency       string    `json:"currency"`
	Quantity       int       `json:"quantity"`
}

// Cart is the shopper's in-progress order.
type Cart struct {
	SessionID string
	UserID    string
	Items     []CartItem
	// ReadOnly is set when the cart was restored from a local snapshot and
	// must not be mutated until reconciled with the remote store.
	ReadOnly  bool
	UpdatedAt time.Time
}

// TotalCents sums the cart's line totals.
func (c *Cart) TotalCents() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.UnitPriceCents * int64(item.Quantity)
	}
	return total
}

// FindItem returns the index of the line item for the outlet, or -1.
func (c *Cart) FindItem(mediaOutletID uuid.UUID) int {
	for i, item := range c.Items {
		if item.MediaOutletID == mediaOutletID {
			return i
		}
	}
	return -1
}

// CartSnapshot is a checksummed local backup of an in-progress cart. It is
// written on every confirmed mutation (debounced) and used for read-only
// recovery when the remote store is unreachable.
type CartSnapshot struct {
	SchemaVersion int        `json:"schema_version"`
	SessionID     string     `json:"session_id"`
	UserID        string     `json:"user_id"`
	Items         []CartItem `json:"items"`
	Timestamp     time.Time  `json:"timestamp"`
	ReadOnly      bool       `json:"read_only"`
	// Checksum is the hex SHA-256 over the canonical serialization of the
	// snapshot's items, identifiers and timestamp.
	Checksum string `json:"checksum"`
}

// NewCartSnapshot builds a snapshot of the cart with a fresh checksum.
func NewCartSnapshot(cart *Cart, now time.Time) *CartSnapshot {
	snapshot := &CartSnapshot{
		SchemaVersion: SnapshotSchemaVersion,
		SessionID:     cart.SessionID,
		UserID:        cart.UserID,
		Items:         cart.Items,
		Timestamp:     now.UTC(),
	}
	snapshot.Checksum = snapshot.ComputeChecksum()
	return snapshot
}

// ComputeChecksum returns the hex SHA-256 digest of the snapshot's canonical
// serialization. The stored Checksum field is not part of the digest.
func (s *CartSnapshot) ComputeChecksum() string {
	digest := sha256.Sum256(s.canonicalize())
	return hex.EncodeToString(digest[:])
}

// Valid reports whether the stored checksum matches the recomputed one and
// the schema version is current.
func (s *CartSnapshot) Valid() bool {
	if s.SchemaVersion != SnapshotSchemaVersion {
		return false
	}
	return s.Checksum == s.ComputeChecksum()
}

// canonicalize converts the snapshot to a canonical byte representation.
// Variable-length fields are length-prefixed to prevent ambiguity between
// adjacent fields.
func (s *CartSnapshot) canonicalize() []byte {
	buf := make([]byte, 0, 256)

	buf = binary.BigEndian.AppendUint32(buf, uint32(s.SchemaVersion))
	buf = appendLengthPrefixed(buf, []byte(s.SessionID))
	buf = appendLengthPrefixed(buf, []byte(s.UserID))

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s.Items)))
	for _, item := range s.Items {
		buf = append(buf, item.MediaOutletID[:]...)
		buf = append(buf, item.NicheID[:]...)
		buf = binary.BigEndian.AppendUint64(buf, uint64(item.UnitPriceCents))
		buf = appendLengthPrefixed(buf, []byte(item.Currency))
		buf = binary.BigEndian.AppendUint32(buf, uint32(item.Quantity))
	}

	buf = binary.BigEndian.AppendUint64(buf, uint64(s.Timestamp.UnixNano()))

	return buf
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}
