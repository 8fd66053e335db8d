package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func testCart() *Cart {
	return &Cart{
		SessionID: "sess_1",
		UserID:    "user_1",
		Items: []CartItem{
			{
				MediaOutletID:  uuid.Must(uuid.NewV7()),
				NicheID:        uuid.Must(uuid.NewV7()),
				UnitPriceCents: 45000,
				Currency:       "USD",
				Quantity:       2,
			},
			{
				MediaOutletID:  uuid.Must(uuid.NewV7()),
				NicheID:        uuid.Must(uuid.NewV7()),
				UnitPriceCents: 120000,
				Currency:       "USD",
				Quantity:       1,
			},
		},
	}
}

func TestNewCartSnapshot(t *testing.T) {
	now := time.Now().UTC()
	cart := testCart()

	snapshot := NewCartSnapshot(cart, now)

	assert.Equal(t, SnapshotSchemaVersion, snapshot.SchemaVersion)
	assert.Equal(t, cart.SessionID, snapshot.SessionID)
	assert.Equal(t, cart.UserID, snapshot.UserID)
	assert.Equal(t, cart.Items, snapshot.Items)
	assert.Equal(t, now, snapshot.Timestamp)
	assert.NotEmpty(t, snapshot.Checksum)
	assert.True(t, snapshot.Valid())
}

func TestCartSnapshot_Valid(t *testing.T) {
	t.Run("detects a tampered item price", func(t *testing.T) {
		snapshot := NewCartSnapshot(testCart(), time.Now().UTC())

		snapshot.Items[0].UnitPriceCents = 1

		assert.False(t, snapshot.Valid())
	})

	t.Run("detects a tampered quantity", func(t *testing.T) {
		snapshot := NewCartSnapshot(testCart(), time.Now().UTC())

		snapshot.Items[1].Quantity = 100

		assert.False(t, snapshot.Valid())
	})

	t.Run("detects a swapped owner", func(t *testing.T) {
		snapshot := NewCartSnapshot(testCart(), time.Now().UTC())

		snapshot.UserID = "user_2"

		assert.False(t, snapshot.Valid())
	})

	t.Run("detects a forged checksum", func(t *testing.T) {
		snapshot := NewCartSnapshot(testCart(), time.Now().UTC())

		snapshot.Checksum = "abc"

		assert.False(t, snapshot.Valid())
	})

	t.Run("rejects an unknown schema version", func(t *testing.T) {
		snapshot := NewCartSnapshot(testCart(), time.Now().UTC())

		snapshot.SchemaVersion = SnapshotSchemaVersion + 1
		snapshot.Checksum = snapshot.ComputeChecksum()

		assert.False(t, snapshot.Valid())
	})

	t.Run("distinguishes adjacent variable-length fields", func(t *testing.T) {
		// "ab" + "c" and "a" + "bc" must not collide thanks to the length
		// prefixes.
		now := time.Now().UTC()
		first := NewCartSnapshot(&Cart{SessionID: "ab", UserID: "c"}, now)
		second := NewCartSnapshot(&Cart{SessionID: "a", UserID: "bc"}, now)

		assert.NotEqual(t, first.Checksum, second.Checksum)
	})
}

func TestCart_TotalCents(t *testing.T) {
	cart := testCart()

	assert.Equal(t, int64(45000*2+120000), cart.TotalCents())
	assert.Equal(t, int64(0), (&Cart{}).TotalCents())
}

func TestCart_FindItem(t *testing.T) {
	cart := testCart()

	assert.Equal(t, 1, cart.FindItem(cart.Items[1].MediaOutletID))
	assert.Equal(t, -1, cart.FindItem(uuid.Must(uuid.NewV7())))
}
