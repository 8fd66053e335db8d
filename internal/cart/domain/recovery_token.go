package domain

import (
	"time"

	"github.com/google/uuid"
)

// RecoveryTokenTTL is how long an abandoned-cart recovery link stays valid.
const RecoveryTokenTTL = 7 * 24 * time.Hour

// RecoveryClaims is the payload embedded in a signed abandoned-cart recovery
// token. The token reconstructs the cart from the link itself; the local
// snapshot plays no part in recovery.
type RecoveryClaims struct {
	// TokenID keys the single-use marker in the KV store.
	TokenID uuid.UUID `json:"token_id"`
	// UserID is the owner; redemption by any other user is refused.
	UserID      string     `json:"user_id"`
	Items       []CartItem `json:"items"`
	AbandonedAt time.Time  `json:"abandoned_at"`
	// AttemptCount tracks how many recovery links were issued for this cart
	// before this one.
	AttemptCount int       `json:"attempt_count"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the token is past its expiry at the given time.
func (c *RecoveryClaims) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
