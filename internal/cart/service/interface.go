// Package service provides cryptographic services for the cart durability
// layer.
package service

import (
	cartDomain "github.com/mediaplace/payments/internal/cart/domain"
)

// TokenSigner signs and verifies abandoned-cart recovery tokens.
type TokenSigner interface {
	// Sign serializes the claims and returns the opaque token string.
	Sign(claims *cartDomain.RecoveryClaims) (string, error)
	// Verify checks the token signature and returns the embedded claims.
	// Returns ErrTokenInvalid when the signature or structure is wrong.
	Verify(token string) (*cartDomain.RecoveryClaims, error)
}
