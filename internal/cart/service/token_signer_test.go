package service

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartDomain "github.com/mediaplace/payments/internal/cart/domain"
)

func testClaims() *cartDomain.RecoveryClaims {
	now := time.Now().UTC().Truncate(time.Second)
	return &cartDomain.RecoveryClaims{
		TokenID: uuid.Must(uuid.NewV7()),
		UserID:  "user_1",
		Items: []cartDomain.CartItem{
			{
				MediaOutletID:  uuid.Must(uuid.NewV7()),
				NicheID:        uuid.Must(uuid.NewV7()),
				UnitPriceCents: 45000,
				Currency:       "USD",
				Quantity:       1,
			},
		},
		AbandonedAt:  now.Add(-48 * time.Hour),
		AttemptCount: 1,
		ExpiresAt:    now.Add(cartDomain.RecoveryTokenTTL),
	}
}

func TestTokenSigner_SignAndVerify(t *testing.T) {
	signer, err := NewTokenSigner([]byte("master-key"))
	require.NoError(t, err)

	t.Run("round trips claims", func(t *testing.T) {
		claims := testClaims()

		token, err := signer.Sign(claims)
		require.NoError(t, err)
		assert.Contains(t, token, ".")

		verified, err := signer.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, claims.TokenID, verified.TokenID)
		assert.Equal(t, claims.UserID, verified.UserID)
		assert.Equal(t, claims.Items, verified.Items)
		assert.Equal(t, claims.AttemptCount, verified.AttemptCount)
	})

	t.Run("rejects a tampered payload", func(t *testing.T) {
		token, err := signer.Sign(testClaims())
		require.NoError(t, err)

		parts := strings.SplitN(token, ".", 2)
		payload, err := base64.RawURLEncoding.DecodeString(parts[0])
		require.NoError(t, err)

		forged := []byte(strings.Replace(string(payload), `"user_1"`, `"user_2"`, 1))
		tampered := base64.RawURLEncoding.EncodeToString(forged) + "." + parts[1]

		_, err = signer.Verify(tampered)
		assert.ErrorIs(t, err, cartDomain.ErrTokenInvalid)
	})

	t.Run("rejects a token signed with a different key", func(t *testing.T) {
		otherSigner, err := NewTokenSigner([]byte("other-key"))
		require.NoError(t, err)

		token, err := otherSigner.Sign(testClaims())
		require.NoError(t, err)

		_, err = signer.Verify(token)
		assert.ErrorIs(t, err, cartDomain.ErrTokenInvalid)
	})

	t.Run("rejects malformed tokens", func(t *testing.T) {
		for _, token := range []string{
			"",
			"no-separator",
			"!!!.???",
			"YWJj.",
		} {
			_, err := signer.Verify(token)
			assert.ErrorIs(t, err, cartDomain.ErrTokenInvalid, "token %q", token)
		}
	})
}

func TestRecoveryClaims_Expired(t *testing.T) {
	claims := testClaims()

	assert.False(t, claims.Expired(claims.ExpiresAt.Add(-time.Minute)))
	assert.True(t, claims.Expired(claims.ExpiresAt.Add(time.Minute)))
}
