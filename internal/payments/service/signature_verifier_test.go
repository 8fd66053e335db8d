package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mediaplace/payments/internal/errors"
	"github.com/mediaplace/payments/internal/payments/domain"
)

var testSecret = []byte("whsec_test_secret")

func signedHeader(t *testing.T, secret []byte, timestamp int64, body []byte) string {
	t.Helper()
	signature := ComputeSignature(secret, timestamp, body)
	return fmt.Sprintf("t=%d,%s=%s", timestamp, signatureScheme, hex.EncodeToString(signature))
}

func testBody() []byte {
	return []byte(`{"id":"evt_1","type":"payment_intent.succeeded","created":1700000000,"data":{"object":{"id":"pi_1"}}}`)
}

func newVerifier(skip bool, logger *slog.Logger) SignatureVerifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return NewSignatureVerifier(testSecret, 300*time.Second, skip, logger)
}

func TestHMACVerifier_Verify(t *testing.T) {
	now := time.Unix(1700000100, 0)

	t.Run("accepts a valid signature", func(t *testing.T) {
		verifier := newVerifier(false, nil)
		body := testBody()

		envelope, err := verifier.Verify(body, signedHeader(t, testSecret, now.Unix(), body), now)
		require.NoError(t, err)
		assert.Equal(t, "evt_1", envelope.ID)
		assert.Equal(t, "payment_intent.succeeded", envelope.Type)
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		verifier := newVerifier(false, nil)

		_, err := verifier.Verify(testBody(), "", now)
		assert.ErrorIs(t, err, domain.ErrSignatureMissing)
	})

	t.Run("rejects a malformed header", func(t *testing.T) {
		verifier := newVerifier(false, nil)

		for _, header := range []string{
			"not-a-header",
			"t=abc,v1=00ff",
			"t=1700000100,v1=not-hex",
			"t=1700000100",
			"v1=00ff",
		} {
			_, err := verifier.Verify(testBody(), header, now)
			assert.ErrorIs(t, err, domain.ErrSignatureMalformed, "header %q", header)
		}
	})

	t.Run("rejects a wrong secret", func(t *testing.T) {
		verifier := newVerifier(false, nil)
		body := testBody()

		header := signedHeader(t, []byte("other_secret"), now.Unix(), body)
		_, err := verifier.Verify(body, header, now)
		assert.ErrorIs(t, err, domain.ErrSignatureMismatch)
	})

	t.Run("rejects a tampered body", func(t *testing.T) {
		verifier := newVerifier(false, nil)
		body := testBody()
		header := signedHeader(t, testSecret, now.Unix(), body)

		tampered := bytes.Replace(body, []byte("pi_1"), []byte("pi_2"), 1)
		_, err := verifier.Verify(tampered, header, now)
		assert.ErrorIs(t, err, domain.ErrSignatureMismatch)
	})

	t.Run("rejects timestamps outside the tolerance", func(t *testing.T) {
		verifier := newVerifier(false, nil)
		body := testBody()

		stale := now.Add(-301 * time.Second).Unix()
		_, err := verifier.Verify(body, signedHeader(t, testSecret, stale, body), now)
		assert.ErrorIs(t, err, domain.ErrTimestampOutOfTolerance)

		future := now.Add(301 * time.Second).Unix()
		_, err = verifier.Verify(body, signedHeader(t, testSecret, future, body), now)
		assert.ErrorIs(t, err, domain.ErrTimestampOutOfTolerance)
	})

	t.Run("accepts timestamps at the tolerance boundary", func(t *testing.T) {
		verifier := newVerifier(false, nil)
		body := testBody()

		boundary := now.Add(-300 * time.Second).Unix()
		_, err := verifier.Verify(body, signedHeader(t, testSecret, boundary, body), now)
		assert.NoError(t, err)
	})

	t.Run("accepts any valid candidate during secret rotation", func(t *testing.T) {
		verifier := newVerifier(false, nil)
		body := testBody()

		oldSignature := ComputeSignature([]byte("retired_secret"), now.Unix(), body)
		currentSignature := ComputeSignature(testSecret, now.Unix(), body)
		header := fmt.Sprintf("t=%d,v1=%s,v1=%s",
			now.Unix(), hex.EncodeToString(oldSignature), hex.EncodeToString(currentSignature))

		_, err := verifier.Verify(body, header, now)
		assert.NoError(t, err)
	})

	t.Run("ignores unknown scheme tags", func(t *testing.T) {
		verifier := newVerifier(false, nil)
		body := testBody()

		signature := ComputeSignature(testSecret, now.Unix(), body)
		header := fmt.Sprintf("t=%d,v0=deadbeef,v1=%s", now.Unix(), hex.EncodeToString(signature))

		_, err := verifier.Verify(body, header, now)
		assert.NoError(t, err)
	})

	t.Run("rejects a payload without an event id", func(t *testing.T) {
		verifier := newVerifier(false, nil)
		body := []byte(`{"type":"payment_intent.succeeded"}`)

		_, err := verifier.Verify(body, signedHeader(t, testSecret, now.Unix(), body), now)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("rejects a body that is not json", func(t *testing.T) {
		verifier := newVerifier(false, nil)
		body := []byte("not json")

		_, err := verifier.Verify(body, signedHeader(t, testSecret, now.Unix(), body), now)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestHMACVerifier_InsecureSkipVerify(t *testing.T) {
	now := time.Unix(1700000100, 0)

	var records []slog.Record
	handler := &captureHandler{records: &records}
	verifier := newVerifier(true, slog.New(handler))

	// No header at all: the bypass accepts it and logs loudly.
	envelope, err := verifier.Verify(testBody(), "", now)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", envelope.ID)

	require.NotEmpty(t, records)
	assert.Equal(t, slog.LevelWarn, records[0].Level)
	assert.Contains(t, records[0].Message, "BYPASSED")
}

func TestIsVerificationError(t *testing.T) {
	for _, err := range []error{
		domain.ErrSignatureMissing,
		domain.ErrSignatureMalformed,
		domain.ErrSignatureMismatch,
		domain.ErrTimestampOutOfTolerance,
	} {
		assert.True(t, domain.IsVerificationError(err), "%v", err)
	}

	assert.False(t, domain.IsVerificationError(nil))
	assert.False(t, domain.IsVerificationError(domain.ErrOrderNotFound))
}

// captureHandler records log entries for assertions.
type captureHandler struct {
	records *[]slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	*h.records = append(*h.records, r)
	return nil
}
func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }
