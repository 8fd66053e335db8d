// Package kms resolves secret material through a cloud KMS keeper.
//
// The webhook shared secret may be supplied as ciphertext so the plaintext
// never lives in the environment; it is decrypted once at startup through a
// gocloud.dev secrets keeper selected by URI.
package kms

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// SecretResolver decrypts configuration secrets through a KMS keeper.
type SecretResolver interface {
	// Resolve decrypts a base64-encoded ciphertext using the keeper at keyURI.
	// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
	Resolve(ctx context.Context, keyURI, ciphertextB64 string) ([]byte, error)
}

// keeperResolver implements SecretResolver using gocloud.dev/secrets.
type keeperResolver struct{}

// NewSecretResolver creates a new KMS-backed secret resolver.
func NewSecretResolver() SecretResolver {
	return &keeperResolver{}
}

// Resolve opens the keeper, decrypts the ciphertext and closes the keeper.
func (r *keeperResolver) Resolve(ctx context.Context, keyURI, ciphertextB64 string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode secret ciphertext: %w", err)
	}

	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer keeper.Close()

	plaintext, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt secret: %w", err)
	}

	return plaintext, nil
}
