package auth

import (
	"context"
	"crypto/rsa"
)

// TestKeyID is the kid under which NewTestJWKS registers its key.
const TestKeyID = "test-key-id"

// ContextWithPrincipal adds a principal to the context.
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// NewTestJWKS returns a static key set holding publicKey under TestKeyID.
func NewTestJWKS(publicKey *rsa.PublicKey) *JWKS {
	return NewStaticJWKS(map[string]*rsa.PublicKey{TestKeyID: publicKey})
}
