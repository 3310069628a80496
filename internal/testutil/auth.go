package testutil

import (
	"crypto/rsa"
	"testing"

	"github.com/medilabo/patient-service/internal/auth"
)

// CreateTestVerifier creates a verifier accepting tokens from GenerateTestJWT.
// It returns the verifier and the private key to sign test tokens
func CreateTestVerifier(t *testing.T) (*auth.Verifier, *rsa.PrivateKey) {
	t.Helper()

	privateKey, publicKey := GenerateTestKeyPair(t)
	verifier := auth.NewVerifier(auth.Config{Issuer: TestIssuer}, auth.NewTestJWKS(publicKey))

	return verifier, privateKey
}

// TestPermissions mirrors the roles in permissions.yml
func TestPermissions() auth.Permissions {
	return auth.Permissions{
		"ORGANIZER": {
			auth.PermissionPatientView,
			auth.PermissionPatientCreate,
			auth.PermissionPatientUpdate,
			auth.PermissionPatientDelete,
		},
		"DOCTOR": {auth.PermissionPatientView},
	}
}
