package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const testIssuer = "https://test-keycloak.com/realms/medilabo"

// generateTestKeyPair generates an RSA key pair for signing test tokens
func generateTestKeyPair(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	return privateKey, &privateKey.PublicKey
}

// signTestToken signs claims with the test key id
func signTestToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = TestKeyID
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return s
}

func validClaims(roles ...interface{}) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "user-123",
		"iss": testIssuer,
		"exp": time.Now().Add(1 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
		"realm_access": map[string]interface{}{
			"roles": roles,
		},
	}
}

// TestVerifier_ParseAndVerifyToken_Success tests successful token parsing
func TestVerifier_ParseAndVerifyToken_Success(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)
	verifier := NewVerifier(Config{Issuer: testIssuer}, NewTestJWKS(publicKey))

	tokenString := signTestToken(t, privateKey, validClaims("DOCTOR", "ORGANIZER"))

	principal, err := verifier.ParseAndVerifyToken(tokenString)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if principal.UserID != "user-123" {
		t.Errorf("Expected UserID 'user-123', got '%s'", principal.UserID)
	}
	if len(principal.Roles) != 2 {
		t.Fatalf("Expected 2 roles, got %d", len(principal.Roles))
	}
	if principal.Roles[0] != "DOCTOR" {
		t.Errorf("Expected first role 'DOCTOR', got '%s'", principal.Roles[0])
	}
	if principal.Claims["iss"] != testIssuer {
		t.Errorf("Expected raw claims to be kept, got %v", principal.Claims)
	}
}

// TestVerifier_ParseAndVerifyToken_EmptyToken tests empty token
func TestVerifier_ParseAndVerifyToken_EmptyToken(t *testing.T) {
	verifier := NewVerifier(Config{Issuer: testIssuer}, nil)

	principal, err := verifier.ParseAndVerifyToken("   ")
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("Expected ErrNoToken, got: %v", err)
	}
	if principal != nil {
		t.Error("Expected nil principal")
	}
}

func TestVerifier_ParseAndVerifyToken_Rejections(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)
	otherKey, _ := generateTestKeyPair(t)

	tests := []struct {
		name    string
		cfg     Config
		key     *rsa.PrivateKey
		mutate  func(jwt.MapClaims)
		wantErr error
	}{
		{
			name:    "expired token",
			cfg:     Config{Issuer: testIssuer},
			key:     privateKey,
			mutate:  func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-1 * time.Hour).Unix() },
			wantErr: ErrInvalidToken,
		},
		{
			name:    "missing exp",
			cfg:     Config{Issuer: testIssuer},
			key:     privateKey,
			mutate:  func(c jwt.MapClaims) { delete(c, "exp") },
			wantErr: ErrInvalidToken,
		},
		{
			name:    "wrong issuer",
			cfg:     Config{Issuer: testIssuer},
			key:     privateKey,
			mutate:  func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" },
			wantErr: ErrInvalidIssuer,
		},
		{
			name:    "missing sub",
			cfg:     Config{Issuer: testIssuer},
			key:     privateKey,
			mutate:  func(c jwt.MapClaims) { delete(c, "sub") },
			wantErr: ErrMissingSub,
		},
		{
			name:    "signed with unknown key",
			cfg:     Config{Issuer: testIssuer},
			key:     otherKey,
			mutate:  func(jwt.MapClaims) {},
			wantErr: ErrInvalidToken,
		},
		{
			name:    "audience mismatch",
			cfg:     Config{Issuer: testIssuer, Audience: "patient-service"},
			key:     privateKey,
			mutate:  func(c jwt.MapClaims) { c["aud"] = "front-end" },
			wantErr: ErrInvalidAudience,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := NewVerifier(tt.cfg, NewTestJWKS(publicKey))
			claims := validClaims("DOCTOR")
			tt.mutate(claims)

			principal, err := verifier.ParseAndVerifyToken(signTestToken(t, tt.key, claims))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got: %v", tt.wantErr, err)
			}
			if principal != nil {
				t.Error("Expected nil principal")
			}
		})
	}
}

func TestVerifier_ParseAndVerifyToken_AudienceMatch(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)
	verifier := NewVerifier(Config{Issuer: testIssuer, Audience: "patient-service"}, NewTestJWKS(publicKey))

	claims := validClaims("DOCTOR")
	claims["aud"] = []interface{}{"account", "patient-service"}

	if _, err := verifier.ParseAndVerifyToken(signTestToken(t, privateKey, claims)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

// TestVerifier_ParseAndVerifyToken_WrongAlgorithm tests that HMAC tokens are rejected
func TestVerifier_ParseAndVerifyToken_WrongAlgorithm(t *testing.T) {
	_, publicKey := generateTestKeyPair(t)
	verifier := NewVerifier(Config{Issuer: testIssuer}, NewTestJWKS(publicKey))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("DOCTOR"))
	token.Header["kid"] = TestKeyID
	tokenString, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	if _, err := verifier.ParseAndVerifyToken(tokenString); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got: %v", err)
	}
}

func TestVerifier_ParseAndVerifyToken_NoRoles(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)
	verifier := NewVerifier(Config{Issuer: testIssuer}, NewTestJWKS(publicKey))

	claims := validClaims()
	delete(claims, "realm_access")

	principal, err := verifier.ParseAndVerifyToken(signTestToken(t, privateKey, claims))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(principal.Roles) != 0 {
		t.Errorf("Expected no roles, got %v", principal.Roles)
	}
}

func TestJWKS_GetUnknownKidWithoutURL(t *testing.T) {
	_, publicKey := generateTestKeyPair(t)
	jwks := NewTestJWKS(publicKey)

	if _, err := jwks.Get("missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound, got: %v", err)
	}
	if k, err := jwks.Get(TestKeyID); err != nil || k != publicKey {
		t.Errorf("Expected test key, got %v (%v)", k, err)
	}
	// Close on a static set is a no-op
	jwks.Close()
}
