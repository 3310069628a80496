//go:build integration

package e2e

import (
	"crypto/rsa"
	"database/sql"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medilabo/patient-service/internal/auth"
	httpserver "github.com/medilabo/patient-service/internal/http"
	"github.com/medilabo/patient-service/internal/patient"
	"github.com/medilabo/patient-service/internal/testutil"
)

// TestServer represents a complete E2E test environment
type TestServer struct {
	Server        *httptest.Server
	DB            *sql.DB
	MockPublisher *testutil.MockPublisher
	PrivateKey    *rsa.PrivateKey
}

// SetupE2ETest creates a complete test environment for E2E testing:
// real PostgreSQL, the full router with auth, an in-memory event publisher
// and a signing key for test tokens.
func SetupE2ETest(t *testing.T) *TestServer {
	t.Helper()

	db := testutil.SetupTestDB(t)
	testutil.CleanupTestDB(t, db)

	mockPublisher := testutil.NewMockPublisher()

	perms, err := auth.LoadPermissions("../../permissions.yml")
	if err != nil {
		t.Fatalf("Failed to load permissions: %v", err)
	}

	verifier, privateKey := testutil.CreateTestVerifier(t)
	logger := zerolog.Nop()

	service := patient.NewService(
		patient.NewRepository(db, testutil.TestSchema),
		mockPublisher,
		nil,
		logger,
	)
	router := httpserver.SetupRouter(httpserver.Dependencies{
		Patients: service,
		Guard:    auth.NewGuard(verifier, perms, nil, logger),
		Logger:   logger,
	})

	return &TestServer{
		Server:        httptest.NewServer(router),
		DB:            db,
		MockPublisher: mockPublisher,
		PrivateKey:    privateKey,
	}
}

// Cleanup cleans up all test resources
func (ts *TestServer) Cleanup(t *testing.T) {
	t.Helper()

	ts.Server.Close()
	testutil.CleanupTestDB(t, ts.DB)
	ts.DB.Close()
}

// OrganizerClient returns a client holding every patient permission
func (ts *TestServer) OrganizerClient(t *testing.T) *testutil.HTTPTestClient {
	t.Helper()
	return testutil.NewHTTPTestClient(ts.Server.URL, testutil.GenerateOrganizerToken(t, ts.PrivateKey))
}

// DoctorClient returns a read-only client
func (ts *TestServer) DoctorClient(t *testing.T) *testutil.HTTPTestClient {
	t.Helper()
	return testutil.NewHTTPTestClient(ts.Server.URL, testutil.GenerateDoctorToken(t, ts.PrivateKey))
}
