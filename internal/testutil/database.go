package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/lib/pq"

	"github.com/medilabo/patient-service/internal/db"
)

// TestSchema is the schema integration tests run against.
const TestSchema = "patient_test"

// SetupTestDB connects to the database named by TEST_DATABASE_URL and
// migrates TestSchema. The test is skipped when the variable is unset.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	conn, err := db.Open(context.Background(), dsn, "patient_test")
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.Migrate(context.Background(), conn, TestSchema); err != nil {
		conn.Close()
		t.Fatalf("Failed to migrate test schema: %v", err)
	}

	return conn
}

// CleanupTestDB removes every patient and resets the id sequence
func CleanupTestDB(t *testing.T, conn *sql.DB) {
	t.Helper()

	query := fmt.Sprintf("TRUNCATE TABLE %s.patients RESTART IDENTITY", pq.QuoteIdentifier(TestSchema))
	if _, err := conn.Exec(query); err != nil {
		t.Logf("Warning: Failed to clean up patients: %v", err)
	}
}
