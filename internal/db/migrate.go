package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Migrate creates the patient schema objects. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB, schema string) error {
	s := pq.QuoteIdentifier(schema)
	statements := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, s),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.patients (
				id           BIGSERIAL PRIMARY KEY,
				first_name   VARCHAR(100) NOT NULL,
				last_name    VARCHAR(100) NOT NULL,
				birth_date   DATE NOT NULL,
				gender       CHAR(1) NOT NULL CHECK (gender IN ('M', 'F')),
				address      VARCHAR(255),
				phone_number VARCHAR(32),
				created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at   TIMESTAMPTZ
			)`, s),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_patients_last_name ON %s.patients (last_name)`, s),
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}
