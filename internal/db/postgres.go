package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/medilabo/patient-service/internal/config"
)

// Connect opens the PostgreSQL pool with OpenTelemetry instrumentation
func Connect(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*sql.DB, error) {
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}

	db, err := Open(ctx, cfg.DSN(), cfg.DBName)
	if err != nil {
		return nil, err
	}

	// Register database stats for metrics
	err = otelsql.RegisterDBStatsMetrics(db,
		otelsql.WithAttributes(
			semconv.DBSystemPostgreSQL,
			semconv.DBName(cfg.DBName),
		),
	)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to register database stats metrics")
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	logger.Info().
		Str("host", cfg.DBHost).
		Str("database", cfg.DBName).
		Str("schema", cfg.DBSchema).
		Msg("connected to PostgreSQL")
	return db, nil
}

// Open opens and pings a traced lib/pq connection for dsn.
func Open(ctx context.Context, dsn, dbName string) (*sql.DB, error) {
	db, err := otelsql.Open("postgres", dsn,
		otelsql.WithAttributes(
			semconv.DBSystemPostgreSQL,
			semconv.DBName(dbName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
