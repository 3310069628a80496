package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/medilabo/patient-service/internal/auth"
	"github.com/medilabo/patient-service/internal/config"
	"github.com/medilabo/patient-service/internal/db"
	httpapi "github.com/medilabo/patient-service/internal/http"
	"github.com/medilabo/patient-service/internal/messaging"
	"github.com/medilabo/patient-service/internal/patient"
	"github.com/medilabo/patient-service/internal/telemetry"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "patient-service",
		Short:        "Patient records API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the patient API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _ := cmd.Flags().GetString("store")
			autoMigrate, _ := cmd.Flags().GetBool("auto-migrate")
			return runServer(store, autoMigrate)
		},
	}
	cmd.Flags().String("store", "postgres", "Patient store: postgres or memory")
	cmd.Flags().Bool("auto-migrate", false, "Create the patients table on startup")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the patient schema objects",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if schema, _ := cmd.Flags().GetString("schema"); schema != "" {
				cfg.DBSchema = schema
			}

			logger := newLogger(cfg)
			ctx := context.Background()

			conn, err := db.Connect(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := db.Migrate(ctx, conn, cfg.DBSchema); err != nil {
				return err
			}
			logger.Info().Str("schema", cfg.DBSchema).Msg("migration applied")
			return nil
		},
	}
	cmd.Flags().String("schema", "", "Target schema (defaults to DB_SCHEMA)")
	return cmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", messaging.ServiceName).Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func runServer(store string, autoMigrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	if cfg.OTelEnabled {
		provider, err := telemetry.InitProvider(ctx, telemetry.ConfigFrom(cfg), logger)
		if err != nil {
			logger.Warn().Err(err).Msg("telemetry disabled")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = provider.Shutdown(shutdownCtx)
			}()
		}
	}
	// Instruments bind to the global meter, a no-op unless telemetry is enabled.
	metrics, err := telemetry.InitMetrics(otel.Meter(telemetry.MeterName))
	if err != nil {
		logger.Warn().Err(err).Msg("failed to create metrics instruments")
		metrics = nil
	}

	// Store
	var repo patient.RepositoryInterface
	switch store {
	case "memory":
		logger.Warn().Msg("using in-memory patient store; data is lost on exit")
		repo = patient.NewMemoryRepository()
	case "postgres":
		conn, err := db.Connect(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer conn.Close()
		if autoMigrate {
			if err := db.Migrate(ctx, conn, cfg.DBSchema); err != nil {
				return err
			}
		}
		repo = patient.NewRepository(conn, cfg.DBSchema)
	default:
		return fmt.Errorf("unknown store %q", store)
	}

	// Events
	var publisher messaging.PublisherInterface = messaging.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		p, err := messaging.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("RabbitMQ unavailable, events disabled")
		} else {
			defer p.Close()
			publisher = p
		}
	}

	// Auth
	var guard *auth.Guard
	if cfg.AuthEnabled {
		perms, err := auth.LoadPermissions(cfg.PermissionsFile)
		if err != nil {
			return err
		}
		jwks, err := auth.NewJWKS(cfg.AuthJWKSURL, 0)
		if err != nil {
			return fmt.Errorf("failed to load JWKS: %w", err)
		}
		defer jwks.Close()
		guard = auth.NewGuard(auth.NewVerifier(auth.ConfigFrom(cfg), jwks), perms, metrics, logger)
	} else {
		logger.Warn().Msg("authentication disabled")
	}

	service := patient.NewService(repo, publisher, metrics, logger)
	handler := httpapi.SetupRouter(httpapi.Dependencies{
		Patients:       service,
		Guard:          guard,
		Metrics:        metrics,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		Tracing:        cfg.OTelEnabled,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("store", store).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
