package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the runtime settings of the patient service.
type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBSchema       string `mapstructure:"DB_SCHEMA"`
	DBSSLMode      string `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns int    `mapstructure:"DB_MAX_IDLE_CONNS"`

	RabbitMQURL      string `mapstructure:"RABBITMQ_URL"`
	RabbitMQExchange string `mapstructure:"RABBITMQ_EXCHANGE"`

	AuthEnabled     bool   `mapstructure:"AUTH_ENABLED"`
	AuthIssuer      string `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL     string `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience    string `mapstructure:"AUTH_AUD"`
	PermissionsFile string `mapstructure:"PERMISSIONS_FILE"`

	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS"`

	OTelEnabled         bool          `mapstructure:"OTEL_ENABLED"`
	OTelEndpoint        string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelServiceName     string        `mapstructure:"OTEL_SERVICE_NAME"`
	OTelServiceVersion  string        `mapstructure:"OTEL_SERVICE_VERSION"`
	OTelTracesSampler   string        `mapstructure:"OTEL_TRACES_SAMPLER"`
	OTelMetricsInterval time.Duration `mapstructure:"OTEL_METRICS_EXPORT_INTERVAL"`

	HTTPReadTimeout  time.Duration `mapstructure:"HTTP_READ_TIMEOUT"`
	HTTPWriteTimeout time.Duration `mapstructure:"HTTP_WRITE_TIMEOUT"`
	ShutdownTimeout  time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SCHEMA", "DB_SSLMODE",
	"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
	"RABBITMQ_URL", "RABBITMQ_EXCHANGE",
	"AUTH_ENABLED", "AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUD", "PERMISSIONS_FILE",
	"ALLOWED_ORIGINS",
	"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME", "OTEL_SERVICE_VERSION",
	"OTEL_TRACES_SAMPLER", "OTEL_METRICS_EXPORT_INTERVAL",
	"HTTP_READ_TIMEOUT", "HTTP_WRITE_TIMEOUT", "SHUTDOWN_TIMEOUT",
}

// Load reads the configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("RABBITMQ_EXCHANGE", "medilabo.events")
	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("PERMISSIONS_FILE", "permissions.yml")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_SERVICE_NAME", "patient-service")
	v.SetDefault("OTEL_SERVICE_VERSION", "1.0.0")
	v.SetDefault("OTEL_TRACES_SAMPLER", "always_on")
	v.SetDefault("OTEL_METRICS_EXPORT_INTERVAL", "30s")
	v.SetDefault("HTTP_READ_TIMEOUT", "15s")
	v.SetDefault("HTTP_WRITE_TIMEOUT", "15s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.AllowedOrigins) == 1 && strings.Contains(cfg.AllowedOrigins[0], ",") {
		cfg.AllowedOrigins = strings.Split(cfg.AllowedOrigins[0], ",")
	}
	for i, o := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(o)
	}

	return cfg, nil
}

// Validate checks the settings every mode depends on.
func (c *Config) Validate() error {
	var missing []string
	if c.AuthEnabled {
		if c.AuthIssuer == "" {
			missing = append(missing, "AUTH_ISSUER")
		}
		if c.AuthJWKSURL == "" {
			missing = append(missing, "AUTH_JWKS_URL")
		}
	}
	return missingError(missing)
}

// ValidateDatabase checks the settings the postgres store needs.
func (c *Config) ValidateDatabase() error {
	var missing []string
	if c.DBHost == "" {
		missing = append(missing, "DB_HOST")
	}
	if c.DBUser == "" {
		missing = append(missing, "DB_USER")
	}
	if c.DBPassword == "" {
		missing = append(missing, "DB_PASSWORD")
	}
	if c.DBName == "" {
		missing = append(missing, "DB_NAME")
	}
	return missingError(missing)
}

func missingError(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
}

// DSN returns the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}
