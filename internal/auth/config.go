package auth

import "github.com/medilabo/patient-service/internal/config"

// Config holds the token validation settings.
type Config struct {
	Issuer   string
	JWKSURL  string
	Audience string // optional
}

// ConfigFrom extracts the auth settings from the service configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Issuer:   cfg.AuthIssuer,
		JWKSURL:  cfg.AuthJWKSURL,
		Audience: cfg.AuthAudience,
	}
}
