package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey string

const principalKey ctxKey = "auth_principal"

var tracer = otel.Tracer("github.com/medilabo/patient-service/auth")

// MetricsRecorder records authentication and authorisation outcomes.
type MetricsRecorder interface {
	RecordAuthFailure(ctx context.Context, reason string)
	RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool)
}

type noopRecorder struct{}

func (noopRecorder) RecordAuthFailure(context.Context, string) {}

func (noopRecorder) RecordPermissionCheck(context.Context, string, float64, bool) {}

// Guard bundles the verifier, permission table and instrumentation used by
// the route middlewares.
type Guard struct {
	verifier *Verifier
	perms    Permissions
	metrics  MetricsRecorder
	logger   zerolog.Logger
}

// NewGuard builds a Guard. metrics may be nil.
func NewGuard(verifier *Verifier, perms Permissions, metrics MetricsRecorder, logger zerolog.Logger) *Guard {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &Guard{
		verifier: verifier,
		perms:    perms,
		metrics:  metrics,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// Authenticate validates the bearer token and injects the Principal into the
// request context.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "auth.Authenticate",
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		fail := func(reason, message string) {
			span.SetStatus(codes.Error, message)
			span.SetAttributes(attribute.String("error.type", reason))
			g.metrics.RecordAuthFailure(ctx, reason)
			http.Error(w, message, http.StatusUnauthorized)
		}

		authz := r.Header.Get("Authorization")
		if authz == "" {
			fail("missing_authorization", "missing authorization")
			return
		}

		parts := strings.SplitN(authz, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			fail("invalid_header_format", "invalid authorization header")
			return
		}

		pr, err := g.verifier.ParseAndVerifyToken(parts[1])
		if err != nil {
			g.logger.Warn().Err(err).Msg("token validation failed")
			fail("invalid_token", "invalid token")
			return
		}

		span.SetAttributes(
			attribute.String("user.id", pr.UserID),
			attribute.StringSlice("user.roles", pr.Roles),
		)
		span.SetStatus(codes.Ok, "authenticated")

		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(ctx, pr)))
	})
}

// Require returns middleware that lets the request through only when the
// authenticated principal holds permission.
func (g *Guard) Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := tracer.Start(r.Context(), "auth.Require",
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attribute.String("permission.required", permission)),
			)
			defer span.End()

			pr, ok := FromContext(ctx)
			if !ok {
				span.SetStatus(codes.Error, "unauthenticated")
				g.metrics.RecordPermissionCheck(ctx, permission, msSince(start), false)
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
				return
			}

			allowed := HasPermission(pr, permission, g.perms)
			span.SetAttributes(
				attribute.Bool("permission.allowed", allowed),
				attribute.String("user.id", pr.UserID),
			)
			g.metrics.RecordPermissionCheck(ctx, permission, msSince(start), allowed)

			if !allowed {
				g.logger.Warn().
					Str("user_id", pr.UserID).
					Strs("roles", pr.Roles).
					Str("permission", permission).
					Msg("permission denied")
				span.SetStatus(codes.Error, "forbidden")
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Protect chains Authenticate and Require(permission) around h.
func (g *Guard) Protect(permission string, h http.Handler) http.Handler {
	return g.Authenticate(g.Require(permission)(h))
}

// FromContext extracts Principal from context.
func FromContext(ctx context.Context) (*Principal, bool) {
	pr, ok := ctx.Value(principalKey).(*Principal)
	return pr, ok
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
