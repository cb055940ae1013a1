package api

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/piso3/piso/internal/auth"
	"github.com/piso3/piso/internal/metrics"
	"github.com/piso3/piso/internal/store"
)

type contextKey string

const (
	claimsKey    contextKey = "claims"
	requestIDKey contextKey = "request_id"
)

// SessionCookie is the name of the http-only cookie holding the session token.
const SessionCookie = "session"

// sessionToken returns the token from the session cookie or, failing that,
// from a bearer Authorization header.
func sessionToken(r *http.Request) (token string, fromCookie bool) {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer "), false
	}
	return "", false
}

// Authenticate validates a session token and checks that it was not revoked.
func Authenticate(ctx context.Context, db *sql.DB, secret, token string) (*auth.Claims, error) {
	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		return nil, err
	}
	revoked, err := store.IsSessionRevoked(ctx, db, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, errRevoked
	}
	return claims, nil
}

var errRevoked = errors.New("session revoked")

// AuthMiddleware validates the session token and adds its claims to the
// request context. An invalid or expired cookie is cleared.
func AuthMiddleware(secret string, db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, fromCookie := sessionToken(r)
			if token == "" {
				jsonError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			claims, err := Authenticate(r.Context(), db, secret, token)
			if err != nil {
				if fromCookie {
					ClearSessionCookie(w, r)
				}
				jsonError(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects callers whose session is not an administrator's.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())
		if claims == nil {
			jsonError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if !claims.IsAdmin {
			jsonError(w, http.StatusForbidden, "admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireBearerSecret guards machine endpoints with a shared secret. An empty
// secret disables the endpoint.
func RequireBearerSecret(secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get("Authorization"))
		want := []byte("Bearer " + secret)
		if secret == "" || subtle.ConstantTimeCompare(got, want) != 1 {
			jsonError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetClaims retrieves the session claims from the context.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// RequestID returns the request id assigned by LoggingMiddleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware assigns a request id and logs each request with method,
// path, status and duration. Durations are also recorded in m.
func LoggingMiddleware(m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		m.ObserveRequest(r.Method, rec.status, elapsed)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", rec.status,
			"duration", elapsed.Round(time.Millisecond),
			"request_id", id,
		)
	})
}
