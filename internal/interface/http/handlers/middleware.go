// Package handlers contains HTTP middleware and health checks shared by the
// REST server.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// AdminTokenHeader carries the plain admin token.
const AdminTokenHeader = "X-Admin-Token"

// DefaultAdminActor is the identity used when none is configured.
const DefaultAdminActor = "admin"

// AdminAuth checks the admin token against a bcrypt hash.
type AdminAuth struct {
	hash    []byte
	actorID string
}

// NewAdminAuth creates an authenticator. An empty hash rejects every request.
// actorID names the identity a valid token stands for.
func NewAdminAuth(tokenHash, actorID string) *AdminAuth {
	if actorID == "" {
		actorID = DefaultAdminActor
	}
	return &AdminAuth{hash: []byte(tokenHash), actorID: actorID}
}

type adminActorKey struct{}

// AdminActorFromContext returns the admin identity set by Middleware.
func AdminActorFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(adminActorKey{}).(string)
	return id, ok && id != ""
}

// IsValid reports whether token matches the configured hash.
func (a *AdminAuth) IsValid(token string) bool {
	if len(a.hash) == 0 || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.hash, []byte(token)) == nil
}

// Middleware rejects requests without a valid admin token.
// Accepts the X-Admin-Token header or an Authorization Bearer token.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(AdminTokenHeader)
		if token == "" {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_admin_token", "admin token is required")
			return
		}
		if !a.IsValid(token) {
			writeError(w, http.StatusUnauthorized, "invalid_admin_token", "invalid admin token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminActorKey{}, a.actorID)))
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"error":{"code":"` + code + `","message":"` + message + `"}}`))
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST LIMITS
// ══════════════════════════════════════════════════════════════════════════════

// RequestSizeLimitMiddleware caps request bodies.
func RequestSizeLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

// ContextKey is the type for request-scoped values.
type ContextKey string

const (
	// ContextKeyRequestID holds the request id.
	ContextKeyRequestID ContextKey = "request_id"
)

// RequestID returns the request id stored in ctx.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// WithRequestID stores the request id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, id)
}

// ══════════════════════════════════════════════════════════════════════════════
// CHAINING
// ══════════════════════════════════════════════════════════════════════════════

// MiddlewareFunc is a standard middleware signature.
type MiddlewareFunc func(http.Handler) http.Handler

// ChainHandler wraps handler so that the first middleware runs first.
func ChainHandler(handler http.Handler, middlewares ...MiddlewareFunc) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}
