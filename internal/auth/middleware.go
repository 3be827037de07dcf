package auth

import (
	"context"
	"net/http"
	"strings"

	"example.com/notes-api/internal/httpx"
)

// Identity is the authenticated caller as resolved by the middleware.
type Identity struct {
	ID       int64
	Username string
}

// IdentityResolver checks that a token subject still maps to a real user.
// The users repository satisfies it through ResolverFunc in the router setup.
type IdentityResolver interface {
	Resolve(ctx context.Context, userID int64) (Identity, error)
}

// ResolverFunc adapts a function to IdentityResolver.
type ResolverFunc func(ctx context.Context, userID int64) (Identity, error)

func (f ResolverFunc) Resolve(ctx context.Context, userID int64) (Identity, error) {
	return f(ctx, userID)
}

type ctxKey struct{}

// WithIdentity returns a context carrying id. Exposed for handler tests.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFromContext returns the identity placed by Middleware, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Middleware extracts the bearer token, verifies it and resolves the subject
// to an existing user. Every failure is a generic 401: the client learns
// nothing about whether the token was malformed, tampered with, expired, or
// pointed at a deleted user.
func Middleware(tokens *TokenService, resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httpx.WriteErrors(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			userID, err := tokens.Verify(raw)
			if err != nil {
				httpx.WriteErrors(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			identity, err := resolver.Resolve(r.Context(), userID)
			if err != nil {
				httpx.WriteErrors(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
