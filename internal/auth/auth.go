// Package auth is the identity boundary. The authentication collaborator in
// front of this service verifies credentials and forwards the resulting user
// id in a trusted header; nothing here validates credentials itself.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthenticated is returned when an operation requiring an identity is
// called without one. The core performs no store access in that case.
var ErrUnauthenticated = errors.New("unauthenticated")

// Header carries the verified user id set by the auth collaborator.
const Header = "X-User-ID"

type ctxKey struct{}

// WithUser returns a context carrying the given user id.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID extracts the verified user id from the context.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Middleware copies the identity header, when present, into the request
// context. It does not reject anonymous requests; RequireUser does.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(Header)); id != "" {
			r = r.WithContext(WithUser(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects requests that carry no verified identity.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserID(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "authentication required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
