package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var errNoToken = errors.New("auth: no bearer token")

// contextKey is a package-private type for context keys, so no other
// package can read or shadow the values this package stores.
type contextKey string

const adminKey contextKey = "admin"

// RequireAdmin enforces an admin bearer token on protected routes.
//
// The admin API is called by tooling, not browsers, so the token travels in
// the standard Authorization header rather than a cookie:
//
//	Authorization: Bearer <jwt>
//
// A missing or invalid token ends the chain with 401. On success the admin
// username is stored in the request context for handlers that want it.
func RequireAdmin(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, err := extractBearer(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid admin token required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), adminKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminFromContext retrieves the authenticated admin's username.
// Returns ("", false) when the request did not pass RequireAdmin.
func AdminFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(adminKey).(string)
	return name, ok && name != ""
}

// extractBearer reads and validates the Authorization header.
func extractBearer(r *http.Request, tokens *TokenService) (string, error) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", errNoToken
	}
	return tokens.Validate(strings.TrimPrefix(header, prefix))
}
