package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "email", v), ANY package that knows the string can
// read or shadow your value. Using a package-private type prevents
// collisions: only THIS package can create a key of type contextKey.
type contextKey string

const emailKey contextKey = "email"

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the JWT from the "Authorization: Bearer <token>" header,
// validates it, and stores the subject email in the request context. If the
// header is missing or the token fails validation FOR ANY REASON (expired,
// tampered, wrong algorithm, empty subject), it returns 401 Unauthorized and
// stops the request chain — clients see one uniform failure.
//
// WHY A BEARER HEADER AND NOT A COOKIE?
// The API is consumed by a frontend served from a different origin. A
// header-carried token avoids cross-site cookie rules entirely; the frontend
// attaches it explicitly on each request.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, err := extractEmail(r, tokens)
			if err != nil {
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			// Store the email in context so handlers can read it
			ctx := context.WithValue(r.Context(), emailKey, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// EmailFromContext retrieves the authenticated user's email from the request
// context.
//
// Returns ("", false) if the request is anonymous (no valid token present).
// Returns (email, true) if the user is authenticated.
//
// Usage in handlers:
//
//	email, ok := auth.EmailFromContext(r.Context())
//	if !ok {
//	    // anonymous — only possible on routes without RequireAuth
//	}
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(emailKey).(string)
	return email, ok && email != ""
}

// extractEmail reads the Authorization header and validates the bearer token.
func extractEmail(r *http.Request, tokens *TokenService) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("auth: missing Authorization header")
	}

	// "Bearer " prefix is case-insensitive per RFC 6750
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", errors.New("auth: Authorization header is not a bearer token")
	}

	return tokens.Validate(strings.TrimSpace(header[len(prefix):]))
}
