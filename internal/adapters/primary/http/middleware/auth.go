package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dexhq/support-chat-backend/internal/core/domain"
	"github.com/dexhq/support-chat-backend/internal/core/ports"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// PrincipalKey is the key used to store the verified principal in the
// request context.
const PrincipalKey contextKey = "principal"

// VerifyToken validates the bearer token against the external identity
// service and stores the resulting principal in the request context.
// The role selects which identity endpoint performs the check.
func VerifyToken(verifier ports.IdentityVerifier, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Authorization header format must be Bearer {token}", http.StatusUnauthorized)
				return
			}

			principal, err := verifier.VerifyToken(r.Context(), parts[1], role)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			// Add the principal to the context for downstream handlers.
			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal retrieves the verified principal from the context.
func GetPrincipal(ctx context.Context) (*domain.Principal, bool) {
	principal, ok := ctx.Value(PrincipalKey).(*domain.Principal)
	return principal, ok
}
