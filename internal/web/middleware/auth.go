package middleware

import (
	"net/http"
	"strings"

	"github.com/mcrud/mcrud/internal/web/auth"
	"github.com/mcrud/mcrud/internal/web/response"
)

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Auth requires a valid bearer token and stores its claims in the request context
func Auth(validator TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.RenderUnauthorized(w, "authorization required")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				response.RenderUnauthorized(w, "invalid authorization format")
				return
			}

			claims, err := validator.ValidateToken(parts[1])
			if err != nil {
				response.RenderUnauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}
