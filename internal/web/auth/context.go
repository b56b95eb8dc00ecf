package auth

import (
	"context"
)

type contextKey struct{}

// WithClaims returns a context carrying the authenticated claims
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

// ClaimsFrom returns the authenticated claims, or nil if the request is anonymous
func ClaimsFrom(ctx context.Context) *Claims {
	claims, _ := ctx.Value(contextKey{}).(*Claims)
	return claims
}

// Subject returns the authenticated subject, or an empty string
func Subject(ctx context.Context) string {
	if claims := ClaimsFrom(ctx); claims != nil {
		return claims.Subject
	}
	return ""
}
