package auth

import (
	"context"

	"github.com/google/uuid"
)

type claimsKey struct{}

// ContextWithClaims attaches the caller's verified Supabase identity.
func ContextWithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok && c != nil
}

// UserIDFromContext reports the Supabase user id of the authenticated caller.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok || c.UserID == uuid.Nil {
		return uuid.Nil, false
	}
	return c.UserID, true
}

// EmailFromContext returns the email Supabase issued the token for, if any.
func EmailFromContext(ctx context.Context) (string, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok || c.Email == "" {
		return "", false
	}
	return c.Email, true
}
