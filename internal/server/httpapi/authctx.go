package httpapi

import (
	"context"

	"github.com/and161185/talentgate/internal/model"
)

type ctxKey string

const (
	claimsKey ctxKey = "tg.claims"
	tokenKey  ctxKey = "tg.token"
)

// WithClaims stores the verified claims and the raw bearer token in ctx.
func WithClaims(ctx context.Context, c *model.Claims, raw string) context.Context {
	ctx = context.WithValue(ctx, claimsKey, c)
	return context.WithValue(ctx, tokenKey, raw)
}

// ClaimsFromContext returns the claims attached by Authenticate.
func ClaimsFromContext(ctx context.Context) (*model.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*model.Claims)
	return c, ok && c != nil
}

// TokenFromContext returns the raw bearer token attached by Authenticate.
func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey).(string)
	return t, ok && t != ""
}
