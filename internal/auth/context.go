// Package auth verifies bearer tokens for the API Gateway authorizer and
// carries the caller's token expiry through request contexts.
package auth

import (
	"context"
	"time"
)

type contextKey string

const (
	tokenExpirationKey contextKey = "token_expiration"
	principalKey       contextKey = "principal"
)

// WithTokenExpiration records when the caller's token expires.
func WithTokenExpiration(ctx context.Context, exp time.Time) context.Context {
	return context.WithValue(ctx, tokenExpirationKey, exp)
}

// TokenExpiration returns the caller's token expiry, if known.
func TokenExpiration(ctx context.Context) (time.Time, bool) {
	exp, ok := ctx.Value(tokenExpirationKey).(time.Time)
	return exp, ok && !exp.IsZero()
}

// WithPrincipal records the authenticated caller.
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// Principal returns the authenticated caller, if any.
func Principal(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(principalKey).(string)
	return p, ok && p != ""
}
