// Package auth carries the caller identity established by the gateway's
// bearer-token check through the request context.
package auth

import (
	"context"
	"net/http"
	"strings"
)

// Principal identifies an authenticated caller. Today the only credential
// is the shared API key presented in the Authorization header.
type Principal struct {
	APIKey string
}

type ctxKey struct{}

// WithPrincipal attaches p to the context for downstream handlers.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFrom reports the caller stored by WithPrincipal, if any. Handlers
// use it to distinguish authenticated requests when auth is optional.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(*Principal)
	return p, ok && p != nil
}

// ParseBearer extracts a non-empty token from an "Authorization: Bearer"
// header.
func ParseBearer(r *http.Request) (string, bool) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}
