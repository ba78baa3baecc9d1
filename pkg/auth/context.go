package auth

import (
	"context"

	"github.com/questlog/questlog/pkg/contextkeys"
)

// WithIdentity binds an authenticated identity to the context
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	ctx = contextkeys.WithIdentity(ctx, identity)
	if identity != nil && identity.Principal != nil {
		ctx = contextkeys.WithUsername(ctx, identity.Principal.Username)
	}
	return ctx
}

// IdentityFromContext returns the identity bound to the context, if any
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(contextkeys.IdentityKey).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
