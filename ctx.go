package auth

import (
	"context"
	"slices"
)

var principalCtxKey = &contextKey{"principal"}

type contextKey struct {
	name string
}

// WithPrincipal sets the Principal in the given context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// PrincipalFromContext finds the principal in the context.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(principalCtxKey).(*Principal)
	return raw, ok && raw != nil
}

// HasRole is a convenience check on the principal stored in ctx
func HasRole(ctx context.Context, roles ...Role) bool {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return false
	}
	return slices.Contains(roles, p.Role)
}
