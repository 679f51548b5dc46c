// Package reqctx carries per-request identity through context.Context.
//
// Tenant, user, and session are established once at request entry and
// propagated to every downstream call. Two concurrent requests never observe
// each other's identity because nothing here is package-level state.
package reqctx

import "context"

type contextKey struct{}

// Identity is the ambient per-request identity of the fulfillment pipeline.
type Identity struct {
	TenantCode string
	UserID     string
	SessionID  string
	// AuthCookie is the upstream session cookie forwarded to the order API.
	AuthCookie string
}

// With returns a child context carrying id.
func With(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// From extracts the identity; ok is false when the context carries none.
func From(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// FromOrZero extracts the identity or returns a zero value. Call sites that can
// operate anonymously (health checks, tests) use this form.
func FromOrZero(ctx context.Context) Identity {
	id, _ := From(ctx)
	return id
}
