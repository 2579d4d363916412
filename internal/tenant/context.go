// Package tenant carries the active organization id through a request's call
// chain. The binding lives on the context.Context of the request, so
// concurrent requests can never observe each other's value and goroutines
// spawned with the request context inherit the binding at spawn time.
package tenant

import "context"

type contextKey string

const orgIDKey contextKey = "organization_id"

// WithOrgID binds the active organization id onto the context. The previous
// binding, if any, is shadowed for the returned context only.
func WithOrgID(ctx context.Context, orgID uint) context.Context {
	return context.WithValue(ctx, orgIDKey, orgID)
}

// OrgID returns the organization id bound by the nearest enclosing
// WithOrgID/RunWithin, or false if the request is tenant-agnostic.
func OrgID(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(orgIDKey).(uint)
	return id, ok
}

// RunWithin executes fn with orgID bound as the active organization for the
// dynamic extent of fn. A nil orgID runs fn without a binding, which is how
// system and background work stays tenant-agnostic.
func RunWithin(ctx context.Context, orgID *uint, fn func(ctx context.Context) error) error {
	if orgID != nil {
		ctx = WithOrgID(ctx, *orgID)
	}
	return fn(ctx)
}
