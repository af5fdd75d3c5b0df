package authz

import "context"

type principalContextKey struct{}
type decisionContextKey struct{}
type recordContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the authenticated principal from the context
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}

// ContextWithDecision attaches an authorization decision to the context, set
// by the middleware for the downstream handler
func ContextWithDecision(ctx context.Context, d Decision) context.Context {
	return context.WithValue(ctx, decisionContextKey{}, d)
}

// DecisionFromContext extracts the middleware's decision from the context
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(Decision)
	return d, ok
}

// ContextWithRecord attaches the record fetched during authorization so the
// handler does not fetch it again
func ContextWithRecord(ctx context.Context, rec any) context.Context {
	return context.WithValue(ctx, recordContextKey{}, rec)
}

// RecordFromContext extracts the pre-fetched target record from the context
func RecordFromContext(ctx context.Context) (any, bool) {
	rec := ctx.Value(recordContextKey{})
	return rec, rec != nil
}
