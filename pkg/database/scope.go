package database

import "context"

// ScopeKey identifies the execution scope that owns a set of cached engines.
// Pooled engines are mutable resources with their own lifecycle; a service
// binds one scope per unit of concurrency it wants isolated (typically one
// per process, one per test, or one per embedded worker runtime) and an
// engine created under one scope is never handed to another.
type ScopeKey string

type scopeContextKey struct{}

// WithScope returns a context carrying the given engine scope. Every engine
// and session operation on the Manager requires a scope in its context.
func WithScope(ctx context.Context, key ScopeKey) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, key)
}

// ScopeFrom extracts the engine scope from the context.
func ScopeFrom(ctx context.Context) (ScopeKey, bool) {
	key, ok := ctx.Value(scopeContextKey{}).(ScopeKey)
	return key, ok
}
