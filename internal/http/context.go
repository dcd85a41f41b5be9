package http

import (
	"context"

	"github.com/example/firm-scheduler/internal/application"
)

type contextKey string

const scopeContextKey contextKey = "scope"

// ContextWithScope returns a derived context carrying the request scope.
func ContextWithScope(ctx context.Context, scope application.Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey, scope)
}

// ScopeFromContext extracts the request scope from context if available.
func ScopeFromContext(ctx context.Context) (application.Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey).(application.Scope)
	return scope, ok
}
