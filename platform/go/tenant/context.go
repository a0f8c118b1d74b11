package tenant

import (
	"context"
	"fmt"
)

// Context captures the confirmed tenant binding for a session: the normalized
// code the user entered and the backend schema it routes to. It is an explicit
// value handed to every component that needs it; there is no process-global
// tenant state.
type Context struct {
	Code       string
	SchemaName string
}

// NewContext derives the schema binding for a normalized, registry-confirmed
// code. It rejects empty codes so a zero Context can never reach the data path.
func NewContext(schemaPrefix, code string) (Context, error) {
	code = Normalize(code)
	if code == "" {
		return Context{}, fmt.Errorf("tenant code is required")
	}
	return Context{Code: code, SchemaName: BuildSchemaName(schemaPrefix, code)}, nil
}

type ctxKey struct{}

// WithContext returns a derived context carrying the tenant binding.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext extracts the tenant binding and a boolean indicating presence.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}
