package state

import "context"

type ctxKey struct{}

// WithContext stores the flow Context in a context.Context. The engine binds
// the run's Context before invoking any handler.
func WithContext(ctx context.Context, fc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, fc)
}

// FromContext retrieves the flow Context a handler is executing under.
// It returns nil when the handler was invoked outside an engine run.
func FromContext(ctx context.Context) *Context {
	fc, _ := ctx.Value(ctxKey{}).(*Context)
	return fc
}
