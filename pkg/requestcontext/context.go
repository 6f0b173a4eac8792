// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// This package defines context keys and getter/setter functions for values that are
// typically set by middleware but consumed by services. By keeping this package free
// of net/http dependencies, services can import only what they need without pulling
// in HTTP-related code.
//
// Usage in services (read values):
//
//	caller := requestcontext.Caller(ctx)
//	tick := requestcontext.Tick(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithCaller(ctx, principal)
//	ctx = requestcontext.WithTick(ctx, tick)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTick(ctx, 1440)
//	ctx = requestcontext.WithCaller(ctx, "member-a")
package requestcontext

import (
	"context"

	id "quorum/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	callerKey    struct{}
	tickKey      struct{}
	requestIDKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyCaller    = callerKey{}
	ContextKeyTick      = tickKey{}
	ContextKeyRequestID = requestIDKey{}
)

// Caller retrieves the authenticated principal from the context.
// Returns the zero value (empty principal) if not set.
func Caller(ctx context.Context) id.Principal {
	if p, ok := ctx.Value(ContextKeyCaller).(id.Principal); ok {
		return p
	}
	return ""
}

// WithCaller injects the authenticated principal into the context.
func WithCaller(ctx context.Context, p id.Principal) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, p)
}

// Tick retrieves the clock counter for this operation. Every time-window,
// expiry, and period-bucket computation in the engine reads this single
// value, so one operation observes one consistent tick.
// Returns 0 if not set (tests should always inject via WithTick).
func Tick(ctx context.Context) id.Tick {
	if t, ok := ctx.Value(ContextKeyTick).(id.Tick); ok {
		return t
	}
	return 0
}

// WithTick injects a clock counter into the context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - The recurring-payment runner, which stamps a batch with one tick
func WithTick(ctx context.Context, t id.Tick) context.Context {
	return context.WithValue(ctx, ContextKeyTick, t)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}
