// Package ctxutil bounds blocking store and feed calls.
package ctxutil

import (
	"context"
	"time"
)

// WithDefaultTimeout returns ctx unchanged when it already carries a
// deadline, otherwise a derived context bounded by timeout.
func WithDefaultTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// DetachWithTimeout returns a context that keeps ctx values but not its
// cancellation, bounded by timeout. Use it for follow-up work that must not
// be cut short by the caller returning.
func DetachWithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
