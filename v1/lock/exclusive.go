package lock

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mirkobrombin/go-lease/v1/objstore"
)

// Exclusive is a plain distributed mutex with TTL and steal-on-expiry.
type Exclusive struct {
	base
}

// NewExclusive returns a lock handle for the given resource key. The lease
// record lives at the resource key plus Suffix, in the same bucket.
func NewExclusive(store objstore.Store, bucket, resource string, opts ...Option) *Exclusive {
	return &Exclusive{base: newBase(store, bucket, resource, opts)}
}

// Acquire obtains the lease or fails once the retry budget is spent. It
// returns ErrAlreadyHeld on a handle that is already holding, and a
// MaxAttemptsError when every attempt lost to another holder. Store errors
// that are not precondition conflicts propagate immediately.
func (l *Exclusive) Acquire(ctx context.Context) error {
	var span trace.Span
	if l.traceEnabled {
		ctx, span = tracer.Start(ctx, "Exclusive.Acquire")
		defer span.End()
	}
	err := l.acquireLoop(ctx, nil)
	if span != nil {
		span.SetAttributes(
			attribute.String("lease.lock.key", l.key),
			attribute.Bool("lease.lock.acquired", err == nil),
		)
	}
	return err
}
