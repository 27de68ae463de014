package lock

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mirkobrombin/go-lease/v1/objstore"
)

// Guarded is a lock that also watches the resource it protects: when the
// resource turns out to exist, acquisition aborts with ErrResourceExists
// instead of fighting for the lease. Callers producing an object exactly
// once use it to tell "someone finished the work, go read it" apart from
// lock contention.
type Guarded struct {
	base
	resource string
}

// NewGuarded returns a guarded lock handle for the given resource key. The
// lease record lives at the resource key plus Suffix, in the same bucket as
// the resource.
func NewGuarded(store objstore.Store, bucket, resource string, opts ...Option) *Guarded {
	return &Guarded{base: newBase(store, bucket, resource, opts), resource: resource}
}

// ResourceKey returns the key of the guarded resource.
func (l *Guarded) ResourceKey() string {
	return l.resource
}

// Acquire behaves like Exclusive.Acquire, except the guarded resource is
// checked before the first attempt and again after each retry wait; when it
// exists the call aborts with ErrResourceExists without touching the lease.
func (l *Guarded) Acquire(ctx context.Context) error {
	var span trace.Span
	if l.traceEnabled {
		ctx, span = tracer.Start(ctx, "Guarded.Acquire")
		defer span.End()
	}
	err := l.acquireLoop(ctx, l.checkResource)
	if span != nil {
		span.SetAttributes(
			attribute.String("lease.lock.key", l.key),
			attribute.Bool("lease.lock.acquired", err == nil),
		)
	}
	return err
}

func (l *Guarded) checkResource(ctx context.Context) error {
	exists, err := l.store.Head(ctx, l.bucket, l.resource)
	if err != nil {
		return err
	}
	if exists {
		return ErrResourceExists
	}
	return nil
}
