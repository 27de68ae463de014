package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mirkobrombin/go-lease/v1/lock"
	"github.com/mirkobrombin/go-lease/v1/metrics"
	"github.com/mirkobrombin/go-lease/v1/objstore"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-lease/v1/cache")

// CreateFunc produces the body of an object that does not exist yet.
type CreateFunc func(ctx context.Context) ([]byte, error)

// Cache is a get-or-create front over one bucket of an object store.
//
// The exclusion guarantee is best effort and TTL-bounded: a producer that
// runs longer than the configured TTL can legitimately lose its lease to
// another process, which then runs the producer concurrently. Callers with
// slow producers must size the TTL generously.
type Cache struct {
	store  objstore.Store
	bucket string

	ttl           time.Duration
	retries       int
	retryInterval time.Duration
	readCache     bool
	writeCache    bool
	local         *localCache
	logger        *slog.Logger
	traceEnabled  bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the lease TTL used while producing an object.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		c.ttl = d
	}
}

// WithRetries sets how many additional lock attempts follow a failed first
// one.
func WithRetries(n int) Option {
	return func(c *Cache) {
		c.retries = n
	}
}

// WithRetryInterval sets the spacing of the lock's fixed retry schedule.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Cache) {
		c.retryInterval = d
	}
}

// WithReadCache controls the existence fast path. When disabled, every call
// contends for the production lock instead of checking for the object first.
// Enabled by default.
func WithReadCache(enabled bool) Option {
	return func(c *Cache) {
		c.readCache = enabled
	}
}

// WithWriteCache controls whether produced results are persisted to the
// store. When disabled, the lock still serializes producers but each winner's
// result stays private to its caller. Enabled by default.
func WithWriteCache(enabled bool) Option {
	return func(c *Cache) {
		c.writeCache = enabled
	}
}

// WithLocalCache adds a ristretto front cache bounded by maxBytes of object
// bodies. maxBytes must be positive.
func WithLocalCache(maxBytes int64) Option {
	return func(c *Cache) {
		c.local = newLocalCache(maxBytes)
	}
}

// WithLogger sets the logger used for warnings. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// WithTracing enables OpenTelemetry spans around GetOrCreate.
func WithTracing() Option {
	return func(c *Cache) {
		c.traceEnabled = true
	}
}

// New returns a Cache over the given bucket of the store.
func New(store objstore.Store, bucket string, opts ...Option) *Cache {
	c := &Cache{
		store:         store,
		bucket:        bucket,
		ttl:           lock.DefaultTTL,
		retries:       lock.DefaultRetries,
		retryInterval: lock.DefaultRetryInterval,
		readCache:     true,
		writeCache:    true,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the underlying object store.
func (c *Cache) Store() objstore.Store {
	return c.store
}

// Bucket returns the bucket this cache operates on.
func (c *Cache) Bucket() string {
	return c.bucket
}

// Close releases resources held by the optional local cache.
func (c *Cache) Close() {
	if c.local != nil {
		c.local.close()
	}
}

// GetOrCreate returns the body of key, producing it with create when absent.
//
// When the object exists it is returned immediately without locking. When it
// does not, the call takes a guarded lease on key and runs create; callers
// that lose the race to a concurrent producer wait on the lock's retry
// schedule and return the winner's result instead of producing again. The
// create function never runs twice on behalf of one call.
func (c *Cache) GetOrCreate(ctx context.Context, key string, create CreateFunc) ([]byte, error) {
	var span trace.Span
	if c.traceEnabled {
		ctx, span = tracer.Start(ctx, "Cache.GetOrCreate")
		defer span.End()
		span.SetAttributes(attribute.String("lease.cache.key", key))
	}

	if c.readCache {
		if body, ok := c.localGet(key); ok {
			metrics.CacheHitCounter.Inc()
			if span != nil {
				span.SetAttributes(attribute.String("lease.cache.outcome", "hit"))
			}
			return body, nil
		}
		exists, err := c.store.Head(ctx, c.bucket, key)
		if err != nil {
			return nil, err
		}
		if exists {
			body, err := c.fetch(ctx, key)
			if err != nil {
				return nil, err
			}
			metrics.CacheHitCounter.Inc()
			if span != nil {
				span.SetAttributes(attribute.String("lease.cache.outcome", "hit"))
			}
			return body, nil
		}
	}

	l := lock.NewGuarded(c.store, c.bucket, key,
		lock.WithTTL(c.ttl),
		lock.WithRetries(c.retries),
		lock.WithRetryInterval(c.retryInterval),
		lock.WithLogger(c.logger),
	)
	err := l.Acquire(ctx)
	if errors.Is(err, lock.ErrResourceExists) {
		// Another producer finished the work; read its result. The create
		// function is deliberately not run on this path.
		body, err := c.fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		metrics.DedupCounter.Inc()
		if span != nil {
			span.SetAttributes(attribute.String("lease.cache.outcome", "dedup"))
		}
		return body, nil
	}
	if err != nil {
		return nil, err
	}
	defer l.Release(context.Background())

	body, err := create(ctx)
	if err != nil {
		return nil, err
	}
	if c.writeCache {
		if _, err := c.store.Put(ctx, c.bucket, key, body, objstore.Condition{}); err != nil {
			return nil, err
		}
		c.localSet(key, body)
	}
	metrics.FillCounter.Inc()
	if span != nil {
		span.SetAttributes(attribute.String("lease.cache.outcome", "fill"))
	}
	return body, nil
}

// fetch reads the object and fills the local front cache.
func (c *Cache) fetch(ctx context.Context, key string) ([]byte, error) {
	body, _, err := c.store.Get(ctx, c.bucket, key)
	if err != nil {
		return nil, err
	}
	c.localSet(key, body)
	return body, nil
}

func (c *Cache) localGet(key string) ([]byte, bool) {
	if c.local == nil {
		return nil, false
	}
	return c.local.get(key)
}

func (c *Cache) localSet(key string, body []byte) {
	if c.local == nil {
		return
	}
	c.local.set(key, body)
}
