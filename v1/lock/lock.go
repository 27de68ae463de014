package lock

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/mirkobrombin/go-lease/v1/metrics"
	"github.com/mirkobrombin/go-lease/v1/objstore"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-lease/v1/lock")

const (
	// DefaultTTL bounds how long an acquired lease stays valid without
	// being released.
	DefaultTTL = 60 * time.Second
	// DefaultRetries is the number of additional acquisition attempts
	// after the first one fails.
	DefaultRetries = 10
	// DefaultRetryInterval spaces acquisition attempts apart.
	DefaultRetryInterval = time.Second
)

// base carries the CAS and expiry machinery shared by both lock flavors.
// Ownership state is a single version token: the handle is held exactly when
// the token is non-empty.
type base struct {
	store  objstore.Store
	bucket string
	key    string

	ttl           time.Duration
	retries       int
	retryInterval time.Duration
	logger        *slog.Logger
	traceEnabled  bool

	held objstore.Version
}

// Option configures a lock handle.
type Option func(*base)

// WithTTL sets how long an acquired lease stays valid. A non-positive
// duration makes the lease immediately stealable.
func WithTTL(d time.Duration) Option {
	return func(b *base) {
		b.ttl = d
	}
}

// WithRetries sets how many additional attempts follow a failed first one.
// Zero means a single attempt.
func WithRetries(n int) Option {
	return func(b *base) {
		b.retries = n
	}
}

// WithRetryInterval sets the spacing of the fixed retry schedule.
func WithRetryInterval(d time.Duration) Option {
	return func(b *base) {
		b.retryInterval = d
	}
}

// WithLogger sets the logger used for warnings. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *base) {
		b.logger = l
	}
}

// WithTracing enables OpenTelemetry spans around acquisitions.
func WithTracing() Option {
	return func(b *base) {
		b.traceEnabled = true
	}
}

func newBase(store objstore.Store, bucket, resource string, opts []Option) base {
	b := base{
		store:         store,
		bucket:        bucket,
		key:           Key(resource),
		ttl:           DefaultTTL,
		retries:       DefaultRetries,
		retryInterval: DefaultRetryInterval,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Held reports whether this handle currently holds its lease.
func (b *base) Held() bool {
	return b.held != ""
}

// LockKey returns the key of the lease record in the store.
func (b *base) LockKey() string {
	return b.key
}

// readRecord fetches the current lease record. A false found with nil error
// means no record exists yet.
func (b *base) readRecord(ctx context.Context) (body []byte, ver objstore.Version, found bool, err error) {
	body, ver, err = b.store.Get(ctx, b.bucket, b.key)
	if errors.Is(err, objstore.ErrNotFound) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, err
	}
	return body, ver, true, nil
}

// parseExpiry returns the expiry of a raw lease record. Any decode failure
// reads as already expired so a corrupted record cannot wedge the resource;
// the next acquirer simply steals it.
func (b *base) parseExpiry(body []byte) float64 {
	var r record
	if err := json.Unmarshal(body, &r); err != nil {
		b.logger.Warn("lease: unreadable lock record, treating as expired",
			"bucket", b.bucket, "key", b.key, "error", err)
		return 0
	}
	return r.ExpiresAt
}

func live(expiresAt float64) bool {
	return unixNow() <= expiresAt
}

// createLease writes a fresh lease record under the given condition and, on
// success, records the returned version as the held token. A false return
// with nil error means the store rejected the precondition: another holder
// won the write. Other store errors propagate verbatim.
func (b *base) createLease(ctx context.Context, cond objstore.Condition) (bool, error) {
	ver, err := b.store.Put(ctx, b.bucket, b.key, encodeRecord(unixNow()+b.ttl.Seconds()), cond)
	if errors.Is(err, objstore.ErrPreconditionFailed) {
		metrics.ConflictCounter.Inc()
		return false, nil
	}
	if err != nil {
		return false, err
	}
	b.held = ver
	return true, nil
}

// attemptOnce runs one acquisition round. The record is read and, when absent
// or lapsed, claimed with the matching precondition: create-only for a fresh
// record, a version match to steal a lapsed one. A false return with nil
// error means the round was lost and the caller may retry on its schedule.
func (b *base) attemptOnce(ctx context.Context) (bool, error) {
	body, ver, found, err := b.readRecord(ctx)
	if err != nil {
		return false, err
	}
	if !found {
		return b.createLease(ctx, objstore.CreateOnly())
	}
	if live(b.parseExpiry(body)) {
		return false, nil
	}
	ok, err := b.createLease(ctx, objstore.MatchVersion(ver))
	if ok {
		metrics.StealCounter.Inc()
	}
	return ok, err
}

// waitTurn sleeps until the deadline of the given retry, anchored to the
// time acquisition started. The schedule is fixed, so the total wait stays
// bounded by retries*retryInterval no matter how long each attempt took.
func (b *base) waitTurn(ctx context.Context, start time.Time, retry int) error {
	deadline := start.Add(time.Duration(retry) * b.retryInterval)
	t := time.NewTimer(time.Until(deadline))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// acquireLoop drives the shared retry schedule. before, when non-nil, runs
// ahead of the first attempt and again after each retry wait; returning an
// error from it aborts the loop.
func (b *base) acquireLoop(ctx context.Context, before func(context.Context) error) error {
	if b.held != "" {
		return ErrAlreadyHeld
	}
	attempts := b.retries + 1
	if attempts < 1 {
		attempts = 1
	}
	start := time.Now()
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := b.waitTurn(ctx, start, i); err != nil {
				return err
			}
		}
		if before != nil {
			if err := before(ctx); err != nil {
				return err
			}
		}
		ok, err := b.attemptOnce(ctx)
		if err != nil {
			return err
		}
		if ok {
			metrics.AcquireCounter.Inc()
			metrics.HeldGauge.Inc()
			return nil
		}
	}
	return &MaxAttemptsError{Attempts: attempts}
}

// Release poisons the lease record so the next acquirer does not wait out
// the TTL. It never fails: an unheld handle makes no store call, a
// precondition conflict means another holder already superseded this lease,
// and any other store error is logged and dropped. The handle always comes
// back unheld.
func (b *base) Release(ctx context.Context) {
	if b.held == "" {
		return
	}
	_, err := b.store.Put(ctx, b.bucket, b.key, encodeRecord(0), objstore.MatchVersion(b.held))
	switch {
	case err == nil:
	case errors.Is(err, objstore.ErrPreconditionFailed):
		// Someone stole or re-claimed the lease in the meantime; theirs wins.
	default:
		b.logger.Warn("lease: failed to poison lock record on release",
			"bucket", b.bucket, "key", b.key, "error", err)
	}
	b.held = ""
	metrics.ReleaseCounter.Inc()
	metrics.HeldGauge.Dec()
}
