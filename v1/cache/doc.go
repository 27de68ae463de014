// Package cache provides a get-or-create read-through cache over a
// conditional-write object store. A missing object is produced by exactly one
// of the callers racing for it, bounded by the lease TTL of the lock that
// serializes production; everyone else reads the winner's result. An optional
// ristretto front cache serves repeated reads without touching the store.
package cache
