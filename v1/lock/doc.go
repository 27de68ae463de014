// Package lock provides lease-based mutual exclusion on top of a
// conditional-write object store. A lock is a small JSON lease record stored
// next to the resource it protects; ownership is decided entirely by the
// store's compare-and-swap preconditions, so cooperating processes need no
// coordination channel beyond the store itself. Leases expire after a TTL and
// an expired lease can be stolen, which keeps a crashed holder from wedging
// the resource forever. The flip side is that a holder overrunning its TTL
// can legitimately lose the lock mid-critical-section; callers with slow work
// must size the TTL generously.
//
// Released leases are poisoned in place, never deleted, so a lock key
// outlives its last holder. Deployments locking many distinct resources
// should reap old records with a store-side expiration or lifecycle policy.
package lock
