package objstore

import (
	"context"
	"errors"
)

// Version is the opaque token a Store hands out for a specific write, used
// as the match target for conditional writes (an S3 ETag, a JetStream
// revision, …). The empty string means "no version".
type Version string

type condKind int

const (
	condNone condKind = iota
	condCreateOnly
	condMatchVersion
)

// Condition restricts when a Put may succeed. The zero value places no
// restriction on the write.
type Condition struct {
	kind    condKind
	version Version
}

// CreateOnly returns a Condition satisfied only while the key does not
// exist.
func CreateOnly() Condition { return Condition{kind: condCreateOnly} }

// MatchVersion returns a Condition satisfied only while the key's current
// version equals v.
func MatchVersion(v Version) Condition {
	return Condition{kind: condMatchVersion, version: v}
}

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("lease: object not found")
	// ErrPreconditionFailed is returned by Put when the supplied Condition
	// is not met by the key's current state.
	ErrPreconditionFailed = errors.New("lease: precondition failed")
)

// Store is a bucketed key/object namespace with conditional writes. All
// implementations must make Put atomic with respect to its Condition:
// two concurrent conditional writes on the same key can never both
// succeed against the same observed state.
type Store interface {
	// Get returns the body and current version for key. It returns
	// ErrNotFound when the key does not exist.
	Get(ctx context.Context, bucket, key string) ([]byte, Version, error)
	// Put writes body under key subject to cond and returns the version of
	// the new write. It returns ErrPreconditionFailed when cond is not met.
	Put(ctx context.Context, bucket, key string, body []byte, cond Condition) (Version, error)
	// Head reports whether key exists, without fetching the body.
	Head(ctx context.Context, bucket, key string) (bool, error)
}
