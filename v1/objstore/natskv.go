package objstore

import (
	"context"
	stdErrors "errors"
	"strconv"
	"sync"

	nats "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStore implements Store on NATS JetStream key/value buckets, with KV
// revisions as the version tokens. Buckets are created on first use and
// the binding is cached per bucket name.
type NATSStore struct {
	js jetstream.JetStream

	mu      sync.Mutex
	buckets map[string]jetstream.KeyValue
}

// NewNATSStore returns a new NATSStore using the provided connection.
func NewNATSStore(conn *nats.Conn) (*NATSStore, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, err
	}
	return &NATSStore{js: js, buckets: make(map[string]jetstream.KeyValue)}, nil
}

func (s *NATSStore) bucket(ctx context.Context, name string) (jetstream.KeyValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kv, ok := s.buckets[name]; ok {
		return kv, nil
	}
	kv, err := s.js.KeyValue(ctx, name)
	if err != nil {
		if !stdErrors.Is(err, jetstream.ErrBucketNotFound) {
			return nil, err
		}
		kv, err = s.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: name})
		if err != nil {
			return nil, err
		}
	}
	s.buckets[name] = kv
	return kv, nil
}

// Get implements Store.Get.
func (s *NATSStore) Get(ctx context.Context, bucket, key string) ([]byte, Version, error) {
	kv, err := s.bucket(ctx, bucket)
	if err != nil {
		return nil, "", err
	}
	entry, err := kv.Get(ctx, key)
	if err != nil {
		if stdErrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	return entry.Value(), revisionVersion(entry.Revision()), nil
}

// Put implements Store.Put.
func (s *NATSStore) Put(ctx context.Context, bucket, key string, body []byte, cond Condition) (Version, error) {
	kv, err := s.bucket(ctx, bucket)
	if err != nil {
		return "", err
	}
	switch cond.kind {
	case condCreateOnly:
		rev, err := kv.Create(ctx, key, body)
		if err != nil {
			if stdErrors.Is(err, jetstream.ErrKeyExists) {
				return "", ErrPreconditionFailed
			}
			return "", err
		}
		return revisionVersion(rev), nil
	case condMatchVersion:
		expected, err := strconv.ParseUint(string(cond.version), 10, 64)
		if err != nil {
			return "", err
		}
		rev, err := kv.Update(ctx, key, body, expected)
		if err != nil {
			if isWrongLastSequence(err) {
				return "", ErrPreconditionFailed
			}
			return "", err
		}
		return revisionVersion(rev), nil
	default:
		rev, err := kv.Put(ctx, key, body)
		if err != nil {
			return "", err
		}
		return revisionVersion(rev), nil
	}
}

// Head implements Store.Head. JetStream KV has no existence-only lookup,
// so this fetches the entry and discards the value.
func (s *NATSStore) Head(ctx context.Context, bucket, key string) (bool, error) {
	kv, err := s.bucket(ctx, bucket)
	if err != nil {
		return false, err
	}
	if _, err := kv.Get(ctx, key); err != nil {
		if stdErrors.Is(err, jetstream.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func revisionVersion(rev uint64) Version {
	return Version(strconv.FormatUint(rev, 10))
}

func isWrongLastSequence(err error) bool {
	var jsErr jetstream.JetStreamError
	if stdErrors.As(err, &jsErr) {
		apiErr := jsErr.APIError()
		return apiErr != nil && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
	}
	return false
}
