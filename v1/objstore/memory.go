package objstore

import (
	"context"
	"sync"

	uuid "github.com/hashicorp/go-uuid"
)

// MemoryStore is a Store implementation backed by in-process maps. It is
// mainly useful for tests and single-process setups.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string]memObject
}

type memObject struct {
	body    []byte
	version Version
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string]memObject)}
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, bucket, key string) ([]byte, Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.buckets[bucket][key]
	if !ok {
		return nil, "", ErrNotFound
	}
	return append([]byte(nil), obj.body...), obj.version, nil
}

// Put implements Store.Put.
func (s *MemoryStore) Put(ctx context.Context, bucket, key string, body []byte, cond Condition) (Version, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ver, err := uuid.GenerateUUID()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	objs, ok := s.buckets[bucket]
	if !ok {
		objs = make(map[string]memObject)
		s.buckets[bucket] = objs
	}
	cur, exists := objs[key]
	switch cond.kind {
	case condCreateOnly:
		if exists {
			return "", ErrPreconditionFailed
		}
	case condMatchVersion:
		if !exists || cur.version != cond.version {
			return "", ErrPreconditionFailed
		}
	}
	objs[key] = memObject{body: append([]byte(nil), body...), version: Version(ver)}
	return Version(ver), nil
}

// Head implements Store.Head.
func (s *MemoryStore) Head(ctx context.Context, bucket, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.buckets[bucket][key]
	return ok, nil
}
