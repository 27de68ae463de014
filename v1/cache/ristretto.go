package cache

import "github.com/dgraph-io/ristretto"

// localCache is a ristretto front for object bodies, keyed by object key and
// costed by body size. Objects in this model are written once and never
// rewritten, so a local hit can never serve stale data.
type localCache struct {
	c *ristretto.Cache
}

func newLocalCache(maxBytes int64) *localCache {
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4, // number of keys to track frequency of (10k).
		MaxCost:     maxBytes,
		BufferItems: 64, // number of keys per Get buffer.
	})
	if err != nil {
		panic(err)
	}
	return &localCache{c: rc}
}

func (l *localCache) get(key string) ([]byte, bool) {
	v, ok := l.c.Get(key)
	if !ok {
		return nil, false
	}
	body, _ := v.([]byte)
	return body, true
}

func (l *localCache) set(key string, body []byte) {
	l.c.Set(key, body, int64(len(body)))
	l.c.Wait()
}

func (l *localCache) close() {
	l.c.Close()
}
