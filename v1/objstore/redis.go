package objstore

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	leaseerrors "github.com/mirkobrombin/go-lease/v1/errors"
)

const defaultRedisOpTimeout = 5 * time.Second

// Redis has no native version tokens, so each object lives in a hash
// holding the body and a client-generated version refreshed on every
// successful write. The conditional paths run as Lua scripts to keep the
// compare-and-swap atomic on the server.
var createScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
    return 0
end
redis.call("HSET", KEYS[1], "body", ARGV[1], "ver", ARGV[2])
return 1
`)

var matchScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "ver") ~= ARGV[3] then
    return 0
end
redis.call("HSET", KEYS[1], "body", ARGV[1], "ver", ARGV[2])
return 1
`)

// RedisStore implements Store using a Redis backend.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*redisStoreOptions)

type redisStoreOptions struct {
	timeout time.Duration
}

// WithTimeout sets the operation timeout for Redis calls.
func WithTimeout(d time.Duration) RedisOption {
	return func(o *redisStoreOptions) {
		o.timeout = d
	}
}

// NewRedisStore returns a new RedisStore using the provided Redis client.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	o := redisStoreOptions{timeout: defaultRedisOpTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &RedisStore{client: client, timeout: o.timeout}
}

func (s *RedisStore) objectKey(bucket, key string) string {
	return bucket + ":" + key
}

// Get implements Store.Get.
func (s *RedisStore) Get(ctx context.Context, bucket, key string) ([]byte, Version, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	vals, err := s.client.HMGet(cctx, s.objectKey(bucket, key), "body", "ver").Result()
	if err != nil {
		return nil, "", mapRedisErr(err)
	}
	if vals[0] == nil || vals[1] == nil {
		return nil, "", ErrNotFound
	}
	body, _ := vals[0].(string)
	ver, _ := vals[1].(string)
	return []byte(body), Version(ver), nil
}

// Put implements Store.Put.
func (s *RedisStore) Put(ctx context.Context, bucket, key string, body []byte, cond Condition) (Version, error) {
	ver := uuid.NewString()
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	k := s.objectKey(bucket, key)
	switch cond.kind {
	case condCreateOnly:
		ok, err := createScript.Run(cctx, s.client, []string{k}, body, ver).Int()
		if err != nil {
			return "", mapRedisErr(err)
		}
		if ok == 0 {
			return "", ErrPreconditionFailed
		}
	case condMatchVersion:
		ok, err := matchScript.Run(cctx, s.client, []string{k}, body, ver, string(cond.version)).Int()
		if err != nil {
			return "", mapRedisErr(err)
		}
		if ok == 0 {
			return "", ErrPreconditionFailed
		}
	default:
		if err := s.client.HSet(cctx, k, "body", body, "ver", ver).Err(); err != nil {
			return "", mapRedisErr(err)
		}
	}
	return Version(ver), nil
}

// Head implements Store.Head.
func (s *RedisStore) Head(ctx context.Context, bucket, key string) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	n, err := s.client.Exists(cctx, s.objectKey(bucket, key)).Result()
	if err != nil {
		return false, mapRedisErr(err)
	}
	return n > 0, nil
}

func mapRedisErr(err error) error {
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return leaseerrors.ErrTimeout
	}
	if stdErrors.Is(err, redis.ErrClosed) {
		return leaseerrors.ErrConnectionClosed
	}
	return err
}
