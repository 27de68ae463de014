// Package presets offers one-call constructors for common store and cache
// compositions, so applications can pick a backend without wiring the stack
// by hand.
package presets

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	nats "github.com/nats-io/nats.go"
	redis "github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mirkobrombin/go-lease/v1/cache"
	"github.com/mirkobrombin/go-lease/v1/objstore"
)

// RedisOptions configures the connection to Redis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// S3Options configures the S3-backed store. Credentials resolve through the
// standard AWS configuration chain; Region, when set, overrides it.
type S3Options struct {
	Region string
}

// NATSOptions configures the connection to NATS. An empty URL means
// nats.DefaultURL.
type NATSOptions struct {
	URL string
}

// SQLiteOptions configures the SQLite-backed store.
type SQLiteOptions struct {
	Path string
}

// NewMemory creates a get-or-create cache backed by an in-process store.
// Useful for local development and tests; nothing is shared across
// processes.
func NewMemory(bucket string, opts ...cache.Option) *cache.Cache {
	return cache.New(objstore.NewMemoryStore(), bucket, opts...)
}

// NewRedis creates a get-or-create cache backed by Redis.
func NewRedis(bucket string, ropts RedisOptions, opts ...cache.Option) *cache.Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     ropts.Addr,
		Password: ropts.Password,
		DB:       ropts.DB,
	})
	return cache.New(objstore.NewRedisStore(client), bucket, opts...)
}

// NewS3 creates a get-or-create cache backed by S3. The bucket must already
// exist.
func NewS3(ctx context.Context, bucket string, sopts S3Options, opts ...cache.Option) (*cache.Cache, error) {
	var loadOpts []func(*config.LoadOptions) error
	if sopts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(sopts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	return cache.New(objstore.NewS3Store(s3.NewFromConfig(cfg)), bucket, opts...), nil
}

// NewSQLite creates a get-or-create cache backed by a SQLite database
// file. Handy when the sharing boundary is machines on a common disk
// rather than a network service.
func NewSQLite(bucket string, sopts SQLiteOptions, opts ...cache.Option) (*cache.Cache, error) {
	db, err := gorm.Open(sqlite.Open(sopts.Path), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return cache.New(objstore.NewGormStore(db), bucket, opts...), nil
}

// NewNATS creates a get-or-create cache backed by a JetStream key-value
// bucket, created on demand.
func NewNATS(bucket string, nopts NATSOptions, opts ...cache.Option) (*cache.Cache, error) {
	url := nopts.URL
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	store, err := objstore.NewNATSStore(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return cache.New(store, bucket, opts...), nil
}
