package objstore

import (
	"context"
	stdErrors "errors"
	"time"

	uuid "github.com/hashicorp/go-uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	leaseerrors "github.com/mirkobrombin/go-lease/v1/errors"
)

const (
	defaultGormTableName = "lease_objects"
	defaultGormOpTimeout = 5 * time.Second
)

// gormObject is the row model behind a GormStore. Every successful write
// stores a fresh client-generated version token, so a conditional update
// can run as a single UPDATE guarded on the previous token.
type gormObject struct {
	Bucket string `gorm:"primaryKey;column:bucket"`
	Key    string `gorm:"primaryKey;column:key_id"`
	Body   []byte `gorm:"column:body"`
	Ver    string `gorm:"column:ver"`
}

// GormStore implements Store on any SQL database reachable through GORM.
type GormStore struct {
	db        *gorm.DB
	tableName string
	timeout   time.Duration
}

// GormOption configures a GormStore.
type GormOption func(*gormStoreOptions)

type gormStoreOptions struct {
	tableName string
	timeout   time.Duration
}

// WithGormTableName sets the table name for the GormStore.
func WithGormTableName(name string) GormOption {
	return func(o *gormStoreOptions) {
		o.tableName = name
	}
}

// WithGormTimeout sets the operation timeout for GORM calls.
func WithGormTimeout(d time.Duration) GormOption {
	return func(o *gormStoreOptions) {
		o.timeout = d
	}
}

// NewGormStore returns a new GormStore using the provided GORM DB
// connection. Open the DB with gorm.Config{TranslateError: true} so the
// create-only path can recognize duplicate-key failures across dialects.
func NewGormStore(db *gorm.DB, opts ...GormOption) *GormStore {
	o := gormStoreOptions{
		tableName: defaultGormTableName,
		timeout:   defaultGormOpTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	// Ensure the table exists
	if !db.Migrator().HasTable(o.tableName) {
		_ = db.Table(o.tableName).AutoMigrate(&gormObject{})
	}

	return &GormStore{
		db:        db,
		tableName: o.tableName,
		timeout:   o.timeout,
	}
}

// Get implements Store.Get.
func (s *GormStore) Get(ctx context.Context, bucket, key string) ([]byte, Version, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var obj gormObject
	err := s.db.WithContext(cctx).Table(s.tableName).
		First(&obj, "bucket = ? AND key_id = ?", bucket, key).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", mapGormErr(err)
	}
	return obj.Body, Version(obj.Ver), nil
}

// Put implements Store.Put.
func (s *GormStore) Put(ctx context.Context, bucket, key string, body []byte, cond Condition) (Version, error) {
	ver, err := uuid.GenerateUUID()
	if err != nil {
		return "", err
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	obj := gormObject{Bucket: bucket, Key: key, Body: body, Ver: ver}
	db := s.db.WithContext(cctx).Table(s.tableName)

	switch cond.kind {
	case condCreateOnly:
		// The composite primary key carries the precondition: a second
		// insert for the same (bucket, key) fails on the constraint.
		if err := db.Create(&obj).Error; err != nil {
			if stdErrors.Is(err, gorm.ErrDuplicatedKey) {
				return "", ErrPreconditionFailed
			}
			return "", mapGormErr(err)
		}
	case condMatchVersion:
		res := db.Where("bucket = ? AND key_id = ? AND ver = ?", bucket, key, string(cond.version)).
			Updates(map[string]any{"body": body, "ver": ver})
		if res.Error != nil {
			return "", mapGormErr(res.Error)
		}
		// Zero rows means the key is gone or the token is stale. Both
		// count as a failed precondition.
		if res.RowsAffected == 0 {
			return "", ErrPreconditionFailed
		}
	default:
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bucket"}, {Name: "key_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"body", "ver"}),
		}).Create(&obj).Error; err != nil {
			return "", mapGormErr(err)
		}
	}
	return Version(ver), nil
}

// Head implements Store.Head.
func (s *GormStore) Head(ctx context.Context, bucket, key string) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var n int64
	err := s.db.WithContext(cctx).Table(s.tableName).
		Where("bucket = ? AND key_id = ?", bucket, key).Count(&n).Error
	if err != nil {
		return false, mapGormErr(err)
	}
	return n > 0, nil
}

func mapGormErr(err error) error {
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return leaseerrors.ErrTimeout
	}
	return err
}
