package objstore

import (
	"bytes"
	"context"
	stdErrors "errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	leaseerrors "github.com/mirkobrombin/go-lease/v1/errors"
)

const defaultS3OpTimeout = 10 * time.Second

// S3Store implements Store on any S3-compatible object store that supports
// conditional writes (If-None-Match / If-Match). ETags are the version
// tokens and are passed back to the service verbatim, quotes included.
type S3Store struct {
	client  *s3.Client
	timeout time.Duration
}

// S3Option configures an S3Store.
type S3Option func(*s3StoreOptions)

type s3StoreOptions struct {
	timeout time.Duration
}

// WithS3Timeout sets the operation timeout for S3 calls.
func WithS3Timeout(d time.Duration) S3Option {
	return func(o *s3StoreOptions) {
		o.timeout = d
	}
}

// NewS3Store returns a new S3Store using the provided client.
func NewS3Store(client *s3.Client, opts ...S3Option) *S3Store {
	o := s3StoreOptions{timeout: defaultS3OpTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &S3Store{client: client, timeout: o.timeout}
}

// Get implements Store.Get.
func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, Version, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.client.GetObject(cctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", mapS3Err(err)
	}
	defer out.Body.Close()
	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", mapS3Err(err)
	}
	return body, Version(aws.ToString(out.ETag)), nil
}

// Put implements Store.Put.
func (s *S3Store) Put(ctx context.Context, bucket, key string, body []byte, cond Condition) (Version, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	in := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}
	switch cond.kind {
	case condCreateOnly:
		in.IfNoneMatch = aws.String("*")
	case condMatchVersion:
		in.IfMatch = aws.String(string(cond.version))
	}
	out, err := s.client.PutObject(cctx, in)
	if err != nil {
		return "", mapS3Err(err)
	}
	return Version(aws.ToString(out.ETag)), nil
}

// Head implements Store.Head.
func (s *S3Store) Head(ctx context.Context, bucket, key string) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err := s.client.HeadObject(cctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, mapS3Err(err)
	}
	return true, nil
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if stdErrors.As(err, &noSuchKey) {
		return true
	}
	// HeadObject carries no error body, so the SDK only surfaces the code.
	var notFound *types.NotFound
	if stdErrors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if stdErrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func mapS3Err(err error) error {
	if isS3NotFound(err) {
		return ErrNotFound
	}
	var apiErr smithy.APIError
	if stdErrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		// ConditionalRequestConflict is what S3 reports when two
		// conditional writes on the same key collide mid-flight.
		case "PreconditionFailed", "ConditionalRequestConflict":
			return ErrPreconditionFailed
		}
	}
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return leaseerrors.ErrTimeout
	}
	return err
}
