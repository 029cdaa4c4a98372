package aws_s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/sharedcode/graphkv"
)

func init() {
	graphkv.RegisterStoreFactory(graphkv.S3, func(opts graphkv.Options) (graphkv.Store, error) {
		if opts.S3 == nil || opts.S3.Bucket == "" {
			return nil, fmt.Errorf("s3 store requires a bucket name")
		}
		return NewStore(Connect(ConfigFromOptions(opts.S3)), opts.S3.Bucket, opts.MaxConcurrency)
	})
}

const largeObjectMinSize = 10 * 1024 * 1024

// API is the subset of the S3 client the store uses. *s3.Client implements it.
type API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Store persists every storage key as an object of a bucket, holding the marshaled value.
type Store struct {
	bucketName     string
	s3Client       API
	uploader       *manager.Uploader
	maxConcurrency int
}

// NewStore returns a Store over bucketName. maxConcurrency bounds the parallel object requests,
// zero or less means graphkv.DefaultMaxConcurrency.
func NewStore(s3Client API, bucketName string, maxConcurrency int) (*Store, error) {
	if s3Client == nil {
		return nil, fmt.Errorf("s3Client parameter can't be nil")
	}
	if bucketName == "" {
		return nil, fmt.Errorf("bucketName parameter can't be empty")
	}
	if maxConcurrency <= 0 {
		maxConcurrency = graphkv.DefaultMaxConcurrency
	}
	return &Store{
		bucketName: bucketName,
		s3Client:   s3Client,
		uploader: manager.NewUploader(s3Client, func(u *manager.Uploader) {
			u.PartSize = largeObjectMinSize
		}),
		maxConcurrency: maxConcurrency,
	}, nil
}

// MultiGet fetches the objects of keys concurrently. Missing objects are left out of the result,
// objects that could not be read are reported as graphkv.KeyFailures.
func (b *Store) MultiGet(ctx context.Context, keys []string) ([]graphkv.Item, error) {
	found := make([]bool, len(keys))
	values := make([]any, len(keys))
	errs := make([]error, len(keys))

	tr := graphkv.NewTaskRunner(ctx, b.maxConcurrency)
	for i := range keys {
		tr.Go(func() error {
			var data []byte
			err := graphkv.Retry(tr.GetContext(), func(ctx context.Context) error {
				var e error
				data, e = b.fetch(ctx, keys[i])
				if isNotFound(e) {
					return e
				}
				return graphkv.RetryableIf(e)
			}, nil)
			switch {
			case isNotFound(err):
			case err != nil:
				errs[i] = err
			default:
				values[i], errs[i] = graphkv.UnmarshalValue(graphkv.DefaultMarshaler, data)
				found[i] = errs[i] == nil
			}
			return nil
		})
	}
	tr.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := make([]graphkv.Item, 0, len(keys))
	var failures graphkv.KeyFailures
	for i := range keys {
		if errs[i] != nil {
			failures = append(failures, graphkv.KeyFailure{Key: keys[i], Err: errs[i]})
			continue
		}
		if found[i] {
			r = append(r, graphkv.Item{Key: keys[i], Value: values[i]})
		}
	}
	if len(failures) > 0 {
		return r, failures
	}
	return r, nil
}

func (b *Store) fetch(ctx context.Context, key string) ([]byte, error) {
	result, err := b.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer result.Body.Close()
	return io.ReadAll(result.Body)
}

// MultiSet uploads every item concurrently. Objects larger than 10MB go through the multipart uploader.
func (b *Store) MultiSet(ctx context.Context, items []graphkv.Item) error {
	errs := make([]error, len(items))

	tr := graphkv.NewTaskRunner(ctx, b.maxConcurrency)
	for i := range items {
		tr.Go(func() error {
			data, err := graphkv.DefaultMarshaler.Marshal(items[i].Value)
			if err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = graphkv.Retry(tr.GetContext(), func(ctx context.Context) error {
				return graphkv.RetryableIf(b.put(ctx, items[i].Key, data))
			}, nil)
			return nil
		})
	}
	tr.Wait()

	var failures graphkv.KeyFailures
	for i, err := range errs {
		if err != nil {
			failures = append(failures, graphkv.KeyFailure{Key: items[i].Key, Err: err})
		}
	}
	if len(failures) > 0 {
		return failures
	}
	return nil
}

func (b *Store) put(ctx context.Context, key string, data []byte) error {
	if isLargeObject(data) {
		log.Debug("uploading large object", "bucket", b.bucketName, "key", key, "size", len(data))
		_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(b.bucketName),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		return err
	}
	_, err := b.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

// Delete removes the objects of keys.
func (b *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	objectIds := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		objectIds = append(objectIds, types.ObjectIdentifier{Key: aws.String(key)})
	}
	output, err := b.s3Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(b.bucketName),
		Delete: &types.Delete{Objects: objectIds},
	})
	if err != nil {
		return err
	}
	var failures graphkv.KeyFailures
	for _, e := range output.Errors {
		failures = append(failures, graphkv.KeyFailure{
			Key: aws.ToString(e.Key),
			Err: errors.New(aws.ToString(e.Message)),
		})
	}
	if len(failures) > 0 {
		return failures
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}

func isLargeObject(data []byte) bool {
	return len(data) > largeObjectMinSize
}
