package aws_s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/go-cmp/cmp"

	"github.com/sharedcode/graphkv"
)

// fakeS3 is an in-memory bucket. Keys listed in failKeys fail with a permanent error.
type fakeS3 struct {
	mux      sync.Mutex
	objects  map[string][]byte
	failKeys map[string]bool
	buckets  map[string]*s3.CreateBucketInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects:  map[string][]byte{},
		failKeys: map[string]bool{},
		buckets:  map[string]*s3.CreateBucketInput{},
	}
}

var errAccessDenied = errors.New("access denied")

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	k := aws.ToString(in.Key)
	if f.failKeys[k] {
		return nil, fmt.Errorf("get %s: %w", k, errAccessDenied)
	}
	ba, ok := f.objects[k]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(ba))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	k := aws.ToString(in.Key)
	if f.failKeys[k] {
		return nil, fmt.Errorf("put %s: %w", k, errAccessDenied)
	}
	ba, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[k] = ba
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	out := &s3.DeleteObjectsOutput{}
	for _, o := range in.Delete.Objects {
		k := aws.ToString(o.Key)
		if f.failKeys[k] {
			out.Errors = append(out.Errors, types.Error{Key: o.Key, Message: aws.String("AccessDenied")})
			continue
		}
		delete(f.objects, k)
	}
	return out, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart upload not supported by fake")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart upload not supported by fake")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart upload not supported by fake")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	name := aws.ToString(in.Bucket)
	if _, ok := f.buckets[name]; ok {
		return nil, &types.BucketAlreadyOwnedByYou{}
	}
	f.buckets[name] = in
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) DeleteBucket(ctx context.Context, in *s3.DeleteBucketInput, _ ...func(*s3.Options)) (*s3.DeleteBucketOutput, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	delete(f.buckets, aws.ToString(in.Bucket))
	return &s3.DeleteBucketOutput{}, nil
}

func TestMultiSetThenMultiGet(t *testing.T) {
	f := newFakeS3()
	s, err := NewStore(f, "graph", 2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := s.MultiSet(ctx, []graphkv.Item{
		{Key: "byId!0!name", Value: "Jim"},
		{Key: "byId!0!friends", Value: map[string]any{"$type": "ref", "value": []any{"byId", "1"}}},
		{Key: "byId!1", Value: nil},
	}); err != nil {
		t.Fatalf("MultiSet failed: %v", err)
	}
	if got := string(f.objects["byId!0!name"]); got != `"Jim"` {
		t.Errorf("stored object = %q", got)
	}

	got, err := s.MultiGet(ctx, []string{"byId!1", "missing", "byId!0!name", "byId!0!friends"})
	if err != nil {
		t.Fatalf("MultiGet failed: %v", err)
	}
	want := []graphkv.Item{
		{Key: "byId!1", Value: nil},
		{Key: "byId!0!name", Value: "Jim"},
		{Key: "byId!0!friends", Value: map[string]any{"$type": "ref", "value": []any{"byId", "1"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MultiGet mismatch (-want +got):\n%s", diff)
	}
}

func TestPartialFailures(t *testing.T) {
	old := graphkv.RetryBaseDelay
	graphkv.RetryBaseDelay = time.Millisecond
	defer func() { graphkv.RetryBaseDelay = old }()

	f := newFakeS3()
	f.objects["ok"] = []byte(`1`)
	f.failKeys["denied"] = true
	s, _ := NewStore(f, "graph", 0)
	ctx := context.Background()

	err := s.MultiSet(ctx, []graphkv.Item{{Key: "denied", Value: 1}, {Key: "fine", Value: 2}})
	var kfs graphkv.KeyFailures
	if !errors.As(err, &kfs) {
		t.Fatalf("expected KeyFailures, got %v", err)
	}
	if diff := cmp.Diff([]string{"denied"}, kfs.Keys()); diff != "" {
		t.Errorf("failed keys mismatch (-want +got):\n%s", diff)
	}
	if !errors.Is(err, errAccessDenied) {
		t.Error("expected key failure to wrap the S3 error")
	}
	if _, ok := f.objects["fine"]; !ok {
		t.Error("expected the other key to be written")
	}

	got, err := s.MultiGet(ctx, []string{"ok", "denied"})
	if !errors.As(err, &kfs) || len(kfs) != 1 || kfs[0].Key != "denied" {
		t.Fatalf("expected KeyFailures for denied, got %v", err)
	}
	if diff := cmp.Diff([]graphkv.Item{{Key: "ok", Value: float64(1)}}, got); diff != "" {
		t.Errorf("MultiGet mismatch (-want +got):\n%s", diff)
	}
}

func TestDelete(t *testing.T) {
	f := newFakeS3()
	f.objects["a"] = []byte(`1`)
	f.objects["b"] = []byte(`2`)
	f.failKeys["b"] = true
	s, _ := NewStore(f, "graph", 0)

	err := s.Delete(context.Background(), "a", "b")
	var kfs graphkv.KeyFailures
	if !errors.As(err, &kfs) || kfs[0].Key != "b" {
		t.Fatalf("expected KeyFailures for b, got %v", err)
	}
	if _, ok := f.objects["a"]; ok {
		t.Error("a still exists")
	}
}

func TestNewStoreValidation(t *testing.T) {
	if _, err := NewStore(nil, "b", 0); err == nil {
		t.Error("expected error for nil client")
	}
	if _, err := NewStore(newFakeS3(), "", 0); err == nil {
		t.Error("expected error for empty bucket")
	}
}

func TestManageBucket(t *testing.T) {
	f := newFakeS3()
	ctx := context.Background()

	mb, err := NewManageBucket(f, "eu-west-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := mb.CreateBucket(ctx, "graph"); err != nil {
		t.Fatal(err)
	}
	if c := f.buckets["graph"].CreateBucketConfiguration; c == nil || c.LocationConstraint != types.BucketLocationConstraintEuWest1 {
		t.Errorf("unexpected bucket configuration %#v", c)
	}
	if err := mb.CreateBucket(ctx, "graph"); err == nil {
		t.Error("expected error creating an existing bucket")
	}
	if err := mb.RemoveBucket(ctx, "graph"); err != nil {
		t.Fatal(err)
	}

	mb, _ = NewManageBucket(f, "us-east-1")
	if err := mb.CreateBucket(ctx, "east"); err != nil {
		t.Fatal(err)
	}
	if f.buckets["east"].CreateBucketConfiguration != nil {
		t.Error("us-east-1 must not send a location constraint")
	}

	if _, err := NewManageBucket(nil, ""); err == nil {
		t.Error("expected error for nil client")
	}
}

func TestFactoryRequiresBucket(t *testing.T) {
	opts := graphkv.DefaultOptions()
	opts.StoreType = graphkv.S3
	if _, err := graphkv.NewStore(opts); err == nil {
		t.Error("expected error without bucket")
	}
	opts.S3 = &graphkv.S3Config{Bucket: "graph", HostEndpointURL: "http://127.0.0.1:9000", Username: "minio", Password: "minio123"}
	if _, err := graphkv.NewStore(opts); err != nil {
		t.Errorf("NewStore failed: %v", err)
	}
}
