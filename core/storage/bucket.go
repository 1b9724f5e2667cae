package storage

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Bucket is an object store scoped to one bucket and key prefix. Keys given to
// and returned by a Bucket are relative to the prefix.
type Bucket interface {
	// Ensure creates the bucket if it does not exist yet.
	Ensure(ctx context.Context) error
	// Put uploads size bytes from r under key.
	Put(ctx context.Context, key string, r io.Reader, size int64, opts PutOptions) error
	// Get opens the object stored under key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Keys lists every key below the prefix in lexical order.
	Keys(ctx context.Context) ([]string, error)
	// Remove deletes the given keys in one batch.
	Remove(ctx context.Context, keys ...string) error
	// String names the bucket and prefix for log lines.
	String() string
}

// PutOptions describes an uploaded object.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// objectAPI is the part of the minio client a bucket uses.
type objectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObjects(ctx context.Context, bucketName string, objectsCh <-chan minio.ObjectInfo, opts minio.RemoveObjectsOptions) <-chan minio.RemoveObjectError
}

// NewBucket connects to the bucket named in cfg.
func NewBucket(cfg Config) (Bucket, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket name is empty")
	}

	// Minio expects endpoint without scheme
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	timeoutDuration := time.Duration(timeout) * time.Second

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeoutDuration,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeoutDuration,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeoutDuration,
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	// Minio connects lazily; Ensure is the first call that reaches the server.
	return newBucket(minioObjects{client}, cfg), nil
}

func newBucket(api objectAPI, cfg Config) *objectBucket {
	return &objectBucket{api: api, name: cfg.Bucket, region: cfg.Region, prefix: cleanPrefix(cfg.Prefix)}
}

// cleanPrefix drops a leading slash and makes a non-empty prefix end in one.
func cleanPrefix(p string) string {
	p = strings.TrimPrefix(p, "/")
	if p != "" && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

type objectBucket struct {
	api    objectAPI
	name   string
	region string
	prefix string
}

func (b *objectBucket) String() string {
	return b.name + "/" + b.prefix
}

func (b *objectBucket) Ensure(ctx context.Context) error {
	exists, err := b.api.BucketExists(ctx, b.name)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", b.name, err)
	}
	if exists {
		return nil
	}
	if err := b.api.MakeBucket(ctx, b.name, minio.MakeBucketOptions{Region: b.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", b.name, err)
	}
	return nil
}

func (b *objectBucket) Put(ctx context.Context, key string, r io.Reader, size int64, opts PutOptions) error {
	_, err := b.api.PutObject(ctx, b.name, b.prefix+key, r, size, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (b *objectBucket) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := b.api.GetObject(ctx, b.name, b.prefix+key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	return obj, nil
}

func (b *objectBucket) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	for obj := range b.api.ListObjects(ctx, b.name, minio.ListObjectsOptions{Prefix: b.prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", b, obj.Err)
		}
		keys = append(keys, strings.TrimPrefix(obj.Key, b.prefix))
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *objectBucket) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objectsCh <- minio.ObjectInfo{Key: b.prefix + key}
	}
	close(objectsCh)

	var first error
	for rerr := range b.api.RemoveObjects(ctx, b.name, objectsCh, minio.RemoveObjectsOptions{}) {
		// The error channel must be drained for the batch to finish.
		if rerr.Err != nil && first == nil {
			first = fmt.Errorf("failed to remove %s: %w", strings.TrimPrefix(rerr.ObjectName, b.prefix), rerr.Err)
		}
	}
	return first
}

// minioObjects narrows GetObject to io.ReadCloser so tests can fake it.
type minioObjects struct {
	*minio.Client
}

func (c minioObjects) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return c.Client.GetObject(ctx, bucketName, objectName, opts)
}
