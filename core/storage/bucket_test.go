package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryAPI keeps objects of a single bucket in memory.
type memoryAPI struct {
	mu        sync.Mutex
	exists    bool
	objects   map[string][]byte
	meta      map[string]minio.PutObjectOptions
	made      int
	listErr   error
	removeErr map[string]error
}

func newMemoryAPI(keys ...string) *memoryAPI {
	m := &memoryAPI{objects: map[string][]byte{}, meta: map[string]minio.PutObjectOptions{}}
	for _, k := range keys {
		m.objects[k] = []byte(k)
	}
	return m
}

func (m *memoryAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return m.exists, nil
}

func (m *memoryAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	m.made++
	m.exists = true
	return nil
}

func (m *memoryAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	if int64(len(data)) != objectSize {
		return minio.UploadInfo{}, errors.New("size mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectName] = data
	m.meta[objectName] = opts
	return minio.UploadInfo{Key: objectName, Size: objectSize}, nil
}

func (m *memoryAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[objectName]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryAPI) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, opts.Prefix) {
			keys = append(keys, k)
		}
	}
	// Listing order is not guaranteed by the server either.
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	ch := make(chan minio.ObjectInfo, len(keys)+1)
	for _, k := range keys {
		ch <- minio.ObjectInfo{Key: k}
	}
	if m.listErr != nil {
		ch <- minio.ObjectInfo{Err: m.listErr}
	}
	close(ch)
	return ch
}

func (m *memoryAPI) RemoveObjects(ctx context.Context, bucketName string, objectsCh <-chan minio.ObjectInfo, opts minio.RemoveObjectsOptions) <-chan minio.RemoveObjectError {
	errs := make(chan minio.RemoveObjectError, len(objectsCh))
	for obj := range objectsCh {
		if err := m.removeErr[obj.Key]; err != nil {
			errs <- minio.RemoveObjectError{ObjectName: obj.Key, Err: err}
			continue
		}
		m.mu.Lock()
		delete(m.objects, obj.Key)
		m.mu.Unlock()
	}
	close(errs)
	return errs
}

func TestCleanPrefix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"baselines", "baselines/"},
		{"baselines/", "baselines/"},
		{"/hosts/web1", "hosts/web1/"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanPrefix(tt.in))
		})
	}
}

func TestBucket_Ensure(t *testing.T) {
	api := newMemoryAPI()
	b := newBucket(api, Config{Bucket: "integrity-baselines"})

	require.NoError(t, b.Ensure(context.Background()))
	require.NoError(t, b.Ensure(context.Background()))
	assert.Equal(t, 1, api.made, "an existing bucket is not created again")
}

func TestBucket_KeysAreRelativeToPrefix(t *testing.T) {
	api := newMemoryAPI("baselines/b.csv", "baselines/a.csv", "other/c.csv", "baselinesX/d.csv")
	b := newBucket(api, Config{Bucket: "integrity-baselines", Prefix: "baselines"})

	keys, err := b.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv", "b.csv"}, keys)
	assert.Equal(t, "integrity-baselines/baselines/", b.String())
}

func TestBucket_PutGetRoundTrip(t *testing.T) {
	api := newMemoryAPI()
	b := newBucket(api, Config{Bucket: "integrity-baselines", Prefix: "host1/"})

	payload := `"/bin/ls","aa","1","2"` + "\n"
	err := b.Put(context.Background(), "x.csv", strings.NewReader(payload), int64(len(payload)), PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"run-id": "r1"},
	})
	require.NoError(t, err)
	assert.Contains(t, api.objects, "host1/x.csv")
	assert.Equal(t, "text/csv", api.meta["host1/x.csv"].ContentType)
	assert.Equal(t, "r1", api.meta["host1/x.csv"].UserMetadata["run-id"])

	obj, err := b.Get(context.Background(), "x.csv")
	require.NoError(t, err)
	defer obj.Close()
	got, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))

	_, err = b.Get(context.Background(), "missing.csv")
	assert.ErrorContains(t, err, "missing.csv")
}

func TestBucket_ListError(t *testing.T) {
	api := newMemoryAPI("baselines/a.csv")
	api.listErr = errors.New("access denied")

	_, err := newBucket(api, Config{Bucket: "b", Prefix: "baselines/"}).Keys(context.Background())
	assert.ErrorContains(t, err, "access denied")
}

func TestBucket_Remove(t *testing.T) {
	t.Run("removes prefixed keys", func(t *testing.T) {
		api := newMemoryAPI("baselines/1.csv", "baselines/2.csv", "baselines/3.csv")
		b := newBucket(api, Config{Bucket: "b", Prefix: "baselines/"})

		require.NoError(t, b.Remove(context.Background(), "1.csv", "2.csv"))
		keys, err := b.Keys(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"3.csv"}, keys)
	})

	t.Run("reports the first failure after the whole batch", func(t *testing.T) {
		api := newMemoryAPI("baselines/1.csv", "baselines/2.csv")
		api.removeErr = map[string]error{"baselines/1.csv": errors.New("object locked")}
		b := newBucket(api, Config{Bucket: "b", Prefix: "baselines/"})

		err := b.Remove(context.Background(), "1.csv", "2.csv")
		assert.ErrorContains(t, err, "1.csv")
		assert.ErrorContains(t, err, "object locked")
		assert.NotContains(t, api.objects, "baselines/2.csv")
	})

	t.Run("nothing to remove", func(t *testing.T) {
		b := newBucket(newMemoryAPI(), Config{Bucket: "b"})
		assert.NoError(t, b.Remove(context.Background()))
	})
}

func TestNewBucket(t *testing.T) {
	t.Run("endpoint schemes are stripped", func(t *testing.T) {
		for _, endpoint := range []string{"localhost:9000", "http://localhost:9000", "https://s3.amazonaws.com"} {
			b, err := NewBucket(Config{Endpoint: endpoint, AccessKey: "k", SecretKey: "s", Bucket: "integrity-baselines"})
			require.NoError(t, err, endpoint)
			assert.Equal(t, "integrity-baselines/", b.String())
		}
	})

	t.Run("bucket name required", func(t *testing.T) {
		_, err := NewBucket(Config{Endpoint: "localhost:9000"})
		assert.Error(t, err)
	})
}
