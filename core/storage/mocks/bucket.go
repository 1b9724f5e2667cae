package mocks

import (
	"context"
	"io"

	"integrity-monitor/core/storage"

	"github.com/stretchr/testify/mock"
)

// Bucket is a mock implementation of storage.Bucket.
type Bucket struct {
	mock.Mock
}

func (m *Bucket) Ensure(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Bucket) Put(ctx context.Context, key string, r io.Reader, size int64, opts storage.PutOptions) error {
	args := m.Called(ctx, key, r, size, opts)
	return args.Error(0)
}

func (m *Bucket) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if obj, ok := args.Get(0).(io.ReadCloser); ok {
		return obj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Bucket) Keys(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

func (m *Bucket) Remove(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *Bucket) String() string {
	return "mock-bucket/"
}
