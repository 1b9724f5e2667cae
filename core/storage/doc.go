// Package storage provides the object store the baseline mirror writes to.
//
// A Bucket is scoped to one bucket and key prefix taken from Config, so
// callers deal in short keys such as "20260304T050607Z-<run>.csv" and several
// hosts can share a bucket under different prefixes. The MinIO Go client backs
// it, which covers both AWS S3 and self-hosted MinIO.
//
// # Usage
//
//	bucket, err := storage.NewBucket(cfg.Storage)
//	if err := bucket.Ensure(ctx); err != nil { ... }
//	keys, err := bucket.Keys(ctx)
//
// core/storage/mocks holds a testify mock of Bucket for unit tests.
package storage
