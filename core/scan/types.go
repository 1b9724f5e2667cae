package scan

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"integrity-monitor/core/digest"

	"go.uber.org/zap"
)

// DefaultBatchSize is the number of paths handed to a hash worker at once.
const DefaultBatchSize = 200

// PathList is an ordered sequence of filesystem paths.
type PathList []string

// Options configures the discovery and hash stages.
type Options struct {
	// Workers is the pool size (0 = runtime.NumCPU()).
	Workers int
	// BatchSize is the number of paths per hash task (0 = DefaultBatchSize).
	BatchSize int
	// Algorithm selects the digest function.
	Algorithm digest.Algorithm
	// BufferSize is the digest read chunk size (0 = digest.DefaultBufferSize).
	BufferSize int
	// Exclude lists glob patterns matched against a file's base name, or
	// path prefixes (entries starting with "/") that prune whole subtrees.
	Exclude []string
	// StageTimeout bounds each stage from its start (0 = none).
	StageTimeout time.Duration
	// Logger receives per-file diagnostics.
	Logger *zap.Logger
}

func (o Options) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return DefaultBatchSize
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

// excluded reports whether path (or the subtree rooted at it) is excluded.
func (o Options) excluded(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range o.Exclude {
		if strings.HasPrefix(pattern, "/") {
			prefix := filepath.Clean(pattern)
			if path == prefix || strings.HasPrefix(path, prefix+string(filepath.Separator)) {
				return true
			}
			continue
		}
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// Stats counts what a stage saw.
type Stats struct {
	Roots      int   `json:"roots" yaml:"roots"`
	Discovered int   `json:"discovered" yaml:"discovered"`
	Hashed     int   `json:"hashed" yaml:"hashed"`
	Skipped    int   `json:"skipped" yaml:"skipped"`
	Bytes      int64 `json:"bytes" yaml:"bytes"`
}

// counters is the lock-free accumulator behind Stats.
type counters struct {
	skipped atomic.Int64
	bytes   atomic.Int64
}

// FileAccessError describes a single file that could not be processed.
type FileAccessError struct {
	Path string
	Op   string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error {
	return e.Err
}
