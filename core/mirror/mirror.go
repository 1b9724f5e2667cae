// Package mirror keeps off-host copies of accepted baselines in an S3 or
// MinIO bucket, so a tampered host cannot silently rewrite its own history.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"integrity-monitor/core/storage"

	"go.uber.org/zap"
)

// ErrEmpty is returned by Latest when nothing has been mirrored yet.
var ErrEmpty = errors.New("no mirrored baselines")

const timeLayout = "20060102T150405Z"

// Mirror uploads baseline files to a bucket and prunes old copies.
type Mirror struct {
	bucket storage.Bucket
	keep   int
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Mirror on bucket keeping at most keep copies (0 = all).
func New(bucket storage.Bucket, keep int, logger *zap.Logger) *Mirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{
		bucket: bucket,
		keep:   keep,
		logger: logger,
		now:    time.Now,
	}
}

// ObjectName returns the name a baseline accepted at t by runID is stored under.
// Names sort chronologically.
func ObjectName(t time.Time, runID string) string {
	return t.UTC().Format(timeLayout) + "-" + runID + ".csv"
}

// Push uploads the baseline file at path and prunes copies beyond the
// retention limit. It returns the object name.
func (m *Mirror) Push(ctx context.Context, path, runID string) (string, error) {
	if err := m.bucket.Ensure(ctx); err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open baseline for mirroring: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat baseline: %w", err)
	}

	name := ObjectName(m.now(), runID)
	err = m.bucket.Put(ctx, name, f, info.Size(), storage.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"run-id": runID},
	})
	if err != nil {
		return "", err
	}
	m.logger.Info("Baseline mirrored", zap.Stringer("bucket", m.bucket), zap.String("object", name))

	if err := m.Prune(ctx); err != nil {
		// The upload succeeded; a stale copy too many is not worth failing the run.
		m.logger.Warn("Failed to prune mirrored baselines", zap.Error(err))
	}
	return name, nil
}

// List returns the mirrored baseline names, oldest first.
func (m *Mirror) List(ctx context.Context) ([]string, error) {
	keys, err := m.bucket.Keys(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	// Nested keys belong to other prefixes and are never pruned from here.
	for _, k := range keys {
		if strings.HasSuffix(k, ".csv") && !strings.Contains(k, "/") {
			names = append(names, k)
		}
	}
	return names, nil
}

// Prune removes the oldest copies so that at most keep remain.
func (m *Mirror) Prune(ctx context.Context) error {
	if m.keep <= 0 {
		return nil
	}

	names, err := m.List(ctx)
	if err != nil {
		return err
	}
	if len(names) <= m.keep {
		return nil
	}

	stale := names[:len(names)-m.keep]
	if err := m.bucket.Remove(ctx, stale...); err != nil {
		return err
	}
	m.logger.Debug("Pruned mirrored baselines", zap.Int("removed", len(stale)))
	return nil
}

// Latest returns the name of the most recent mirrored baseline.
func (m *Mirror) Latest(ctx context.Context) (string, error) {
	names, err := m.List(ctx)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", ErrEmpty
	}
	return names[len(names)-1], nil
}

// Fetch copies the mirrored object name into w.
func (m *Mirror) Fetch(ctx context.Context, name string, w io.Writer) error {
	obj, err := m.bucket.Get(ctx, name)
	if err != nil {
		return err
	}
	defer obj.Close()

	if _, err := io.Copy(w, obj); err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	return nil
}
