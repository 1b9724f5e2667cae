package baseline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/renameio"
	"go.uber.org/zap"
)

// Store persists the baseline snapshot.
type Store interface {
	// Load returns the stored snapshot, or ErrNotFound on a first run.
	Load(ctx context.Context) (*Snapshot, error)
	// Replace atomically swaps the stored snapshot for s.
	Replace(ctx context.Context, s *Snapshot) error
	// Location describes where the baseline lives.
	Location() string
}

// FileStore keeps the baseline in a single CSV file.
type FileStore struct {
	path   string
	lock   *flock.Flock
	logger *zap.Logger
}

// NewFileStore creates a store for the baseline file at path.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logger,
	}
}

// Location returns the baseline file path.
func (s *FileStore) Location() string {
	return s.path
}

// Load reads and validates the baseline file.
// A missing or empty file yields ErrNotFound.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open baseline: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat baseline: %w", err)
	}
	if info.Size() == 0 {
		return nil, ErrNotFound
	}

	snap, err := Decode(f, s.path)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Baseline loaded", zap.String("path", s.path), zap.Int("records", snap.Len()))
	return snap, nil
}

// Replace writes snap to a temporary file next to the baseline and renames it
// into place.
func (s *FileStore) Replace(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create baseline directory: %w", err)
	}

	pending, err := renameio.TempFile(dir, s.path)
	if err != nil {
		return fmt.Errorf("failed to create temporary baseline: %w", err)
	}
	defer pending.Cleanup()

	if err := pending.Chmod(0o600); err != nil {
		return fmt.Errorf("failed to set baseline permissions: %w", err)
	}
	if err := Encode(pending, snap); err != nil {
		return fmt.Errorf("failed to write baseline: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to replace baseline: %w", err)
	}

	s.logger.Debug("Baseline replaced", zap.String("path", s.path), zap.Int("records", snap.Len()))
	return nil
}

// Lock takes the cross-process run lock without blocking.
func (s *FileStore) Lock() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire baseline lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("%w (%s)", ErrLocked, s.lock.Path())
	}
	return nil
}

// Unlock releases the run lock. It is safe to call when not locked.
func (s *FileStore) Unlock() error {
	if !s.lock.Locked() {
		return nil
	}
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release baseline lock: %w", err)
	}
	return nil
}
