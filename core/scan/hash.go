package scan

import (
	"context"
	"errors"
	"os"
	"sync"

	"integrity-monitor/core/baseline"
	"integrity-monitor/core/digest"
	"integrity-monitor/core/workpool"

	"go.uber.org/zap"
)

var errNotRegular = errors.New("not a regular file")

// Hash digests every file in files. Files that cannot be read are skipped.
// The returned records are in no particular order.
func Hash(ctx context.Context, files PathList, opts Options) ([]baseline.FileRecord, Stats, error) {
	log := opts.logger()

	var (
		mu      sync.Mutex
		records = make([]baseline.FileRecord, 0, len(files))
		c       counters
	)

	pool := workpool.Start(ctx, workpool.Config{
		Name:    "hash",
		Workers: opts.Workers,
		Timeout: opts.StageTimeout,
	}, func(ctx context.Context, batch PathList) error {
		local := make([]baseline.FileRecord, 0, len(batch))
		for _, path := range batch {
			// Large batches must not hold up a cancelled or expired stage.
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := hashFile(path, opts)
			if err != nil {
				c.skipped.Add(1)
				if errors.Is(err, baseline.ErrUnrepresentablePath) {
					log.Warn("File cannot be tracked", zap.Error(err))
				} else {
					log.Debug("Skipping file", zap.Error(err))
				}
				continue
			}
			c.bytes.Add(rec.Size)
			local = append(local, rec)
		}

		mu.Lock()
		records = append(records, local...)
		mu.Unlock()
		return nil
	})

	size := opts.batchSize()
	for start := 0; start < len(files); start += size {
		end := start + size
		if end > len(files) {
			end = len(files)
		}
		if err := pool.Submit(files[start:end]); err != nil {
			_ = pool.Drain()
			return nil, Stats{}, err
		}
	}
	if err := pool.Drain(); err != nil {
		return nil, Stats{}, err
	}

	return records, Stats{
		Discovered: len(files),
		Hashed:     len(records),
		Skipped:    int(c.skipped.Load()),
		Bytes:      c.bytes.Load(),
	}, nil
}

// hashFile builds the record for one path.
func hashFile(path string, opts Options) (baseline.FileRecord, error) {
	if !baseline.Representable(path) {
		return baseline.FileRecord{}, &FileAccessError{Path: path, Op: "record", Err: baseline.ErrUnrepresentablePath}
	}
	info, err := os.Stat(path)
	if err != nil {
		return baseline.FileRecord{}, &FileAccessError{Path: path, Op: "stat", Err: err}
	}
	// Devices and FIFOs would block or never end.
	if !info.Mode().IsRegular() {
		return baseline.FileRecord{}, &FileAccessError{Path: path, Op: "stat", Err: errNotRegular}
	}

	sum, err := digest.FileBuffer(path, opts.Algorithm, opts.BufferSize)
	if err != nil {
		return baseline.FileRecord{}, &FileAccessError{Path: path, Op: "hash", Err: err}
	}

	return baseline.FileRecord{
		Path:    path,
		Digest:  sum,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}, nil
}
