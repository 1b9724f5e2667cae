package scan

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"integrity-monitor/core/workpool"

	"go.uber.org/zap"
)

// Discover walks every root concurrently and returns all files found beneath
// them. Directories are not part of the result.
func Discover(ctx context.Context, roots PathList, opts Options) (PathList, Stats, error) {
	log := opts.logger()
	stats := Stats{Roots: len(roots)}

	var (
		mu    sync.Mutex
		files PathList
		c     counters
	)

	pool := workpool.Start(ctx, workpool.Config{
		Name:    "discovery",
		Workers: opts.Workers,
		Timeout: opts.StageTimeout,
	}, func(ctx context.Context, root string) error {
		found, err := walkRoot(ctx, root, opts, &c)
		if err != nil {
			return err
		}
		log.Debug("Files found", zap.String("root", root), zap.Int("count", len(found)))

		mu.Lock()
		files = append(files, found...)
		mu.Unlock()
		return nil
	})

	for _, root := range normalizeRoots(roots, log) {
		if err := pool.Submit(root); err != nil {
			_ = pool.Drain()
			return nil, stats, err
		}
	}
	if err := pool.Drain(); err != nil {
		return nil, stats, err
	}

	files = dedupe(files)
	stats.Discovered = len(files)
	stats.Skipped = int(c.skipped.Load())
	return files, stats, nil
}

// walkRoot collects the files below root into a worker-local list.
func walkRoot(ctx context.Context, root string, opts Options, c *counters) (PathList, error) {
	log := opts.logger()
	var found PathList

	// A root that is itself a symlink to a directory (/bin -> usr/bin) is
	// followed; a trailing separator makes the walk resolve it while keeping
	// the configured spelling in the reported paths.
	start := root
	if info, err := os.Lstat(root); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		if target, err := os.Stat(root); err == nil && target.IsDir() {
			start = root + string(filepath.Separator)
		}
	}

	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Unreadable directory or entry: drop it and keep walking.
			c.skipped.Add(1)
			log.Debug("Skipping entry", zap.Error(&FileAccessError{Path: path, Op: "walk", Err: err}))
			return nil
		}

		if opts.excluded(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			// Links to directories are not descended into; dangling links are
			// kept so the hash stage reports them.
			if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
				return nil
			}
		}

		found = append(found, path)
		return nil
	})
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return nil, err
	}
	return found, nil
}

// normalizeRoots makes roots absolute and drops duplicates and missing roots.
func normalizeRoots(roots PathList, log *zap.Logger) PathList {
	seen := make(map[string]struct{}, len(roots))
	out := make(PathList, 0, len(roots))
	for _, root := range roots {
		if root == "" {
			continue
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			log.Warn("Ignoring root", zap.String("root", root), zap.Error(err))
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Lstat(abs); err != nil {
			log.Warn("Root is not accessible", zap.String("root", abs), zap.Error(err))
			continue
		}
		out = append(out, abs)
	}
	return out
}

func dedupe(paths PathList) PathList {
	sort.Strings(paths)
	out := paths[:0]
	for i, p := range paths {
		if i > 0 && p == paths[i-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}
