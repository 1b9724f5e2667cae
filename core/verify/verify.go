// Package verify compares a fresh scan against the trusted baseline.
//
// Scan records are split into batches and classified in parallel against a
// read-only path index of the baseline. Each baseline row is counted exactly
// once: either when a scanned record matches it, or afterwards as Removed.
package verify

import (
	"context"
	"sort"
	"sync"
	"time"

	"integrity-monitor/core/baseline"
	"integrity-monitor/core/workpool"

	"go.uber.org/zap"
)

// Verdict is the outcome of comparing one path.
type Verdict string

const (
	Unchanged Verdict = "unchanged"
	Modified  Verdict = "modified"
	Added     Verdict = "added"
	Removed   Verdict = "removed"
)

// Finding describes the verdict for one path. Old is nil for Added paths and
// New is nil for Removed paths.
type Finding struct {
	Path    string               `json:"path" yaml:"path"`
	Verdict Verdict              `json:"verdict" yaml:"verdict"`
	Old     *baseline.FileRecord `json:"old,omitempty" yaml:"old,omitempty"`
	New     *baseline.FileRecord `json:"new,omitempty" yaml:"new,omitempty"`
}

// Tally holds the run counters.
type Tally struct {
	FilesProcessed int `json:"files_processed" yaml:"files_processed"`
	FilesUnchanged int `json:"files_unchanged" yaml:"files_unchanged"`
	FilesModified  int `json:"files_modified" yaml:"files_modified"`
	FilesAdded     int `json:"files_added" yaml:"files_added"`
	FilesRemoved   int `json:"files_removed" yaml:"files_removed"`
}

// Changes returns the number of paths that differ from the baseline. With
// membership set, added and removed paths count as changes too.
func (t Tally) Changes(membership bool) int {
	if membership {
		return t.FilesModified + t.FilesAdded + t.FilesRemoved
	}
	return t.FilesModified
}

func (t *Tally) add(o Tally) {
	t.FilesProcessed += o.FilesProcessed
	t.FilesUnchanged += o.FilesUnchanged
	t.FilesModified += o.FilesModified
	t.FilesAdded += o.FilesAdded
	t.FilesRemoved += o.FilesRemoved
}

func (t *Tally) count(v Verdict) {
	switch v {
	case Unchanged:
		t.FilesUnchanged++
		t.FilesProcessed++
	case Modified:
		t.FilesModified++
		t.FilesProcessed++
	case Added:
		t.FilesAdded++
	case Removed:
		t.FilesRemoved++
		t.FilesProcessed++
	}
}

// Options configures verification.
type Options struct {
	// Workers is the pool size (0 = runtime.NumCPU()).
	Workers int
	// BatchSize is the number of records per task (0 = 200).
	BatchSize int
	// IgnoreModTime compares digest and size only.
	IgnoreModTime bool
	// KeepUnchanged also returns findings for unchanged paths.
	KeepUnchanged bool
	// StageTimeout bounds the stage from its start (0 = none).
	StageTimeout time.Duration
	Logger       *zap.Logger
}

// Result is the output of Verify.
type Result struct {
	Tally Tally
	// Findings are sorted by path.
	Findings []Finding
}

// Compare classifies a scanned record against the baseline record stored for
// the same path, if any.
func Compare(old *baseline.FileRecord, cur baseline.FileRecord, ignoreModTime bool) Verdict {
	if old == nil {
		return Added
	}
	if old.Digest != cur.Digest || old.Size != cur.Size {
		return Modified
	}
	// Whole seconds: the baseline file does not keep sub-second precision.
	if !ignoreModTime && old.ModTime.Unix() != cur.ModTime.Unix() {
		return Modified
	}
	return Unchanged
}

// Verify classifies every scanned record and every baseline row. Both sides
// are snapshots, so each path is classified once.
func Verify(ctx context.Context, base, scan *baseline.Snapshot, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	size := opts.BatchSize
	if size <= 0 {
		size = 200
	}

	scanned := scan.Records()

	var (
		mu       sync.Mutex
		tally    Tally
		findings []Finding
		seen     = make(map[string]struct{}, len(scanned))
	)

	pool := workpool.Start(ctx, workpool.Config{
		Name:    "verify",
		Workers: opts.Workers,
		Timeout: opts.StageTimeout,
	}, func(ctx context.Context, batch []baseline.FileRecord) error {
		var local Tally
		var localFindings []Finding
		matched := make([]string, 0, len(batch))

		for i := range batch {
			cur := batch[i]
			var oldPtr *baseline.FileRecord
			if old, ok := base.Lookup(cur.Path); ok {
				oldPtr = &old
				matched = append(matched, cur.Path)
			}

			v := Compare(oldPtr, cur, opts.IgnoreModTime)
			local.count(v)
			if v == Unchanged && !opts.KeepUnchanged {
				continue
			}
			localFindings = append(localFindings, Finding{Path: cur.Path, Verdict: v, Old: oldPtr, New: &cur})
		}

		mu.Lock()
		tally.add(local)
		findings = append(findings, localFindings...)
		for _, p := range matched {
			seen[p] = struct{}{}
		}
		mu.Unlock()
		return nil
	})

	for start := 0; start < len(scanned); start += size {
		end := start + size
		if end > len(scanned) {
			end = len(scanned)
		}
		if err := pool.Submit(scanned[start:end]); err != nil {
			_ = pool.Drain()
			return nil, err
		}
	}
	if err := pool.Drain(); err != nil {
		return nil, err
	}

	// Single-threaded after the barrier: rows nobody matched were removed.
	for _, old := range base.Records() {
		if _, ok := seen[old.Path]; ok {
			continue
		}
		old := old
		tally.count(Removed)
		findings = append(findings, Finding{Path: old.Path, Verdict: Removed, Old: &old})
	}

	sort.Slice(findings, func(i, j int) bool {
		return findings[i].Path < findings[j].Path
	})

	log.Debug("Verification finished",
		zap.Int("processed", tally.FilesProcessed),
		zap.Int("modified", tally.FilesModified),
		zap.Int("added", tally.FilesAdded),
		zap.Int("removed", tally.FilesRemoved),
	)

	return &Result{Tally: tally, Findings: findings}, nil
}
