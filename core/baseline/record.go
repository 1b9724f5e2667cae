package baseline

import (
	"fmt"
	"sort"
	"time"
)

// FileRecord is the digest and metadata captured for one file.
type FileRecord struct {
	Path    string    `json:"path" yaml:"path"`
	Digest  string    `json:"digest" yaml:"digest"`
	ModTime time.Time `json:"modified_at" yaml:"modified_at"`
	Size    int64     `json:"size_bytes" yaml:"size_bytes"`
}

// Snapshot is an ordered, path-unique collection of FileRecords.
// It is not safe for concurrent mutation; once built it is only read.
type Snapshot struct {
	records []FileRecord
	index   map[string]int
}

// NewSnapshot builds a snapshot sorted by path. When a path occurs more than
// once the last record wins.
func NewSnapshot(records []FileRecord) *Snapshot {
	byPath := make(map[string]FileRecord, len(records))
	for _, r := range records {
		byPath[r.Path] = r
	}

	sorted := make([]FileRecord, 0, len(byPath))
	for _, r := range byPath {
		sorted = append(sorted, r)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	s := &Snapshot{
		records: sorted,
		index:   make(map[string]int, len(sorted)),
	}
	for i, r := range sorted {
		s.index[r.Path] = i
	}
	return s
}

func newOrderedSnapshot(capacity int) *Snapshot {
	return &Snapshot{
		records: make([]FileRecord, 0, capacity),
		index:   make(map[string]int, capacity),
	}
}

// add appends r, keeping insertion order. Duplicate paths are rejected.
func (s *Snapshot) add(r FileRecord) error {
	if _, exists := s.index[r.Path]; exists {
		return fmt.Errorf("duplicate path %q", r.Path)
	}
	s.index[r.Path] = len(s.records)
	s.records = append(s.records, r)
	return nil
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Records returns the records in order. Callers must not modify the slice.
func (s *Snapshot) Records() []FileRecord {
	if s == nil {
		return nil
	}
	return s.records
}

// Lookup finds the record stored for path.
func (s *Snapshot) Lookup(path string) (FileRecord, bool) {
	if s == nil {
		return FileRecord{}, false
	}
	i, ok := s.index[path]
	if !ok {
		return FileRecord{}, false
	}
	return s.records[i], true
}

// Contains reports whether path is part of the snapshot.
func (s *Snapshot) Contains(path string) bool {
	_, ok := s.Lookup(path)
	return ok
}
