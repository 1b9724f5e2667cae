package history

import (
	"time"

	"integrity-monitor/core/verify"
)

// Run is one monitoring run.
type Run struct {
	ID             uint      `gorm:"primaryKey" json:"-" yaml:"-"`
	RunID          string    `gorm:"column:run_id;size:36;uniqueIndex" json:"run_id" yaml:"run_id"`
	Host           string    `gorm:"size:255" json:"host" yaml:"host"`
	State          string    `gorm:"size:16;index" json:"state" yaml:"state"`
	Algorithm      string    `gorm:"size:16" json:"algorithm" yaml:"algorithm"`
	Baseline       string    `gorm:"size:1024" json:"baseline" yaml:"baseline"`
	FilesProcessed int       `json:"files_processed" yaml:"files_processed"`
	FilesUnchanged int       `json:"files_unchanged" yaml:"files_unchanged"`
	FilesModified  int       `json:"files_modified" yaml:"files_modified"`
	FilesAdded     int       `json:"files_added" yaml:"files_added"`
	FilesRemoved   int       `json:"files_removed" yaml:"files_removed"`
	FilesSkipped   int       `json:"files_skipped" yaml:"files_skipped"`
	Forced         bool      `json:"forced" yaml:"forced"`
	StartedAt      time.Time `gorm:"index" json:"started_at" yaml:"started_at"`
	FinishedAt     time.Time `json:"finished_at" yaml:"finished_at"`
	Findings       []Finding `gorm:"foreignKey:RunID;references:RunID" json:"findings,omitempty" yaml:"findings,omitempty"`
}

// TableName overrides the table name used by Run.
func (Run) TableName() string {
	return "runs"
}

// Finding is a path that differed from the baseline during a run.
type Finding struct {
	ID        uint   `gorm:"primaryKey" json:"-" yaml:"-"`
	RunID     string `gorm:"column:run_id;size:36;index" json:"-" yaml:"-"`
	Path      string `gorm:"size:4096" json:"path" yaml:"path"`
	Verdict   string `gorm:"size:16" json:"verdict" yaml:"verdict"`
	OldDigest string `gorm:"size:128" json:"old_digest,omitempty" yaml:"old_digest,omitempty"`
	NewDigest string `gorm:"size:128" json:"new_digest,omitempty" yaml:"new_digest,omitempty"`
	OldSize   int64  `json:"old_size" yaml:"old_size"`
	NewSize   int64  `json:"new_size" yaml:"new_size"`
}

// TableName overrides the table name used by Finding.
func (Finding) TableName() string {
	return "run_findings"
}

// SetTally copies the verify counters into r.
func (r *Run) SetTally(t verify.Tally) {
	r.FilesProcessed = t.FilesProcessed
	r.FilesUnchanged = t.FilesUnchanged
	r.FilesModified = t.FilesModified
	r.FilesAdded = t.FilesAdded
	r.FilesRemoved = t.FilesRemoved
}

// FindingsFrom converts verify findings, dropping unchanged paths.
func FindingsFrom(runID string, findings []verify.Finding) []Finding {
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if f.Verdict == verify.Unchanged {
			continue
		}
		row := Finding{RunID: runID, Path: f.Path, Verdict: string(f.Verdict)}
		if f.Old != nil {
			row.OldDigest = f.Old.Digest
			row.OldSize = f.Old.Size
		}
		if f.New != nil {
			row.NewDigest = f.New.Digest
			row.NewSize = f.New.Size
		}
		out = append(out, row)
	}
	return out
}
