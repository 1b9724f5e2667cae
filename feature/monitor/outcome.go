package monitor

import (
	"time"

	"integrity-monitor/core/history"
	"integrity-monitor/core/reconcile"
	"integrity-monitor/core/scan"
	"integrity-monitor/core/verify"
)

// StateFailed marks a run that ended with an error in the history.
const StateFailed reconcile.State = "FAILED"

// Outcome is the result of a run.
type Outcome struct {
	RunID       string                 `json:"run_id" yaml:"run_id"`
	Host        string                 `json:"host" yaml:"host"`
	State       reconcile.State        `json:"state" yaml:"state"`
	Forced      bool                   `json:"forced" yaml:"forced"`
	Changes     int                    `json:"changes" yaml:"changes"`
	Algorithm   string                 `json:"algorithm" yaml:"algorithm"`
	Baseline    string                 `json:"baseline" yaml:"baseline"`
	Roots       []string               `json:"roots" yaml:"roots"`
	Tally       verify.Tally           `json:"tally" yaml:"tally"`
	Stats       scan.Stats             `json:"stats" yaml:"stats"`
	Findings    []verify.Finding       `json:"findings" yaml:"findings"`
	Transitions []reconcile.Transition `json:"transitions" yaml:"transitions"`
	Mirrored    string                 `json:"mirrored,omitempty" yaml:"mirrored,omitempty"`
	Error       string                 `json:"error,omitempty" yaml:"error,omitempty"`
	Started     time.Time              `json:"started" yaml:"started"`
	Finished    time.Time              `json:"finished" yaml:"finished"`
}

// Elapsed returns the wall time of the run.
func (o *Outcome) Elapsed() time.Duration {
	return o.Finished.Sub(o.Started)
}

// historyRun converts the outcome into a history row.
func (o *Outcome) historyRun() *history.Run {
	run := &history.Run{
		RunID:        o.RunID,
		Host:         o.Host,
		State:        string(o.State),
		Algorithm:    o.Algorithm,
		Baseline:     o.Baseline,
		FilesSkipped: o.Stats.Skipped,
		Forced:       o.Forced,
		StartedAt:    o.Started,
		FinishedAt:   o.Finished,
		Findings:     history.FindingsFrom(o.RunID, o.Findings),
	}
	run.SetTally(o.Tally)
	return run
}
