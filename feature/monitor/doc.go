// Package monitor runs one integrity check from start to finish.
//
// A run takes the baseline lock, walks the configured roots, hashes every
// file, compares the result against the stored baseline and lets the
// reconcile controller decide whether the baseline is replaced. Each stage
// drains completely before the next one starts.
//
// Optional collaborators extend a run without changing its outcome: a
// Recorder keeps an audit trail, a Mirror copies accepted baselines off the
// host, and a Progress receives console output.
//
// # Usage
//
//	svc := monitor.NewService(cfg.Monitor, baseline.NewFileStore(cfg.Monitor.Baseline, log), log,
//	    monitor.WithDecider(decider),
//	    monitor.WithProgress(printer),
//	)
//	outcome, err := svc.Run(ctx, monitor.RunOptions{Override: override})
package monitor
