// Package reconcile decides what happens to the baseline once a run has been
// verified.
//
// A run moves through a small state machine:
//
//	SCANNING -> COMPARING -> DECIDING -> REPLACED | UNCHANGED | CANCELLED
//	SCANNING -> CREATED                 (no baseline existed yet)
//
// # Decision rules
//
// The Controller counts changes from the verify tally. By default only
// modified files count; with strict membership added and removed paths count
// as well.
//
//   - No changes: the fresh scan replaces the baseline, refreshing metadata.
//   - Changes with override: the scan replaces the baseline and a forced
//     override notice is emitted.
//   - Changes without override: the Decider is asked. A positive answer
//     replaces the baseline; anything else cancels the run and the baseline
//     file is left exactly as it was.
//
// # Deciders
//
// A Decider is any source of confirmation. The CLI uses a console prompt,
// tests use mocks, and DeciderFunc adapts plain functions:
//
//	ctrl := reconcile.New(store, reconcile.DeciderFunc(func(ctx context.Context, t verify.Tally) (bool, error) {
//	    return t.FilesModified < 5, nil
//	}), reconcile.Options{})
//
// Every state change is recorded and available through Transitions.
package reconcile
