// Package history keeps an audit trail of monitoring runs in a SQL database.
//
// Every run is stored in the runs table together with its tally and final
// state. Findings that are not Unchanged go to run_findings, keyed by run ID,
// so an operator can see when a file first started to differ.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	rec := history.NewRecorder(db, log)
//	if err := rec.Migrate(ctx); err != nil {
//	    return err
//	}
//	err = rec.Record(ctx, run)
package history
