package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"integrity-monitor/core/config"
	"integrity-monitor/core/database"
	"integrity-monitor/core/history"
	"integrity-monitor/core/report"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	// Flags for the history command
	historyLimit  int
	historyRun    string
	historyFormat string
)

// historyCmd lists recorded runs.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded monitoring runs",
	Long: `List the most recent monitoring runs from the history database, or show
the findings of a single run with --run.

Requires DATABASE_ENABLED=true.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list (0 = all)")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Show the findings of one run")
	historyCmd.Flags().StringVar(&historyFormat, "format", "", "Write as json or yaml")

	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Database.Enabled {
		return errors.New("run history is not enabled (set DATABASE_ENABLED=true)")
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	rec := history.NewRecorder(db, nil)
	out := cmd.OutOrStdout()

	if historyRun != "" {
		run, err := rec.Get(ctx, historyRun)
		if err != nil {
			return err
		}
		if historyFormat != "" {
			return writeFormatted(cmd, run)
		}
		fmt.Fprintf(out, "Run %s on %s: %s, %d modified, %d added, %d removed\n",
			run.RunID, run.Host, run.State, run.FilesModified, run.FilesAdded, run.FilesRemoved)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "VERDICT\tPATH\tOLD DIGEST\tNEW DIGEST")
		for _, f := range run.Findings {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Verdict, f.Path, f.OldDigest, f.NewDigest)
		}
		return w.Flush()
	}

	runs, err := rec.List(ctx, historyLimit)
	if err != nil {
		return err
	}
	if historyFormat != "" {
		return writeFormatted(cmd, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tHOST\tSTATE\tPROCESSED\tMODIFIED\tADDED\tREMOVED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			r.RunID,
			humanize.Time(r.StartedAt),
			r.Host,
			r.State,
			humanize.Comma(int64(r.FilesProcessed)),
			r.FilesModified,
			r.FilesAdded,
			r.FilesRemoved,
		)
	}
	return w.Flush()
}

func writeFormatted(cmd *cobra.Command, v any) error {
	data, err := report.Marshal(v, historyFormat)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
