package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"integrity-monitor/core/baseline"
	"integrity-monitor/core/config"
	"integrity-monitor/core/database"
	"integrity-monitor/core/history"
	"integrity-monitor/core/logger"
	"integrity-monitor/core/mirror"
	"integrity-monitor/core/reconcile"
	"integrity-monitor/core/report"
	"integrity-monitor/core/storage"
	"integrity-monitor/feature/monitor"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the check command
	verboseCheck   bool
	detailsCheck   bool
	overrideCheck  bool
	extraPaths     []string
	algorithmCheck string
	baselineCheck  string
	workersCheck   int
	reportCheck    string
	strictCheck    bool
	noColorCheck   bool
	quietCheck     bool
)

// checkCmd runs a full integrity check.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Scan the monitored paths and compare them with the baseline",
	Long: `Scan every configured root, hash all files and compare the result with the
stored baseline.

The first run creates the baseline. Later runs refresh it when nothing
changed; when files were modified the operator is asked before the baseline
is replaced, unless --override is given.

Exit status is 0 when the baseline was created, refreshed or replaced, 3 when
replacement was declined or the run was interrupted, and 1 on errors.

Examples:
  # Check the default system paths
  integrity-monitor check

  # Show old and new values of every failed file
  integrity-monitor check --details

  # Add a path and accept whatever is found
  integrity-monitor check -p /opt/app --override

  # Write a machine readable report
  integrity-monitor check --report /var/log/integrity/last.json`,
	RunE: runCheck,
}

func init() {
	f := checkCmd.Flags()
	f.BoolVarP(&verboseCheck, "verbose", "v", false, "Show output for files that passed the integrity check")
	f.BoolVarP(&detailsCheck, "details", "d", false, "Show detailed output for files that failed the integrity check")
	f.BoolVarP(&overrideCheck, "override", "o", false, "Replace the baseline even if files changed")
	f.StringSliceVarP(&extraPaths, "path", "p", nil, "Include additional paths")
	f.StringVar(&algorithmCheck, "algorithm", "", "Digest algorithm (md5, sha1, sha224, sha256, sha384, sha512)")
	f.StringVar(&baselineCheck, "baseline", "", "Baseline file location")
	f.IntVar(&workersCheck, "workers", 0, "Workers per stage (0 = number of CPUs)")
	f.StringVar(&reportCheck, "report", "", "Write the outcome to a .json or .yaml file")
	f.BoolVar(&strictCheck, "strict", false, "Count added and removed files as changes")
	f.BoolVar(&noColorCheck, "no-color", false, "Disable colored output")
	f.BoolVarP(&quietCheck, "quiet", "q", false, "Only print findings and the summary")

	RootCmd.AddCommand(checkCmd)
}

// applyCheckFlags lets explicitly set flags win over configuration.
func applyCheckFlags(cmd *cobra.Command, cfg *monitor.Config) {
	flags := cmd.Flags()
	if flags.Changed("algorithm") {
		cfg.Algorithm = algorithmCheck
	}
	if flags.Changed("baseline") {
		cfg.Baseline = baselineCheck
	}
	if flags.Changed("workers") {
		cfg.Workers = workersCheck
	}
	if flags.Changed("strict") {
		cfg.StrictMembership = strictCheck
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyCheckFlags(cmd, &cfg.Monitor)

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	printer := report.NewPrinter(cmd.OutOrStdout(), report.Options{
		Verbose: verboseCheck,
		Details: detailsCheck,
		NoColor: noColorCheck || !isatty.IsTerminal(os.Stdout.Fd()),
		Quiet:   quietCheck,
	})

	opts := []monitor.Option{
		monitor.WithProgress(printer),
		monitor.WithDecider(newConsoleDecider(cmd.InOrStdin(), cmd.OutOrStdout(), printer, cfg.Monitor.StrictMembership)),
	}
	if rec := openHistory(ctx, cfg, l); rec != nil {
		opts = append(opts, monitor.WithRecorder(rec))
	}
	if m := openMirror(cfg, l); m != nil {
		opts = append(opts, monitor.WithMirror(m))
	}

	store := baseline.NewFileStore(cfg.Monitor.Baseline, l)
	svc := monitor.NewService(cfg.Monitor, store, l, opts...)

	out, err := svc.Run(ctx, monitor.RunOptions{
		Override:      overrideCheck,
		ExtraRoots:    extraPaths,
		KeepUnchanged: verboseCheck,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			printer.Error(errors.New("run interrupted, baseline left untouched"))
			return &CodeError{Code: ExitCancelled, Err: err}
		}
		return err
	}

	printer.Summary(report.Summary{
		Tally:      out.Tally,
		Discovered: out.Stats.Discovered,
		Hashed:     out.Stats.Hashed,
		Skipped:    out.Stats.Skipped,
		Bytes:      out.Stats.Bytes,
		Algorithm:  out.Algorithm,
		Elapsed:    out.Elapsed(),
	})
	printer.Decision(report.Decision{
		State:    out.State,
		Forced:   out.Forced,
		Changes:  out.Changes,
		Location: out.Baseline,
	})

	if reportCheck != "" {
		if err := report.Export(reportCheck, out); err != nil {
			return err
		}
		l.Info("Report written", zap.String("path", reportCheck))
	}

	if out.State == reconcile.StateCancelled {
		return &CodeError{Code: ExitCancelled}
	}
	return nil
}

// openHistory returns a recorder when history is enabled and reachable.
// History is optional; failures are logged and the run continues without it.
func openHistory(ctx context.Context, cfg *config.Config, l *zap.Logger) *history.Recorder {
	if !cfg.Database.Enabled {
		return nil
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		l.Warn("Run history disabled", zap.Error(err))
		return nil
	}
	rec := history.NewRecorder(db, l)
	if err := rec.Migrate(ctx); err != nil {
		l.Warn("Run history disabled", zap.Error(err))
		return nil
	}
	return rec
}

// openMirror returns a mirror when baseline mirroring is enabled.
func openMirror(cfg *config.Config, l *zap.Logger) *mirror.Mirror {
	if !cfg.Storage.Enabled {
		return nil
	}
	bucket, err := storage.NewBucket(cfg.Storage)
	if err != nil {
		l.Warn("Baseline mirror disabled", zap.Error(err))
		return nil
	}
	return mirror.New(bucket, cfg.Storage.Keep, l)
}
