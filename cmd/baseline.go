package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"integrity-monitor/core/baseline"
	"integrity-monitor/core/config"
	"integrity-monitor/core/logger"
	"integrity-monitor/core/mirror"
	"integrity-monitor/core/report"
	"integrity-monitor/core/utils"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for baseline commands
	baselinePath   string
	showRows       bool
	showFormat     string
	restoreObject  string
	restoreConfirm bool
)

// baselineCmd is the parent command for baseline maintenance.
var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Inspect or restore the stored baseline",
}

// baselineShowCmd prints the stored baseline.
var baselineShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a summary of the stored baseline",
	Long: `Print the location, size and record count of the stored baseline.
With --rows every record is listed; with --format json|yaml the records are
written in that format instead.`,
	RunE: runBaselineShow,
}

// baselineRestoreCmd replaces the local baseline with a mirrored copy.
var baselineRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the local baseline with a copy from the mirror bucket",
	Long: `Download a mirrored baseline (the latest one unless --object is given),
validate it and atomically replace the local baseline with it.

This is the recovery path after the local baseline was lost or tampered with.`,
	RunE: runBaselineRestore,
}

func init() {
	baselineCmd.PersistentFlags().StringVar(&baselinePath, "baseline", "", "Baseline file location")

	baselineShowCmd.Flags().BoolVar(&showRows, "rows", false, "List every record")
	baselineShowCmd.Flags().StringVar(&showFormat, "format", "", "Write records as json or yaml")

	baselineRestoreCmd.Flags().StringVar(&restoreObject, "object", "", "Mirrored object to restore (default latest)")
	baselineRestoreCmd.Flags().BoolVar(&restoreConfirm, "yes", false, "Confirm replacing the local baseline")

	baselineCmd.AddCommand(baselineShowCmd, baselineRestoreCmd)
	RootCmd.AddCommand(baselineCmd)
}

func loadBaselineConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if baselinePath != "" {
		cfg.Monitor.Baseline = baselinePath
	}
	return cfg, nil
}

func runBaselineShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadBaselineConfig()
	if err != nil {
		return err
	}

	store := baseline.NewFileStore(cfg.Monitor.Baseline, nil)
	snap, err := store.Load(cmd.Context())
	if errors.Is(err, baseline.ErrNotFound) {
		fmt.Fprintf(cmd.OutOrStdout(), "No baseline at %s yet. Run 'integrity-monitor check' to create it.\n", store.Location())
		return nil
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if showFormat != "" {
		data, err := report.Marshal(snap.Records(), showFormat)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	info, err := os.Stat(store.Location())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Baseline: %s\n", store.Location())
	fmt.Fprintf(out, "Records:  %s\n", humanize.Comma(int64(snap.Len())))
	fmt.Fprintf(out, "Size:     %s\n", humanize.IBytes(uint64(info.Size())))
	fmt.Fprintf(out, "Written:  %s (%s)\n", info.ModTime().Format("2006-01-02 15:04:05"), humanize.Time(info.ModTime()))

	if !showRows {
		return nil
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tDIGEST\tMODIFIED\tSIZE")
	for _, r := range snap.Records() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			utils.TruncateLeft(r.Path, 60),
			r.Digest,
			r.ModTime.Format("2006-01-02 15:04:05"),
			humanize.IBytes(uint64(r.Size)),
		)
	}
	return w.Flush()
}

func runBaselineRestore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadBaselineConfig()
	if err != nil {
		return err
	}
	if !cfg.Storage.Enabled {
		return errors.New("baseline mirror is not enabled (set STORAGE_ENABLED=true)")
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	m := openMirror(cfg, l)
	if m == nil {
		return errors.New("failed to connect to the mirror bucket")
	}

	name := restoreObject
	if name == "" {
		name, err = m.Latest(ctx)
		if errors.Is(err, mirror.ErrEmpty) {
			return fmt.Errorf("nothing to restore from bucket %s: %w", cfg.Storage.Bucket, err)
		}
		if err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := m.Fetch(ctx, name, &buf); err != nil {
		return err
	}
	snap, err := baseline.Decode(&buf, name)
	if err != nil {
		return err
	}

	if !restoreConfirm {
		fmt.Fprintf(cmd.OutOrStdout(), "Would restore %s (%d records) to %s. Re-run with --yes to apply.\n",
			name, snap.Len(), cfg.Monitor.Baseline)
		return nil
	}

	store := baseline.NewFileStore(cfg.Monitor.Baseline, l)
	if err := store.Lock(); err != nil {
		return err
	}
	defer func() { _ = store.Unlock() }()

	if err := store.Replace(ctx, snap); err != nil {
		return err
	}
	l.Info("Baseline restored",
		zap.String("object", name),
		zap.String("baseline", filepath.Clean(cfg.Monitor.Baseline)),
		zap.Int("records", snap.Len()),
	)
	return nil
}
