package cmd

import (
	"errors"
	"fmt"
	"os"

	"integrity-monitor/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Process exit codes.
const (
	ExitOK        = 0
	ExitError     = 1
	ExitCancelled = 3
)

// configDir is where .env and integrity-monitor.yaml are looked up.
var configDir string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "integrity-monitor",
	Short: "File integrity monitor",
	Long: `integrity-monitor walks system directories, hashes every file and compares
the result with a trusted baseline to detect tampered, new and missing files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// CodeError carries a process exit code through cobra.
type CodeError struct {
	Code int
	Err  error
}

func (e *CodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *CodeError) Unwrap() error {
	return e.Err
}

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ExitError
}

func Execute() {
	err := RootCmd.Execute()
	code := exitCode(err)
	if code == ExitError {
		// Console format with ISO8601 timestamps (development config) for CLI users
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	os.Exit(code)
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory holding .env and integrity-monitor.yaml")
}
