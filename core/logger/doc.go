// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production). Log lines are written to stderr so that the
// console report on stdout stays clean.
//
// # Run Correlation
//
// WithRun attaches the run ID to a logger, ensuring that all logs related to
// a specific monitoring run can be matched with its history record.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Format: json or console
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Run started")
//
//	l := logger.WithRun(log, runID)
//	l.Error("Hash stage failed", zap.Error(err))
package logger
