package history

import (
	"context"
	"errors"
	"fmt"

	"integrity-monitor/core/database"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

const findingsBatchSize = 500

var requiredRunColumns = []string{"run_id", "state", "files_processed", "started_at", "finished_at"}

// Recorder writes and reads run history.
type Recorder struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRecorder creates a Recorder on db.
func NewRecorder(db *gorm.DB, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{db: db, logger: logger}
}

// Migrate creates or updates the history tables and checks the result.
func (r *Recorder) Migrate(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if err := db.AutoMigrate(&Run{}, &Finding{}); err != nil {
		return fmt.Errorf("failed to migrate history tables: %w", err)
	}

	missing, err := database.MissingColumns(db, Run{}.TableName(), requiredRunColumns)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("history table %s is missing columns %v", Run{}.TableName(), missing)
	}
	return nil
}

// Record stores run and its findings in one transaction.
func (r *Recorder) Record(ctx context.Context, run *Run) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Findings").Create(run).Error; err != nil {
			return err
		}
		if len(run.Findings) == 0 {
			return nil
		}
		for i := range run.Findings {
			run.Findings[i].RunID = run.RunID
		}
		return tx.CreateInBatches(run.Findings, findingsBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.RunID, err)
	}

	r.logger.Debug("Run recorded", zap.String("run_id", run.RunID), zap.Int("findings", len(run.Findings)))
	return nil
}

// List returns the most recent runs, newest first, without findings.
func (r *Recorder) List(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	q := r.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Get returns one run with its findings.
func (r *Recorder) Get(ctx context.Context, runID string) (*Run, error) {
	var run Run
	err := r.db.WithContext(ctx).Preload("Findings").Where("run_id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	return &run, nil
}
