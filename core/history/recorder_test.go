package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"integrity-monitor/core/baseline"
	"integrity-monitor/core/database"
	"integrity-monitor/core/verify"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func setupSQLite(t *testing.T) *Recorder {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)

	rec := NewRecorder(db, nil)
	require.NoError(t, rec.Migrate(context.Background()))
	return rec
}

func TestRecorder_RecordAndGet(t *testing.T) {
	rec := setupSQLite(t)
	ctx := context.Background()
	started := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	run := &Run{
		RunID:      "3f0c6d1e-0000-4000-8000-000000000001",
		Host:       "web-1",
		State:      "CANCELLED",
		Algorithm:  "sha256",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Findings: []Finding{
			{Path: "/bin/ls", Verdict: "modified", OldDigest: "aa", NewDigest: "bb", OldSize: 1, NewSize: 2},
			{Path: "/bin/new", Verdict: "added", NewDigest: "cc", NewSize: 3},
		},
	}
	run.SetTally(verify.Tally{FilesProcessed: 10, FilesUnchanged: 9, FilesModified: 1, FilesAdded: 1})
	require.NoError(t, rec.Record(ctx, run))

	got, err := rec.Get(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", got.State)
	assert.Equal(t, 10, got.FilesProcessed)
	assert.Equal(t, 1, got.FilesModified)
	require.Len(t, got.Findings, 2)
	assert.Equal(t, "/bin/ls", got.Findings[0].Path)
	assert.Equal(t, run.RunID, got.Findings[1].RunID)

	_, err = rec.Get(ctx, "unknown")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRecorder_DuplicateRunID(t *testing.T) {
	rec := setupSQLite(t)
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, &Run{RunID: "dup", StartedAt: time.Now()}))
	err := rec.Record(ctx, &Run{RunID: "dup", StartedAt: time.Now()})
	assert.ErrorContains(t, err, "failed to record run dup")
}

func TestRecorder_List(t *testing.T) {
	rec := setupSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, rec.Record(ctx, &Run{RunID: id, StartedAt: base.Add(time.Duration(i) * time.Hour)}))
	}

	runs, err := rec.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)

	all, err := rec.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecorder_ListMySQL(t *testing.T) {
	db, mock := setupMockDB(t)
	rec := NewRecorder(db, nil)

	t.Run("rows", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "run_id", "state", "files_processed", "files_modified"}).
			AddRow(2, "r2", "REPLACED", 100, 3).
			AddRow(1, "r1", "UNCHANGED", 100, 0)
		mock.ExpectQuery("SELECT \\* FROM `runs` ORDER BY started_at DESC").WillReturnRows(rows)

		runs, err := rec.List(context.Background(), 5)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, "r2", runs[0].RunID)
		assert.Equal(t, 3, runs[0].FilesModified)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		mock.ExpectQuery("SELECT \\* FROM `runs`").WillReturnError(errors.New("connection reset"))

		_, err := rec.List(context.Background(), 5)
		assert.ErrorContains(t, err, "connection reset")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFindingsFrom(t *testing.T) {
	old := baseline.FileRecord{Path: "/a", Digest: "aa", Size: 1}
	cur := baseline.FileRecord{Path: "/a", Digest: "bb", Size: 2}
	gone := baseline.FileRecord{Path: "/gone", Digest: "cc", Size: 3}

	rows := FindingsFrom("run", []verify.Finding{
		{Path: "/a", Verdict: verify.Modified, Old: &old, New: &cur},
		{Path: "/same", Verdict: verify.Unchanged, Old: &old, New: &old},
		{Path: "/gone", Verdict: verify.Removed, Old: &gone},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, Finding{RunID: "run", Path: "/a", Verdict: "modified", OldDigest: "aa", NewDigest: "bb", OldSize: 1, NewSize: 2}, rows[0])
	assert.Equal(t, Finding{RunID: "run", Path: "/gone", Verdict: "removed", OldDigest: "cc", OldSize: 3}, rows[1])
}
