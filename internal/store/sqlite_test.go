package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealmachine-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_RecordScrape(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entry, err := st.RecordScrape(ctx, model.RunSummary{DataCount: 42, Status: model.RunStatusCompleted})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, 42, entry.DataCount)
	assert.Equal(t, model.RunStatusCompleted, entry.Status)
	assert.False(t, entry.CreatedAt.IsZero())

	logs, err := st.ListScrapes(ctx, LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, entry.ID, logs[0].ID)
	assert.Equal(t, 42, logs[0].DataCount)
	assert.Equal(t, model.RunStatusCompleted, logs[0].Status)
}

func TestSQLite_RecordScrape_RejectsInvalid(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.RecordScrape(ctx, model.RunSummary{DataCount: 1, Status: "running"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status")

	_, err = st.RecordScrape(ctx, model.RunSummary{DataCount: -1, Status: model.RunStatusFailed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative data count")

	logs, err := st.ListScrapes(ctx, LogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestSQLite_ListScrapes_NewestFirst(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, n := range []int{1, 2, 3} {
		_, err := st.RecordScrape(ctx, model.RunSummary{DataCount: n, Status: model.RunStatusCompleted})
		require.NoError(t, err)
	}

	logs, err := st.ListScrapes(ctx, LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, 3, logs[0].DataCount)
	assert.Equal(t, 1, logs[2].DataCount)
}

func TestSQLite_ListScrapes_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.RecordScrape(ctx, model.RunSummary{DataCount: 10, Status: model.RunStatusCompleted})
	require.NoError(t, err)
	_, err = st.RecordScrape(ctx, model.RunSummary{DataCount: 0, Status: model.RunStatusFailed})
	require.NoError(t, err)
	_, err = st.RecordScrape(ctx, model.RunSummary{DataCount: 20, Status: model.RunStatusCompleted})
	require.NoError(t, err)

	failed, err := st.ListScrapes(ctx, LogFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, 0, failed[0].DataCount)

	limited, err := st.ListScrapes(ctx, LogFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	offset, err := st.ListScrapes(ctx, LogFilter{Limit: 10, Offset: 2})
	require.NoError(t, err)
	require.Len(t, offset, 1)
	assert.Equal(t, 10, offset[0].DataCount)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestOpen_SQLite(t *testing.T) {
	st, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
}
