package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db, "sqlite")
	require.NoError(t, err)
	return store
}

func mustDraw(t *testing.T, issue string, primary []int, secondary int) DrawRecord {
	t.Helper()
	record, err := NewDrawRecord(issue, time.Date(2024, 3, 5, 0, 0, 0, 0, time.Local), primary, secondary)
	require.NoError(t, err)
	return record
}

func TestSaveDrawsIgnoresExisting(t *testing.T) {
	store := newTestStore(t)

	first := []DrawRecord{
		mustDraw(t, "2024001", []int{1, 2, 3, 4, 5, 6}, 1),
		mustDraw(t, "2024002", []int{7, 8, 9, 10, 11, 12}, 2),
	}
	n, err := store.SaveDraws(first)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	again := []DrawRecord{
		mustDraw(t, "2024002", []int{20, 21, 22, 23, 24, 25}, 9),
		mustDraw(t, "2024003", []int{13, 14, 15, 16, 17, 18}, 3),
	}
	n, err = store.SaveDraws(again)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	record, err := store.GetDraw("2024002")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, []int{7, 8, 9, 10, 11, 12}, record.Primary, "stored records are immutable")

	count, err := store.CountDraws()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestGetRecordsWindow(t *testing.T) {
	store := newTestStore(t)
	_, err := store.SaveDraws([]DrawRecord{
		mustDraw(t, "2024003", []int{13, 14, 15, 16, 17, 18}, 3),
		mustDraw(t, "2024001", []int{1, 2, 3, 4, 5, 6}, 1),
		mustDraw(t, "2024002", []int{7, 8, 9, 10, 11, 12}, 2),
	})
	require.NoError(t, err)

	all, err := store.GetRecords(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2024001", all[0].Issue)
	assert.Equal(t, "2024003", all[2].Issue)
	assert.Equal(t, 93, all[2].Sum)
	assert.Equal(t, 5, all[2].DrawDate.Day())

	recent, err := store.GetRecords(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "2024002", recent[0].Issue)
	assert.Equal(t, "2024003", recent[1].Issue)

	latest, err := store.LatestDraw()
	require.NoError(t, err)
	assert.Equal(t, "2024003", latest.Issue)

	missing, err := store.GetDraw("1999001")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLatestDrawEmpty(t *testing.T) {
	store := newTestStore(t)
	latest, err := store.LatestDraw()
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestRunLifecycle(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2024, 3, 5, 12, 0, 0, 0, time.Local)

	older := &PredictionRun{
		ID:          "run-a",
		TargetIssue: "2024026",
		TargetDate:  time.Date(2024, 3, 5, 0, 0, 0, 0, time.Local),
		Tuples: []PredictionTuple{
			{Primary: []int{1, 2, 3, 4, 5, 6}, Secondary: 7, Confidence: 90, Strategy: "consensus"},
		},
		CreatedAt: base,
	}
	newer := &PredictionRun{
		ID:          "run-b",
		TargetIssue: "2024027",
		TargetDate:  time.Date(2024, 3, 7, 0, 0, 0, 0, time.Local),
		CreatedAt:   base.Add(time.Hour),
	}
	require.NoError(t, store.SaveRun(older))
	require.NoError(t, store.SaveRun(newer))

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].ID)
	assert.Equal(t, "run-a", runs[1].ID)

	got, err := store.GetRun("run-a")
	require.NoError(t, err)
	assert.Equal(t, older.Tuples, got.Tuples)
	assert.Equal(t, older.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())
	assert.Equal(t, 5, got.TargetDate.Day())

	require.NoError(t, store.DeleteRun("run-a"))
	assert.ErrorIs(t, store.DeleteRun("run-a"), ErrRunNotFound)

	_, err = store.GetRun("run-a")
	assert.ErrorIs(t, err, ErrRunNotFound)

	pruned, err := store.PruneRuns(base.Add(2 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	runs, err = store.ListRuns(10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestNewStoreRejectsUnknownDriver(t *testing.T) {
	_, err := NewStore(nil, "postgres")
	assert.Error(t, err)
}
