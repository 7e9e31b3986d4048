package cache

import (
	"database/sql"
	"testing"
	"time"

	"ssq-predictor/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore 统计读请求落到存储的次数
type countingStore struct {
	*database.Store
	recordReads int
	latestReads int
	runReads    int
}

func (c *countingStore) GetRecords(limit int) ([]database.DrawRecord, error) {
	c.recordReads++
	return c.Store.GetRecords(limit)
}

func (c *countingStore) LatestDraw() (*database.DrawRecord, error) {
	c.latestReads++
	return c.Store.LatestDraw()
}

func (c *countingStore) ListRuns(limit int) ([]database.PredictionRun, error) {
	c.runReads++
	return c.Store.ListRuns(limit)
}

func newTestManager(t *testing.T) (*CacheManager, *countingStore) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store, err := database.NewStore(db, "sqlite")
	require.NoError(t, err)

	backend := &countingStore{Store: store}
	manager := NewCacheManager(backend, time.Minute)
	t.Cleanup(manager.Close)
	return manager, backend
}

func draw(t *testing.T, issue string, secondary int) database.DrawRecord {
	t.Helper()
	r, err := database.NewDrawRecord(issue, time.Date(2024, 3, 5, 0, 0, 0, 0, time.Local), []int{1, 2, 3, 4, 5, 6}, secondary)
	require.NoError(t, err)
	return r
}

func TestManagerCachesRecords(t *testing.T) {
	manager, backend := newTestManager(t)
	_, err := manager.SaveDraws([]database.DrawRecord{draw(t, "2024001", 1), draw(t, "2024002", 2)})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		records, err := manager.GetRecords(0)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	}
	assert.Equal(t, 1, backend.recordReads)

	latest, err := manager.LatestDraw()
	require.NoError(t, err)
	assert.Equal(t, "2024002", latest.Issue)
	_, err = manager.LatestDraw()
	require.NoError(t, err)
	assert.Equal(t, 1, backend.latestReads)
}

func TestManagerInvalidatesOnNewDraws(t *testing.T) {
	manager, backend := newTestManager(t)
	_, err := manager.SaveDraws([]database.DrawRecord{draw(t, "2024001", 1)})
	require.NoError(t, err)

	_, err = manager.GetRecords(0)
	require.NoError(t, err)

	// 已存在的期号不会触发失效
	added, err := manager.SaveDraws([]database.DrawRecord{draw(t, "2024001", 1)})
	require.NoError(t, err)
	assert.Zero(t, added)
	_, err = manager.GetRecords(0)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.recordReads)

	added, err = manager.SaveDraws([]database.DrawRecord{draw(t, "2024002", 2)})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	records, err := manager.GetRecords(0)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 2, backend.recordReads)
}

func TestManagerReturnsCopies(t *testing.T) {
	manager, _ := newTestManager(t)
	_, err := manager.SaveDraws([]database.DrawRecord{draw(t, "2024001", 1), draw(t, "2024002", 2)})
	require.NoError(t, err)

	records, err := manager.GetRecords(0)
	require.NoError(t, err)
	records[0].Issue = "mutated"

	again, err := manager.GetRecords(0)
	require.NoError(t, err)
	assert.Equal(t, "2024001", again[0].Issue)
}

func TestManagerRunInvalidation(t *testing.T) {
	manager, backend := newTestManager(t)

	runs, err := manager.ListRuns(10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	run := &database.PredictionRun{
		ID:          "run-1",
		TargetIssue: "2024003",
		TargetDate:  time.Date(2024, 3, 7, 0, 0, 0, 0, time.Local),
		Tuples:      []database.PredictionTuple{{Primary: []int{1, 2, 3, 4, 5, 7}, Secondary: 3, Confidence: 90, Strategy: "多方法共识"}},
		CreatedAt:   time.Date(2024, 3, 6, 10, 0, 0, 0, time.Local),
	}
	require.NoError(t, manager.SaveRun(run))

	runs, err = manager.ListRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.Equal(t, 2, backend.runReads)

	require.NoError(t, manager.DeleteRun("run-1"))
	runs, err = manager.ListRuns(10)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.ErrorIs(t, manager.DeleteRun("run-1"), database.ErrRunNotFound)
}

func TestManagerGetDrawMissing(t *testing.T) {
	manager, _ := newTestManager(t)
	record, err := manager.GetDraw("2099001")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestMemoryCacheExpiry(t *testing.T) {
	m := NewMemoryCache(2, 0)
	defer m.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Set("a", 1, time.Minute)
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = m.Get("a")
	assert.False(t, ok)
	assert.Zero(t, m.Size())
}

func TestMemoryCacheEvictsOldest(t *testing.T) {
	m := NewMemoryCache(2, 0)
	defer m.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Set("a", 1, time.Hour)
	now = now.Add(time.Second)
	m.Set("b", 2, time.Hour)
	now = now.Add(time.Second)
	m.Set("c", 3, time.Hour)

	_, ok := m.Get("a")
	assert.False(t, ok)
	_, ok = m.Get("c")
	assert.True(t, ok)
	assert.Equal(t, int64(2), m.Size())
}

func TestMemoryCacheCleanup(t *testing.T) {
	m := NewMemoryCache(0, 0)
	defer m.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Set("draws:a", 1, time.Minute)
	m.Set("draws:b", 1, time.Hour)
	m.Set("runs:a", 1, time.Hour)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, m.cleanupExpired())
	assert.Equal(t, 1, m.DeletePrefix("draws:"))
	assert.Equal(t, int64(1), m.Size())
}
