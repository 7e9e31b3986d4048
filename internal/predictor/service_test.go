package predictor

import (
	"context"
	"testing"

	"ssq-predictor/internal/clock"
	"ssq-predictor/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore 内存实现的 Store
type memoryStore struct {
	records []database.DrawRecord
	runs    map[string]*database.PredictionRun
	saves   int
}

func newMemoryStore(records []database.DrawRecord) *memoryStore {
	return &memoryStore{records: records, runs: make(map[string]*database.PredictionRun)}
}

func (m *memoryStore) GetRecords(limit int) ([]database.DrawRecord, error) {
	if limit <= 0 || limit >= len(m.records) {
		return m.records, nil
	}
	return m.records[len(m.records)-limit:], nil
}

func (m *memoryStore) GetDraw(issue string) (*database.DrawRecord, error) {
	for i := range m.records {
		if m.records[i].Issue == issue {
			return &m.records[i], nil
		}
	}
	return nil, nil
}

func (m *memoryStore) LatestDraw() (*database.DrawRecord, error) {
	if len(m.records) == 0 {
		return nil, nil
	}
	return &m.records[len(m.records)-1], nil
}

func (m *memoryStore) SaveRun(run *database.PredictionRun) error {
	m.saves++
	m.runs[run.ID] = run
	return nil
}

func (m *memoryStore) ListRuns(limit int) ([]database.PredictionRun, error) {
	var runs []database.PredictionRun
	for _, r := range m.runs {
		runs = append(runs, *r)
	}
	return runs, nil
}

func (m *memoryStore) GetRun(id string) (*database.PredictionRun, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, database.ErrRunNotFound
	}
	return run, nil
}

func (m *memoryStore) DeleteRun(id string) error {
	if _, ok := m.runs[id]; !ok {
		return database.ErrRunNotFound
	}
	delete(m.runs, id)
	return nil
}

func TestServicePredictSavesOnce(t *testing.T) {
	store := newMemoryStore(randomHistory(t, 60, 5))
	svc := NewService(newTestEngine(), store, clock.Fixed{T: fixedNow})

	run, prediction, err := svc.Predict(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, prediction.Tuples, run.Tuples)
	assert.Equal(t, fixedNow, run.CreatedAt)

	latest := store.records[len(store.records)-1]
	assert.Equal(t, NextDraw(fixedNow, &latest).Issue, run.TargetIssue)

	runs, err := svc.ListRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestServicePredictInsufficientHistory(t *testing.T) {
	store := newMemoryStore(randomHistory(t, 20, 5))
	svc := NewService(newTestEngine(), store, clock.Fixed{T: fixedNow})

	_, _, err := svc.Predict(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
	assert.Zero(t, store.saves)
}

func TestServiceCheck(t *testing.T) {
	store := newMemoryStore(randomHistory(t, 60, 5))
	svc := NewService(newTestEngine(), store, clock.Fixed{T: fixedNow})

	run, _, err := svc.Predict(context.Background(), nil)
	require.NoError(t, err)

	_, err = svc.Check(run.ID)
	assert.ErrorIs(t, err, ErrTargetNotDrawn)

	drawn := mustRecord(t, 1, fixedNow, run.Tuples[0].Primary, run.Tuples[0].Secondary)
	drawn.Issue = run.TargetIssue
	store.records = append(store.records, drawn)

	score, err := svc.Check(run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, score.BestTier)
	assert.Equal(t, len(run.Tuples), len(score.Scores))

	_, err = svc.Check("missing")
	assert.ErrorIs(t, err, database.ErrRunNotFound)
}

func TestServiceDeleteRun(t *testing.T) {
	store := newMemoryStore(randomHistory(t, 60, 5))
	svc := NewService(newTestEngine(), store, clock.Fixed{T: fixedNow})

	run, _, err := svc.Predict(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteRun(run.ID))
	assert.ErrorIs(t, svc.DeleteRun(run.ID), database.ErrRunNotFound)
}

func TestServiceNextDraw(t *testing.T) {
	svc := NewService(newTestEngine(), newMemoryStore(nil), clock.Fixed{T: fixedNow})
	next, err := svc.NextDraw()
	require.NoError(t, err)
	// 2024-06-10 周一，下一开奖日为周二 6-11
	assert.Equal(t, 11, next.Date.Day())
}
