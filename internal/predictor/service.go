package predictor

import (
	"context"
	"errors"
	"fmt"

	"ssq-predictor/internal/clock"
	"ssq-predictor/internal/database"
	"ssq-predictor/internal/logger"

	"github.com/google/uuid"
)

// ErrTargetNotDrawn 目标期尚未开奖
var ErrTargetNotDrawn = errors.New("target issue not drawn yet")

// Store 开奖记录与预测批次存储
type Store interface {
	GetRecords(limit int) ([]database.DrawRecord, error)
	GetDraw(issue string) (*database.DrawRecord, error)
	LatestDraw() (*database.DrawRecord, error)
	SaveRun(run *database.PredictionRun) error
	ListRuns(limit int) ([]database.PredictionRun, error)
	GetRun(id string) (*database.PredictionRun, error)
	DeleteRun(id string) error
}

// Service 预测批次服务
type Service struct {
	engine *Engine
	store  Store
	clock  clock.Clock
}

// NewService 创建预测服务
func NewService(engine *Engine, store Store, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{engine: engine, store: store, clock: clk}
}

// Predict 基于全部历史记录执行预测并保存批次
func (s *Service) Predict(ctx context.Context, progress ProgressFunc) (*database.PredictionRun, *Prediction, error) {
	records, err := s.store.GetRecords(0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load draw records: %w", err)
	}

	prediction, err := s.engine.Run(ctx, records, progress)
	if err != nil {
		return nil, nil, err
	}

	now := s.clock.Now()
	latest := records[len(records)-1]
	next := NextDraw(now, &latest)

	run := &database.PredictionRun{
		ID:          uuid.NewString(),
		TargetIssue: next.Issue,
		TargetDate:  next.Date,
		Tuples:      prediction.Tuples,
		CreatedAt:   now,
	}
	if err := s.store.SaveRun(run); err != nil {
		return nil, nil, fmt.Errorf("failed to save prediction run: %w", err)
	}

	logger.Infof("Prediction run saved: %s -> issue %s (%d tuples)", run.ID, run.TargetIssue, len(run.Tuples))
	return run, prediction, nil
}

// NextDraw 下一期开奖信息
func (s *Service) NextDraw() (DrawSchedule, error) {
	latest, err := s.store.LatestDraw()
	if err != nil {
		return DrawSchedule{}, fmt.Errorf("failed to get latest draw: %w", err)
	}
	return NextDraw(s.clock.Now(), latest), nil
}

// ListRuns 最近的预测批次，按创建时间倒序
func (s *Service) ListRuns(limit int) ([]database.PredictionRun, error) {
	return s.store.ListRuns(limit)
}

// GetRun 获取预测批次
func (s *Service) GetRun(id string) (*database.PredictionRun, error) {
	return s.store.GetRun(id)
}

// DeleteRun 删除预测批次
func (s *Service) DeleteRun(id string) error {
	if err := s.store.DeleteRun(id); err != nil {
		return err
	}
	logger.Infof("Prediction run deleted: %s", id)
	return nil
}

// Check 将预测批次与目标期开奖结果比对
func (s *Service) Check(id string) (*RunScore, error) {
	run, err := s.store.GetRun(id)
	if err != nil {
		return nil, err
	}

	actual, err := s.store.GetDraw(run.TargetIssue)
	if err != nil {
		return nil, fmt.Errorf("failed to get draw %s: %w", run.TargetIssue, err)
	}
	if actual == nil {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotDrawn, run.TargetIssue)
	}
	return ScoreRun(run, *actual)
}
