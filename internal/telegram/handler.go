package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ssq-predictor/internal/database"
	"ssq-predictor/internal/logger"
	"ssq-predictor/internal/predictor"
	"ssq-predictor/internal/stats"

	"golang.org/x/time/rate"
)

const (
	historySize    = 10
	statsWindow    = 50
	runsSize       = 10
	predictTimeout = 3 * time.Minute
)

// DrawSource 开奖记录读取
type DrawSource interface {
	GetRecords(limit int) ([]database.DrawRecord, error)
	LatestDraw() (*database.DrawRecord, error)
}

// RunService 预测批次服务
type RunService interface {
	Predict(ctx context.Context, progress predictor.ProgressFunc) (*database.PredictionRun, *predictor.Prediction, error)
	NextDraw() (predictor.DrawSchedule, error)
	ListRuns(limit int) ([]database.PredictionRun, error)
	DeleteRun(id string) error
	Check(id string) (*predictor.RunScore, error)
}

// Handler 命令处理，与 Telegram 传输无关
type Handler struct {
	draws   DrawSource
	service RunService
	limiter *rate.Limiter
}

// NewHandler 创建命令处理器，predictRate 为两次预测的最小间隔，0 表示不限
func NewHandler(draws DrawSource, service RunService, predictRate time.Duration) *Handler {
	limit := rate.Inf
	if predictRate > 0 {
		limit = rate.Every(predictRate)
	}
	return &Handler{
		draws:   draws,
		service: service,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Handle 处理一条命令并返回回复文本
func (h *Handler) Handle(ctx context.Context, command, args string) string {
	switch command {
	case "start":
		return welcomeText
	case "help":
		return helpText
	case "latest":
		return h.latest()
	case "history":
		return h.history()
	case "stats":
		return h.stats()
	case "predict":
		return h.predict(ctx)
	case "runs":
		return h.runs()
	case "check":
		return h.check(strings.TrimSpace(args))
	case "delete":
		return h.delete(strings.TrimSpace(args))
	default:
		return "未知命令，发送 /help 查看可用命令。"
	}
}

func (h *Handler) latest() string {
	latest, err := h.draws.LatestDraw()
	if err != nil {
		logger.Errorf("Failed to get latest draw: %v", err)
		return "❌ 获取开奖数据失败，请稍后再试。"
	}
	next, err := h.service.NextDraw()
	if err != nil {
		logger.Errorf("Failed to compute next draw: %v", err)
		return "❌ 获取开奖数据失败，请稍后再试。"
	}
	return formatLatestMessage(latest, next)
}

func (h *Handler) history() string {
	records, err := h.draws.GetRecords(historySize)
	if err != nil {
		logger.Errorf("Failed to get draw history: %v", err)
		return "❌ 获取开奖记录失败，请稍后再试。"
	}
	return formatHistoryMessage(records)
}

func (h *Handler) stats() string {
	records, err := h.draws.GetRecords(statsWindow)
	if err != nil {
		logger.Errorf("Failed to get records for stats: %v", err)
		return "❌ 获取统计数据失败，请稍后再试。"
	}
	return formatStatsMessage(stats.Summarize(records, statsWindow))
}

func (h *Handler) predict(ctx context.Context) string {
	if !h.limiter.Allow() {
		return "⏳ 预测请求过于频繁，请稍后再试。"
	}

	ctx, cancel := context.WithTimeout(ctx, predictTimeout)
	defer cancel()

	run, prediction, err := h.service.Predict(ctx, func(status string) {
		logger.Debugf("Prediction progress: %s", status)
	})
	if errors.Is(err, predictor.ErrInsufficientHistory) {
		return fmt.Sprintf("❌ 历史数据不足，无法预测：%v", err)
	}
	if err != nil {
		logger.Errorf("Prediction failed: %v", err)
		return "❌ 预测失败，请稍后再试。"
	}
	return formatPredictionMessage(run, prediction)
}

func (h *Handler) runs() string {
	runs, err := h.service.ListRuns(runsSize)
	if err != nil {
		logger.Errorf("Failed to list runs: %v", err)
		return "❌ 获取预测批次失败，请稍后再试。"
	}
	return formatRunsMessage(runs)
}

func (h *Handler) check(id string) string {
	if id == "" {
		return "用法：/check <批次ID>"
	}
	score, err := h.service.Check(id)
	switch {
	case errors.Is(err, database.ErrRunNotFound):
		return "❌ 预测批次不存在。"
	case errors.Is(err, predictor.ErrTargetNotDrawn):
		return "⏳ 目标期尚未开奖，请开奖后再比对。"
	case err != nil:
		logger.Errorf("Failed to check run %s: %v", id, err)
		return "❌ 比对失败，请稍后再试。"
	}
	return formatScoreMessage(score)
}

func (h *Handler) delete(id string) string {
	if id == "" {
		return "用法：/delete <批次ID>"
	}
	err := h.service.DeleteRun(id)
	switch {
	case errors.Is(err, database.ErrRunNotFound):
		return "❌ 预测批次不存在。"
	case err != nil:
		logger.Errorf("Failed to delete run %s: %v", id, err)
		return "❌ 删除失败，请稍后再试。"
	}
	return fmt.Sprintf("🗑 已删除预测批次 `%s`", id)
}
