// Package metrics 预测流水线与数据同步的 Prometheus 指标
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PredictionRuns 预测次数，按结果分类
	PredictionRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ssq_prediction_runs_total",
		Help: "Total prediction runs by result",
	}, []string{"result"})

	// PredictionDuration 单次预测耗时
	PredictionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ssq_prediction_duration_seconds",
		Help:    "Prediction run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	})

	// MethodFailures 红球方法失败次数
	MethodFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ssq_method_failures_total",
		Help: "Total scoring method failures by method",
	}, []string{"method"})

	// SuggestionFailures 外部建议服务失败次数
	SuggestionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ssq_suggestion_failures_total",
		Help: "Total external suggestion service failures",
	})

	// SuggestedTuples 外部建议服务提供的号码组数
	SuggestedTuples = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ssq_suggested_tuples_total",
		Help: "Total tuples supplied by the external suggestion service",
	})

	// DedupExhausted 去重补足后仍不足目标组数的次数
	DedupExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ssq_dedup_exhausted_total",
		Help: "Total runs that returned fewer tuples than requested after top-up",
	})

	// DrawsSynced 新入库的开奖记录数
	DrawsSynced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ssq_draws_synced_total",
		Help: "Total new draw records stored from the feed",
	})

	// FeedErrors 开奖数据源拉取失败次数
	FeedErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ssq_feed_errors_total",
		Help: "Total draw feed fetch failures",
	})

	// RunsPruned 过期清理的预测批次数
	RunsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ssq_runs_pruned_total",
		Help: "Total prediction runs removed by retention cleanup",
	})
)

// Handler /metrics 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
