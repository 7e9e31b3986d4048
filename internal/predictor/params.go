package predictor

import (
	"fmt"

	"ssq-predictor/internal/config"
)

// 统计窗口（最近 N 期）
const (
	windowLong   = 100
	windowMid    = 50
	windowShort  = 30
	windowRecent = 10
)

// 冷热阈值
const (
	treeHotThreshold  = 8 // 方法1 使用 100 期窗口
	treeColdThreshold = 4
	hotThreshold      = 10 // 50 期窗口
	coldThreshold     = 4
)

// 各方法参数
const (
	treeSumSpread    = 15  // 方法1 和值范围 均值±15
	treeAttempts     = 200 // 方法1 最大尝试次数
	tailAttempts     = 300 // 方法2 最大尝试次数
	tailTopCount     = 3   // 方法2 目标尾数个数
	zoneHotFactor    = 1.15
	zoneColdFactor   = 0.85
	trendHotRate     = 0.45
	trendColdRate    = 0.35
	secondaryPerPick = 5 // 每个方法推荐的蓝球个数
)

// 蓝球分析参数
const (
	secondarySmallMax    = 8 // 蓝球小号上限（含）
	secondaryStreak      = 3
	secondaryHotCount    = 5
	secondaryWarmEnd     = 11
	secondaryColdHits    = 4
	secondaryHotHits     = 6
	strongExcludeVotes   = 2
	recommendMinSurvivor = 5
	recommendSize        = 10
)

// 策略与流水线参数
const (
	consensusTop     = 8
	suggestSumSpread = 20
	suggestHotBlue   = 5
	secondaryTopPick = 5 // 每组蓝球从推荐前5中随机选取
	trendTop         = 10
)

// MinHistoryFloor 预测所需历史记录的下限，配置不能低于该值
const MinHistoryFloor = 50

// Params 预测流水线可配置参数
type Params struct {
	MinHistory    int
	TargetCount   int
	TopUpAttempts int
	StrategyPlan  []Strategy
}

// DefaultParams 默认参数：至少50期，输出10组，补足最多尝试50次
func DefaultParams() Params {
	return Params{
		MinHistory:    MinHistoryFloor,
		TargetCount:   10,
		TopUpAttempts: 50,
		StrategyPlan: []Strategy{
			StrategyConsensus, StrategyConsensus, StrategyConsensus,
			StrategyBalanced, StrategyBalanced, StrategyBalanced,
			StrategyTrend, StrategyTrend,
			StrategyExploratory, StrategyExploratory,
		},
	}
}

// ParamsFromConfig 从配置构建参数
func ParamsFromConfig(cfg *config.Engine) (Params, error) {
	params := Params{
		MinHistory:    max(MinHistoryFloor, cfg.MinHistory),
		TargetCount:   cfg.TargetCount,
		TopUpAttempts: cfg.TopUpAttempts,
	}
	for _, name := range cfg.StrategyPlan {
		s, err := ParseStrategy(name)
		if err != nil {
			return Params{}, err
		}
		params.StrategyPlan = append(params.StrategyPlan, s)
	}
	if len(params.StrategyPlan) == 0 {
		return Params{}, fmt.Errorf("strategy plan must not be empty")
	}
	return params, nil
}
