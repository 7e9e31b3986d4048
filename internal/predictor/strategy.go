package predictor

import (
	"fmt"
	"math/rand"
	"sort"

	"ssq-predictor/internal/database"
	"ssq-predictor/internal/stats"
)

// Strategy 组号策略
type Strategy string

const (
	StrategyConsensus   Strategy = "consensus"
	StrategyBalanced    Strategy = "balanced"
	StrategyTrend       Strategy = "trend"
	StrategyExploratory Strategy = "exploratory"
)

// strategyLabels 策略中文名
var strategyLabels = map[Strategy]string{
	StrategyConsensus:   "多方法共识",
	StrategyBalanced:    "冷热均衡",
	StrategyTrend:       "近期趋势",
	StrategyExploratory: "冷号探索",
}

// confidenceBase 各策略置信度区间下限，区间宽度为 10
var confidenceBase = map[Strategy]int{
	StrategyConsensus:   85,
	StrategyBalanced:    75,
	StrategyTrend:       65,
	StrategyExploratory: 55,
}

// Label 策略中文名
func (s Strategy) Label() string {
	if label, ok := strategyLabels[s]; ok {
		return label
	}
	return string(s)
}

// ParseStrategy 解析策略名
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(name)
	if _, ok := strategyLabels[s]; !ok {
		return "", fmt.Errorf("unknown strategy: %s", name)
	}
	return s, nil
}

// AllStrategies 全部策略（顺序固定）
func AllStrategies() []Strategy {
	return []Strategy{StrategyConsensus, StrategyBalanced, StrategyTrend, StrategyExploratory}
}

// strategyContext 生成组号所需的共享统计数据
type strategyContext struct {
	rng       *rand.Rand
	results   []MethodResult
	freq      stats.FrequencyMap // 近50期红球频率
	tiers     stats.Classification
	recent    stats.FrequencyMap // 近10期红球频率
	secondary []int              // 蓝球综合推荐
}

func newStrategyContext(rng *rand.Rand, records []database.DrawRecord, results []MethodResult, secondary []int) *strategyContext {
	freq := stats.Frequency(stats.Recent(records, windowMid), stats.Primary)
	return &strategyContext{
		rng:       rng,
		results:   results,
		freq:      freq,
		tiers:     stats.Classify(freq, hotThreshold, coldThreshold),
		recent:    stats.Frequency(stats.Recent(records, windowRecent), stats.Primary),
		secondary: secondary,
	}
}

// generate 按策略生成一组号码
func (c *strategyContext) generate(s Strategy) database.PredictionTuple {
	var primary []int
	switch s {
	case StrategyConsensus:
		primary = c.consensus()
	case StrategyBalanced:
		primary = c.tiered(2, 2, 2)
	case StrategyTrend:
		primary = c.trend()
	default:
		s = StrategyExploratory
		primary = c.tiered(1, 2, 3)
	}

	return database.PredictionTuple{
		Primary:    primary,
		Secondary:  c.pickSecondary(),
		Confidence: confidenceBase[s] + c.rng.Intn(10),
		Strategy:   s.Label(),
	}
}

// consensus 统计各方法推荐次数，取前8后校验补足
func (c *strategyContext) consensus() []int {
	votes := make(stats.FrequencyMap)
	for _, r := range c.results {
		for _, n := range r.Primary {
			votes[n]++
		}
	}
	ranked := stats.SortByFrequency(votes)
	if len(ranked) > consensusTop {
		ranked = ranked[:consensusTop]
	}
	return stats.FillPrimarySet(c.rng, ranked, c.freq)
}

// tiered 从热/温/冷号中各随机取若干个
func (c *strategyContext) tiered(hot, warm, cold int) []int {
	var picked []int
	picked = append(picked, stats.RandomPick(c.rng, c.tiers.Hot, hot)...)
	picked = append(picked, stats.RandomPick(c.rng, c.tiers.Warm, warm)...)
	picked = append(picked, stats.RandomPick(c.rng, c.tiers.Cold, cold)...)
	return stats.FillPrimarySet(c.rng, picked, c.freq)
}

// trend 近10期频率前10中随机取6个
func (c *strategyContext) trend() []int {
	top := stats.SortByFrequency(c.recent)
	if len(top) > trendTop {
		top = top[:trendTop]
	}
	picked := stats.RandomPick(c.rng, top, database.PrimaryCount)
	return stats.FillPrimarySet(c.rng, picked, c.freq)
}

// pickSecondary 从蓝球推荐前5中随机取一个
func (c *strategyContext) pickSecondary() int {
	if len(c.secondary) == 0 {
		return 1 + c.rng.Intn(database.SecondaryMax)
	}
	n := len(c.secondary)
	if n > secondaryTopPick {
		n = secondaryTopPick
	}
	return c.secondary[c.rng.Intn(n)]
}

// sortByConfidence 按置信度降序稳定排序
func sortByConfidence(tuples []database.PredictionTuple) {
	sort.SliceStable(tuples, func(i, j int) bool {
		return tuples[i].Confidence > tuples[j].Confidence
	})
}
