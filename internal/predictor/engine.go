package predictor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"ssq-predictor/internal/clock"
	"ssq-predictor/internal/database"
	"ssq-predictor/internal/logger"
	"ssq-predictor/internal/metrics"
	"ssq-predictor/internal/stats"

	"golang.org/x/sync/errgroup"
)

// ErrInsufficientHistory 历史记录不足
var ErrInsufficientHistory = errors.New("insufficient history data")

// defaultSuggestTimeout 外部建议服务默认超时
const defaultSuggestTimeout = 60 * time.Second

// SuggestContext 外部建议服务所需的上下文
type SuggestContext struct {
	Now          time.Time
	Target       DrawSchedule
	Last         database.DrawRecord
	Methods      []MethodResult
	Secondary    []int // 蓝球综合推荐
	HotPrimary   []int
	ColdPrimary  []int
	HotSecondary []int
	SumMin       int
	SumMax       int
	Count        int
}

// Suggester 外部建议服务
type Suggester interface {
	Suggest(ctx context.Context, sc SuggestContext) ([]database.PredictionTuple, error)
}

// ProgressFunc 进度回调
type ProgressFunc func(status string)

// Prediction 一次预测的完整输出
type Prediction struct {
	Tuples    []database.PredictionTuple
	Methods   []MethodResult
	Failed    []MethodOutcome
	Secondary SecondaryRecommendation
	Suggested int // 外部建议服务提供并保留的组数
}

// Engine 预测引擎
type Engine struct {
	params         Params
	clock          clock.Clock
	suggester      Suggester
	suggestTimeout time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// Option 引擎选项
type Option func(*Engine)

// WithSuggester 启用外部建议服务
func WithSuggester(s Suggester, timeout time.Duration) Option {
	return func(e *Engine) {
		e.suggester = s
		if timeout > 0 {
			e.suggestTimeout = timeout
		}
	}
}

// WithSeed 固定随机种子，0 表示使用当前时间
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		if seed != 0 {
			e.rng = rand.New(rand.NewSource(seed))
		}
	}
}

// NewEngine 创建预测引擎
func NewEngine(params Params, clk clock.Clock, opts ...Option) *Engine {
	if clk == nil {
		clk = clock.System{}
	}
	if len(params.StrategyPlan) == 0 {
		params.StrategyPlan = DefaultParams().StrategyPlan
	}
	params.MinHistory = max(MinHistoryFloor, params.MinHistory)
	e := &Engine{
		params:         params,
		clock:          clk,
		suggestTimeout: defaultSuggestTimeout,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params 引擎参数
func (e *Engine) Params() Params {
	return e.params
}

// nextSeed 从引擎随机源派生子种子
func (e *Engine) nextSeed() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Int63()
}

// Run 执行一次预测：records 按期号升序，至少 MinHistory 期
func (e *Engine) Run(ctx context.Context, records []database.DrawRecord, progress ProgressFunc) (*Prediction, error) {
	if len(records) < e.params.MinHistory {
		metrics.PredictionRuns.WithLabelValues("insufficient_history").Inc()
		return nil, fmt.Errorf("%w: need %d, got %d", ErrInsufficientHistory, e.params.MinHistory, len(records))
	}
	if progress == nil {
		progress = func(string) {}
	}

	start := time.Now()
	now := e.clock.Now()

	progress("正在运行红球分析方法...")
	outcomes, secondary, err := e.analyze(ctx, records, now)
	if err != nil {
		metrics.PredictionRuns.WithLabelValues("canceled").Inc()
		return nil, err
	}

	prediction := &Prediction{Secondary: secondary}
	for _, o := range outcomes {
		if o.OK() {
			prediction.Methods = append(prediction.Methods, o.Result)
			continue
		}
		prediction.Failed = append(prediction.Failed, o)
		metrics.MethodFailures.WithLabelValues(o.Method).Inc()
		logger.WithMethod(o.Method).WithError(o.Err).Warn("Scoring method failed, contribution dropped")
	}
	logger.Debugf("Methods completed: %d succeeded, %d failed", len(prediction.Methods), len(prediction.Failed))

	rng := rand.New(rand.NewSource(e.nextSeed()))
	strategies := newStrategyContext(rng, records, prediction.Methods, secondary.Ranked)

	candidates := e.suggest(ctx, records, now, prediction, progress)
	suggestedKeys := make(map[string]bool, len(candidates))
	for _, t := range candidates {
		suggestedKeys[t.Key()] = true
	}

	progress("正在生成本地策略号码...")
	for i := len(candidates); i < e.params.TargetCount; i++ {
		candidates = append(candidates, strategies.generate(e.params.StrategyPlan[i%len(e.params.StrategyPlan)]))
	}

	dedup := NewDeduplicator(records)
	for _, t := range candidates {
		dedup.Offer(t)
	}

	all := AllStrategies()
	attempts := 0
	for dedup.Len() < e.params.TargetCount && attempts < e.params.TopUpAttempts {
		dedup.Offer(strategies.generate(all[rng.Intn(len(all))]))
		attempts++
	}
	if dedup.Len() < e.params.TargetCount {
		metrics.DedupExhausted.Inc()
		logger.Warnf("Dedup top-up exhausted: produced %d of %d tuples after %d attempts",
			dedup.Len(), e.params.TargetCount, attempts)
	}

	tuples := append([]database.PredictionTuple(nil), dedup.Tuples()...)
	sortByConfidence(tuples)
	if len(tuples) > e.params.TargetCount {
		tuples = tuples[:e.params.TargetCount]
	}
	for _, t := range tuples {
		if suggestedKeys[t.Key()] {
			prediction.Suggested++
		}
	}
	prediction.Tuples = tuples

	metrics.PredictionRuns.WithLabelValues("success").Inc()
	metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	logger.Infof("Prediction completed: %d tuples (%d suggested) from %d records",
		len(tuples), prediction.Suggested, len(records))
	progress("预测完成")
	return prediction, nil
}

// analyze 并行执行六种红球方法与蓝球综合推荐
func (e *Engine) analyze(ctx context.Context, records []database.DrawRecord, now time.Time) ([]MethodOutcome, SecondaryRecommendation, error) {
	outcomes := make([]MethodOutcome, len(PrimaryMethods))
	var secondary SecondaryRecommendation

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range PrimaryMethods {
		i, m := i, m
		in := Input{Records: records, Now: now, Rng: rand.New(rand.NewSource(e.nextSeed()))}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = RunMethod(m, in)
			return nil
		})
	}
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		secondary = RecommendSecondary(Input{Records: records, Now: now})
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, SecondaryRecommendation{}, fmt.Errorf("prediction canceled: %w", err)
	}
	return outcomes, secondary, nil
}

// suggest 调用外部建议服务，失败时返回空结果
func (e *Engine) suggest(ctx context.Context, records []database.DrawRecord, now time.Time, p *Prediction, progress ProgressFunc) []database.PredictionTuple {
	if e.suggester == nil {
		return nil
	}

	progress("正在请求外部建议服务...")
	sctx, cancel := context.WithTimeout(ctx, e.suggestTimeout)
	defer cancel()

	tuples, err := e.suggester.Suggest(sctx, buildSuggestContext(records, now, p, e.params.TargetCount))
	if err != nil {
		metrics.SuggestionFailures.Inc()
		logger.Warnf("Suggestion service failed, falling back to local strategies: %v", err)
		progress("外部建议服务不可用，使用本地策略生成")
		return nil
	}

	for i := range tuples {
		tuples[i].Confidence = min(100, max(0, tuples[i].Confidence))
	}
	if len(tuples) > e.params.TargetCount {
		tuples = tuples[:e.params.TargetCount]
	}
	metrics.SuggestedTuples.Add(float64(len(tuples)))
	logger.Infof("Suggestion service returned %d tuples", len(tuples))
	return tuples
}

// buildSuggestContext 近50期冷热号、近50期热门蓝球与近100期和值范围
func buildSuggestContext(records []database.DrawRecord, now time.Time, p *Prediction, count int) SuggestContext {
	mid := stats.Recent(records, windowMid)
	tiers := stats.Classify(stats.Frequency(mid, stats.Primary), hotThreshold, coldThreshold)

	hotSecondary := stats.SortByFrequency(stats.Frequency(mid, stats.Secondary))
	if len(hotSecondary) > suggestHotBlue {
		hotSecondary = hotSecondary[:suggestHotBlue]
	}

	avg := meanSum(stats.Recent(records, windowLong))
	last := records[len(records)-1]
	return SuggestContext{
		Now:          now,
		Target:       NextDraw(now, &last),
		Last:         last,
		Methods:      p.Methods,
		Secondary:    p.Secondary.Ranked,
		HotPrimary:   tiers.Hot,
		ColdPrimary:  tiers.Cold,
		HotSecondary: hotSecondary,
		SumMin:       roundInt(avg) - suggestSumSpread,
		SumMax:       roundInt(avg) + suggestSumSpread,
		Count:        count,
	}
}
