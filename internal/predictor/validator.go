package predictor

import (
	"fmt"
	"sort"

	"ssq-predictor/internal/database"
)

// IsValid 结构校验：6个互不相同的 1-33 红球，蓝球 1-16
func IsValid(t database.PredictionTuple) bool {
	if len(t.Primary) != database.PrimaryCount {
		return false
	}
	seen := make(map[int]bool, len(t.Primary))
	for _, n := range t.Primary {
		if n < 1 || n > database.PrimaryMax || seen[n] {
			return false
		}
		seen[n] = true
	}
	return t.Secondary >= 1 && t.Secondary <= database.SecondaryMax
}

// Equal 红球排序后相同且蓝球相同
func Equal(a, b database.PredictionTuple) bool {
	return a.Key() == b.Key()
}

// Deduplicator 按首次出现顺序保留合法、不重复且不与历史开奖相同的号码组
type Deduplicator struct {
	history map[string]struct{}
	seen    map[string]struct{}
	kept    []database.PredictionTuple
}

// NewDeduplicator 以历史开奖建立碰撞索引
func NewDeduplicator(records []database.DrawRecord) *Deduplicator {
	d := &Deduplicator{
		history: make(map[string]struct{}, len(records)),
		seen:    make(map[string]struct{}),
	}
	for _, r := range records {
		d.history[r.Key()] = struct{}{}
	}
	return d
}

// Offer 尝试加入一组号码，返回是否保留
func (d *Deduplicator) Offer(t database.PredictionTuple) bool {
	if !IsValid(t) {
		return false
	}
	key := t.Key()
	if _, ok := d.history[key]; ok {
		return false
	}
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}

	t.Primary = append([]int(nil), t.Primary...)
	sort.Ints(t.Primary)
	d.kept = append(d.kept, t)
	return true
}

// Len 已保留数量
func (d *Deduplicator) Len() int {
	return len(d.kept)
}

// Tuples 已保留的号码组
func (d *Deduplicator) Tuples() []database.PredictionTuple {
	return d.kept
}

// Deduplicate 对候选号码组去重并排除历史开奖
func Deduplicate(candidates []database.PredictionTuple, records []database.DrawRecord) []database.PredictionTuple {
	d := NewDeduplicator(records)
	for _, t := range candidates {
		d.Offer(t)
	}
	return d.Tuples()
}

// TupleScore 单组号码的开奖比对结果
type TupleScore struct {
	Tuple        database.PredictionTuple `json:"tuple"`
	PrimaryHits  []int                    `json:"primary_hits"`
	SecondaryHit bool                     `json:"secondary_hit"`
	Tier         int                      `json:"tier"` // 1-6 等奖，0 为未中奖
}

// RunScore 预测批次的开奖比对结果
type RunScore struct {
	RunID       string              `json:"run_id"`
	TargetIssue string              `json:"target_issue"`
	Actual      database.DrawRecord `json:"actual"`
	Scores      []TupleScore        `json:"scores"`
	Winning     int                 `json:"winning"`   // 中奖组数
	BestTier    int                 `json:"best_tier"` // 最高奖级，0 为未中奖
}

// ScoreRun 将批次中每组号码与实际开奖比对
func ScoreRun(run *database.PredictionRun, actual database.DrawRecord) (*RunScore, error) {
	if run.TargetIssue != actual.Issue {
		return nil, fmt.Errorf("run %s targets issue %s, got draw %s", run.ID, run.TargetIssue, actual.Issue)
	}

	score := &RunScore{
		RunID:       run.ID,
		TargetIssue: run.TargetIssue,
		Actual:      actual,
	}
	for _, t := range run.Tuples {
		ts := TupleScore{
			Tuple:        t,
			PrimaryHits:  intersect(t.Primary, actual.Primary),
			SecondaryHit: t.Secondary == actual.Secondary,
		}
		sort.Ints(ts.PrimaryHits)
		ts.Tier = PrizeTier(len(ts.PrimaryHits), ts.SecondaryHit)
		if ts.Tier > 0 {
			score.Winning++
			if score.BestTier == 0 || ts.Tier < score.BestTier {
				score.BestTier = ts.Tier
			}
		}
		score.Scores = append(score.Scores, ts)
	}
	return score, nil
}

// PrizeTier 双色球奖级：6+1 一等奖 ... 蓝球单中六等奖，0 为未中奖
func PrizeTier(primaryHits int, secondaryHit bool) int {
	switch {
	case primaryHits == 6 && secondaryHit:
		return 1
	case primaryHits == 6:
		return 2
	case primaryHits == 5 && secondaryHit:
		return 3
	case primaryHits == 5, primaryHits == 4 && secondaryHit:
		return 4
	case primaryHits == 4, primaryHits == 3 && secondaryHit:
		return 5
	case secondaryHit:
		return 6
	default:
		return 0
	}
}

// HitsLabel 命中描述，如 "红3+蓝1"
func (s TupleScore) HitsLabel() string {
	blue := 0
	if s.SecondaryHit {
		blue = 1
	}
	return fmt.Sprintf("红%d+蓝%d", len(s.PrimaryHits), blue)
}

// Summary 比对摘要
func (s *RunScore) Summary() string {
	best := 0
	for _, ts := range s.Scores {
		best = max(best, len(ts.PrimaryHits))
	}
	if s.Winning == 0 {
		return fmt.Sprintf("第%s期 %s|%02d：%d组均未中奖，最多命中红球%d个",
			s.TargetIssue, database.FormatNumbers(s.Actual.Primary, " "), s.Actual.Secondary, len(s.Scores), best)
	}
	return fmt.Sprintf("第%s期 %s|%02d：%d组中奖，最高%d等奖",
		s.TargetIssue, database.FormatNumbers(s.Actual.Primary, " "), s.Actual.Secondary, s.Winning, s.BestTier)
}
