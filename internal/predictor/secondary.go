package predictor

import (
	"fmt"
	"strconv"
	"strings"

	"ssq-predictor/internal/database"
	"ssq-predictor/internal/stats"
)

// ExclusionResult 蓝球排除规则的输出
type ExclusionResult struct {
	Rule      string `json:"rule"`
	Excluded  []int  `json:"excluded"`
	Rationale string `json:"rationale"`
}

// ExclusionRule 基于上一期开奖的蓝球排除规则
type ExclusionRule struct {
	ID    string
	Apply func(Input) ExclusionResult
}

// ExclusionRules 六种蓝球排除规则
var ExclusionRules = []ExclusionRule{
	{ID: "plus-six", Apply: excludePlusSix},
	{ID: "plus-ten", Apply: excludePlusTen},
	{ID: "minus-seven", Apply: excludeMinusSeven},
	{ID: "issue-date", Apply: excludeIssueDate},
	{ID: "month", Apply: excludeMonth},
	{ID: "tail-plus-one", Apply: excludeTailPlusOne},
}

// excludeByTail 尾数为 tail 的蓝球
func excludeByTail(tail int) []int {
	var nums []int
	for _, n := range stats.Domain(database.SecondaryMax) {
		if stats.LastDigit(n) == tail {
			nums = append(nums, n)
		}
	}
	return nums
}

func excludePlusSix(in Input) ExclusionResult {
	s := in.last().Secondary
	tail := stats.LastDigit(s + 6)
	return ExclusionResult{
		Rule:      "plus-six",
		Excluded:  excludeByTail(tail),
		Rationale: fmt.Sprintf("蓝球排除尾数%d（加6法：%d+6=%d）。", tail, s, s+6),
	}
}

func excludePlusTen(in Input) ExclusionResult {
	s := in.last().Secondary
	tail := stats.LastDigit(s + 10)
	return ExclusionResult{
		Rule:      "plus-ten",
		Excluded:  excludeByTail(tail),
		Rationale: fmt.Sprintf("蓝球排除尾数%d（加10法：%d+10=%d）。", tail, s, s+10),
	}
}

func excludeMinusSeven(in Input) ExclusionResult {
	s := in.last().Secondary
	abs := s - 7
	if abs < 0 {
		abs = -abs
	}
	tail := stats.LastDigit(abs)
	return ExclusionResult{
		Rule:      "minus-seven",
		Excluded:  excludeByTail(tail),
		Rationale: fmt.Sprintf("蓝球排除尾数%d（减7取绝对值法：|%d-7|=%d）。", tail, s, abs),
	}
}

// excludeIssueDate (期号末三位 + 开奖日) % 16，结果为 0 时取 16
func excludeIssueDate(in Input) ExclusionResult {
	last := in.last()
	issueNum := issueSuffix(last.Issue)
	day := last.DrawDate.Day()
	raw := (issueNum + day) % database.SecondaryMax
	excluded := raw
	if excluded == 0 {
		excluded = database.SecondaryMax
	}
	return ExclusionResult{
		Rule:      "issue-date",
		Excluded:  []int{excluded},
		Rationale: fmt.Sprintf("蓝球排除%d号（期数日期法：期号%d+日期%d=%d，mod16=%d）。", excluded, issueNum, day, issueNum+day, raw),
	}
}

func excludeMonth(in Input) ExclusionResult {
	month := int(in.Now.Month())
	return ExclusionResult{
		Rule:      "month",
		Excluded:  []int{month},
		Rationale: fmt.Sprintf("蓝球排除%02d号（月份排除法：当前%d月）。", month, month),
	}
}

func excludeTailPlusOne(in Input) ExclusionResult {
	s := in.last().Secondary
	lastTail := stats.LastDigit(s)
	tail := stats.LastDigit(lastTail + 1)
	return ExclusionResult{
		Rule:      "tail-plus-one",
		Excluded:  excludeByTail(tail),
		Rationale: fmt.Sprintf("蓝球排除尾数%d（尾数加1法：上期蓝球%d尾数%d，%d+1=%d）。", tail, s, lastTail, lastTail, lastTail+1),
	}
}

// issueSuffix 期号中数字部分的末三位
func issueSuffix(issue string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, issue)
	if len(digits) > 3 {
		digits = digits[len(digits)-3:]
	}
	n, _ := strconv.Atoi(digits)
	return n
}

// CombinedExclusion 综合排除结果
type CombinedExclusion struct {
	Strong    []int             `json:"strong"`    // 被至少两条规则排除
	Remaining []int             `json:"remaining"` // 不会为空
	Rules     []ExclusionResult `json:"rules"`
}

// CombineExclusions 统计各号码被排除的次数，>=2 次视为强排除
func CombineExclusions(in Input) CombinedExclusion {
	var combined CombinedExclusion
	votes := make(map[int]int)
	for _, rule := range ExclusionRules {
		result := rule.Apply(in)
		combined.Rules = append(combined.Rules, result)
		for _, n := range result.Excluded {
			votes[n]++
		}
	}

	for _, n := range stats.Domain(database.SecondaryMax) {
		if votes[n] >= strongExcludeVotes {
			combined.Strong = append(combined.Strong, n)
		}
	}
	combined.Remaining = stats.Without(stats.Domain(database.SecondaryMax), combined.Strong)
	if len(combined.Remaining) == 0 {
		combined.Remaining = stats.Domain(database.SecondaryMax)
	}
	return combined
}

// AnalysisResult 蓝球分析方法输出
type AnalysisResult struct {
	Method      string `json:"method"`
	Recommended []int  `json:"recommended"` // 优先级从高到低
	Rationale   string `json:"rationale"`
}

// AnalysisMethod 蓝球分析方法
type AnalysisMethod struct {
	ID  string
	Run func(records []database.DrawRecord) AnalysisResult
}

// AnalysisMethods 四种蓝球分析方法
var AnalysisMethods = []AnalysisMethod{
	{ID: "size-parity-majority", Run: analyzeMajority},
	{ID: "parity-streak", Run: analyzeParityStreak},
	{ID: "four-category", Run: analyzeFourCategory},
	{ID: "hot-cold", Run: analyzeHotCold},
}

// secondaryCategory 蓝球是否为小号、奇数
func secondaryCategory(n int) (small, odd bool) {
	return n <= secondarySmallMax, n%2 == 1
}

// secondaryNumbers 按大小/奇偶筛选蓝球，nil 表示不限
func secondaryNumbers(small, odd *bool) []int {
	var nums []int
	for _, n := range stats.Domain(database.SecondaryMax) {
		s, o := secondaryCategory(n)
		if small != nil && s != *small {
			continue
		}
		if odd != nil && o != *odd {
			continue
		}
		nums = append(nums, n)
	}
	return nums
}

func sizeLabel(small bool) string {
	if small {
		return "小号"
	}
	return "大号"
}

func parityLabel(odd bool) string {
	if odd {
		return "奇数"
	}
	return "偶数"
}

// analyzeMajority 方法7：近50期大小多数与奇偶多数的交集
func analyzeMajority(records []database.DrawRecord) AnalysisResult {
	recent := stats.Recent(records, windowMid)
	smallCount, oddCount := 0, 0
	for _, r := range recent {
		small, odd := secondaryCategory(r.Secondary)
		if small {
			smallCount++
		}
		if odd {
			oddCount++
		}
	}
	bigCount := len(recent) - smallCount
	evenCount := len(recent) - oddCount

	preferSmall := smallCount >= bigCount
	preferOdd := oddCount >= evenCount
	freq := stats.Frequency(recent, stats.Secondary)
	return AnalysisResult{
		Method:      "size-parity-majority",
		Recommended: stats.SortNumbersByFrequency(secondaryNumbers(&preferSmall, &preferOdd), freq),
		Rationale: fmt.Sprintf("大小奇偶法1：近%d期小号%d次/大号%d次，奇数%d次/偶数%d次，推荐%s%s区",
			len(recent), smallCount, bigCount, oddCount, evenCount, sizeLabel(preferSmall), parityLabel(preferOdd)),
	}
}

// analyzeParityStreak 方法8：奇偶连开3期以上预测转向，否则跟随整体多数
func analyzeParityStreak(records []database.DrawRecord) AnalysisResult {
	recent := stats.Recent(records, windowMid)
	oddStreak, evenStreak := 0, 0
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Secondary%2 == 1 {
			if evenStreak > 0 {
				break
			}
			oddStreak++
		} else {
			if oddStreak > 0 {
				break
			}
			evenStreak++
		}
	}

	oddTotal := 0
	for _, r := range recent {
		if r.Secondary%2 == 1 {
			oddTotal++
		}
	}
	evenTotal := len(recent) - oddTotal

	var preferOdd bool
	var desc string
	switch {
	case oddStreak >= secondaryStreak:
		preferOdd = false
		desc = fmt.Sprintf("奇偶趋势法：奇数已连开%d期，预测转向偶数", oddStreak)
	case evenStreak >= secondaryStreak:
		preferOdd = true
		desc = fmt.Sprintf("奇偶趋势法：偶数已连开%d期，预测转向奇数", evenStreak)
	case oddTotal > evenTotal:
		preferOdd = true
		desc = fmt.Sprintf("奇偶趋势法：奇数整体偏多(%d:%d)，继续看好奇数", oddTotal, evenTotal)
	default:
		preferOdd = false
		desc = fmt.Sprintf("奇偶趋势法：偶数整体偏多(%d:%d)，继续看好偶数", evenTotal, oddTotal)
	}

	freq := stats.Frequency(recent, stats.Secondary)
	return AnalysisResult{
		Method:      "parity-streak",
		Recommended: stats.SortNumbersByFrequency(secondaryNumbers(nil, &preferOdd), freq),
		Rationale:   desc,
	}
}

// analyzeFourCategory 方法9：小奇/小偶/大奇/大偶中出现最多的一类
func analyzeFourCategory(records []database.DrawRecord) AnalysisResult {
	recent := stats.Recent(records, windowMid)

	type category struct {
		name       string
		small, odd bool
		count      int
	}
	categories := []category{
		{name: "小奇", small: true, odd: true},
		{name: "小偶", small: true, odd: false},
		{name: "大奇", small: false, odd: true},
		{name: "大偶", small: false, odd: false},
	}
	for _, r := range recent {
		small, odd := secondaryCategory(r.Secondary)
		for i := range categories {
			if categories[i].small == small && categories[i].odd == odd {
				categories[i].count++
			}
		}
	}

	top := 0
	parts := make([]string, len(categories))
	for i, c := range categories {
		parts[i] = fmt.Sprintf("%s%d次", c.name, c.count)
		if c.count > categories[top].count {
			top = i
		}
	}

	best := categories[top]
	freq := stats.Frequency(recent, stats.Secondary)
	return AnalysisResult{
		Method:      "four-category",
		Recommended: stats.SortNumbersByFrequency(secondaryNumbers(&best.small, &best.odd), freq),
		Rationale:   fmt.Sprintf("四分类法：%s，推荐%s区", strings.Join(parts, "，"), best.name),
	}
}

// analyzeHotCold 方法10：按频率分热(前5)/温(6-11)/冷，结合近10期命中调整
func analyzeHotCold(records []database.DrawRecord) AnalysisResult {
	recent := stats.Recent(records, windowMid)
	freq := stats.Frequency(recent, stats.Secondary)
	sorted := stats.SortByFrequency(freq)

	hot := sorted[:secondaryHotCount]
	warm := sorted[secondaryHotCount:secondaryWarmEnd]
	cold := sorted[secondaryWarmEnd:]

	hotHits, coldHits := 0, 0
	for _, r := range stats.Recent(records, windowRecent) {
		if stats.Contains(hot, r.Secondary) {
			hotHits++
		}
		if stats.Contains(cold, r.Secondary) {
			coldHits++
		}
	}

	var recommended []int
	var desc string
	switch {
	case coldHits >= secondaryColdHits:
		recommended = append(append(recommended, warm...), hot[:2]...)
		desc = fmt.Sprintf("冷热分析：冷号近%d期出现%d次，可能回归温热区", windowRecent, coldHits)
	case hotHits >= secondaryHotHits:
		recommended = append(append(recommended, hot...), warm[:3]...)
		desc = fmt.Sprintf("冷热分析：热号近%d期出现%d次，持续走强", windowRecent, hotHits)
	default:
		recommended = append(append(recommended, warm...), hot[:2]...)
		desc = fmt.Sprintf("冷热分析：热%d冷%d，温号为主", hotHits, coldHits)
	}

	hotInfo := make([]string, len(hot))
	for i, n := range hot {
		hotInfo[i] = fmt.Sprintf("%02d(%d次)", n, freq[n])
	}
	return AnalysisResult{
		Method:      "hot-cold",
		Recommended: recommended,
		Rationale:   desc + "\n热号: " + strings.Join(hotInfo, " "),
	}
}

// CombinedAnalysis 综合分析：按各方法推荐名次累计得分
type CombinedAnalysis struct {
	Ranking []int            `json:"ranking"`
	Scores  map[int]int      `json:"scores"`
	Methods []AnalysisResult `json:"methods"`
}

// CombineAnalyses 名次越靠前得分越高，按总分降序排列，同分按号码升序
func CombineAnalyses(records []database.DrawRecord) CombinedAnalysis {
	scores := make(stats.FrequencyMap, database.SecondaryMax)
	for _, n := range stats.Domain(database.SecondaryMax) {
		scores[n] = 0
	}

	combined := CombinedAnalysis{Scores: scores}
	for _, method := range AnalysisMethods {
		result := method.Run(records)
		combined.Methods = append(combined.Methods, result)
		for i, n := range result.Recommended {
			scores[n] += len(result.Recommended) - i
		}
	}
	combined.Ranking = stats.SortByFrequency(scores)
	return combined
}

// SecondaryRecommendation 蓝球最终推荐
type SecondaryRecommendation struct {
	Ranked    []int             `json:"ranked"` // 最多10个
	Exclusion CombinedExclusion `json:"exclusion"`
	Analysis  CombinedAnalysis  `json:"analysis"`
}

// RecommendSecondary 综合分析排名与排除结果：保留未被强排除的号码，
// 不足5个时按排名补入被排除号码，最终取前10
func RecommendSecondary(in Input) SecondaryRecommendation {
	rec := SecondaryRecommendation{
		Exclusion: CombineExclusions(in),
		Analysis:  CombineAnalyses(in.Records),
	}

	var ranked []int
	for _, n := range rec.Analysis.Ranking {
		if stats.Contains(rec.Exclusion.Remaining, n) {
			ranked = append(ranked, n)
		}
	}
	if len(ranked) < recommendMinSurvivor {
		for _, n := range rec.Analysis.Ranking {
			if !stats.Contains(ranked, n) {
				ranked = append(ranked, n)
			}
		}
	}
	if len(ranked) > recommendSize {
		ranked = ranked[:recommendSize]
	}
	rec.Ranked = ranked
	return rec
}
