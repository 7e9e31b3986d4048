package predictor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"ssq-predictor/internal/database"
	"ssq-predictor/internal/stats"
)

// decisionTree 方法1：高级特征决策树法
// 按100期频率分层，按近30期常见奇偶比从各层选号，并使和值落在近50期均值±15内
func decisionTree(in Input) (MethodResult, error) {
	long := stats.Recent(in.Records, windowLong)
	freq := stats.Frequency(long, stats.Primary)

	avgSum := meanSum(stats.Recent(in.Records, windowMid))
	sumMin := avgSum - treeSumSpread
	sumMax := avgSum + treeSumSpread

	short := stats.Recent(in.Records, windowShort)
	ratios := make([][2]int, len(short))
	for i, r := range short {
		ratios[i] = stats.ParityRatio(r.Primary)
	}
	bestRatio := stats.RankPatterns(ratios)[0].Pattern
	targetOdd, targetEven := bestRatio[0], bestRatio[1]

	tiers := stats.Classify(freq, treeHotThreshold, treeColdThreshold)
	hotOdd, hotEven := splitParity(tiers.Hot)
	warmOdd, warmEven := splitParity(tiers.Warm)
	coldOdd, coldEven := splitParity(tiers.Cold)

	rng := in.Rng
	var best []int
	bestDiff := math.Inf(1)
	for attempt := 0; attempt < treeAttempts; attempt++ {
		hotCount := 3
		if rng.Float64() >= 0.6 {
			if rng.Float64() < 0.5 {
				hotCount = 4
			} else {
				hotCount = 2
			}
		}
		warmCount := 1
		if rng.Float64() < 0.5 {
			warmCount = 2
		}
		warmCount = min(database.PrimaryCount-hotCount, warmCount)
		coldCount := database.PrimaryCount - hotCount - warmCount

		oddNeeded, evenNeeded := targetOdd, targetEven
		var selected []int

		hotOddPick := min(roundInt(float64(hotCount)*float64(targetOdd)/6), len(hotOdd), oddNeeded)
		hotEvenPick := min(hotCount-hotOddPick, len(hotEven), evenNeeded)
		selected = append(selected, stats.RandomPick(rng, hotOdd, hotOddPick)...)
		selected = append(selected, stats.RandomPick(rng, hotEven, hotEvenPick)...)
		oddNeeded -= max(0, hotOddPick)
		evenNeeded -= max(0, hotEvenPick)

		availWarmOdd := stats.Without(warmOdd, selected)
		availWarmEven := stats.Without(warmEven, selected)
		warmOddPick := min(
			roundInt(float64(warmCount)*float64(oddNeeded)/float64(max(1, oddNeeded+evenNeeded))),
			len(availWarmOdd), oddNeeded)
		warmEvenPick := min(warmCount-warmOddPick, len(availWarmEven), evenNeeded)
		selected = append(selected, stats.RandomPick(rng, availWarmOdd, warmOddPick)...)
		selected = append(selected, stats.RandomPick(rng, availWarmEven, warmEvenPick)...)
		oddNeeded -= max(0, warmOddPick)
		evenNeeded -= max(0, warmEvenPick)

		if coldCount > 0 {
			availColdOdd := stats.Without(coldOdd, selected)
			availColdEven := stats.Without(coldEven, selected)
			selected = append(selected, stats.RandomPick(rng, availColdOdd, min(oddNeeded, len(availColdOdd)))...)
			selected = append(selected, stats.RandomPick(rng, availColdEven, min(evenNeeded, len(availColdEven)))...)
		}

		filled := stats.FillPrimarySet(rng, selected, freq)
		total := float64(stats.Sum(filled))
		if total >= sumMin && total <= sumMax {
			best = filled
			break
		}
		if diff := math.Abs(total - avgSum); diff < bestDiff {
			bestDiff = diff
			best = filled
		}
	}
	best = stats.FillPrimarySet(rng, best, freq)

	exclusion := excludePlusSix(in)
	return MethodResult{
		Primary:   best,
		Secondary: rankSecondary(long, exclusion.Excluded),
		Rationale: fmt.Sprintf("基于近%d期数据，热号%d个、温号%d个、冷号%d个。近%d期和值均值%.1f，目标范围[%.0f-%.0f]。近%d期最常见奇偶比%d:%d。%s",
			len(long), len(tiers.Hot), len(tiers.Warm), len(tiers.Cold),
			windowMid, avgSum, sumMin, sumMax, windowShort, targetOdd, targetEven, exclusion.Rationale),
	}, nil
}

// sumTail 方法2：和值除数取尾定胆法
// 统计100期和值尾数前三名，按频率与除3/5/7余数特征加权选号，使和值尾数命中目标
func sumTail(in Input) (MethodResult, error) {
	long := stats.Recent(in.Records, windowLong)
	freq := stats.Frequency(long, stats.Primary)

	var tailFreq [10]int
	for _, r := range long {
		tailFreq[stats.LastDigit(r.Sum)]++
	}
	tails := make([]int, 10)
	for i := range tails {
		tails[i] = i
	}
	sort.SliceStable(tails, func(i, j int) bool {
		return tailFreq[tails[i]] > tailFreq[tails[j]]
	})
	topTails := tails[:tailTopCount]

	divisor := newDivisorWeights(long)
	candidates := stats.Domain(database.PrimaryMax)
	weights := make([]float64, len(candidates))
	for i, n := range candidates {
		freqScore := float64(freq[n]) / float64(len(long))
		weights[i] = freqScore*60 + divisor.score(n)*40
	}

	rng := in.Rng
	var best []int
	matched := false
	for attempt := 0; attempt < tailAttempts; attempt++ {
		picked := stats.WeightedSample(rng, candidates, weights, database.PrimaryCount)
		if stats.Contains(topTails, stats.LastDigit(stats.Sum(picked))) {
			best = picked
			matched = true
			break
		}
		if best == nil {
			best = picked
		}
	}

	// 未命中时替换一个号码调整尾数
	if !matched && len(best) == database.PrimaryCount {
		best, _ = adjustSumTail(best, topTails)
	}
	best = stats.FillPrimarySet(rng, best, freq)

	resultSum := stats.Sum(best)
	hit := ""
	if stats.Contains(topTails, stats.LastDigit(resultSum)) {
		hit = "（命中目标尾数）"
	}

	exclusion := excludePlusTen(in)
	return MethodResult{
		Primary:   best,
		Secondary: rankSecondary(long, exclusion.Excluded),
		Rationale: fmt.Sprintf("近%d期和值尾数统计：最常见尾数为%s。本次预测红球和值%d，尾数%d%s。结合除以3/5/7的余数特征进行号码权重优化。%s",
			len(long), joinInts(topTails, "、"), resultSum, stats.LastDigit(resultSum), hit, exclusion.Rationale),
	}, nil
}

// adjustSumTail 依次尝试替换每个位置，找到使和值尾数命中的号码
func adjustSumTail(picked, topTails []int) ([]int, bool) {
	for idx := range picked {
		remaining := make([]int, 0, len(picked)-1)
		remaining = append(remaining, picked[:idx]...)
		remaining = append(remaining, picked[idx+1:]...)
		partial := stats.Sum(remaining)

		for _, target := range topTails {
			needed := (target - partial%10 + 10) % 10
			for n := 1; n <= database.PrimaryMax; n++ {
				if !stats.Contains(remaining, n) && stats.LastDigit(n) == needed {
					adjusted := append(remaining, n)
					sort.Ints(adjusted)
					return adjusted, true
				}
			}
		}
	}
	return picked, false
}

// divisorWeights 除3/5/7余数的出现占比
type divisorWeights struct {
	mod3 [3]float64
	mod5 [5]float64
	mod7 [7]float64
}

func newDivisorWeights(records []database.DrawRecord) divisorWeights {
	var w divisorWeights
	total := 0
	for _, r := range records {
		for _, n := range r.Primary {
			w.mod3[n%3]++
			w.mod5[n%5]++
			w.mod7[n%7]++
			total++
		}
	}
	if total == 0 {
		return w
	}
	for i := range w.mod3 {
		w.mod3[i] /= float64(total)
	}
	for i := range w.mod5 {
		w.mod5[i] /= float64(total)
	}
	for i := range w.mod7 {
		w.mod7[i] /= float64(total)
	}
	return w
}

func (w divisorWeights) score(n int) float64 {
	return w.mod3[n%3] + w.mod5[n%5] + w.mod7[n%7]
}

// zoneType 区间冷热
type zoneType int

const (
	zoneWarm zoneType = iota
	zoneHot
	zoneCold
)

func (z zoneType) label() string {
	switch z {
	case zoneHot:
		return "热区"
	case zoneCold:
		return "冷区"
	default:
		return "温区"
	}
}

// zoneDistribution 方法3：分布图法
// 按100期最常见的三区分布选号，热区偏向高频，冷区偏向低频
func zoneDistribution(in Input) (MethodResult, error) {
	long := stats.Recent(in.Records, windowLong)
	overall := stats.Frequency(long, stats.Primary)

	patterns := make([][3]int, len(long))
	for i, r := range long {
		patterns[i] = stats.ZoneDistribution(r.Primary)
	}
	ranked := stats.RankPatterns(patterns)
	bestPattern := ranked[0]

	overallAvg := meanCount(overall)
	var selected []int
	var types [3]zoneType
	for zone := 0; zone < 3; zone++ {
		numbers := zoneNumbers(zone)
		freq := stats.FrequencyOf(long, numbers)
		types[zone] = classifyZone(freq, overallAvg)

		count := bestPattern.Pattern[zone]
		if count <= 0 {
			continue
		}

		maxFreq := freq.MaxCount()
		available := stats.Without(numbers, selected)
		weights := make([]float64, len(available))
		for i, n := range available {
			f := float64(freq[n])
			switch types[zone] {
			case zoneHot:
				weights[i] = math.Max(1, f*1.5)
			case zoneCold:
				weights[i] = math.Max(1, float64(maxFreq)-f+2)
			default:
				weights[i] = math.Max(1, f+2)
			}
		}

		if len(available) >= count {
			selected = append(selected, stats.WeightedSample(in.Rng, available, weights, count)...)
		} else {
			selected = append(selected, available...)
		}
	}
	result := stats.FillPrimarySet(in.Rng, selected, overall)

	exclusion := excludeMinusSeven(in)
	return MethodResult{
		Primary:   result,
		Secondary: rankSecondary(long, exclusion.Excluded),
		Rationale: fmt.Sprintf("近%d期区间分布统计，前三常见模式：%s。本次采用%s分布（出现%d次）。区间冷热：一区(01-11)%s、二区(12-22)%s、三区(23-33)%s。%s",
			len(long), topPatterns(ranked, formatTriple), formatTriple(bestPattern.Pattern), bestPattern.Count,
			types[0].label(), types[1].label(), types[2].label(), exclusion.Rationale),
	}, nil
}

// classifyZone 区间平均次数与整体平均次数比较
func classifyZone(freq stats.FrequencyMap, overallAvg float64) zoneType {
	avg := meanCount(freq)
	switch {
	case avg > overallAvg*zoneHotFactor:
		return zoneHot
	case avg < overallAvg*zoneColdFactor:
		return zoneCold
	default:
		return zoneWarm
	}
}

// zoneNumbers 区间内号码
func zoneNumbers(zone int) []int {
	var nums []int
	for _, n := range stats.Domain(database.PrimaryMax) {
		if stats.Zone(n) == zone {
			nums = append(nums, n)
		}
	}
	return nums
}

// mod3Residue 方法4：除3余数杀号法
// 按100期最常见的 0/1/2 路分布在各路中按频率选号
func mod3Residue(in Input) (MethodResult, error) {
	long := stats.Recent(in.Records, windowLong)
	overall := stats.Frequency(long, stats.Primary)

	patterns := make([][3]int, len(long))
	for i, r := range long {
		patterns[i] = stats.ResidueDistribution(r.Primary)
	}
	ranked := stats.RankPatterns(patterns)
	bestPattern := ranked[0]

	var selected []int
	for mod := 0; mod < 3; mod++ {
		count := bestPattern.Pattern[mod]
		if count <= 0 {
			continue
		}
		numbers := residueNumbers(mod)
		freq := stats.FrequencyOf(long, numbers)
		available := stats.Without(numbers, selected)
		weights := make([]float64, len(available))
		for i, n := range available {
			weights[i] = float64(max(1, freq[n]+1))
		}

		if len(available) >= count {
			selected = append(selected, stats.WeightedSample(in.Rng, available, weights, count)...)
		} else {
			selected = append(selected, available...)
		}
	}
	result := stats.FillPrimarySet(in.Rng, selected, overall)

	routes := make([]string, 3)
	for mod := 0; mod < 3; mod++ {
		var picked []int
		for _, n := range result {
			if n%3 == mod {
				picked = append(picked, n)
			}
		}
		routes[mod] = fmt.Sprintf("%d路%d个(%s)", mod, len(picked), joinOrNone(picked))
	}

	exclusion := excludeIssueDate(in)
	return MethodResult{
		Primary:   result,
		Secondary: rankSecondary(long, exclusion.Excluded),
		Rationale: fmt.Sprintf("近%d期除3余数分布统计，前三常见模式：%s。本次采用%s分布（出现%d次）。实际选号：%s。%s",
			len(long), topPatterns(ranked, formatTriple), formatTriple(bestPattern.Pattern), bestPattern.Count,
			strings.Join(routes, "、"), exclusion.Rationale),
	}, nil
}

// residueNumbers 除3余 mod 的号码
func residueNumbers(mod int) []int {
	var nums []int
	for _, n := range stats.Domain(database.PrimaryMax) {
		if n%3 == mod {
			nums = append(nums, n)
		}
	}
	return nums
}

// hotColdWarm 方法5：热冷温码法
// 50期频率分层，按近10期热码/冷码命中率调整热温冷比例
func hotColdWarm(in Input) (MethodResult, error) {
	mid := stats.Recent(in.Records, windowMid)
	freq := stats.Frequency(mid, stats.Primary)
	tiers := stats.Classify(freq, hotThreshold, coldThreshold)

	sortedHot := stats.SortNumbersByFrequency(tiers.Hot, freq)
	sortedWarm := stats.SortNumbersByFrequency(tiers.Warm, freq)
	sortedCold := stats.SortNumbersByFrequency(tiers.Cold, freq)

	hotCount, warmCount, coldCount, trend := recentTrend(stats.Recent(in.Records, windowRecent), tiers)

	rng := in.Rng
	var selected []int
	if hotCount > 0 && len(sortedHot) > 0 {
		weights := make([]float64, len(sortedHot))
		for i, n := range sortedHot {
			weights[i] = float64(max(1, freq[n]))
		}
		selected = append(selected, stats.WeightedSample(rng, sortedHot, weights, min(hotCount, len(sortedHot)))...)
	}

	if availWarm := stats.Without(sortedWarm, selected); warmCount > 0 && len(availWarm) > 0 {
		weights := make([]float64, len(availWarm))
		for i, n := range availWarm {
			weights[i] = float64(max(1, freq[n]))
		}
		selected = append(selected, stats.WeightedSample(rng, availWarm, weights, min(warmCount, len(availWarm)))...)
	}

	if availCold := stats.Without(sortedCold, selected); coldCount > 0 && len(availCold) > 0 {
		maxColdFreq := 0
		for _, n := range availCold {
			maxColdFreq = max(maxColdFreq, freq[n])
		}
		weights := make([]float64, len(availCold))
		for i, n := range availCold {
			weights[i] = float64(max(1, maxColdFreq-freq[n]+2))
		}
		selected = append(selected, stats.WeightedSample(rng, availCold, weights, min(coldCount, len(availCold)))...)
	}

	overall := stats.Frequency(stats.Recent(in.Records, windowLong), stats.Primary)
	result := stats.FillPrimarySet(rng, selected, overall)

	exclusion := excludeMonth(in)
	return MethodResult{
		Primary:   result,
		Secondary: rankSecondary(mid, exclusion.Excluded),
		Rationale: fmt.Sprintf("近%d期号码分类：热码%d个(出现>=%d次)、温码%d个、冷码%d个(<=%d次)。走势判断：%s，目标比例%d热+%d温+%d冷。实际选号：热码(%s)、温码(%s)、冷码(%s)。%s",
			len(mid), len(tiers.Hot), hotThreshold, len(tiers.Warm), len(tiers.Cold), coldThreshold,
			trend, hotCount, warmCount, coldCount,
			joinOrNone(intersect(result, tiers.Hot)), joinOrNone(intersect(result, tiers.Warm)), joinOrNone(intersect(result, tiers.Cold)),
			exclusion.Rationale),
	}, nil
}

// recentTrend 根据近期热码/冷码命中率给出热温冷选号比例
func recentTrend(recent []database.DrawRecord, tiers stats.Classification) (hot, warm, cold int, desc string) {
	hotHits, coldHits, total := 0, 0, 0
	for _, r := range recent {
		for _, n := range r.Primary {
			total++
			if stats.Contains(tiers.Hot, n) {
				hotHits++
			}
			if stats.Contains(tiers.Cold, n) {
				coldHits++
			}
		}
	}

	var hotRate, coldRate float64
	if total > 0 {
		hotRate = float64(hotHits) / float64(total)
		coldRate = float64(coldHits) / float64(total)
	}

	switch {
	case hotRate > trendHotRate:
		return 3, 2, 1, "热码活跃期，增加热码比重"
	case coldRate > trendColdRate:
		return 1, 2, 3, "冷码回补期，增加冷码比重"
	default:
		return 2, 2, 2, "均衡期，标准比例选号"
	}
}

// sizeParity 方法6：大小奇偶法
// 由100期常见大小比与奇偶比解出小奇/小偶/大奇/大偶四类的选号个数
func sizeParity(in Input) (MethodResult, error) {
	long := stats.Recent(in.Records, windowLong)
	overall := stats.Frequency(long, stats.Primary)

	magnitudes := make([][2]int, len(long))
	parities := make([][2]int, len(long))
	for i, r := range long {
		magnitudes[i] = stats.MagnitudeRatio(r.Primary, database.HighThreshold)
		parities[i] = stats.ParityRatio(r.Primary)
	}
	bestSize := stats.RankPatterns(magnitudes)[0].Pattern
	bestParity := stats.RankPatterns(parities)[0].Pattern

	counts := solveCategories(bestSize[0], bestSize[1], bestParity[0], bestParity[1])
	categories := sizeParityCategories()

	var selected []int
	for i, numbers := range categories {
		if counts[i] <= 0 {
			continue
		}
		freq := stats.FrequencyOf(long, numbers)
		available := stats.Without(numbers, selected)
		weights := make([]float64, len(available))
		for j, n := range available {
			weights[j] = float64(max(1, freq[n]+1))
		}
		if len(available) >= counts[i] {
			selected = append(selected, stats.WeightedSample(in.Rng, available, weights, counts[i])...)
		} else {
			selected = append(selected, available...)
		}
	}
	result := stats.FillPrimarySet(in.Rng, selected, overall)

	labels := [4]string{"小奇", "小偶", "大奇", "大偶"}
	parts := make([]string, 4)
	for i, numbers := range categories {
		picked := intersect(result, numbers)
		parts[i] = fmt.Sprintf("%s%d个(%s)", labels[i], len(picked), joinOrNone(picked))
	}

	exclusion := excludeTailPlusOne(in)
	return MethodResult{
		Primary:   result,
		Secondary: rankSecondary(long, exclusion.Excluded),
		Rationale: fmt.Sprintf("近%d期大小比目标%d:%d，奇偶比目标%d:%d。四分类选号：%s。%s",
			len(long), bestSize[0], bestSize[1], bestParity[0], bestParity[1],
			strings.Join(parts, "、"), exclusion.Rationale),
	}, nil
}

// solveCategories 由大小比与奇偶比求 [小奇, 小偶, 大奇, 大偶] 个数，取可行区间中点
func solveCategories(small, big, odd, even int) [4]int {
	minSmallOdd := max(0, odd-big)
	maxSmallOdd := min(small, odd)
	smallOdd := roundInt(float64(minSmallOdd+maxSmallOdd) / 2)
	smallEven := small - smallOdd
	bigOdd := odd - smallOdd
	bigEven := big - bigOdd
	return [4]int{max(0, smallOdd), max(0, smallEven), max(0, bigOdd), max(0, bigEven)}
}

// sizeParityCategories 小奇、小偶、大奇、大偶号码表
func sizeParityCategories() [4][]int {
	var c [4][]int
	for _, n := range stats.Domain(database.PrimaryMax) {
		idx := 0
		if n >= database.HighThreshold {
			idx = 2
		}
		if n%2 == 0 {
			idx++
		}
		c[idx] = append(c[idx], n)
	}
	return c
}

// rankSecondary 排除指定蓝球后按窗口内频率降序取前5
func rankSecondary(records []database.DrawRecord, excluded []int) []int {
	candidates := stats.Without(stats.Domain(database.SecondaryMax), excluded)
	if len(candidates) == 0 {
		candidates = stats.Domain(database.SecondaryMax)
	}
	ranked := stats.SortNumbersByFrequency(candidates, stats.Frequency(records, stats.Secondary))
	if len(ranked) > secondaryPerPick {
		ranked = ranked[:secondaryPerPick]
	}
	return ranked
}

func splitParity(nums []int) (odd, even []int) {
	for _, n := range nums {
		if n%2 == 1 {
			odd = append(odd, n)
		} else {
			even = append(even, n)
		}
	}
	return odd, even
}

func intersect(nums, set []int) []int {
	var out []int
	for _, n := range nums {
		if stats.Contains(set, n) {
			out = append(out, n)
		}
	}
	return out
}

func meanSum(records []database.DrawRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	total := 0
	for _, r := range records {
		total += r.Sum
	}
	return float64(total) / float64(len(records))
}

func meanCount(freq stats.FrequencyMap) float64 {
	if len(freq) == 0 {
		return 0
	}
	total := 0
	for _, c := range freq {
		total += c
	}
	return float64(total) / float64(len(freq))
}

func roundInt(f float64) int {
	return int(math.Round(f))
}

func formatTriple(p [3]int) string {
	return fmt.Sprintf("%d-%d-%d", p[0], p[1], p[2])
}

// topPatterns 前三常见形态描述，如 "2-2-2(18次)"
func topPatterns[K comparable](ranked []stats.PatternCount[K], format func(K) string) string {
	n := min(3, len(ranked))
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("%s(%d次)", format(ranked[i].Pattern), ranked[i].Count)
	}
	return strings.Join(parts, "、")
}

func joinInts(nums []int, sep string) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, sep)
}

func joinOrNone(nums []int) string {
	if len(nums) == 0 {
		return "无"
	}
	return joinInts(nums, ",")
}
