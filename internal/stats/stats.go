// Package stats 号码统计工具：频率、冷热分类、分布比例与加权抽样。
package stats

import (
	"math"
	"math/rand"
	"sort"

	"ssq-predictor/internal/database"
)

// Field 统计的号码类型
type Field int

const (
	Primary Field = iota
	Secondary
)

// Max 号码域上限
func (f Field) Max() int {
	if f == Secondary {
		return database.SecondaryMax
	}
	return database.PrimaryMax
}

// FrequencyMap 号码 -> 出现次数
type FrequencyMap map[int]int

// Domain 返回 1..max
func Domain(max int) []int {
	nums := make([]int, max)
	for i := range nums {
		nums[i] = i + 1
	}
	return nums
}

// Recent 返回最近 n 期记录（记录按期号升序）
func Recent(records []database.DrawRecord, n int) []database.DrawRecord {
	if n <= 0 || n >= len(records) {
		return records
	}
	return records[len(records)-n:]
}

// Frequency 统计窗口内各号码出现次数，未出现的号码计 0
func Frequency(records []database.DrawRecord, field Field) FrequencyMap {
	freq := make(FrequencyMap, field.Max())
	for _, n := range Domain(field.Max()) {
		freq[n] = 0
	}
	for _, r := range records {
		if field == Secondary {
			freq[r.Secondary]++
			continue
		}
		for _, n := range r.Primary {
			freq[n]++
		}
	}
	return freq
}

// FrequencyOf 统计指定号码集合在窗口内的红球出现次数
func FrequencyOf(records []database.DrawRecord, nums []int) FrequencyMap {
	freq := make(FrequencyMap, len(nums))
	for _, n := range nums {
		freq[n] = 0
	}
	for _, r := range records {
		for _, n := range r.Primary {
			if _, ok := freq[n]; ok {
				freq[n]++
			}
		}
	}
	return freq
}

// keys 升序返回频率表的号码
func (f FrequencyMap) keys() []int {
	nums := make([]int, 0, len(f))
	for n := range f {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// MaxCount 表中最大出现次数
func (f FrequencyMap) MaxCount() int {
	max := 0
	for _, c := range f {
		if c > max {
			max = c
		}
	}
	return max
}

// SortByFrequency 按出现次数降序排列号码，次数相同按号码升序
func SortByFrequency(freq FrequencyMap) []int {
	nums := freq.keys()
	sort.SliceStable(nums, func(i, j int) bool {
		return freq[nums[i]] > freq[nums[j]]
	})
	return nums
}

// SortNumbersByFrequency 按频率降序重排给定号码，次数相同保持原顺序
func SortNumbersByFrequency(nums []int, freq FrequencyMap) []int {
	out := append([]int(nil), nums...)
	sort.SliceStable(out, func(i, j int) bool {
		return freq[out[i]] > freq[out[j]]
	})
	return out
}

// Classification 冷热温分类
type Classification struct {
	Hot  []int
	Warm []int
	Cold []int
}

// Classify 次数>=hot 为热，<=cold 为冷，其余为温；每个号码只属于一类
func Classify(freq FrequencyMap, hot, cold int) Classification {
	var c Classification
	for _, n := range freq.keys() {
		count := freq[n]
		switch {
		case count >= hot:
			c.Hot = append(c.Hot, n)
		case count <= cold:
			c.Cold = append(c.Cold, n)
		default:
			c.Warm = append(c.Warm, n)
		}
	}
	return c
}

// WeightedSample 按权重不放回抽取 k 个号码，权重下限为 1，结果升序
func WeightedSample(rng *rand.Rand, candidates []int, weights []float64, k int) []int {
	type item struct {
		num    int
		weight float64
	}
	available := make([]item, len(candidates))
	for i, n := range candidates {
		w := 1.0
		if i < len(weights) && weights[i] > 1 {
			w = weights[i]
		}
		available[i] = item{num: n, weight: w}
	}

	result := make([]int, 0, k)
	for len(result) < k && len(available) > 0 {
		total := 0.0
		for _, a := range available {
			total += a.weight
		}

		r := rng.Float64() * total
		idx := len(available) - 1
		for i, a := range available {
			r -= a.weight
			if r <= 0 {
				idx = i
				break
			}
		}

		result = append(result, available[idx].num)
		available = append(available[:idx], available[idx+1:]...)
	}

	sort.Ints(result)
	return result
}

// RandomPick 随机取 k 个不重复元素（顺序随机）
func RandomPick(rng *rand.Rand, items []int, k int) []int {
	shuffled := append([]int(nil), items...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if k > len(shuffled) {
		k = len(shuffled)
	}
	if k < 0 {
		k = 0
	}
	return shuffled[:k]
}

// Zone 三区划分：1-11 为 0 区，12-22 为 1 区，23-33 为 2 区
func Zone(n int) int {
	switch {
	case n <= 11:
		return 0
	case n <= 22:
		return 1
	default:
		return 2
	}
}

// ZoneDistribution 三区个数
func ZoneDistribution(nums []int) [3]int {
	var d [3]int
	for _, n := range nums {
		d[Zone(n)]++
	}
	return d
}

// ResidueDistribution 除 3 余 0/1/2 的个数
func ResidueDistribution(nums []int) [3]int {
	var d [3]int
	for _, n := range nums {
		d[n%3]++
	}
	return d
}

// ParityRatio [奇数个数, 偶数个数]
func ParityRatio(nums []int) [2]int {
	odd := 0
	for _, n := range nums {
		if n%2 == 1 {
			odd++
		}
	}
	return [2]int{odd, len(nums) - odd}
}

// MagnitudeRatio [小号个数, 大号个数]，大号为 >= threshold
func MagnitudeRatio(nums []int, threshold int) [2]int {
	big := 0
	for _, n := range nums {
		if n >= threshold {
			big++
		}
	}
	return [2]int{len(nums) - big, big}
}

// Sum 号码和值
func Sum(nums []int) int {
	total := 0
	for _, n := range nums {
		total += n
	}
	return total
}

// LastDigit 尾数
func LastDigit(n int) int {
	if n < 0 {
		n = -n
	}
	return n % 10
}

// Contains 判断号码是否在集合中
func Contains(nums []int, n int) bool {
	for _, v := range nums {
		if v == n {
			return true
		}
	}
	return false
}

// Without 返回不在 exclude 中的号码，保持顺序
func Without(nums, exclude []int) []int {
	out := make([]int, 0, len(nums))
	for _, n := range nums {
		if !Contains(exclude, n) {
			out = append(out, n)
		}
	}
	return out
}

// ValidatePrimarySet 去重、过滤到 1..33、升序并截断到 6 个
func ValidatePrimarySet(nums []int) []int {
	seen := make(map[int]bool, len(nums))
	out := make([]int, 0, len(nums))
	for _, n := range nums {
		if n < 1 || n > database.PrimaryMax || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Ints(out)
	if len(out) > database.PrimaryCount {
		out = out[:database.PrimaryCount]
	}
	return out
}

// FillPrimarySet 不足 6 个时从频率前 10 的剩余号码中随机补足，结果升序
func FillPrimarySet(rng *rand.Rand, current []int, freq FrequencyMap) []int {
	result := ValidatePrimarySet(current)
	if len(result) >= database.PrimaryCount {
		return result
	}

	candidates := Without(SortByFrequency(freq), result)
	for len(result) < database.PrimaryCount && len(candidates) > 0 {
		pickRange := len(candidates)
		if pickRange > 10 {
			pickRange = 10
		}
		idx := rng.Intn(pickRange)
		result = append(result, candidates[idx])
		candidates = append(candidates[:idx], candidates[idx+1:]...)
	}

	sort.Ints(result)
	return result
}

// ValidateSecondary 四舍五入并限制到 1..16
func ValidateSecondary(n float64) int {
	v := int(math.Round(n))
	if v < 1 {
		return 1
	}
	if v > database.SecondaryMax {
		return database.SecondaryMax
	}
	return v
}
