package stats

import "sort"

// PatternCount 形态及其出现次数
type PatternCount[K comparable] struct {
	Pattern K
	Count   int
}

// RankPatterns 统计形态出现次数并按次数降序排列，次数相同按首次出现顺序
func RankPatterns[K comparable](patterns []K) []PatternCount[K] {
	index := make(map[K]int)
	var ranked []PatternCount[K]
	for _, p := range patterns {
		if i, ok := index[p]; ok {
			ranked[i].Count++
			continue
		}
		index[p] = len(ranked)
		ranked = append(ranked, PatternCount[K]{Pattern: p, Count: 1})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	return ranked
}
