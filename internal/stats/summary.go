package stats

import "ssq-predictor/internal/database"

// summaryTierSize 概览中热号/冷号各展示的个数
const summaryTierSize = 6

// WindowSummary 最近若干期的号码概览
type WindowSummary struct {
	Window           int
	FirstIssue       string
	LastIssue        string
	PrimaryFreq      FrequencyMap
	PrimaryRanking   []int
	SecondaryFreq    FrequencyMap
	SecondaryRanking []int
	Hot              []int // 出现最多的红球
	Cold             []int // 出现最少的红球
	OddTotal         int
	EvenTotal        int
	SmallTotal       int
	BigTotal         int
	SumMean          float64
	SumMin           int
	SumMax           int
}

// Summarize 统计最近 window 期的频率、奇偶与大小总数及和值范围
func Summarize(records []database.DrawRecord, window int) WindowSummary {
	recent := Recent(records, window)
	s := WindowSummary{
		Window:        len(recent),
		PrimaryFreq:   Frequency(recent, Primary),
		SecondaryFreq: Frequency(recent, Secondary),
	}
	s.PrimaryRanking = SortByFrequency(s.PrimaryFreq)
	s.SecondaryRanking = SortByFrequency(s.SecondaryFreq)

	if len(recent) == 0 {
		return s
	}
	s.FirstIssue = recent[0].Issue
	s.LastIssue = recent[len(recent)-1].Issue

	s.Hot = append([]int(nil), s.PrimaryRanking[:summaryTierSize]...)
	tail := s.PrimaryRanking[len(s.PrimaryRanking)-summaryTierSize:]
	for i := len(tail) - 1; i >= 0; i-- {
		s.Cold = append(s.Cold, tail[i])
	}

	total := 0
	s.SumMin = recent[0].Sum
	s.SumMax = recent[0].Sum
	for _, r := range recent {
		parity := ParityRatio(r.Primary)
		magnitude := MagnitudeRatio(r.Primary, database.HighThreshold)
		s.OddTotal += parity[0]
		s.EvenTotal += parity[1]
		s.SmallTotal += magnitude[0]
		s.BigTotal += magnitude[1]

		total += r.Sum
		if r.Sum < s.SumMin {
			s.SumMin = r.Sum
		}
		if r.Sum > s.SumMax {
			s.SumMax = r.Sum
		}
	}
	s.SumMean = float64(total) / float64(len(recent))
	return s
}
