package stats

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"ssq-predictor/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draw(t *testing.T, i int, primary []int, secondary int) database.DrawRecord {
	t.Helper()
	r, err := database.NewDrawRecord(fmt.Sprintf("2024%03d", i), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), primary, secondary)
	require.NoError(t, err)
	return r
}

func TestFrequencyZeroInitialises(t *testing.T) {
	records := []database.DrawRecord{
		draw(t, 1, []int{1, 2, 3, 4, 5, 6}, 1),
		draw(t, 2, []int{1, 2, 3, 4, 5, 7}, 1),
	}

	primary := Frequency(records, Primary)
	require.Len(t, primary, database.PrimaryMax)
	assert.Equal(t, 2, primary[1])
	assert.Equal(t, 1, primary[7])
	assert.Equal(t, 0, primary[33])

	secondary := Frequency(records, Secondary)
	require.Len(t, secondary, database.SecondaryMax)
	assert.Equal(t, 2, secondary[1])
	assert.Equal(t, 0, secondary[16])
}

func TestSortByFrequencyBreaksTiesAscending(t *testing.T) {
	freq := FrequencyMap{1: 2, 2: 5, 3: 2, 4: 0, 5: 5}
	assert.Equal(t, []int{2, 5, 1, 3, 4}, SortByFrequency(freq))
}

func TestClassifyPartitionsDomain(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	freq := make(FrequencyMap)
	for _, n := range Domain(database.PrimaryMax) {
		freq[n] = rng.Intn(20)
	}

	for _, thresholds := range [][2]int{{10, 4}, {8, 4}, {0, 0}, {100, -1}} {
		c := Classify(freq, thresholds[0], thresholds[1])
		seen := make(map[int]int)
		for _, group := range [][]int{c.Hot, c.Warm, c.Cold} {
			for _, n := range group {
				seen[n]++
			}
		}
		require.Len(t, seen, database.PrimaryMax)
		for n, times := range seen {
			assert.Equal(t, 1, times, "number %d classified %d times", n, times)
		}
	}
}

func TestClassifyThresholds(t *testing.T) {
	freq := FrequencyMap{1: 10, 2: 9, 3: 5, 4: 4, 5: 0}
	c := Classify(freq, 10, 4)
	assert.Equal(t, []int{1}, c.Hot)
	assert.Equal(t, []int{2, 3}, c.Warm)
	assert.Equal(t, []int{4, 5}, c.Cold)
}

func TestWeightedSampleForcedSelection(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		got := WeightedSample(rng, []int{5, 10}, []float64{1, 1}, 2)
		assert.Equal(t, []int{5, 10}, got)
	}
}

func TestWeightedSampleReproducible(t *testing.T) {
	candidates := Domain(database.PrimaryMax)
	weights := make([]float64, len(candidates))
	for i := range weights {
		weights[i] = float64(i % 7)
	}

	a := WeightedSample(rand.New(rand.NewSource(42)), candidates, weights, 6)
	b := WeightedSample(rand.New(rand.NewSource(42)), candidates, weights, 6)
	assert.Equal(t, a, b)
	assert.Len(t, a, 6)
	assert.IsIncreasing(t, a)
}

func TestWeightedSampleFloorKeepsZeroWeightSelectable(t *testing.T) {
	got := WeightedSample(rand.New(rand.NewSource(1)), []int{1, 2, 3}, []float64{0, 0, 0}, 3)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestWeightedSampleMoreThanAvailable(t *testing.T) {
	got := WeightedSample(rand.New(rand.NewSource(1)), []int{4, 2}, []float64{3, 1}, 5)
	assert.Equal(t, []int{2, 4}, got)
}

func TestRandomPick(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	items := []int{1, 2, 3, 4, 5}

	got := RandomPick(rng, items, 3)
	assert.Len(t, got, 3)
	for _, n := range got {
		assert.Contains(t, items, n)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, items, "input untouched")
	assert.Len(t, RandomPick(rng, items, 9), 5)
	assert.Empty(t, RandomPick(rng, nil, 2))
}

func TestDistributions(t *testing.T) {
	assert.Equal(t, [3]int{3, 2, 1}, ZoneDistribution([]int{1, 5, 10, 15, 20, 30}))
	assert.Equal(t, [3]int{2, 2, 2}, ZoneDistribution([]int{11, 1, 12, 22, 23, 33}))
	assert.Equal(t, [3]int{2, 2, 2}, ResidueDistribution([]int{3, 6, 1, 4, 2, 5}))
	assert.Equal(t, [2]int{3, 3}, ParityRatio([]int{1, 2, 3, 4, 5, 6}))
	assert.Equal(t, [2]int{2, 4}, MagnitudeRatio([]int{1, 16, 17, 18, 30, 33}, 17))
}

func TestLastDigit(t *testing.T) {
	assert.Equal(t, 8, LastDigit(2+6))
	assert.Equal(t, 2, LastDigit(12))
	assert.Equal(t, 5, LastDigit(2-7))
	assert.Equal(t, 0, LastDigit(10))
}

func TestValidatePrimarySet(t *testing.T) {
	got := ValidatePrimarySet([]int{40, 3, 3, 0, 12, 1, 33, 7, 8, 2})
	assert.Equal(t, []int{1, 2, 3, 7, 8, 12}, got)

	inputs := [][]int{
		{5, 5, 5},
		{33, 32, 31, 30, 29, 28, 27},
		{-1, 34, 17},
		nil,
	}
	for _, in := range inputs {
		once := ValidatePrimarySet(in)
		assert.Equal(t, once, ValidatePrimarySet(once))
	}
}

func TestFillPrimarySet(t *testing.T) {
	freq := make(FrequencyMap)
	for _, n := range Domain(database.PrimaryMax) {
		freq[n] = n
	}

	t.Run("idempotent on valid set", func(t *testing.T) {
		valid := []int{2, 9, 14, 21, 28, 33}
		assert.Equal(t, valid, FillPrimarySet(rand.New(rand.NewSource(1)), valid, freq))
	})

	t.Run("fills from top ten", func(t *testing.T) {
		for seed := int64(0); seed < 10; seed++ {
			got := FillPrimarySet(rand.New(rand.NewSource(seed)), []int{1, 2}, freq)
			require.Len(t, got, 6)
			assert.IsIncreasing(t, got)
			assert.Equal(t, []int{1, 2}, got[:2])
			for _, n := range got[2:] {
				assert.GreaterOrEqual(t, n, 24, "filled number %d outside top ten", n)
			}
		}
	})
}

func TestValidateSecondary(t *testing.T) {
	assert.Equal(t, 1, ValidateSecondary(-3))
	assert.Equal(t, 16, ValidateSecondary(40))
	assert.Equal(t, 8, ValidateSecondary(7.6))
	assert.Equal(t, 7, ValidateSecondary(7.2))
}

func TestRecent(t *testing.T) {
	var records []database.DrawRecord
	for i := 1; i <= 5; i++ {
		records = append(records, draw(t, i, []int{1, 2, 3, 4, 5, 6}, i))
	}
	recent := Recent(records, 2)
	require.Len(t, recent, 2)
	assert.Equal(t, 4, recent[0].Secondary)
	assert.Equal(t, 5, recent[1].Secondary)
	assert.Len(t, Recent(records, 50), 5)
}

func TestRankPatterns(t *testing.T) {
	ranked := RankPatterns([]string{"b", "a", "a", "b", "c"})
	require.Len(t, ranked, 3)
	assert.Equal(t, "b", ranked[0].Pattern, "tie keeps first occurrence")
	assert.Equal(t, 2, ranked[0].Count)
	assert.Equal(t, "a", ranked[1].Pattern)
	assert.Equal(t, "c", ranked[2].Pattern)
}

func TestSummarize(t *testing.T) {
	records := []database.DrawRecord{
		draw(t, 1, []int{1, 2, 3, 4, 5, 6}, 1),
		draw(t, 2, []int{1, 2, 3, 17, 18, 19}, 2),
		draw(t, 3, []int{1, 20, 21, 22, 23, 24}, 2),
	}

	s := Summarize(records, 2)
	assert.Equal(t, 2, s.Window)
	assert.Equal(t, "2024002", s.FirstIssue)
	assert.Equal(t, "2024003", s.LastIssue)
	assert.Equal(t, 1, s.PrimaryRanking[0])
	assert.Equal(t, 2, s.SecondaryRanking[0])
	assert.Equal(t, 7, s.OddTotal)
	assert.Equal(t, 5, s.EvenTotal)
	assert.Equal(t, 4, s.SmallTotal)
	assert.Equal(t, 8, s.BigTotal)
	assert.Equal(t, 60, s.SumMin)
	assert.Equal(t, 111, s.SumMax)
	assert.Len(t, s.Hot, 6)
	assert.Len(t, s.Cold, 6)

	empty := Summarize(nil, 30)
	assert.Zero(t, empty.Window)
	assert.Empty(t, empty.Hot)
}
