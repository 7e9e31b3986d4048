package database

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	record, err := ParseLine("2024001 2024-01-02 33 05 12 01 20 18 07 387283966 1")
	require.NoError(t, err)

	assert.Equal(t, "2024001", record.Issue)
	assert.Equal(t, []int{1, 5, 12, 18, 20, 33}, record.Primary)
	assert.Equal(t, 7, record.Secondary)
	assert.Equal(t, 89, record.Sum)
	assert.Equal(t, 3, record.OddCount)
	assert.Equal(t, 3, record.HighCount)
	assert.Equal(t, 2, record.DrawDate.Day())
	assert.Equal(t, time.January, record.DrawDate.Month())
}

func TestParseLineRejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"too few fields", "2024001 2024-01-02 1 2 3 4 5 6"},
		{"bad date", "2024001 yesterday 1 2 3 4 5 6 7"},
		{"non numeric", "2024001 2024-01-02 1 2 x 4 5 6 7"},
		{"primary out of range", "2024001 2024-01-02 1 2 3 4 5 34 7"},
		{"primary zero", "2024001 2024-01-02 0 2 3 4 5 6 7"},
		{"duplicate primary", "2024001 2024-01-02 1 2 3 4 6 6 7"},
		{"secondary out of range", "2024001 2024-01-02 1 2 3 4 5 6 17"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(tt.line)
			assert.ErrorIs(t, err, ErrInvalidRecord)
		})
	}
}

func TestParseFeed(t *testing.T) {
	feed := strings.Join([]string{
		"2024003 2024-01-07 1 2 3 4 5 6 9",
		"",
		"garbage line",
		"2024001 2024-01-02 7 8 9 10 11 12 1",
		"2024002 2024-01-04 13 14 15 16 17 18 2",
		"2024001 2024-01-02 20 21 22 23 24 25 3",
	}, "\n")

	records, skipped, err := ParseFeed(strings.NewReader(feed))
	require.NoError(t, err)

	assert.Equal(t, 1, skipped)
	require.Len(t, records, 3)
	assert.Equal(t, "2024001", records[0].Issue)
	assert.Equal(t, []int{7, 8, 9, 10, 11, 12}, records[0].Primary, "first occurrence wins")
	assert.Equal(t, "2024002", records[1].Issue)
	assert.Equal(t, "2024003", records[2].Issue)
}

func TestParsedRecordsAreValid(t *testing.T) {
	lines := []string{
		"2023100 2023-08-31 32 1 17 9 26 4 16",
		"2023101 2023-09-03 6 33 21 15 11 2 1",
	}
	for _, line := range lines {
		record, err := ParseLine(line)
		require.NoError(t, err)
		require.Len(t, record.Primary, PrimaryCount)
		for i, n := range record.Primary {
			assert.GreaterOrEqual(t, n, 1)
			assert.LessOrEqual(t, n, PrimaryMax)
			if i > 0 {
				assert.Less(t, record.Primary[i-1], n)
			}
		}
		assert.GreaterOrEqual(t, record.Secondary, 1)
		assert.LessOrEqual(t, record.Secondary, SecondaryMax)
	}
}

func TestComboKey(t *testing.T) {
	assert.Equal(t, "01,02,03,04,05,06|07", ComboKey([]int{6, 5, 4, 3, 2, 1}, 7))

	tuple := PredictionTuple{Primary: []int{3, 1, 2, 6, 5, 4}, Secondary: 7}
	record, err := NewDrawRecord("1", time.Time{}, []int{1, 2, 3, 4, 5, 6}, 7)
	require.NoError(t, err)
	assert.Equal(t, record.Key(), tuple.Key())
}
