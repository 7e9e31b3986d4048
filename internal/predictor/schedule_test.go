package predictor

import (
	"testing"
	"time"

	"ssq-predictor/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.Local)
}

func TestNextDraw(t *testing.T) {
	record := func(issue string, date time.Time) *database.DrawRecord {
		r, err := database.NewDrawRecord(issue, date, []int{1, 2, 3, 4, 5, 6}, 1)
		require.NoError(t, err)
		return &r
	}

	tests := []struct {
		name      string
		now       time.Time
		latest    *database.DrawRecord
		wantIssue string
		wantDate  time.Time
	}{
		{
			name:      "draw day before cutoff",
			now:       at(2024, 3, 3, 20, 0),
			latest:    record("2024023", at(2024, 2, 29, 0, 0)),
			wantIssue: "2024024",
			wantDate:  at(2024, 3, 3, 0, 0),
		},
		{
			name:      "draw day after cutoff skips to next draw day",
			now:       at(2024, 3, 3, 21, 30),
			latest:    record("2024023", at(2024, 2, 29, 0, 0)),
			wantIssue: "2024025",
			wantDate:  at(2024, 3, 5, 0, 0),
		},
		{
			name:      "missing draw advances issue by draw days",
			now:       at(2024, 3, 5, 22, 0),
			latest:    record("2024024", at(2024, 3, 3, 0, 0)),
			wantIssue: "2024026",
			wantDate:  at(2024, 3, 7, 0, 0),
		},
		{
			name:      "missed draws within a week",
			now:       at(2024, 3, 10, 10, 0),
			latest:    record("2024024", at(2024, 3, 3, 0, 0)),
			wantIssue: "2024027",
			wantDate:  at(2024, 3, 10, 0, 0),
		},
		{
			name:      "suspension keeps issue sequential",
			now:       at(2025, 2, 5, 10, 0),
			latest:    record("2025012", at(2025, 1, 26, 0, 0)),
			wantIssue: "2025013",
			wantDate:  at(2025, 2, 6, 0, 0),
		},
		{
			name:      "target not after latest draw",
			now:       at(2024, 3, 3, 10, 0),
			latest:    record("2024024", at(2024, 3, 3, 0, 0)),
			wantIssue: "2024025",
			wantDate:  at(2024, 3, 5, 0, 0),
		},
		{
			name:      "year rollover",
			now:       at(2024, 12, 31, 22, 0),
			latest:    record("2024151", at(2024, 12, 31, 0, 0)),
			wantIssue: "2025001",
			wantDate:  at(2025, 1, 2, 0, 0),
		},
		{
			name:      "no history",
			now:       at(2024, 1, 4, 10, 0),
			wantIssue: "2024002",
			wantDate:  at(2024, 1, 4, 0, 0),
		},
		{
			name:      "unparseable issue falls back to yearly count",
			now:       at(2024, 1, 4, 10, 0),
			latest:    record("24-001", at(2024, 1, 2, 0, 0)),
			wantIssue: "2024002",
			wantDate:  at(2024, 1, 4, 0, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDraw(tt.now, tt.latest)
			assert.Equal(t, tt.wantIssue, got.Issue)
			assert.True(t, tt.wantDate.Equal(got.Date), "want %s, got %s", tt.wantDate, got.Date)
		})
	}
}

func TestDrawScheduleWeekday(t *testing.T) {
	assert.Equal(t, "周日", DrawSchedule{Date: at(2024, 3, 3, 0, 0)}.Weekday())
	assert.Equal(t, "周二", DrawSchedule{Date: at(2024, 3, 5, 0, 0)}.Weekday())
	assert.Equal(t, "周四", DrawSchedule{Date: at(2024, 3, 7, 0, 0)}.Weekday())
}

func TestDrawDaysBetween(t *testing.T) {
	// 2024-03-03 周日 到 2024-03-10 周日：周二、周四、周日
	assert.Equal(t, 3, drawDaysBetween(at(2024, 3, 3, 0, 0), at(2024, 3, 10, 0, 0)))
	assert.Equal(t, 0, drawDaysBetween(at(2024, 3, 3, 0, 0), at(2024, 3, 4, 0, 0)))
}

func TestSplitIssue(t *testing.T) {
	year, seq, err := splitIssue("2024153")
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, 153, seq)

	_, _, err = splitIssue("24153")
	assert.Error(t, err)
	_, _, err = splitIssue("2024x53")
	assert.Error(t, err)
}
