package predictor

import (
	"fmt"
	"strconv"
	"time"

	"ssq-predictor/internal/database"
)

// 开奖时间：每周二、四、日 21:15
const (
	drawHour   = 21
	drawMinute = 15

	missedSyncDays = 7 // 超过该天数的间隔视为休市
)

// DrawSchedule 下一期开奖信息
type DrawSchedule struct {
	Issue string
	Date  time.Time
}

// Weekday 中文星期
func (d DrawSchedule) Weekday() string {
	return [...]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}[d.Date.Weekday()]
}

func isDrawDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Sunday, time.Tuesday, time.Thursday:
		return true
	}
	return false
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// nextDrawDay 严格晚于 day 的第一个开奖日
func nextDrawDay(day time.Time) time.Time {
	next := day.AddDate(0, 0, 1)
	for !isDrawDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// drawDaysBetween (from, to] 区间内的开奖日数
func drawDaysBetween(from, to time.Time) int {
	count := 0
	for d := nextDrawDay(from); !d.After(to); d = nextDrawDay(d) {
		count++
	}
	return count
}

// NextDraw 计算下一期期号与开奖日期
// 开奖日 21:15 之前以当天为目标；目标日期必须晚于最新一期的开奖日期。
// 期号通常为最新期号加一；与最新一期相隔不超过一周时按间隔的开奖日数递增以补上漏同步的期，
// 更长的间隔视为休市，仍只加一。跨年时按当年开奖日数重新编号。
func NextDraw(now time.Time, latest *database.DrawRecord) DrawSchedule {
	today := dayStart(now)
	cutoff := time.Date(today.Year(), today.Month(), today.Day(), drawHour, drawMinute, 0, 0, now.Location())

	target := today
	if !isDrawDay(today) || !now.Before(cutoff) {
		target = nextDrawDay(today)
	}

	if latest == nil {
		return DrawSchedule{Issue: firstIssueOfYear(target), Date: target}
	}

	latestDay := dayStart(latest.DrawDate.In(now.Location()))
	if !target.After(latestDay) {
		target = nextDrawDay(latestDay)
	}

	year, seq, err := splitIssue(latest.Issue)
	if err != nil || year != target.Year() {
		return DrawSchedule{Issue: firstIssueOfYear(target), Date: target}
	}
	step := 1
	if !target.After(latestDay.AddDate(0, 0, missedSyncDays)) {
		step = drawDaysBetween(latestDay, target)
	}
	return DrawSchedule{
		Issue: fmt.Sprintf("%04d%03d", year, seq+step),
		Date:  target,
	}
}

// firstIssueOfYear 按当年已开奖日数推算期号
func firstIssueOfYear(target time.Time) string {
	newYearEve := time.Date(target.Year(), 1, 0, 0, 0, 0, 0, target.Location())
	return fmt.Sprintf("%04d%03d", target.Year(), drawDaysBetween(newYearEve, target))
}

// splitIssue 拆分 YYYYNNN 期号
func splitIssue(issue string) (year, seq int, err error) {
	if len(issue) != 7 {
		return 0, 0, fmt.Errorf("unexpected issue format: %s", issue)
	}
	if year, err = strconv.Atoi(issue[:4]); err != nil {
		return 0, 0, fmt.Errorf("failed to parse issue year %s: %w", issue, err)
	}
	if seq, err = strconv.Atoi(issue[4:]); err != nil {
		return 0, 0, fmt.Errorf("failed to parse issue sequence %s: %w", issue, err)
	}
	return year, seq, nil
}
