package database

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// 开奖源日期格式
var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"2006-1-2",
}

// ParseLine 解析一行开奖数据：期号 日期 红1..红6 蓝 [其他字段]
func ParseLine(line string) (DrawRecord, error) {
	fields := strings.Fields(line)
	if len(fields) < 9 {
		return DrawRecord{}, fmt.Errorf("%w: need at least 9 fields, got %d", ErrInvalidRecord, len(fields))
	}

	drawDate, err := parseDate(fields[1])
	if err != nil {
		return DrawRecord{}, err
	}

	primary := make([]int, PrimaryCount)
	for i := 0; i < PrimaryCount; i++ {
		n, err := strconv.Atoi(fields[2+i])
		if err != nil {
			return DrawRecord{}, fmt.Errorf("%w: bad primary number %q", ErrInvalidRecord, fields[2+i])
		}
		primary[i] = n
	}

	secondary, err := strconv.Atoi(fields[8])
	if err != nil {
		return DrawRecord{}, fmt.Errorf("%w: bad secondary number %q", ErrInvalidRecord, fields[8])
	}

	return NewDrawRecord(fields[0], drawDate, primary, secondary)
}

// parseDate 尝试多种日期格式
func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unable to parse date %q", ErrInvalidRecord, s)
}

// ParseFeed 解析整份开奖数据，跳过非法行，结果按期号升序且期号唯一
func ParseFeed(r io.Reader) ([]DrawRecord, int, error) {
	scanner := bufio.NewScanner(r)
	byIssue := make(map[string]DrawRecord)
	skipped := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		record, err := ParseLine(line)
		if err != nil {
			skipped++
			continue
		}
		if _, exists := byIssue[record.Issue]; !exists {
			byIssue[record.Issue] = record
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("failed to read feed: %w", err)
	}

	records := make([]DrawRecord, 0, len(byIssue))
	for _, record := range byIssue {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Issue < records[j].Issue
	})
	return records, skipped, nil
}
