package database

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// 号码域常量
const (
	PrimaryMax    = 33 // 红球最大号码
	SecondaryMax  = 16 // 蓝球最大号码
	PrimaryCount  = 6  // 每期红球个数
	HighThreshold = 17 // 红球大号下限（含）
	DateLayout    = "2006-01-02"
)

var (
	// ErrInvalidRecord 开奖记录不合法
	ErrInvalidRecord = errors.New("invalid draw record")
	// ErrRunNotFound 预测批次不存在
	ErrRunNotFound = errors.New("prediction run not found")
)

// DrawRecord 开奖记录，入库后不可变
type DrawRecord struct {
	Issue     string    `json:"issue"`
	DrawDate  time.Time `json:"draw_date"`
	Primary   []int     `json:"primary"` // 升序
	Secondary int       `json:"secondary"`
	Sum       int       `json:"sum"`
	OddCount  int       `json:"odd_count"`
	HighCount int       `json:"high_count"`
}

// NewDrawRecord 校验号码并计算派生字段
func NewDrawRecord(issue string, drawDate time.Time, primary []int, secondary int) (DrawRecord, error) {
	if issue == "" {
		return DrawRecord{}, fmt.Errorf("%w: empty issue", ErrInvalidRecord)
	}
	if len(primary) != PrimaryCount {
		return DrawRecord{}, fmt.Errorf("%w: need %d primary numbers, got %d", ErrInvalidRecord, PrimaryCount, len(primary))
	}

	sorted := append([]int(nil), primary...)
	sort.Ints(sorted)
	for i, n := range sorted {
		if n < 1 || n > PrimaryMax {
			return DrawRecord{}, fmt.Errorf("%w: primary number %d out of range", ErrInvalidRecord, n)
		}
		if i > 0 && sorted[i-1] == n {
			return DrawRecord{}, fmt.Errorf("%w: duplicate primary number %d", ErrInvalidRecord, n)
		}
	}
	if secondary < 1 || secondary > SecondaryMax {
		return DrawRecord{}, fmt.Errorf("%w: secondary number %d out of range", ErrInvalidRecord, secondary)
	}

	record := DrawRecord{
		Issue:     issue,
		DrawDate:  drawDate,
		Primary:   sorted,
		Secondary: secondary,
	}
	for _, n := range sorted {
		record.Sum += n
		if n%2 == 1 {
			record.OddCount++
		}
		if n >= HighThreshold {
			record.HighCount++
		}
	}
	return record, nil
}

// Key 号码组合键，用于历史碰撞检查
func (r DrawRecord) Key() string {
	return ComboKey(r.Primary, r.Secondary)
}

// PredictionTuple 单组预测号码
type PredictionTuple struct {
	Primary    []int  `json:"primary"`
	Secondary  int    `json:"secondary"`
	Confidence int    `json:"confidence"`
	Strategy   string `json:"strategy"`
}

// Key 号码组合键（红球排序后）
func (t PredictionTuple) Key() string {
	return ComboKey(t.Primary, t.Secondary)
}

// PredictionRun 一次预测批次，创建后不再修改
type PredictionRun struct {
	ID          string            `json:"id"`
	TargetIssue string            `json:"target_issue"`
	TargetDate  time.Time         `json:"target_date"`
	Tuples      []PredictionTuple `json:"tuples"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ComboKey 生成 "01,02,03,04,05,06|07" 形式的组合键
func ComboKey(primary []int, secondary int) string {
	sorted := append([]int(nil), primary...)
	sort.Ints(sorted)
	return FormatNumbers(sorted, ",") + "|" + fmt.Sprintf("%02d", secondary)
}

// FormatNumbers 两位补零格式化号码
func FormatNumbers(nums []int, sep string) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%02d", n)
	}
	return strings.Join(parts, sep)
}

// ParseNumbers 解析逗号分隔的号码串
func ParseNumbers(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	nums := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("failed to parse number %q: %w", part, err)
		}
		nums = append(nums, n)
	}
	return nums, nil
}
