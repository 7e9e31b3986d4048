package clock

import "time"

// Clock 时间来源
type Clock interface {
	Now() time.Time
}

// System 系统时钟
type System struct{}

// Now 返回当前时间
func (System) Now() time.Time {
	return time.Now()
}

// Fixed 固定时钟，用于测试
type Fixed struct {
	T time.Time
}

// Now 返回固定时间
func (f Fixed) Now() time.Time {
	return f.T
}
