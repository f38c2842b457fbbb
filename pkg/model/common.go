// Package model 定义排班引擎的核心数据模型
package model

import (
	"fmt"
	"time"
)

// DateLayout 日期序列化格式
const DateLayout = "2006-01-02"

// MonthLayout 月份序列化格式
const MonthLayout = "2006-01"

// WeekKey ISO 周标识
type WeekKey struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// WeekKeyOf 返回某日所属的 ISO 周标识
func WeekKeyOf(day time.Time) WeekKey {
	y, w := day.ISOWeek()
	return WeekKey{Year: y, Week: w}
}

// String 返回 "YYYY-Www" 形式的周键
func (k WeekKey) String() string {
	return fmt.Sprintf("%04d-W%02d", k.Year, k.Week)
}

// Window 排班窗口：覆盖目标月份的完整 ISO 周区间
// Start 为不晚于当月 1 日的周一，End 为不早于当月末日的周日
type Window struct {
	Year  int         `json:"year"`
	Month time.Month  `json:"month"`
	Start time.Time   `json:"start"`
	End   time.Time   `json:"end"`
	Days  []time.Time `json:"days"` // 窗口内每一天（可能已剔除被排除周）
}

// Contains 检查日期是否落在窗口内
func (w Window) Contains(day time.Time) bool {
	return !day.Before(w.Start) && !day.After(w.End)
}

// InTargetMonth 检查日期是否属于目标月份
func (w Window) InTargetMonth(day time.Time) bool {
	return day.Year() == w.Year && day.Month() == w.Month
}

// ISOWeek 窗口内的一个 ISO 周及其派生集合
type ISOWeek struct {
	Key    WeekKey     `json:"key"`
	Monday time.Time   `json:"monday"`
	Days   []time.Time `json:"days"`
	// Weekdays 周一至周五中的非节假日
	Weekdays []time.Time `json:"weekdays"`
	// WeekdaysForDistribution 周一至周五全部日期（含节假日），
	// 用于周参与度判定
	WeekdaysForDistribution []time.Time `json:"weekdays_for_distribution"`
	Shifts                  []int       `json:"shifts"` // 班次索引
	WeekdayShifts           []int       `json:"weekday_shifts"`
	WeekdayShiftsForDist    []int       `json:"weekday_shifts_for_distribution"`
}

// TimeRange 时间范围
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration 返回时间范围的持续时间
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// Overlaps 检查两个时间范围是否重叠
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.Start.Before(other.End) && other.Start.Before(tr.End)
}

// Contains 检查时间范围是否包含某个时间点
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}
