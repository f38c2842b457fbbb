// Package model 定义排班引擎的核心数据模型
package model

import "time"

// ShiftKind 班次类型
type ShiftKind string

const (
	ShiftM1 ShiftKind = "M1" // 早班 08:00-20:00
	ShiftM2 ShiftKind = "M2" // 长白班 08:00-23:00
	ShiftN  ShiftKind = "N"  // 夜班 20:00-次日08:00
)

// ShiftKinds 按固定顺序排列的所有班次类型
var ShiftKinds = []ShiftKind{ShiftM1, ShiftM2, ShiftN}

// ShiftSpec 班次规格定义
type ShiftSpec struct {
	Kind      ShiftKind `json:"kind"`
	StartHour int       `json:"start_hour"` // 相对当日 00:00 的小时数
	EndHour   int       `json:"end_hour"`   // 可以超过 24（跨天）
	Duration  int       `json:"duration"`   // 小时
	Night     bool      `json:"night"`
}

// ShiftSpecs 三种班次的规格
var ShiftSpecs = map[ShiftKind]ShiftSpec{
	ShiftM1: {Kind: ShiftM1, StartHour: 8, EndHour: 20, Duration: 12},
	ShiftM2: {Kind: ShiftM2, StartHour: 8, EndHour: 23, Duration: 15},
	ShiftN:  {Kind: ShiftN, StartHour: 20, EndHour: 32, Duration: 12, Night: true},
}

// IsValidShiftKind 检查班次类型是否有效
func IsValidShiftKind(s string) bool {
	_, ok := ShiftSpecs[ShiftKind(s)]
	return ok
}

// Shift 具体班次实例（某一天的某个班次）
type Shift struct {
	Index    int       `json:"index"` // 全窗口内的稳定索引
	Day      time.Time `json:"day"`   // 当日 00:00
	Kind     ShiftKind `json:"kind"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Duration int       `json:"duration"` // 小时
}

// NewShift 根据规格创建某一天的班次实例
func NewShift(index int, day time.Time, kind ShiftKind) Shift {
	spec := ShiftSpecs[kind]
	return Shift{
		Index:    index,
		Day:      day,
		Kind:     kind,
		Start:    day.Add(time.Duration(spec.StartHour) * time.Hour),
		End:      day.Add(time.Duration(spec.EndHour) * time.Hour),
		Duration: spec.Duration,
	}
}

// IsNight 检查是否为夜班
func (s Shift) IsNight() bool {
	return ShiftSpecs[s.Kind].Night
}

// Date 返回班次所属日期（YYYY-MM-DD）
func (s Shift) Date() string {
	return s.Day.Format("2006-01-02")
}

// Overlaps 检查两个班次的时间段是否重叠
func (s Shift) Overlaps(other Shift) bool {
	return s.Start.Before(other.End) && other.Start.Before(s.End)
}

// GapHours 返回两个不重叠班次之间的间隔小时数
// 若重叠则返回 0
func (s Shift) GapHours(other Shift) float64 {
	if s.Overlaps(other) {
		return 0
	}
	if s.End.After(other.Start) {
		return s.Start.Sub(other.End).Hours()
	}
	return other.Start.Sub(s.End).Hours()
}

// StartDelta 返回两个班次开始时间之差的绝对值（小时）
func (s Shift) StartDelta(other Shift) float64 {
	d := s.Start.Sub(other.Start).Hours()
	if d < 0 {
		return -d
	}
	return d
}
