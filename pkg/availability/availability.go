// Package availability 解析员工的不可用与必排日期声明
package availability

import (
	"strings"
	"time"

	"github.com/escala/escala/pkg/model"
)

// Entry 一条解析后的声明：Shift 为空表示整天
type Entry struct {
	Date  string          `json:"date"`
	Shift model.ShiftKind `json:"shift,omitempty"`
}

// WholeDay 检查声明是否覆盖整天
func (e Entry) WholeDay() bool {
	return e.Shift == ""
}

// ParseTokens 解析一名员工的声明列表
//
// 支持三种形式：
//   - "2026-03-02"            整天
//   - "2026-03-02 N"          指定班次，未知班次类型忽略整条
//   - "2026-03-02 to 2026-03-06"  整天区间（含两端）
//
// 无法解析的条目被静默跳过
func ParseTokens(tokens []string) []Entry {
	var entries []Entry
	for _, tok := range tokens {
		fields := strings.Fields(strings.TrimSpace(tok))
		switch {
		case len(fields) == 1:
			if _, err := time.Parse(model.DateLayout, fields[0]); err == nil {
				entries = append(entries, Entry{Date: fields[0]})
			}
		case len(fields) == 2:
			if _, err := time.Parse(model.DateLayout, fields[0]); err != nil {
				continue
			}
			if !model.IsValidShiftKind(fields[1]) {
				continue
			}
			entries = append(entries, Entry{Date: fields[0], Shift: model.ShiftKind(fields[1])})
		case len(fields) == 3 && strings.EqualFold(fields[1], "to"):
			start, err1 := time.Parse(model.DateLayout, fields[0])
			end, err2 := time.Parse(model.DateLayout, fields[2])
			if err1 != nil || err2 != nil || end.Before(start) {
				continue
			}
			for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
				entries = append(entries, Entry{Date: d.Format(model.DateLayout)})
			}
		}
	}
	return entries
}

// ParseAll 解析全部员工的声明：员工名 -> 声明列表
func ParseAll(data map[string][]string) map[string][]Entry {
	result := make(map[string][]Entry, len(data))
	for worker, tokens := range data {
		if entries := ParseTokens(tokens); len(entries) > 0 {
			result[worker] = entries
		}
	}
	return result
}

// Set 按员工与日期索引的声明集合，用于快速查询
type Set struct {
	// wholeDay[worker][date] 整天声明
	wholeDay map[string]map[string]bool
	// byShift[worker][date][shift] 指定班次声明
	byShift map[string]map[string]map[model.ShiftKind]bool
}

// NewSet 从解析结果构建查询集合
func NewSet(parsed map[string][]Entry) *Set {
	s := &Set{
		wholeDay: make(map[string]map[string]bool),
		byShift:  make(map[string]map[string]map[model.ShiftKind]bool),
	}
	for worker, entries := range parsed {
		for _, e := range entries {
			if e.WholeDay() {
				if s.wholeDay[worker] == nil {
					s.wholeDay[worker] = make(map[string]bool)
				}
				s.wholeDay[worker][e.Date] = true
				continue
			}
			if s.byShift[worker] == nil {
				s.byShift[worker] = make(map[string]map[model.ShiftKind]bool)
			}
			if s.byShift[worker][e.Date] == nil {
				s.byShift[worker][e.Date] = make(map[model.ShiftKind]bool)
			}
			s.byShift[worker][e.Date][e.Shift] = true
		}
	}
	return s
}

// BlocksDay 检查员工某日是否整天被声明
func (s *Set) BlocksDay(worker, date string) bool {
	return s.wholeDay[worker][date]
}

// BlocksShift 检查员工某日某班次是否被声明（含整天声明）
func (s *Set) BlocksShift(worker, date string, kind model.ShiftKind) bool {
	if s.wholeDay[worker][date] {
		return true
	}
	return s.byShift[worker][date][kind]
}

// ShiftOnly 检查员工某日是否仅声明了指定班次（非整天）
func (s *Set) ShiftOnly(worker, date string) (model.ShiftKind, bool) {
	shifts := s.byShift[worker][date]
	if len(shifts) != 1 || s.wholeDay[worker][date] {
		return "", false
	}
	for k := range shifts {
		return k, true
	}
	return "", false
}

// Dates 返回员工全部被声明的日期集合
func (s *Set) Dates(worker string) map[string]bool {
	dates := make(map[string]bool)
	for d := range s.wholeDay[worker] {
		dates[d] = true
	}
	for d := range s.byShift[worker] {
		dates[d] = true
	}
	return dates
}

// Workers 返回出现过声明的员工名集合
func (s *Set) Workers() map[string]bool {
	workers := make(map[string]bool)
	for w := range s.wholeDay {
		workers[w] = true
	}
	for w := range s.byShift {
		workers[w] = true
	}
	return workers
}
