// Package calendar 提供排班窗口、节假日与 ISO 周的构建逻辑
package calendar

import (
	"sort"
	"time"

	"github.com/escala/escala/pkg/model"
)

// Calendar 排班窗口及其全部派生结构
type Calendar struct {
	Window   model.Window
	Holidays map[string]bool // 节假日日期集合（YYYY-MM-DD）
	Shifts   []model.Shift
	// ShiftsByDay 日期 -> 该日班次索引
	ShiftsByDay map[string][]int
	Weeks       map[model.WeekKey]*model.ISOWeek
	// WeekOrder 按周一升序排列的周键
	WeekOrder []model.WeekKey
	// StatIndices 公平性统计桶 -> 班次索引
	StatIndices map[string][]int
	// DOWIndices 星期几（周一=0）-> 班次索引
	DOWIndices [7][]int
	// WeekdayNightIndices / WeekdayM2Indices 工作日夜班与长白班索引
	WeekdayNightIndices []int
	WeekdayM2Indices    []int
}

// Build 构建目标月份的排班窗口日历
//
// holidayDays 为目标月份内的节假日日号，holidayDates 为显式节假日日期。
// 当未给出任何显式日期时（仅日号或完全为空，包括空切片），
// 自动为窗口覆盖的每个年月计算公共假日。
func Build(year int, month time.Month, holidayDays []int, holidayDates []time.Time) *Calendar {
	holidays := make(map[string]bool)
	for _, d := range holidayDays {
		holidays[time.Date(year, month, d, 0, 0, 0, 0, time.UTC).Format(model.DateLayout)] = true
	}
	for _, d := range holidayDates {
		holidays[d.Format(model.DateLayout)] = true
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	// 窗口从不晚于 1 日的周一开始，到不早于月末的周日结束
	start := first.AddDate(0, 0, -isoWeekdayOffset(first))
	end := last.AddDate(0, 0, 6-isoWeekdayOffset(last))

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}

	// 节假日自动扩展：无显式日期时按窗口覆盖的每个年月计算
	if len(holidayDates) == 0 {
		seen := make(map[string]bool)
		for _, d := range days {
			key := d.Format(model.MonthLayout)
			if seen[key] {
				continue
			}
			seen[key] = true
			for _, hd := range ComputeHolidays(d.Year(), d.Month()) {
				holidays[time.Date(d.Year(), d.Month(), hd, 0, 0, 0, 0, time.UTC).Format(model.DateLayout)] = true
			}
		}
	}

	cal := &Calendar{
		Window: model.Window{
			Year:  year,
			Month: month,
			Start: start,
			End:   end,
			Days:  days,
		},
		Holidays: holidays,
	}
	cal.buildShifts()
	cal.buildWeeks()
	cal.buildStatIndices()
	return cal
}

// WindowHolidays 合并手工节假日与窗口覆盖各月份的公共假日。
// 手工日期只做补充，不会取代自动计算的公共假日。
func WindowHolidays(year int, month time.Month, manual []time.Time) []time.Time {
	seen := make(map[string]time.Time)
	for _, d := range manual {
		seen[d.Format(model.DateLayout)] = d
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	start := first.AddDate(0, 0, -isoWeekdayOffset(first))
	end := last.AddDate(0, 0, 6-isoWeekdayOffset(last))

	for cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC); !cursor.After(end); cursor = cursor.AddDate(0, 1, 0) {
		for _, hd := range ComputeHolidays(cursor.Year(), cursor.Month()) {
			h := time.Date(cursor.Year(), cursor.Month(), hd, 0, 0, 0, 0, time.UTC)
			seen[h.Format(model.DateLayout)] = h
		}
	}

	merged := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		merged = append(merged, d)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Before(merged[j]) })
	return merged
}

// RemoveDays 从窗口中剔除指定 ISO 周的日期并重建派生结构
// 用于排除历史中已排班的周
func (c *Calendar) RemoveDays(excluded map[model.WeekKey]bool) {
	if len(excluded) == 0 {
		return
	}
	var kept []time.Time
	for _, d := range c.Window.Days {
		if !excluded[model.WeekKeyOf(d)] {
			kept = append(kept, d)
		}
	}
	c.Window.Days = kept
	c.buildShifts()
	c.buildWeeks()
	c.buildStatIndices()
}

// isoWeekdayOffset 返回距离本周周一的天数（周一=0 … 周日=6）
func isoWeekdayOffset(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

// IsHoliday 检查某日是否为节假日
func (c *Calendar) IsHoliday(d time.Time) bool {
	return c.Holidays[d.Format(model.DateLayout)]
}

// buildShifts 为窗口内每一天生成三个班次实例，索引稳定
func (c *Calendar) buildShifts() {
	c.Shifts = nil
	c.ShiftsByDay = make(map[string][]int)
	for _, d := range c.Window.Days {
		for _, kind := range model.ShiftKinds {
			idx := len(c.Shifts)
			c.Shifts = append(c.Shifts, model.NewShift(idx, d, kind))
			key := d.Format(model.DateLayout)
			c.ShiftsByDay[key] = append(c.ShiftsByDay[key], idx)
		}
	}
}

// buildWeeks 按 ISO 周分组日期与班次
func (c *Calendar) buildWeeks() {
	c.Weeks = make(map[model.WeekKey]*model.ISOWeek)
	for _, d := range c.Window.Days {
		key := model.WeekKeyOf(d)
		wk, ok := c.Weeks[key]
		if !ok {
			wk = &model.ISOWeek{
				Key:    key,
				Monday: d.AddDate(0, 0, -isoWeekdayOffset(d)),
			}
			c.Weeks[key] = wk
		}
		wk.Days = append(wk.Days, d)

		weekday := isoWeekdayOffset(d) < 5
		if weekday {
			wk.WeekdaysForDistribution = append(wk.WeekdaysForDistribution, d)
			if !c.IsHoliday(d) {
				wk.Weekdays = append(wk.Weekdays, d)
			}
		}

		for _, idx := range c.ShiftsByDay[d.Format(model.DateLayout)] {
			wk.Shifts = append(wk.Shifts, idx)
			if weekday {
				wk.WeekdayShiftsForDist = append(wk.WeekdayShiftsForDist, idx)
				if !c.IsHoliday(d) {
					wk.WeekdayShifts = append(wk.WeekdayShifts, idx)
				}
			}
		}
	}

	c.WeekOrder = make([]model.WeekKey, 0, len(c.Weeks))
	for key := range c.Weeks {
		c.WeekOrder = append(c.WeekOrder, key)
	}
	sort.Slice(c.WeekOrder, func(i, j int) bool {
		return c.Weeks[c.WeekOrder[i]].Monday.Before(c.Weeks[c.WeekOrder[j]].Monday)
	})
}

// buildStatIndices 将每个班次归入唯一的公平性统计桶
func (c *Calendar) buildStatIndices() {
	c.StatIndices = make(map[string][]int)
	for _, s := range model.EquityStats {
		c.StatIndices[s] = nil
	}
	for i := range c.DOWIndices {
		c.DOWIndices[i] = nil
	}
	c.WeekdayNightIndices = nil
	c.WeekdayM2Indices = nil

	for _, sh := range c.Shifts {
		holiday := c.IsHoliday(sh.Day)
		stat := ClassifyShift(sh.Day.Weekday(), holiday, sh.Kind)
		if stat != "" {
			c.StatIndices[stat] = append(c.StatIndices[stat], sh.Index)
		}

		dow := isoWeekdayOffset(sh.Day)
		c.DOWIndices[dow] = append(c.DOWIndices[dow], sh.Index)

		if dow < 5 && !holiday {
			if sh.Kind == model.ShiftN {
				c.WeekdayNightIndices = append(c.WeekdayNightIndices, sh.Index)
			}
			if sh.Kind == model.ShiftM2 {
				c.WeekdayM2Indices = append(c.WeekdayM2Indices, sh.Index)
			}
		}
	}
}

// ClassifyShift 按互斥优先级将班次归入公平性统计桶
// 周六节假日的夜班计入 sat_n，不重复计数
func ClassifyShift(wd time.Weekday, holiday bool, kind model.ShiftKind) string {
	sat := wd == time.Saturday
	sunOrHoliday := wd == time.Sunday || holiday
	isDay := kind == model.ShiftM1 || kind == model.ShiftM2
	switch {
	case sat && kind == model.ShiftN:
		return model.StatSatN
	case sunOrHoliday && kind == model.ShiftM2:
		return model.StatSunHolidayM2
	case sunOrHoliday && kind == model.ShiftM1:
		return model.StatSunHolidayM1
	case sunOrHoliday && kind == model.ShiftN:
		return model.StatSunHolidayN
	case sat && kind == model.ShiftM2:
		return model.StatSatM2
	case sat && kind == model.ShiftM1:
		return model.StatSatM1
	case wd == time.Friday && kind == model.ShiftN:
		return model.StatFriNight
	case kind == model.ShiftN:
		return model.StatWeekdayNotFriN
	case wd == time.Monday && isDay:
		return model.StatMondayDay
	case isDay:
		return model.StatWeekdayNotMonDay
	}
	return ""
}
