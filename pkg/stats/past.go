// Package stats 提供排班统计分析功能
package stats

import (
	"time"

	"github.com/escala/escala/pkg/calendar"
	"github.com/escala/escala/pkg/history"
	"github.com/escala/escala/pkg/model"
)

// holidayLookup 按月缓存的节假日查询
type holidayLookup struct {
	cache map[string]map[string]bool
}

func newHolidayLookup() *holidayLookup {
	return &holidayLookup{cache: make(map[string]map[string]bool)}
}

// IsHoliday 判断日期是否为节假日
func (h *holidayLookup) IsHoliday(d time.Time) bool {
	monthKey := d.Format(model.MonthLayout)
	days, ok := h.cache[monthKey]
	if !ok {
		days = make(map[string]bool)
		for _, hd := range calendar.ComputeHolidays(d.Year(), d.Month()) {
			hday := time.Date(d.Year(), d.Month(), hd, 0, 0, 0, 0, time.UTC)
			days[hday.Format(model.DateLayout)] = true
		}
		h.cache[monthKey] = days
	}
	return days[d.Format(model.DateLayout)]
}

// ComputePast 从历史记录统计各员工的公平性计数。
// activeDates 中的日期属于当前求解窗口，不计入历史统计。
// 返回统计桶计数与星期几计数（周一=0）。
func ComputePast(view *history.View, activeDates map[string]bool) (map[string]map[string]int, map[string][7]int) {
	buckets := make(map[string]map[string]int)
	dow := make(map[string][7]int)
	holidays := newHolidayLookup()

	view.IterAssignments(func(worker string, date time.Time, e history.Entry) {
		dateStr := date.Format(model.DateLayout)
		if activeDates[dateStr] {
			return
		}

		stat := calendar.ClassifyShift(date.Weekday(), holidays.IsHoliday(date), e.Shift)
		if stat == "" {
			return
		}

		wb, ok := buckets[worker]
		if !ok {
			wb = make(map[string]int)
			buckets[worker] = wb
		}
		if wb[stat] < model.MaxStatValue {
			wb[stat]++
		}

		counts := dow[worker]
		offset := (int(date.Weekday()) + 6) % 7
		if counts[offset] < model.MaxStatValue {
			counts[offset]++
		}
		dow[worker] = counts
	})

	return buckets, dow
}

// ApplyCredits 把补偿积分并入历史统计。积分只加在公平性统计桶上，
// "dow" 键保留给星期几分布，不参与合并。
func ApplyCredits(buckets map[string]map[string]int, credits map[string]map[string]int) {
	for worker, workerCredits := range credits {
		wb, ok := buckets[worker]
		if !ok {
			wb = make(map[string]int)
			buckets[worker] = wb
		}
		for stat, credit := range workerCredits {
			if stat == "dow" {
				continue
			}
			wb[stat] += credit
			if wb[stat] > model.MaxStatValue {
				wb[stat] = model.MaxStatValue
			}
		}
	}
}
