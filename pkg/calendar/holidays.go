// Package calendar 提供排班窗口、节假日与 ISO 周的构建逻辑
package calendar

import (
	"sort"
	"time"
)

// fixedHolidays 固定公共假日（月份 -> 日号列表）
var fixedHolidays = map[time.Month][]int{
	time.January:  {1},
	time.April:    {25},
	time.May:      {1},
	time.June:     {10},
	time.August:   {15},
	time.October:  {5},
	time.November: {1},
	time.December: {1, 8, 25},
}

// movableHolidayOffsets 相对复活节的浮动假日偏移（天）
var movableHolidayOffsets = []int{
	-47, // 狂欢节
	-2,  // 耶稣受难日
	0,   // 复活节
	60,  // 基督圣体节
}

// Easter 计算某年复活节日期（匿名格里高利算法）
func Easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := (19*a + b - b/4 - ((b-(b+8)/25+1)/3) + 15) % 30
	e := (32 + 2*(b%4) + 2*(c/4) - d - (c % 4)) % 7
	f := d + e - 7*((a+11*d+22*e)/451) + 114
	month := f / 31
	day := f%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// ComputeHolidays 返回某年某月的全部公共假日日号（升序去重）
func ComputeHolidays(year int, month time.Month) []int {
	seen := make(map[int]bool)
	for _, d := range fixedHolidays[month] {
		seen[d] = true
	}

	easter := Easter(year)
	for _, offset := range movableHolidayOffsets {
		h := easter.AddDate(0, 0, offset)
		if h.Year() == year && h.Month() == month {
			seen[h.Day()] = true
		}
	}

	days := make([]int, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}
