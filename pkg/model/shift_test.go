package model

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewShift(t *testing.T) {
	tests := []struct {
		name     string
		kind     ShiftKind
		startH   int
		endH     int
		duration int
		night    bool
	}{
		{"早班", ShiftM1, 8, 20, 12, false},
		{"长白班", ShiftM2, 8, 23, 15, false},
		{"跨天夜班", ShiftN, 20, 32, 12, true},
	}

	d := day(2026, 3, 2)
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewShift(i, d, tt.kind)
			if got := s.Start.Sub(d).Hours(); got != float64(tt.startH) {
				t.Errorf("Start 偏移 = %v, 期望 %v", got, tt.startH)
			}
			if got := s.End.Sub(d).Hours(); got != float64(tt.endH) {
				t.Errorf("End 偏移 = %v, 期望 %v", got, tt.endH)
			}
			if s.Duration != tt.duration {
				t.Errorf("Duration = %v, 期望 %v", s.Duration, tt.duration)
			}
			if s.IsNight() != tt.night {
				t.Errorf("IsNight() = %v, 期望 %v", s.IsNight(), tt.night)
			}
		})
	}
}

func TestShift_Overlaps(t *testing.T) {
	mon := day(2026, 3, 2)
	tue := day(2026, 3, 3)
	wed := day(2026, 3, 4)

	tests := []struct {
		name     string
		a, b     Shift
		expected bool
	}{
		{"同日早班与长白班重叠", NewShift(0, mon, ShiftM1), NewShift(1, mon, ShiftM2), true},
		{"同日长白班与夜班重叠", NewShift(1, mon, ShiftM2), NewShift(2, mon, ShiftN), true},
		{"周一夜班与周二早班不重叠", NewShift(2, mon, ShiftN), NewShift(3, tue, ShiftM1), false},
		{"隔一天的班次不重叠", NewShift(0, mon, ShiftM1), NewShift(6, wed, ShiftM1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.expected {
				t.Errorf("Overlaps() = %v, 期望 %v", got, tt.expected)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.expected {
				t.Errorf("反向 Overlaps() = %v, 期望 %v", got, tt.expected)
			}
		})
	}
}

func TestShift_GapHours(t *testing.T) {
	mon := day(2026, 3, 2)
	tue := day(2026, 3, 3)
	wed := day(2026, 3, 4)

	tests := []struct {
		name     string
		a, b     Shift
		expected float64
	}{
		// 周一夜班 08:00 结束，周二早班 08:00 开始
		{"夜班接次日早班间隔为0", NewShift(2, mon, ShiftN), NewShift(3, tue, ShiftM1), 0},
		// 周一早班 20:00 结束，周二早班 08:00 开始
		{"早班接次日早班间隔12小时", NewShift(0, mon, ShiftM1), NewShift(3, tue, ShiftM1), 12},
		// 周一长白班 23:00 结束，周三早班 08:00 开始
		{"长白班隔一天早班间隔33小时", NewShift(1, mon, ShiftM2), NewShift(6, wed, ShiftM1), 33},
		{"重叠班次间隔为0", NewShift(0, mon, ShiftM1), NewShift(1, mon, ShiftM2), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.GapHours(tt.b); got != tt.expected {
				t.Errorf("GapHours() = %v, 期望 %v", got, tt.expected)
			}
			if got := tt.b.GapHours(tt.a); got != tt.expected {
				t.Errorf("反向 GapHours() = %v, 期望 %v", got, tt.expected)
			}
		})
	}
}

func TestIsValidShiftKind(t *testing.T) {
	for _, k := range []string{"M1", "M2", "N"} {
		if !IsValidShiftKind(k) {
			t.Errorf("%s 应为有效班次类型", k)
		}
	}
	for _, k := range []string{"M3", "", "n", "m1"} {
		if IsValidShiftKind(k) {
			t.Errorf("%s 不应为有效班次类型", k)
		}
	}
}

func TestWeekKey(t *testing.T) {
	// 2026-01-01 是周四，属于 2026 年第 1 周
	k := WeekKeyOf(day(2026, 1, 1))
	if k.Year != 2026 || k.Week != 1 {
		t.Errorf("WeekKeyOf = %v, 期望 2026-W01", k)
	}
	if k.String() != "2026-W01" {
		t.Errorf("String() = %v, 期望 2026-W01", k.String())
	}

	// 2027-01-01 是周五，仍属于 2026 年第 53 周
	k = WeekKeyOf(day(2027, 1, 1))
	if k.Year != 2026 || k.Week != 53 {
		t.Errorf("WeekKeyOf = %v, 期望 2026-W53", k)
	}
}

func TestWorker_HasValidLoad(t *testing.T) {
	tests := []struct {
		name     string
		load     int
		expected bool
	}{
		{"12小时负荷有效", 12, true},
		{"18小时负荷有效", 18, true},
		{"0负荷无效", 0, false},
		{"40负荷无效", 40, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Worker{Name: "测试", WeeklyLoad: tt.load}
			if got := w.HasValidLoad(); got != tt.expected {
				t.Errorf("HasValidLoad() = %v, 期望 %v", got, tt.expected)
			}
		})
	}
}
