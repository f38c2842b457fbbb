package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/escala/escala/pkg/model"
)

func TestUpdate_Idempotent(t *testing.T) {
	assignments := []model.Assignment{
		{Worker: "Tome", Date: "2026-03-02", Shift: model.ShiftM1, Dur: 12},
		{Worker: "Tome", Date: "2026-03-05", Shift: model.ShiftN, Dur: 12},
		{Worker: "Sofia", Date: "2026-03-02", Shift: model.ShiftM2, Dur: 15},
	}

	hist := Update(assignments, nil)
	hist = Update(assignments, hist)

	if got := len(hist["Tome"]["2026-03"]); got != 2 {
		t.Errorf("Tome 3月记录数 = %d, 期望 2（重复合并应幂等）", got)
	}
	if got := len(hist["Sofia"]["2026-03"]); got != 1 {
		t.Errorf("Sofia 3月记录数 = %d, 期望 1", got)
	}
}

func TestUpdate_ReplacesByDate(t *testing.T) {
	hist := Update([]model.Assignment{
		{Worker: "Tome", Date: "2026-03-02", Shift: model.ShiftM1, Dur: 12},
	}, nil)

	// 同一日期的新班次应替换旧班次
	hist = Update([]model.Assignment{
		{Worker: "Tome", Date: "2026-03-02", Shift: model.ShiftN, Dur: 12},
	}, hist)

	entries := hist["Tome"]["2026-03"]
	if len(entries) != 1 {
		t.Fatalf("记录数 = %d, 期望 1", len(entries))
	}
	if entries[0].Shift != model.ShiftN {
		t.Errorf("班次 = %v, 期望 N", entries[0].Shift)
	}
}

func TestUpdate_CrossMonth(t *testing.T) {
	hist := Update([]model.Assignment{
		{Worker: "Tome", Date: "2026-02-28", Shift: model.ShiftM1, Dur: 12},
		{Worker: "Tome", Date: "2026-03-01", Shift: model.ShiftM1, Dur: 12},
	}, nil)

	if len(hist["Tome"]["2026-02"]) != 1 || len(hist["Tome"]["2026-03"]) != 1 {
		t.Error("跨月分配应分别归入各自的月份键")
	}
}

func TestView_ToleratesMalformedEntries(t *testing.T) {
	hist := History{
		"Tome": {
			"2026-03": {
				{Date: "2026-03-02", Shift: model.ShiftM1, Dur: 12},
				{Date: "", Shift: model.ShiftM1, Dur: 12},          // 缺日期
				{Date: "not-a-date", Shift: model.ShiftN, Dur: 12}, // 非法日期
				{Date: "2026-03-04", Shift: "X", Dur: 12},          // 非法班次
			},
		},
	}

	v := NewView(hist)
	count := 0
	v.IterAssignments(func(string, time.Time, Entry) { count++ })
	if count != 1 {
		t.Errorf("有效记录数 = %d, 期望 1", count)
	}
}

func TestView_ScheduledWeeks(t *testing.T) {
	hist := History{
		"Tome": {
			"2026-03": {
				{Date: "2026-03-02", Shift: model.ShiftM1, Dur: 12}, // 2026-W10
				{Date: "2026-03-10", Shift: model.ShiftN, Dur: 12},  // 2026-W11
			},
		},
	}

	weeks := NewView(hist).ScheduledWeeks()
	if len(weeks) != 2 {
		t.Fatalf("已排班周数 = %d, 期望 2", len(weeks))
	}
	if !weeks[model.WeekKey{Year: 2026, Week: 10}] {
		t.Error("应包含 2026-W10")
	}
	if !weeks[model.WeekKey{Year: 2026, Week: 11}] {
		t.Error("应包含 2026-W11")
	}
}

func TestView_FixedShiftFor(t *testing.T) {
	hist := History{
		"Tome": {
			"2026-03": {{Date: "2026-03-02", Shift: model.ShiftN, Dur: 12}},
		},
	}
	v := NewView(hist)

	d := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if got := v.FixedShiftFor("Tome", d); got != model.ShiftN {
		t.Errorf("FixedShiftFor = %v, 期望 N", got)
	}
	if got := v.FixedShiftFor("Sofia", d); got != "" {
		t.Errorf("无历史员工应返回空串, 实际 %v", got)
	}
	other := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	if got := v.FixedShiftFor("Tome", other); got != "" {
		t.Errorf("无记录日期应返回空串, 实际 %v", got)
	}
}

func TestLoadSave_RoundTripMerge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")

	hist := Update([]model.Assignment{
		{Worker: "Tome", Date: "2026-03-02", Shift: model.ShiftM1, Dur: 12},
	}, nil)
	if err := Save(path, hist); err != nil {
		t.Fatalf("Save 失败: %v", err)
	}

	// 加载进已有历史并按 (date, shift) 去重
	existing := Update([]model.Assignment{
		{Worker: "Tome", Date: "2026-03-02", Shift: model.ShiftM1, Dur: 12},
		{Worker: "Sofia", Date: "2026-03-03", Shift: model.ShiftM2, Dur: 15},
	}, nil)

	merged, err := Load(path, existing)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if got := len(merged["Tome"]["2026-03"]); got != 1 {
		t.Errorf("去重后 Tome 记录数 = %d, 期望 1", got)
	}
	if got := len(merged["Sofia"]["2026-03"]); got != 1 {
		t.Errorf("Sofia 记录数 = %d, 期望 1", got)
	}
}

func TestSave_EmptyHistory(t *testing.T) {
	if err := Save(filepath.Join(t.TempDir(), "h.json"), nil); err == nil {
		t.Error("空历史保存应返回错误")
	}
}
