package validator

import (
	"testing"

	"github.com/escala/escala/pkg/availability"
	"github.com/escala/escala/pkg/model"
)

func valWorkers() []model.Worker {
	return []model.Worker{
		{Name: "Ana", ID: "ID001", CanNight: true, WeeklyLoad: 18},
		{Name: "Bruno", ID: "ID002", CanNight: false, WeeklyLoad: 12},
	}
}

func countType(conflicts []Conflict, t ConflictType) int {
	n := 0
	for _, c := range conflicts {
		if c.Type == t {
			n++
		}
	}
	return n
}

func TestDetectRestViolation(t *testing.T) {
	d := NewConflictDetector(nil)
	// M2 周一 23:00 结束，次日 M1 08:00 开始，仅休息 9 小时
	assignments := []model.Assignment{
		{Worker: "Ana", Date: "2026-03-02", Shift: model.ShiftM2, Dur: 15},
		{Worker: "Ana", Date: "2026-03-03", Shift: model.ShiftM1, Dur: 12},
	}

	conflicts := d.DetectAll(assignments, valWorkers(), nil)
	if countType(conflicts, ConflictRestTime) != 1 {
		t.Fatalf("应检出1条休息不足，得到 %+v", conflicts)
	}
	if conflicts[0].Worker != "Ana" || conflicts[0].Date != "2026-03-03" {
		t.Errorf("冲突归属不符: %+v", conflicts[0])
	}
}

func TestDetectRestSatisfied(t *testing.T) {
	d := NewConflictDetector(nil)
	// M1 周一 20:00 结束，周三 08:00 开始，休息 36 小时
	assignments := []model.Assignment{
		{Worker: "Ana", Date: "2026-03-02", Shift: model.ShiftM1, Dur: 12},
		{Worker: "Ana", Date: "2026-03-04", Shift: model.ShiftM1, Dur: 12},
	}

	if conflicts := d.DetectAll(assignments, valWorkers(), nil); len(conflicts) != 0 {
		t.Errorf("间隔满足时不应有冲突: %+v", conflicts)
	}
}

func TestDetectDoubleShift(t *testing.T) {
	d := NewConflictDetector(nil)
	assignments := []model.Assignment{
		{Worker: "Ana", Date: "2026-03-02", Shift: model.ShiftM1, Dur: 12},
		{Worker: "Ana", Date: "2026-03-02", Shift: model.ShiftN, Dur: 12},
	}

	conflicts := d.DetectAll(assignments, valWorkers(), nil)
	if countType(conflicts, ConflictDoubleShift) != 1 {
		t.Errorf("同日双班次应被检出: %+v", conflicts)
	}
}

func TestDetectNightEligibility(t *testing.T) {
	d := NewConflictDetector(nil)
	assignments := []model.Assignment{
		{Worker: "Bruno", Date: "2026-03-05", Shift: model.ShiftN, Dur: 12},
	}

	conflicts := d.DetectAll(assignments, valWorkers(), nil)
	if countType(conflicts, ConflictNight) != 1 {
		t.Fatalf("无资格夜班应被检出: %+v", conflicts)
	}
	if conflicts[0].Severity != "error" {
		t.Error("夜班资格冲突应为 error 级")
	}
}

func TestDetectAvailability(t *testing.T) {
	d := NewConflictDetector(nil)
	unavail := availability.NewSet(availability.ParseAll(map[string][]string{
		"Ana": {"2026-03-10"},
	}))
	assignments := []model.Assignment{
		{Worker: "Ana", Date: "2026-03-10", Shift: model.ShiftM1, Dur: 12},
	}

	conflicts := d.DetectAll(assignments, valWorkers(), unavail)
	if countType(conflicts, ConflictAvailability) != 1 {
		t.Errorf("不可用声明违反应被检出: %+v", conflicts)
	}
}

func TestDetectWeeklyOverload(t *testing.T) {
	d := NewConflictDetector(nil)
	// Bruno 目标 12 小时，同一 ISO 周内两个 12h 班次共 24 小时
	assignments := []model.Assignment{
		{Worker: "Bruno", Date: "2026-03-02", Shift: model.ShiftM1, Dur: 12},
		{Worker: "Bruno", Date: "2026-03-04", Shift: model.ShiftM1, Dur: 12},
	}

	conflicts := d.DetectAll(assignments, valWorkers(), nil)
	if countType(conflicts, ConflictWeeklyHours) != 1 {
		t.Fatalf("周工时超载应被检出: %+v", conflicts)
	}
	if conflicts[0].Severity != "warning" {
		t.Error("周工时偏离应为 warning 级")
	}
	if len(Errors(conflicts)) != 0 {
		t.Error("warning 不应出现在 error 过滤结果中")
	}
}

func TestDetectForAssignment(t *testing.T) {
	d := NewConflictDetector(nil)
	existing := []model.Assignment{
		{Worker: "Ana", Date: "2026-03-02", Shift: model.ShiftN, Dur: 12},
	}

	t.Run("休息冲突", func(t *testing.T) {
		candidate := model.Assignment{Worker: "Ana", Date: "2026-03-03", Shift: model.ShiftN, Dur: 12}
		conflicts := d.DetectForAssignment(candidate, existing, valWorkers()[0])
		if countType(conflicts, ConflictRestTime) != 1 {
			t.Errorf("连续夜班间隔12小时应被拒绝: %+v", conflicts)
		}
	})

	t.Run("同日冲突", func(t *testing.T) {
		candidate := model.Assignment{Worker: "Ana", Date: "2026-03-02", Shift: model.ShiftM1, Dur: 12}
		conflicts := d.DetectForAssignment(candidate, existing, valWorkers()[0])
		if countType(conflicts, ConflictDoubleShift) != 1 {
			t.Errorf("同日追加应被拒绝: %+v", conflicts)
		}
	})

	t.Run("夜班资格", func(t *testing.T) {
		candidate := model.Assignment{Worker: "Bruno", Date: "2026-03-05", Shift: model.ShiftN, Dur: 12}
		conflicts := d.DetectForAssignment(candidate, nil, valWorkers()[1])
		if countType(conflicts, ConflictNight) != 1 {
			t.Errorf("无资格夜班应被拒绝: %+v", conflicts)
		}
	})

	t.Run("无冲突", func(t *testing.T) {
		candidate := model.Assignment{Worker: "Ana", Date: "2026-03-05", Shift: model.ShiftM1, Dur: 12}
		if conflicts := d.DetectForAssignment(candidate, existing, valWorkers()[0]); len(conflicts) != 0 {
			t.Errorf("合法追加不应有冲突: %+v", conflicts)
		}
	})
}

func TestUnknownWorkerSkipsProfileChecks(t *testing.T) {
	d := NewConflictDetector(nil)
	assignments := []model.Assignment{
		{Worker: "Zé", Date: "2026-03-05", Shift: model.ShiftN, Dur: 12},
	}

	// 未登记员工仅做结构性检查，不做资格与工时判断
	if conflicts := d.DetectAll(assignments, valWorkers(), nil); len(conflicts) != 0 {
		t.Errorf("未登记员工不应触发资格类冲突: %+v", conflicts)
	}
}
