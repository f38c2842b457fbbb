package swap

import (
	"testing"

	"github.com/escala/escala/pkg/availability"
	"github.com/escala/escala/pkg/model"
)

func swapWorkers() []model.Worker {
	return []model.Worker{
		{Name: "Ana", ID: "ID001", CanNight: true, WeeklyLoad: 18},
		{Name: "Bruno", ID: "ID002", CanNight: false, WeeklyLoad: 12},
		{Name: "Carla", ID: "ID003", CanNight: true, WeeklyLoad: 12},
	}
}

func emptyUnavail() *availability.Set {
	return availability.NewSet(availability.ParseAll(nil))
}

func baseAssignments() []model.Assignment {
	return []model.Assignment{
		{Worker: "Ana", Date: "2026-03-02", Shift: model.ShiftN, Dur: 12},
		{Worker: "Bruno", Date: "2026-03-04", Shift: model.ShiftM1, Dur: 12},
		{Worker: "Carla", Date: "2026-03-06", Shift: model.ShiftM2, Dur: 15},
	}
}

func TestEvaluateTakeOver(t *testing.T) {
	e := NewEvaluator(swapWorkers(), emptyUnavail())
	assignments := baseAssignments()

	result := e.Evaluate(assignments, &Request{
		Source: assignments[0],
		Target: "Carla",
	})

	if !result.Feasible {
		t.Fatalf("转班应可行, issues=%v", result.Issues)
	}
	// 接班后 Carla 当周 27 小时，超出目标负荷 12 小时，应有一条提醒
	if len(result.Issues) != 1 || result.Issues[0].Severity != "warning" {
		t.Fatalf("期望 1 条 warning, 实际 %v", result.Issues)
	}
	if result.Impact.TargetHoursChange != 12 {
		t.Errorf("接班员工工时变化应为 +12, 实际 %d", result.Impact.TargetHoursChange)
	}
	if result.Impact.SourceHoursChange != -12 {
		t.Errorf("转出员工工时变化应为 -12, 实际 %d", result.Impact.SourceHoursChange)
	}
}

func TestEvaluateRejections(t *testing.T) {
	e := NewEvaluator(swapWorkers(), emptyUnavail())
	assignments := baseAssignments()

	tests := []struct {
		name     string
		req      *Request
		wantType string
	}{
		{
			name:     "无夜班资格",
			req:      &Request{Source: assignments[0], Target: "Bruno"},
			wantType: "night_eligibility",
		},
		{
			name:     "目标员工不存在",
			req:      &Request{Source: assignments[0], Target: "Zé"},
			wantType: "unknown_worker",
		},
		{
			name:     "换给原员工",
			req:      &Request{Source: assignments[0], Target: "Ana"},
			wantType: "same_worker",
		},
		{
			name: "原班次不存在",
			req: &Request{
				Source: model.Assignment{Worker: "Ana", Date: "2026-03-10", Shift: model.ShiftM1, Dur: 12},
				Target: "Carla",
			},
			wantType: "assignment_not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Evaluate(assignments, tt.req)
			if result.Feasible {
				t.Fatal("应判定为不可行")
			}
			if len(result.Issues) == 0 || result.Issues[0].Type != tt.wantType {
				t.Errorf("期望问题类型 %s, 实际 %v", tt.wantType, result.Issues)
			}
			if result.Score != 0 {
				t.Errorf("不可行时得分应为 0, 实际 %.0f", result.Score)
			}
		})
	}
}

func TestEvaluateRestConflict(t *testing.T) {
	e := NewEvaluator(swapWorkers(), emptyUnavail())
	// Carla 周二有早班，接周一夜班会导致休息间隔为 0
	assignments := []model.Assignment{
		{Worker: "Ana", Date: "2026-03-02", Shift: model.ShiftN, Dur: 12},
		{Worker: "Carla", Date: "2026-03-03", Shift: model.ShiftM1, Dur: 12},
	}

	result := e.Evaluate(assignments, &Request{
		Source: assignments[0],
		Target: "Carla",
	})

	if result.Feasible {
		t.Fatal("休息间隔不足时应判定为不可行")
	}
	found := false
	for _, issue := range result.Issues {
		if issue.Type == "rest_time" {
			found = true
		}
	}
	if !found {
		t.Errorf("应报告 rest_time 冲突, 实际 %v", result.Issues)
	}
}

func TestEvaluateExchange(t *testing.T) {
	e := NewEvaluator(swapWorkers(), emptyUnavail())
	assignments := baseAssignments()
	exchange := assignments[2] // Carla 的长班

	result := e.Evaluate(assignments, &Request{
		Source:   assignments[0],
		Target:   "Carla",
		Exchange: &exchange,
	})

	if !result.Feasible {
		t.Fatalf("互换应可行, issues=%v", result.Issues)
	}
	// Ana 失去 12 小时夜班换来 15 小时长班
	if result.Impact.SourceHoursChange != 3 {
		t.Errorf("转出员工工时变化应为 +3, 实际 %d", result.Impact.SourceHoursChange)
	}
	if result.Impact.TargetHoursChange != -3 {
		t.Errorf("接班员工工时变化应为 -3, 实际 %d", result.Impact.TargetHoursChange)
	}
}

func TestCanSwap(t *testing.T) {
	e := NewEvaluator(swapWorkers(), emptyUnavail())
	assignments := baseAssignments()

	if ok, _ := e.CanSwap(assignments, &Request{Source: assignments[0], Target: "Carla"}); !ok {
		t.Error("Carla 应可接夜班")
	}
	ok, reason := e.CanSwap(assignments, &Request{Source: assignments[0], Target: "Bruno"})
	if ok {
		t.Error("Bruno 无夜班资格，不应可接")
	}
	if reason == "" {
		t.Error("拒绝时应给出原因")
	}
}

func TestRecommendTargets(t *testing.T) {
	r := NewRecommender(swapWorkers(), emptyUnavail())
	assignments := baseAssignments()

	recs := r.RecommendTargets(assignments, assignments[0], &Options{
		Max:      5,
		MinScore: 60,
	})

	if len(recs) != 1 {
		t.Fatalf("期望 1 条推荐, 实际 %d", len(recs))
	}
	if recs[0].Worker != "Carla" {
		t.Errorf("应推荐 Carla, 实际 %s", recs[0].Worker)
	}
	if recs[0].SwapType != "take_over" {
		t.Errorf("期望 take_over, 实际 %s", recs[0].SwapType)
	}
	if recs[0].Rank != 1 {
		t.Errorf("排名应为 1, 实际 %d", recs[0].Rank)
	}
}

func TestRecommendPreferred(t *testing.T) {
	workers := append(swapWorkers(),
		model.Worker{Name: "Diana", ID: "ID004", CanNight: true, WeeklyLoad: 12})
	r := NewRecommender(workers, emptyUnavail())
	// 两位候选人条件相同时，优先名单决定顺序
	assignments := []model.Assignment{
		{Worker: "Ana", Date: "2026-03-02", Shift: model.ShiftN, Dur: 12},
	}

	recs := r.RecommendTargets(assignments, assignments[0], &Options{
		Max:       5,
		MinScore:  60,
		Preferred: []string{"Diana"},
	})

	if len(recs) < 2 {
		t.Fatalf("期望至少 2 条推荐, 实际 %d", len(recs))
	}
	if recs[0].Worker != "Diana" {
		t.Errorf("优先员工应排第一, 实际 %s", recs[0].Worker)
	}
}

func TestFindBestCover(t *testing.T) {
	r := NewRecommender(swapWorkers(), emptyUnavail())
	assignments := baseAssignments()

	rec := r.FindBestCover(assignments, "Ana", "2026-03-02")
	if rec == nil {
		t.Fatal("应找到替班人")
	}
	if rec.Worker != "Carla" {
		t.Errorf("应推荐 Carla, 实际 %s", rec.Worker)
	}

	if rec := r.FindBestCover(assignments, "Ana", "2026-03-20"); rec != nil {
		t.Errorf("无班次的日期不应有推荐, 实际 %v", rec)
	}
}
