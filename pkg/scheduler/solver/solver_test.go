package solver

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/escala/escala/pkg/availability"
	"github.com/escala/escala/pkg/calendar"
	"github.com/escala/escala/pkg/history"
	"github.com/escala/escala/pkg/model"
	"github.com/escala/escala/pkg/scheduler/constraint"
)

func testWorkers(n int) []model.Worker {
	names := []string{"Ana", "Bruno", "Carla", "Diogo", "Eva", "Filipe", "Gil", "Helena"}
	workers := make([]model.Worker, 0, n)
	for i := 0; i < n; i++ {
		load := 12
		if i%2 == 0 {
			load = 18
		}
		workers = append(workers, model.Worker{
			Name:       names[i],
			ID:         fmt.Sprintf("ID%03d", i+1),
			CanNight:   true,
			WeeklyLoad: load,
		})
	}
	return workers
}

func testContext(t *testing.T, workers []model.Worker,
	unavail, required map[string][]availability.Entry) *constraint.Context {
	t.Helper()
	cal := calendar.Build(2026, time.March, nil, nil)
	return constraint.NewContext(cal, workers,
		availability.NewSet(unavail), availability.NewSet(required),
		history.NewView(history.History{}), 2026, time.March)
}

func TestConstruct(t *testing.T) {
	workers := testWorkers(8)
	schedCtx := testContext(t, workers, nil, nil)
	cm := constraint.NewDefaultManager()

	assign, iterations, err := Construct(context.Background(), schedCtx, cm)
	if err != nil {
		t.Fatalf("贪心构造失败: %v", err)
	}
	if len(assign) != schedCtx.NumShifts() {
		t.Fatalf("解向量长度 %d 应等于班次数 %d", len(assign), schedCtx.NumShifts())
	}
	if iterations == 0 {
		t.Error("迭代计数应大于0")
	}

	// 已指派的班次不得违反禁派表
	for s, w := range assign {
		if w == constraint.Unassigned {
			continue
		}
		if schedCtx.Forbidden[s][w] {
			t.Errorf("班次 %d 被指派了禁派员工 %d", s, w)
		}
	}
}

func TestConstructHonorsPins(t *testing.T) {
	workers := testWorkers(6)
	required := map[string][]availability.Entry{
		"Ana": {{Date: "2026-03-07", Shift: model.ShiftN}},
	}
	schedCtx := testContext(t, workers, nil, required)
	cm := constraint.NewDefaultManager()

	assign, _, err := Construct(context.Background(), schedCtx, cm)
	if err != nil {
		t.Fatalf("贪心构造失败: %v", err)
	}

	found := false
	for s, w := range assign {
		shift := schedCtx.Cal.Shifts[s]
		if shift.Date() == "2026-03-07" && shift.Kind == model.ShiftN {
			if w != schedCtx.WorkerIndex["Ana"] {
				t.Errorf("必排班次应指派给 Ana，实际员工索引 %d", w)
			}
			found = true
		}
	}
	if !found {
		t.Fatal("窗口内未找到 2026-03-07 的夜班")
	}
}

func TestConstructRespectsUnavailability(t *testing.T) {
	workers := testWorkers(6)
	unavail := map[string][]availability.Entry{
		"Bruno": {{Date: "2026-03-10"}},
	}
	schedCtx := testContext(t, workers, unavail, nil)
	cm := constraint.NewDefaultManager()

	assign, _, err := Construct(context.Background(), schedCtx, cm)
	if err != nil {
		t.Fatalf("贪心构造失败: %v", err)
	}

	bruno := schedCtx.WorkerIndex["Bruno"]
	for s, w := range assign {
		if w != bruno {
			continue
		}
		if schedCtx.Cal.Shifts[s].Date() == "2026-03-10" {
			t.Error("不可用日不应有指派")
		}
	}
}

func TestBuildMoveSpace(t *testing.T) {
	workers := testWorkers(4)
	workers[3].CanNight = false
	required := map[string][]availability.Entry{
		"Ana": {{Date: "2026-03-07", Shift: model.ShiftM1}},
	}
	schedCtx := testContext(t, workers, nil, required)

	space := BuildMoveSpace(schedCtx)
	if space.NumShifts() != schedCtx.NumShifts() {
		t.Fatal("移动空间的班次数与上下文不一致")
	}

	ana := schedCtx.WorkerIndex["Ana"]
	for s := 0; s < schedCtx.NumShifts(); s++ {
		shift := schedCtx.Cal.Shifts[s]

		if shift.Date() == "2026-03-07" && shift.Kind == model.ShiftM1 {
			if !space.Pinned[s] {
				t.Error("必排班次应被固定")
			}
			if len(space.Candidates[s]) != 1 || space.Candidates[s][0] != ana {
				t.Errorf("固定班次的候选应仅含 Ana，实际 %v", space.Candidates[s])
			}
		}

		// 无夜班资格的员工不得出现在夜班候选中
		if shift.IsNight() {
			for _, w := range space.Candidates[s] {
				if w == 3 {
					t.Error("无夜班资格的员工出现在夜班候选中")
				}
			}
		}
	}
}

func TestLexicographicModelInvalid(t *testing.T) {
	workers := testWorkers(4)
	// 同一天既必排又不可用，产生固定分配冲突
	unavail := map[string][]availability.Entry{
		"Ana": {{Date: "2026-03-07"}},
	}
	required := map[string][]availability.Entry{
		"Ana": {{Date: "2026-03-07", Shift: model.ShiftM1}},
	}
	schedCtx := testContext(t, workers, unavail, required)

	s := NewLexicographicSolver(constraint.NewDefaultManager(), nil)
	result, err := s.Solve(context.Background(), schedCtx)
	if err != nil {
		t.Fatalf("求解返回错误: %v", err)
	}
	if result.Stats.Status != model.StatusModelInvalid {
		t.Errorf("期望状态 %s，实际 %s", model.StatusModelInvalid, result.Stats.Status)
	}
	if result.Stats.Error == "" {
		t.Error("模型无效时应有错误说明")
	}
}

func TestSummarizeViolations(t *testing.T) {
	violations := []constraint.Violation{
		{Group: constraint.GroupRest24h},
		{Group: constraint.GroupRest24h},
		{Group: constraint.GroupAvailability},
	}
	summary := summarizeViolations(violations)
	if summary != "24h_rest_interval: 2, availability: 1" {
		t.Errorf("汇总格式不符: %q", summary)
	}

	if summarizeViolations(nil) != "" {
		t.Error("无违反时应返回空串")
	}
}
