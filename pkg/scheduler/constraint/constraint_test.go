package constraint

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/escala/escala/pkg/availability"
	"github.com/escala/escala/pkg/calendar"
	"github.com/escala/escala/pkg/history"
	"github.com/escala/escala/pkg/model"
)

func conWorkers(n int) []model.Worker {
	names := []string{"Ana", "Bruno", "Carla", "Diogo", "Eva", "Filipe"}
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

func conContext(t *testing.T, workers []model.Worker,
	unavail, required map[string][]string, hist history.History) *Context {
	t.Helper()
	cal := calendar.Build(2026, time.March, nil, nil)
	if hist == nil {
		hist = history.History{}
	}
	return NewContext(cal, workers,
		availability.NewSet(availability.ParseAll(unavail)),
		availability.NewSet(availability.ParseAll(required)),
		history.NewView(hist), 2026, time.March)
}

// findShift 返回指定日期与班次类型的班次索引
func findShift(t *testing.T, ctx *Context, date string, kind model.ShiftKind) int {
	t.Helper()
	for s, sh := range ctx.Cal.Shifts {
		if sh.Date() == date && sh.Kind == kind {
			return s
		}
	}
	t.Fatalf("窗口内找不到班次 %s %s", date, kind)
	return -1
}

func emptyAssign(ctx *Context) []int {
	assign := make([]int, ctx.NumShifts())
	for i := range assign {
		assign[i] = Unassigned
	}
	return assign
}

func TestBuildForbidden(t *testing.T) {
	workers := conWorkers(3)
	workers[1].CanNight = false
	ctx := conContext(t, workers, map[string][]string{
		"Ana": {"2026-03-10"},
	}, nil, nil)

	t.Run("夜班资格", func(t *testing.T) {
		n := findShift(t, ctx, "2026-03-10", model.ShiftN)
		if !ctx.Forbidden[n][1] {
			t.Error("不可排夜班员工应被禁止夜班")
		}
		if ctx.Forbidden[n][2] {
			t.Error("可排夜班员工不应被禁止")
		}
	})

	t.Run("整天不可用", func(t *testing.T) {
		for _, kind := range []model.ShiftKind{model.ShiftM1, model.ShiftM2, model.ShiftN} {
			s := findShift(t, ctx, "2026-03-10", kind)
			if !ctx.Forbidden[s][0] {
				t.Errorf("Ana 声明 2026-03-10 不可用，%s 应被禁止", kind)
			}
		}
		s := findShift(t, ctx, "2026-03-11", model.ShiftM1)
		if ctx.Forbidden[s][0] {
			t.Error("不可用声明不应波及其他日期")
		}
	})

	t.Run("指定班次不可用", func(t *testing.T) {
		ctx2 := conContext(t, conWorkers(2), map[string][]string{
			"Bruno": {"2026-03-12 N"},
		}, nil, nil)
		n := findShift(t, ctx2, "2026-03-12", model.ShiftN)
		m1 := findShift(t, ctx2, "2026-03-12", model.ShiftM1)
		if !ctx2.Forbidden[n][1] {
			t.Error("声明的夜班应被禁止")
		}
		if ctx2.Forbidden[m1][1] {
			t.Error("同日其他班次不应被禁止")
		}
	})
}

func TestBuildPins(t *testing.T) {
	t.Run("必排指定班次", func(t *testing.T) {
		ctx := conContext(t, conWorkers(3), nil, map[string][]string{
			"Carla": {"2026-03-07 N"},
		}, nil)
		n := findShift(t, ctx, "2026-03-07", model.ShiftN)
		if ctx.Pins[n] != 2 {
			t.Errorf("必排声明应固定班次给 Carla，得到 %d", ctx.Pins[n])
		}
		if len(ctx.PinConflicts) != 0 {
			t.Errorf("不应有固定冲突: %v", ctx.PinConflicts)
		}
	})

	t.Run("整天必排", func(t *testing.T) {
		ctx := conContext(t, conWorkers(2), nil, map[string][]string{
			"Ana": {"2026-03-10"},
		}, nil)
		if !ctx.RequiredDays[0]["2026-03-10"] {
			t.Error("整天必排声明应记入 RequiredDays")
		}
		for _, w := range ctx.Pins {
			if w != Unassigned {
				t.Error("整天必排不应固定具体班次")
			}
		}
	})

	t.Run("历史固定分配", func(t *testing.T) {
		hist := history.History{
			"Bruno": {"2026-02": {{Date: "2026-02-24", Shift: model.ShiftM2, Dur: 15}}},
		}
		ctx := conContext(t, conWorkers(2), nil, nil, hist)
		m2 := findShift(t, ctx, "2026-02-24", model.ShiftM2)
		if ctx.Pins[m2] != 1 {
			t.Errorf("窗口内历史分配应固定班次给 Bruno，得到 %d", ctx.Pins[m2])
		}
	})

	t.Run("窗口外历史静默跳过", func(t *testing.T) {
		hist := history.History{
			"Ana": {"2026-01": {{Date: "2026-01-05", Shift: model.ShiftM1, Dur: 12}}},
		}
		ctx := conContext(t, conWorkers(2), nil, nil, hist)
		for _, w := range ctx.Pins {
			if w != Unassigned {
				t.Error("窗口外的历史分配不应产生固定")
			}
		}
	})
}

func TestPinConflicts(t *testing.T) {
	t.Run("同一班次指定给两人", func(t *testing.T) {
		ctx := conContext(t, conWorkers(2), nil, map[string][]string{
			"Ana":   {"2026-03-07 M1"},
			"Bruno": {"2026-03-07 M1"},
		}, nil)
		if len(ctx.PinConflicts) != 1 {
			t.Fatalf("应有1条固定冲突，得到 %d", len(ctx.PinConflicts))
		}
	})

	t.Run("必排撞上不可用", func(t *testing.T) {
		ctx := conContext(t, conWorkers(2),
			map[string][]string{"Ana": {"2026-03-07"}},
			map[string][]string{"Ana": {"2026-03-07 M1"}}, nil)
		if len(ctx.PinConflicts) != 1 {
			t.Fatalf("必排与不可用矛盾应记为固定冲突，得到 %v", ctx.PinConflicts)
		}
		m1 := findShift(t, ctx, "2026-03-07", model.ShiftM1)
		if ctx.Pins[m1] != Unassigned {
			t.Error("被禁止的组合不应落入 Pins")
		}
	})

	t.Run("无夜班资格者必排夜班", func(t *testing.T) {
		workers := conWorkers(2)
		workers[0].CanNight = false
		ctx := conContext(t, workers, nil,
			map[string][]string{"Ana": {"2026-03-07 N"}}, nil)
		if len(ctx.PinConflicts) != 1 {
			t.Fatalf("无资格员工的夜班必排应记为固定冲突，得到 %v", ctx.PinConflicts)
		}
	})
}

func TestBuildRestConflicts(t *testing.T) {
	ctx := conContext(t, conWorkers(2), nil, nil, nil)

	m1Mon := findShift(t, ctx, "2026-03-02", model.ShiftM1)
	m2Mon := findShift(t, ctx, "2026-03-02", model.ShiftM2)
	nMon := findShift(t, ctx, "2026-03-02", model.ShiftN)
	m1Tue := findShift(t, ctx, "2026-03-03", model.ShiftM1)
	m1Wed := findShift(t, ctx, "2026-03-04", model.ShiftM1)

	hasConflict := func(a, b int) bool {
		for _, other := range ctx.RestConflicts[a] {
			if other == b {
				return true
			}
		}
		return false
	}

	cases := []struct {
		name string
		a, b int
		want bool
	}{
		{"同日M1与M2重叠", m1Mon, m2Mon, true},
		{"同日M1与N间隔不足", m1Mon, nMon, true},
		{"M2与次日M1间隔9小时", m2Mon, m1Tue, true},
		{"N与次日M1间隔0小时", nMon, m1Tue, true},
		{"M1与隔日M1间隔36小时", m1Mon, m1Wed, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := hasConflict(c.a, c.b); got != c.want {
				t.Errorf("休息冲突 %v，期望 %v", got, c.want)
			}
			if got := hasConflict(c.b, c.a); got != c.want {
				t.Error("休息冲突应双向对称")
			}
		})
	}
}

func TestBuildCrossBlocked(t *testing.T) {
	// 窗口从 2026-02-23（周一）开始，2026-02-22 的夜班属于窗口外历史
	hist := history.History{
		"Ana": {"2026-02": {{Date: "2026-02-22", Shift: model.ShiftN, Dur: 12}}},
	}
	ctx := conContext(t, conWorkers(2), nil, nil, hist)

	m1First := findShift(t, ctx, "2026-02-23", model.ShiftM1)
	nFirst := findShift(t, ctx, "2026-02-23", model.ShiftN)
	m1Next := findShift(t, ctx, "2026-02-24", model.ShiftM1)

	if !ctx.CrossBlocked[m1First][0] {
		t.Error("历史夜班结束后紧接的早班应被跨窗口禁止")
	}
	if !ctx.CrossBlocked[nFirst][0] {
		t.Error("历史夜班次日的夜班间隔12小时，应被跨窗口禁止")
	}
	if ctx.CrossBlocked[m1Next][0] {
		t.Error("间隔满24小时的班次不应被跨窗口禁止")
	}
	if ctx.CrossBlocked[m1First][1] {
		t.Error("无历史记录的员工不应被跨窗口禁止")
	}
}

func TestBuildEligibility(t *testing.T) {
	ctx := conContext(t, conWorkers(3), map[string][]string{
		"Ana": {"2026-03-02 to 2026-03-06"},
	}, nil, nil)

	key := model.WeekKeyOf(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	eligible := ctx.EligibleWeeks[key]
	for _, w := range eligible {
		if w == 0 {
			t.Error("整周工作日不可用的员工不应有周资格")
		}
	}
	if len(eligible) != 2 {
		t.Errorf("该周应有2名有资格员工，得到 %d", len(eligible))
	}

	next := model.WeekKeyOf(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC))
	if len(ctx.EligibleWeeks[next]) != 3 {
		t.Error("下一周全部员工都应有资格")
	}
}

func TestBuildSoftPairs(t *testing.T) {
	ctx := conContext(t, conWorkers(2), nil, nil, nil)

	hasPair := func(pairs [][2]int, a, b int) bool {
		for _, p := range pairs {
			if (p[0] == a && p[1] == b) || (p[0] == b && p[1] == a) {
				return true
			}
		}
		return false
	}

	m1Mon := findShift(t, ctx, "2026-03-02", model.ShiftM1)
	m1Tue := findShift(t, ctx, "2026-03-03", model.ShiftM1)
	m1Wed := findShift(t, ctx, "2026-03-04", model.ShiftM1)
	nMon := findShift(t, ctx, "2026-03-02", model.ShiftN)
	nTue := findShift(t, ctx, "2026-03-03", model.ShiftN)
	nWed := findShift(t, ctx, "2026-03-04", model.ShiftN)
	nThu := findShift(t, ctx, "2026-03-05", model.ShiftN)

	if !hasPair(ctx.Consec48Pairs, m1Mon, m1Wed) {
		t.Error("间隔36小时的早班对应落入连续班次惩罚区间")
	}
	if hasPair(ctx.Consec48Pairs, m1Mon, m1Tue) {
		t.Error("间隔12小时属于硬约束范围，不应落入软惩罚区间")
	}

	if !hasPair(ctx.NightIntervalPairs, nMon, nWed) {
		t.Error("开始间隔48小时的夜班对应计入夜班间隔惩罚")
	}
	if hasPair(ctx.NightIntervalPairs, nMon, nThu) {
		t.Error("开始间隔72小时的夜班对不应计入")
	}

	if !hasPair(ctx.ConsecNightPairs, nMon, nTue) {
		t.Error("相邻两天的夜班对应计入连续夜班惩罚")
	}
	if hasPair(ctx.ConsecNightPairs, nMon, nWed) {
		t.Error("相隔两天的夜班对不应计入连续夜班惩罚")
	}
}

func TestOneShiftPerDay(t *testing.T) {
	ctx := conContext(t, conWorkers(2), nil, nil, nil)
	assign := emptyAssign(ctx)

	m1 := findShift(t, ctx, "2026-03-03", model.ShiftM1)
	m2 := findShift(t, ctx, "2026-03-03", model.ShiftM2)
	assign[m1] = 0
	assign[m2] = 0

	rule := OneShiftPerDay{}
	violations := rule.Check(ctx, assign)
	if len(violations) != 1 {
		t.Fatalf("同日双班次应产生1条违反，得到 %d", len(violations))
	}
	if violations[0].Group != GroupOneShiftPerDay || violations[0].Worker != "Ana" {
		t.Errorf("违反内容不符: %+v", violations[0])
	}

	n := findShift(t, ctx, "2026-03-03", model.ShiftN)
	if rule.CheckAssign(ctx, assign, n, 0) {
		t.Error("员工当日已有班次时增量校验应拒绝")
	}
	if !rule.CheckAssign(ctx, assign, n, 1) {
		t.Error("当日无班次的员工应通过增量校验")
	}
}

func TestNightEligibility(t *testing.T) {
	workers := conWorkers(2)
	workers[1].CanNight = false
	ctx := conContext(t, workers, nil, nil, nil)
	assign := emptyAssign(ctx)

	n := findShift(t, ctx, "2026-03-05", model.ShiftN)
	assign[n] = 1

	rule := NightEligibility{}
	violations := rule.Check(ctx, assign)
	if len(violations) != 1 {
		t.Fatalf("无资格员工排夜班应产生1条违反，得到 %d", len(violations))
	}
	if violations[0].Date != "2026-03-05" {
		t.Errorf("违反日期不符: %s", violations[0].Date)
	}
	if rule.CheckAssign(ctx, assign, n, 1) {
		t.Error("无资格员工的夜班增量校验应拒绝")
	}
	m1 := findShift(t, ctx, "2026-03-05", model.ShiftM1)
	if !rule.CheckAssign(ctx, assign, m1, 1) {
		t.Error("日班不受夜班资格限制")
	}
}

func TestAvailabilityRule(t *testing.T) {
	ctx := conContext(t, conWorkers(2), map[string][]string{
		"Bruno": {"2026-03-09 M2"},
	}, nil, nil)
	assign := emptyAssign(ctx)

	m2 := findShift(t, ctx, "2026-03-09", model.ShiftM2)
	assign[m2] = 1

	rule := Availability{}
	if len(rule.Check(ctx, assign)) != 1 {
		t.Error("声明不可用的组合应产生违反")
	}
	if rule.CheckAssign(ctx, assign, m2, 1) {
		t.Error("增量校验应拒绝声明不可用的组合")
	}
	if !rule.CheckAssign(ctx, assign, m2, 0) {
		t.Error("未声明的员工应通过")
	}
}

func TestRequiredRule(t *testing.T) {
	ctx := conContext(t, conWorkers(2), nil, map[string][]string{
		"Ana":   {"2026-03-07 N"},
		"Bruno": {"2026-03-10"},
	}, nil)
	assign := emptyAssign(ctx)
	rule := Required{}

	violations := rule.Check(ctx, assign)
	if len(violations) != 2 {
		t.Fatalf("未满足的必排声明应产生2条违反，得到 %d", len(violations))
	}

	n := findShift(t, ctx, "2026-03-07", model.ShiftN)
	assign[n] = 0
	m1 := findShift(t, ctx, "2026-03-10", model.ShiftM1)
	assign[m1] = 1
	if len(rule.Check(ctx, assign)) != 0 {
		t.Error("必排声明满足后不应有违反")
	}

	if rule.CheckAssign(ctx, assign, n, 1) {
		t.Error("固定班次不得分配给其他员工")
	}
	if !rule.CheckAssign(ctx, assign, n, 0) {
		t.Error("固定班次分配给声明员工应通过")
	}
}

func TestRest24h(t *testing.T) {
	ctx := conContext(t, conWorkers(2), nil, nil, nil)
	assign := emptyAssign(ctx)

	m2Mon := findShift(t, ctx, "2026-03-02", model.ShiftM2)
	m1Tue := findShift(t, ctx, "2026-03-03", model.ShiftM1)
	assign[m2Mon] = 0
	assign[m1Tue] = 0

	rule := Rest24h{}
	violations := rule.Check(ctx, assign)
	if len(violations) != 1 {
		t.Fatalf("间隔不足的班次对应产生1条违反，得到 %d", len(violations))
	}
	if violations[0].Worker != "Ana" {
		t.Errorf("违反员工不符: %s", violations[0].Worker)
	}

	if rule.CheckAssign(ctx, assign, m1Tue, 0) {
		t.Error("增量校验应拒绝休息冲突")
	}
	if !rule.CheckAssign(ctx, assign, m1Tue, 1) {
		t.Error("无冲突的员工应通过")
	}
}

func TestCrossWindowRest(t *testing.T) {
	hist := history.History{
		"Ana": {"2026-02": {{Date: "2026-02-22", Shift: model.ShiftN, Dur: 12}}},
	}
	ctx := conContext(t, conWorkers(2), nil, nil, hist)
	assign := emptyAssign(ctx)

	m1First := findShift(t, ctx, "2026-02-23", model.ShiftM1)
	assign[m1First] = 0

	rule := CrossWindowRest{}
	if len(rule.Check(ctx, assign)) != 1 {
		t.Error("与窗口外历史冲突的分配应产生违反")
	}
	if rule.CheckAssign(ctx, assign, m1First, 0) {
		t.Error("增量校验应拒绝跨窗口冲突")
	}
	if !rule.CheckAssign(ctx, assign, m1First, 1) {
		t.Error("无历史冲突的员工应通过")
	}
}

func TestWeeklyParticipation(t *testing.T) {
	monday := "2026-03-02"

	t.Run("有资格无班次", func(t *testing.T) {
		ctx := conContext(t, conWorkers(3), nil, nil, nil)
		assign := emptyAssign(ctx)
		assign[findShift(t, ctx, "2026-03-03", model.ShiftM1)] = 0

		found := false
		for _, v := range (WeeklyParticipation{}).Check(ctx, assign) {
			if v.Date == monday && v.Worker == "Bruno" {
				found = true
			}
			if v.Date == monday && v.Worker == "Ana" && strings.Contains(v.Message, "没有任何班次") {
				t.Error("已有班次的员工不应被标记为缺席")
			}
		}
		if !found {
			t.Error("该周无班次的有资格员工应被标记")
		}
	})

	t.Run("班次不足时独占工作日", func(t *testing.T) {
		ctx := conContext(t, conWorkers(2), nil, nil, nil)
		assign := emptyAssign(ctx)
		assign[findShift(t, ctx, "2026-03-02", model.ShiftM1)] = 0
		assign[findShift(t, ctx, "2026-03-04", model.ShiftM1)] = 0

		found := false
		for _, v := range (WeeklyParticipation{}).Check(ctx, assign) {
			if v.Date == monday && v.Worker == "Ana" && strings.Contains(v.Message, "占用了 2 个") {
				found = true
			}
		}
		if !found {
			t.Error("尚有员工无工作日班次时的多班次占用应被标记")
		}
	})

	t.Run("班次充足必须人人有份", func(t *testing.T) {
		ctx := conContext(t, conWorkers(2), nil, nil, nil)
		assign := emptyAssign(ctx)

		found := false
		for _, v := range (WeeklyParticipation{}).Check(ctx, assign) {
			if v.Date == monday && strings.Contains(v.Message, "人人有份") {
				found = true
			}
		}
		if !found {
			t.Error("工作日班次充足但未人人有份时应被标记")
		}
	})
}

func TestManager(t *testing.T) {
	t.Run("默认约束集", func(t *testing.T) {
		m := NewDefaultManager()
		if m.Count() != 7 {
			t.Errorf("默认管理器应注册7条约束，得到 %d", m.Count())
		}
	})

	t.Run("同分组注册替换", func(t *testing.T) {
		m := NewDefaultManager()
		m.Register(OneShiftPerDay{})
		if m.Count() != 7 {
			t.Errorf("同分组重复注册不应增加数量，得到 %d", m.Count())
		}
	})

	t.Run("注销分组", func(t *testing.T) {
		m := NewDefaultManager()
		m.Unregister(GroupRest24h)
		if m.Count() != 6 {
			t.Errorf("注销后应剩6条约束，得到 %d", m.Count())
		}
	})

	t.Run("松弛副本", func(t *testing.T) {
		m := NewDefaultManager()
		relaxed := m.WithoutGroup(GroupWeeklyParticipation)
		if relaxed.Count() != 6 {
			t.Errorf("松弛副本应剩6条约束，得到 %d", relaxed.Count())
		}
		if m.Count() != 7 {
			t.Error("原管理器不应被修改")
		}
	})

	t.Run("违反计数含未覆盖班次", func(t *testing.T) {
		ctx := conContext(t, conWorkers(2), nil, nil, nil)
		assign := emptyAssign(ctx)
		m := NewDefaultManager()

		total := m.CountViolations(ctx, assign)
		checked := len(m.Check(ctx, assign))
		if total != ctx.NumShifts()+checked {
			t.Errorf("违反总数应为未覆盖数 %d 加校验违反数 %d，得到 %d",
				ctx.NumShifts(), checked, total)
		}
	})

	t.Run("增量校验", func(t *testing.T) {
		workers := conWorkers(2)
		workers[1].CanNight = false
		ctx := conContext(t, workers, nil, nil, nil)
		assign := emptyAssign(ctx)
		m := NewDefaultManager()

		n := findShift(t, ctx, "2026-03-05", model.ShiftN)
		if ok, reason := m.CanAssign(ctx, assign, n, 1); ok {
			t.Error("禁派组合应被快速拒绝")
		} else if reason != "不可用或无夜班资格" {
			t.Errorf("拒绝理由不符: %s", reason)
		}

		m1 := findShift(t, ctx, "2026-03-05", model.ShiftM1)
		assign[m1] = 0
		m2 := findShift(t, ctx, "2026-03-05", model.ShiftM2)
		if ok, _ := m.CanAssign(ctx, assign, m2, 0); ok {
			t.Error("当日已有班次时应被拒绝")
		}
		if ok, reason := m.CanAssign(ctx, assign, m2, 1); !ok {
			t.Errorf("合法分配应被接受，拒绝理由: %s", reason)
		}
	})
}
