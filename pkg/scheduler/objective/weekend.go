// Package objective 实现排班软规则的代价函数
package objective

import (
	"time"

	"github.com/escala/escala/pkg/history"
	"github.com/escala/escala/pkg/model"
	"github.com/escala/escala/pkg/scheduler/constraint"
)

// SaturdayPreference 规则1：首选班次类别的阶梯偏好
//
// 每名员工每周按其最好可得类别计罚分：工作日白班 0 分，工作日夜班 1 分，
// 周六白班 2 分，周六夜班 3 分，周日白班 4 分，周日夜班 5 分。
// 含三天周末的周退化为两档：有工作日白班或任意周末班次 0 分，
// 仅工作日夜班 1 分
type SaturdayPreference struct {
	weeks []satPrefWeek
}

type satPrefWeek struct {
	threeDay bool
	// categories[t] 第 t 档类别的班次索引
	categories [6][]int
	all        []int
	weekend    []int
	// eligible[w] 该员工本周是否有可用工作日
	eligible []bool
}

// NewSaturdayPreference 创建规则1目标
func NewSaturdayPreference(ctx *constraint.Context) *SaturdayPreference {
	obj := &SaturdayPreference{}
	for _, key := range ctx.Cal.WeekOrder {
		wk := ctx.Cal.Weeks[key]
		spw := satPrefWeek{
			threeDay: hasThreeDayWeekend(ctx, wk),
			all:      wk.Shifts,
			eligible: make([]bool, ctx.NumWorkers()),
		}
		sat := wk.Monday.AddDate(0, 0, 5)
		sun := wk.Monday.AddDate(0, 0, 6)
		for _, s := range wk.Shifts {
			sh := ctx.Cal.Shifts[s]
			switch {
			case weekdayOffset(sh.Day) < 5 && !sh.IsNight():
				spw.categories[0] = append(spw.categories[0], s)
			case weekdayOffset(sh.Day) < 5 && sh.IsNight():
				spw.categories[1] = append(spw.categories[1], s)
			case sh.Day.Equal(sat) && !sh.IsNight():
				spw.categories[2] = append(spw.categories[2], s)
			case sh.Day.Equal(sat) && sh.IsNight():
				spw.categories[3] = append(spw.categories[3], s)
			case sh.Day.Equal(sun) && !sh.IsNight():
				spw.categories[4] = append(spw.categories[4], s)
			case sh.Day.Equal(sun) && sh.IsNight():
				spw.categories[5] = append(spw.categories[5], s)
			}
			if weekdayOffset(sh.Day) >= 5 {
				spw.weekend = append(spw.weekend, s)
			}
		}
		for w, worker := range ctx.Workers {
			for _, d := range wk.Days {
				if weekdayOffset(d) >= 5 {
					continue
				}
				if ctx.Unavail == nil || !ctx.Unavail.BlocksDay(worker.Name, d.Format(model.DateLayout)) {
					spw.eligible[w] = true
					break
				}
			}
		}
		obj.weeks = append(obj.weeks, spw)
	}
	return obj
}

func (*SaturdayPreference) Name() string { return "rule1_sat_pref" }

func (o *SaturdayPreference) Cost(ctx *constraint.Context, assign []int) int64 {
	var cost int64
	has := make([]bool, 7) // 六档类别 + 周末
	for _, wk := range o.weeks {
		for w := range ctx.Workers {
			if !wk.eligible[w] {
				continue
			}
			any := false
			for i := range has {
				has[i] = false
			}
			for t := 0; t < 6; t++ {
				for _, s := range wk.categories[t] {
					if assign[s] == w {
						has[t] = true
						any = true
						break
					}
				}
			}
			if !any {
				continue
			}
			if wk.threeDay {
				for _, s := range wk.weekend {
					if assign[s] == w {
						has[6] = true
						break
					}
				}
				// 仅工作日夜班时计 1 分
				if !has[0] && !has[6] && has[1] {
					cost++
				}
				continue
			}
			for t := 0; t < 6; t++ {
				if has[t] {
					cost += int64(t)
					break
				}
			}
		}
	}
	return cost
}

// ThreeDayWeekend 规则2：三天周末期间尽量少用不同员工
type ThreeDayWeekend struct {
	periods [][]int // 每个三天周末覆盖的班次索引
}

// NewThreeDayWeekend 创建规则2目标
func NewThreeDayWeekend(ctx *constraint.Context) *ThreeDayWeekend {
	obj := &ThreeDayWeekend{}
	for _, key := range ctx.Cal.WeekOrder {
		wk := ctx.Cal.Weeks[key]
		inWeek := make(map[string]bool, len(wk.Days))
		for _, d := range wk.Days {
			inWeek[d.Format(model.DateLayout)] = true
		}
		for _, d := range wk.Days {
			if !ctx.Cal.IsHoliday(d) {
				continue
			}
			var span []time.Time
			switch d.Weekday() {
			case time.Friday:
				span = []time.Time{d, d.AddDate(0, 0, 1), d.AddDate(0, 0, 2)}
			case time.Monday:
				span = []time.Time{d.AddDate(0, 0, -2), d.AddDate(0, 0, -1), d}
			default:
				continue
			}
			complete := true
			for _, pd := range span {
				if !inWeek[pd.Format(model.DateLayout)] {
					complete = false
					break
				}
			}
			if !complete {
				continue
			}
			var indices []int
			for _, pd := range span {
				indices = append(indices, ctx.Cal.ShiftsByDay[pd.Format(model.DateLayout)]...)
			}
			if len(indices) > 0 {
				obj.periods = append(obj.periods, indices)
			}
		}
	}
	return obj
}

func (*ThreeDayWeekend) Name() string { return "rule2_3day_min_workers" }

func (o *ThreeDayWeekend) Cost(ctx *constraint.Context, assign []int) int64 {
	var cost int64
	seen := make([]bool, ctx.NumWorkers())
	for _, period := range o.periods {
		for i := range seen {
			seen[i] = false
		}
		for _, s := range period {
			if w := assign[s]; w != constraint.Unassigned && !seen[w] {
				seen[w] = true
				cost++
			}
		}
	}
	return cost
}

// WeekendLimits 规则3：非三天周末的周内，同一员工避免周六周日都有班
type WeekendLimits struct {
	weeks [][2][]int // [周六班次, 周日班次]，跳过三天周末的周
}

// NewWeekendLimits 创建规则3目标
func NewWeekendLimits(ctx *constraint.Context) *WeekendLimits {
	obj := &WeekendLimits{}
	for _, key := range ctx.Cal.WeekOrder {
		wk := ctx.Cal.Weeks[key]
		if hasThreeDayWeekend(ctx, wk) {
			continue
		}
		var pair [2][]int
		for _, s := range wk.Shifts {
			switch ctx.Cal.Shifts[s].Day.Weekday() {
			case time.Saturday:
				pair[0] = append(pair[0], s)
			case time.Sunday:
				pair[1] = append(pair[1], s)
			}
		}
		obj.weeks = append(obj.weeks, pair)
	}
	return obj
}

func (*WeekendLimits) Name() string { return "rule3_weekend_limits" }

func (o *WeekendLimits) Cost(ctx *constraint.Context, assign []int) int64 {
	var cost int64
	for _, pair := range o.weeks {
		for w := 0; w < ctx.NumWorkers(); w++ {
			hasSat, hasSun := false, false
			for _, s := range pair[0] {
				if assign[s] == w {
					hasSat = true
					break
				}
			}
			if !hasSat {
				continue
			}
			for _, s := range pair[1] {
				if assign[s] == w {
					hasSun = true
					break
				}
			}
			if hasSun {
				cost++
			}
		}
	}
	return cost
}

// ConsecutiveWeekend 规则4：避免同一员工连续周末有班而他人没有
type ConsecutiveWeekend struct {
	// weekendInMonth[i] 第 i 周落在目标月内的周末班次
	weekendInMonth [][]int
	// hasWeekendShifts[i] 第 i 周是否存在周末班次（不限月份）
	hasWeekendShifts []bool
	// histBase[w] 员工在目标月历史中是否已有周末班
	histBase []bool
	// workedPrev[i][w] 员工按历史是否在第 i 周周一前的周末工作过
	workedPrev [][]bool
}

// NewConsecutiveWeekend 创建规则4目标
func NewConsecutiveWeekend(ctx *constraint.Context) *ConsecutiveWeekend {
	numWeeks := len(ctx.Cal.WeekOrder)
	obj := &ConsecutiveWeekend{
		weekendInMonth:   make([][]int, numWeeks),
		hasWeekendShifts: make([]bool, numWeeks),
		histBase:         make([]bool, ctx.NumWorkers()),
		workedPrev:       make([][]bool, numWeeks),
	}

	// 历史中落在目标月的周末班
	workedDates := make(map[string]map[string]bool) // worker -> date -> true
	if ctx.Hist != nil {
		ctx.Hist.IterAssignments(func(worker string, date time.Time, e history.Entry) {
			if workedDates[worker] == nil {
				workedDates[worker] = make(map[string]bool)
			}
			workedDates[worker][e.Date] = true
			if date.Year() == ctx.Year && date.Month() == ctx.Month && weekdayOffset(date) >= 5 {
				if w, ok := ctx.WorkerIndex[worker]; ok {
					obj.histBase[w] = true
				}
			}
		})
	}

	for i, key := range ctx.Cal.WeekOrder {
		wk := ctx.Cal.Weeks[key]
		for _, s := range wk.Shifts {
			sh := ctx.Cal.Shifts[s]
			if weekdayOffset(sh.Day) < 5 {
				continue
			}
			obj.hasWeekendShifts[i] = true
			if sh.Day.Month() == ctx.Month {
				obj.weekendInMonth[i] = append(obj.weekendInMonth[i], s)
			}
		}

		// 按历史判断上一个周末（周一前的周六周日）是否工作过
		prev := make([]bool, ctx.NumWorkers())
		prevSat := wk.Monday.AddDate(0, 0, -2).Format(model.DateLayout)
		prevSun := wk.Monday.AddDate(0, 0, -1).Format(model.DateLayout)
		for w, worker := range ctx.Workers {
			dates := workedDates[worker.Name]
			prev[w] = dates[prevSat] || dates[prevSun]
		}
		obj.workedPrev[i] = prev
	}
	return obj
}

func (*ConsecutiveWeekend) Name() string { return "rule4_consec_weekend" }

func (o *ConsecutiveWeekend) Cost(ctx *constraint.Context, assign []int) int64 {
	numWorkers := ctx.NumWorkers()
	numWeeks := len(o.weekendInMonth)

	// hasWeek[w][i] 员工第 i 周在目标月内是否有周末班
	hasWeek := make([][]bool, numWorkers)
	prefix := make([][]bool, numWorkers)
	for w := 0; w < numWorkers; w++ {
		hasWeek[w] = make([]bool, numWeeks)
		prefix[w] = make([]bool, numWeeks)
	}
	for i := 0; i < numWeeks; i++ {
		for _, s := range o.weekendInMonth[i] {
			if w := assign[s]; w != constraint.Unassigned {
				hasWeek[w][i] = true
			}
		}
	}
	for w := 0; w < numWorkers; w++ {
		run := o.histBase[w]
		for i := 0; i < numWeeks; i++ {
			run = run || hasWeek[w][i]
			prefix[w][i] = run
		}
	}

	var cost int64
	for i := 0; i < numWeeks; i++ {
		if !o.hasWeekendShifts[i] {
			continue
		}
		for w := 0; w < numWorkers; w++ {
			if !o.workedPrev[i][w] || !hasWeek[w][i] {
				continue
			}
			// 是否仍有其他员工到上一周为止没有任何周末班
			anyOtherWithout := false
			for other := 0; other < numWorkers; other++ {
				if other == w {
					continue
				}
				if i == 0 {
					if !o.histBase[other] {
						anyOtherWithout = true
						break
					}
				} else if !prefix[other][i-1] {
					anyOtherWithout = true
					break
				}
			}
			if anyOtherWithout {
				cost++
			}
		}
	}
	return cost
}

// M2Priority 规则5：早班尽量不分给 18 小时负荷的员工
type M2Priority struct {
	m1Shifts []int
	is18h    []bool
}

// NewM2Priority 创建规则5目标
func NewM2Priority(ctx *constraint.Context) *M2Priority {
	obj := &M2Priority{is18h: make([]bool, ctx.NumWorkers())}
	for s, sh := range ctx.Cal.Shifts {
		if sh.Kind == model.ShiftM1 {
			obj.m1Shifts = append(obj.m1Shifts, s)
		}
	}
	for w, worker := range ctx.Workers {
		obj.is18h[w] = worker.WeeklyLoad == 18
	}
	return obj
}

func (*M2Priority) Name() string { return "rule5_m2_priority" }

func (o *M2Priority) Cost(_ *constraint.Context, assign []int) int64 {
	var cost int64
	for _, s := range o.m1Shifts {
		if w := assign[s]; w != constraint.Unassigned && o.is18h[w] {
			cost++
		}
	}
	return cost
}
