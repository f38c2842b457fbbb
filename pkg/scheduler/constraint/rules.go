// Package constraint 定义硬约束接口、分组与排班上下文
package constraint

import (
	"fmt"

	"github.com/escala/escala/pkg/model"
)

// OneShiftPerDay 每名员工每天至多一个班次
type OneShiftPerDay struct{}

func (OneShiftPerDay) Name() string { return "每日单班次" }
func (OneShiftPerDay) Group() Group { return GroupOneShiftPerDay }

func (OneShiftPerDay) Check(ctx *Context, assign []int) []Violation {
	var violations []Violation
	for date, indices := range ctx.Cal.ShiftsByDay {
		seen := make(map[int]bool, len(indices))
		for _, s := range indices {
			w := assign[s]
			if w == Unassigned {
				continue
			}
			if seen[w] {
				violations = append(violations, Violation{
					Group:   GroupOneShiftPerDay,
					Worker:  ctx.WorkerName(w),
					Date:    date,
					Message: fmt.Sprintf("%s 在 %s 被分配了多个班次", ctx.WorkerName(w), date),
				})
			}
			seen[w] = true
		}
	}
	return violations
}

func (OneShiftPerDay) CheckAssign(ctx *Context, assign []int, shift, worker int) bool {
	date := ctx.Cal.Shifts[shift].Date()
	for _, s := range ctx.Cal.ShiftsByDay[date] {
		if s != shift && assign[s] == worker {
			return false
		}
	}
	return true
}

// NightEligibility 不可排夜班的员工不得分配夜班
type NightEligibility struct{}

func (NightEligibility) Name() string { return "夜班资格" }
func (NightEligibility) Group() Group { return GroupNightRestrictions }

func (NightEligibility) Check(ctx *Context, assign []int) []Violation {
	var violations []Violation
	for s, sh := range ctx.Cal.Shifts {
		w := assign[s]
		if w == Unassigned || !sh.IsNight() {
			continue
		}
		if !ctx.Workers[w].CanNight {
			violations = append(violations, Violation{
				Group:   GroupNightRestrictions,
				Worker:  ctx.WorkerName(w),
				Date:    sh.Date(),
				Message: fmt.Sprintf("%s 不可排夜班，却被分配 %s 的夜班", ctx.WorkerName(w), sh.Date()),
			})
		}
	}
	return violations
}

func (NightEligibility) CheckAssign(ctx *Context, assign []int, shift, worker int) bool {
	if !ctx.Cal.Shifts[shift].IsNight() {
		return true
	}
	return ctx.Workers[worker].CanNight
}

// Availability 不可用声明：被声明的员工-班次组合不得分配
type Availability struct{}

func (Availability) Name() string { return "不可用声明" }
func (Availability) Group() Group { return GroupAvailability }

func (Availability) Check(ctx *Context, assign []int) []Violation {
	var violations []Violation
	for s, sh := range ctx.Cal.Shifts {
		w := assign[s]
		if w == Unassigned || ctx.Unavail == nil {
			continue
		}
		if ctx.Unavail.BlocksShift(ctx.WorkerName(w), sh.Date(), sh.Kind) {
			violations = append(violations, Violation{
				Group:   GroupAvailability,
				Worker:  ctx.WorkerName(w),
				Date:    sh.Date(),
				Message: fmt.Sprintf("%s 声明 %s %s 不可用", ctx.WorkerName(w), sh.Date(), sh.Kind),
			})
		}
	}
	return violations
}

func (Availability) CheckAssign(ctx *Context, assign []int, shift, worker int) bool {
	if ctx.Unavail == nil {
		return true
	}
	sh := ctx.Cal.Shifts[shift]
	return !ctx.Unavail.BlocksShift(ctx.WorkerName(worker), sh.Date(), sh.Kind)
}

// Required 必排声明：指定班次必须分配给声明员工，整天声明要求当日至少一个班次
type Required struct{}

func (Required) Name() string { return "必排声明" }
func (Required) Group() Group { return GroupRequired }

func (Required) Check(ctx *Context, assign []int) []Violation {
	var violations []Violation

	// 指定班次
	for s, w := range ctx.Pins {
		if w == Unassigned {
			continue
		}
		if assign[s] != w {
			sh := ctx.Cal.Shifts[s]
			violations = append(violations, Violation{
				Group:   GroupRequired,
				Worker:  ctx.WorkerName(w),
				Date:    sh.Date(),
				Message: fmt.Sprintf("%s %s 必须分配给 %s", sh.Date(), sh.Kind, ctx.WorkerName(w)),
			})
		}
	}

	// 整天必排
	for w, dates := range ctx.RequiredDays {
		for date := range dates {
			found := false
			for _, s := range ctx.Cal.ShiftsByDay[date] {
				if assign[s] == w {
					found = true
					break
				}
			}
			if !found {
				violations = append(violations, Violation{
					Group:   GroupRequired,
					Worker:  ctx.WorkerName(w),
					Date:    date,
					Message: fmt.Sprintf("%s 在 %s 必须至少分配一个班次", ctx.WorkerName(w), date),
				})
			}
		}
	}
	return violations
}

func (Required) CheckAssign(ctx *Context, assign []int, shift, worker int) bool {
	pinned := ctx.Pins[shift]
	return pinned == Unassigned || pinned == worker
}

// Rest24h 任意两个重叠或间隔不足 24h 的班次不得分给同一员工
type Rest24h struct{}

func (Rest24h) Name() string { return "24小时休息间隔" }
func (Rest24h) Group() Group { return GroupRest24h }

func (Rest24h) Check(ctx *Context, assign []int) []Violation {
	var violations []Violation
	for s, conflicts := range ctx.RestConflicts {
		w := assign[s]
		if w == Unassigned {
			continue
		}
		for _, other := range conflicts {
			if other > s && assign[other] == w {
				violations = append(violations, Violation{
					Group:  GroupRest24h,
					Worker: ctx.WorkerName(w),
					Date:   ctx.Cal.Shifts[s].Date(),
					Message: fmt.Sprintf("%s 的班次 %s %s 与 %s %s 休息间隔不足",
						ctx.WorkerName(w),
						ctx.Cal.Shifts[s].Date(), ctx.Cal.Shifts[s].Kind,
						ctx.Cal.Shifts[other].Date(), ctx.Cal.Shifts[other].Kind),
				})
			}
		}
	}
	return violations
}

func (Rest24h) CheckAssign(ctx *Context, assign []int, shift, worker int) bool {
	for _, other := range ctx.RestConflicts[shift] {
		if assign[other] == worker {
			return false
		}
	}
	return true
}

// CrossWindowRest 与窗口外历史班次的休息冲突
type CrossWindowRest struct{}

func (CrossWindowRest) Name() string { return "跨窗口休息间隔" }
func (CrossWindowRest) Group() Group { return GroupCrossWindowRest }

func (CrossWindowRest) Check(ctx *Context, assign []int) []Violation {
	var violations []Violation
	for s, blocked := range ctx.CrossBlocked {
		w := assign[s]
		if w == Unassigned || !blocked[w] {
			continue
		}
		sh := ctx.Cal.Shifts[s]
		violations = append(violations, Violation{
			Group:  GroupCrossWindowRest,
			Worker: ctx.WorkerName(w),
			Date:   sh.Date(),
			Message: fmt.Sprintf("%s 的班次 %s %s 与窗口外历史班次休息间隔不足",
				ctx.WorkerName(w), sh.Date(), sh.Kind),
		})
	}
	return violations
}

func (CrossWindowRest) CheckAssign(ctx *Context, assign []int, shift, worker int) bool {
	return !ctx.CrossBlocked[shift][worker]
}

// WeeklyParticipation 周参与度约束
//
// 每周有资格的员工至少一个班次；当工作日班次不足以让所有有资格员工
// 各得其一时，任何员工都不得占用多于一个工作日班次；当工作日班次数
// 不少于有资格员工数时，必须人人有份
type WeeklyParticipation struct{}

func (WeeklyParticipation) Name() string { return "周参与度" }
func (WeeklyParticipation) Group() Group { return GroupWeeklyParticipation }

func (WeeklyParticipation) Check(ctx *Context, assign []int) []Violation {
	var violations []Violation
	for key, wk := range ctx.Cal.Weeks {
		eligible := ctx.EligibleWeeks[key]
		if len(eligible) == 0 {
			continue
		}

		// 每名有资格员工该周至少一个班次
		hasShift := make(map[int]bool)
		for _, s := range wk.Shifts {
			if w := assign[s]; w != Unassigned {
				hasShift[w] = true
			}
		}
		for _, w := range eligible {
			if !hasShift[w] {
				violations = append(violations, Violation{
					Group:   GroupWeeklyParticipation,
					Worker:  ctx.WorkerName(w),
					Date:    wk.Monday.Format(model.DateLayout),
					Message: fmt.Sprintf("%s 在 %s 周没有任何班次", ctx.WorkerName(w), key),
				})
			}
		}

		// 工作日班次（含节假日）的分摊规则
		weekdayCount := make(map[int]int)
		hasWeekday := make(map[int]bool)
		for _, s := range wk.WeekdayShiftsForDist {
			if w := assign[s]; w != Unassigned {
				weekdayCount[w]++
				hasWeekday[w] = true
			}
		}
		allHaveOne := true
		for _, w := range eligible {
			if !hasWeekday[w] {
				allHaveOne = false
				break
			}
		}

		if !allHaveOne {
			for w, n := range weekdayCount {
				if n > 1 {
					violations = append(violations, Violation{
						Group:  GroupWeeklyParticipation,
						Worker: ctx.WorkerName(w),
						Date:   wk.Monday.Format(model.DateLayout),
						Message: fmt.Sprintf("%s 周尚有员工无工作日班次时 %s 占用了 %d 个",
							key, ctx.WorkerName(w), n),
					})
				}
			}
		}

		// 班次充足时必须人人有份
		if len(wk.WeekdayShiftsForDist) >= len(eligible) && !allHaveOne {
			violations = append(violations, Violation{
				Group:   GroupWeeklyParticipation,
				Date:    wk.Monday.Format(model.DateLayout),
				Message: fmt.Sprintf("%s 周工作日班次充足但未做到人人有份", key),
			})
		}
	}
	return violations
}

func (WeeklyParticipation) CheckAssign(_ *Context, _ []int, _, _ int) bool {
	// 全局性约束，逐分配阶段不做判定
	return true
}
