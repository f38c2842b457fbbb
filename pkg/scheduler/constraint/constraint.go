// Package constraint 定义硬约束接口、分组与排班上下文
package constraint

import (
	"fmt"
	"time"

	"github.com/escala/escala/pkg/availability"
	"github.com/escala/escala/pkg/calendar"
	"github.com/escala/escala/pkg/history"
	"github.com/escala/escala/pkg/model"
)

// Group 约束分组标识，用于诊断与松弛分析
type Group string

const (
	GroupCoverage            Group = "coverage"
	GroupOneShiftPerDay      Group = "one_shift_per_day"
	GroupNightRestrictions   Group = "night_restrictions"
	GroupAvailability        Group = "availability"
	GroupRequired            Group = "required"
	GroupRest24h             Group = "24h_rest_interval"
	GroupCrossWindowRest     Group = "cross_window_rest"
	GroupFixedAssignments    Group = "fixed_assignments"
	GroupWeeklyParticipation Group = "weekly_participation"
)

// Violation 一条硬约束违反
type Violation struct {
	Group   Group  `json:"group"`
	Worker  string `json:"worker,omitempty"`
	Date    string `json:"date,omitempty"`
	Message string `json:"message"`
}

// Constraint 硬约束接口
//
// Check 对完整解做整体校验；CheckAssign 对单个候选分配做增量校验，
// 仅依赖局部信息的约束实现后者，全局性约束（如周参与度）直接放行
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Group 返回约束分组
	Group() Group

	// Check 校验整个解，返回全部违反
	Check(ctx *Context, assign []int) []Violation

	// CheckAssign 校验将 shift 分配给 worker 是否立即违反本约束
	CheckAssign(ctx *Context, assign []int, shift, worker int) bool
}

// Unassigned 表示班次尚未分配
const Unassigned = -1

// Context 求解上下文：输入数据及全部派生索引
type Context struct {
	Cal      *calendar.Calendar
	Workers  []model.Worker
	Unavail  *availability.Set
	Required *availability.Set
	Hist     *history.View

	Year  int
	Month time.Month

	// PastStats 员工名 -> 统计桶 -> 历史计数（已含补偿积分）
	PastStats map[string]map[string]int
	// PastDOW 员工名 -> 星期几（周一=0）-> 历史计数
	PastDOW       map[string][7]int
	EquityWeights map[string]int
	DOWWeight     int

	WorkerIndex map[string]int
	// Pins 班次索引 -> 必须分配的员工索引，无则为 Unassigned
	Pins []int
	// PinConflicts 固定分配与必排声明之间的矛盾
	PinConflicts []string
	// Forbidden[s][w] 因不可用或夜班资格被禁止的组合
	Forbidden [][]bool
	// RestConflicts[s] 与班次 s 重叠或间隔不足 24h 的其他班次
	RestConflicts [][]int
	// CrossBlocked[s][w] 与窗口外历史班次休息冲突的组合
	CrossBlocked [][]bool
	// RequiredDays 员工索引 -> 日期 -> 必须整天至少一个班次
	RequiredDays map[int]map[string]bool
	// EligibleWeeks 周键 -> 有资格参与该周分配的员工索引
	EligibleWeeks map[model.WeekKey][]int

	// 软规则用的预计算班次对（两班次分给同一员工即计一次罚分）
	Consec48Pairs      [][2]int
	NightIntervalPairs [][2]int
	ConsecNightPairs   [][2]int
}

// NewContext 创建求解上下文并构建全部派生索引
func NewContext(cal *calendar.Calendar, workers []model.Worker,
	unavail, required *availability.Set, hist *history.View,
	year int, month time.Month) *Context {

	ctx := &Context{
		Cal:           cal,
		Workers:       workers,
		Unavail:       unavail,
		Required:      required,
		Hist:          hist,
		Year:          year,
		Month:         month,
		WorkerIndex:   make(map[string]int, len(workers)),
		RequiredDays:  make(map[int]map[string]bool),
		EligibleWeeks: make(map[model.WeekKey][]int),
	}
	for i, w := range workers {
		ctx.WorkerIndex[w.Name] = i
	}

	ctx.buildForbidden()
	ctx.buildPins()
	ctx.buildRestConflicts()
	ctx.buildCrossBlocked()
	ctx.buildEligibility()
	ctx.buildSoftPairs()
	return ctx
}

// NumShifts 返回窗口内班次总数
func (c *Context) NumShifts() int { return len(c.Cal.Shifts) }

// NumWorkers 返回员工总数
func (c *Context) NumWorkers() int { return len(c.Workers) }

// buildForbidden 计算不可用与夜班资格禁止组合
func (c *Context) buildForbidden() {
	c.Forbidden = make([][]bool, len(c.Cal.Shifts))
	for s, sh := range c.Cal.Shifts {
		row := make([]bool, len(c.Workers))
		for w, worker := range c.Workers {
			if sh.Kind == model.ShiftN && !worker.CanNight {
				row[w] = true
				continue
			}
			if c.Unavail != nil && c.Unavail.BlocksShift(worker.Name, sh.Date(), sh.Kind) {
				row[w] = true
			}
		}
		c.Forbidden[s] = row
	}
}

// buildPins 汇总必排班次与历史固定分配
// 窗口外的日期静默跳过
func (c *Context) buildPins() {
	c.Pins = make([]int, len(c.Cal.Shifts))
	for i := range c.Pins {
		c.Pins[i] = Unassigned
	}

	pin := func(shift, worker int, source string) {
		if c.Pins[shift] != Unassigned && c.Pins[shift] != worker {
			c.PinConflicts = append(c.PinConflicts, fmt.Sprintf(
				"班次 %s %s 同时被指定给 %s 与 %s (%s)",
				c.Cal.Shifts[shift].Date(), c.Cal.Shifts[shift].Kind,
				c.Workers[c.Pins[shift]].Name, c.Workers[worker].Name, source))
			return
		}
		if c.Forbidden[shift][worker] {
			c.PinConflicts = append(c.PinConflicts, fmt.Sprintf(
				"员工 %s 被固定到 %s %s，但该组合因不可用或夜班资格被禁止 (%s)",
				c.Workers[worker].Name,
				c.Cal.Shifts[shift].Date(),
				c.Cal.Shifts[shift].Kind, source))
			return
		}
		c.Pins[shift] = worker
	}

	// 必排声明
	if c.Required != nil {
		for w, worker := range c.Workers {
			for date := range c.Required.Dates(worker.Name) {
				indices, ok := c.Cal.ShiftsByDay[date]
				if !ok {
					continue
				}
				if c.Required.BlocksDay(worker.Name, date) {
					// 整天必排：当日至少一个班次
					if c.RequiredDays[w] == nil {
						c.RequiredDays[w] = make(map[string]bool)
					}
					c.RequiredDays[w][date] = true
					continue
				}
				for _, s := range indices {
					if c.Required.BlocksShift(worker.Name, date, c.Cal.Shifts[s].Kind) {
						pin(s, w, "必排声明")
					}
				}
			}
		}
	}

	// 历史固定分配
	if c.Hist != nil {
		for _, d := range c.Cal.Window.Days {
			for w, worker := range c.Workers {
				kind := c.Hist.FixedShiftFor(worker.Name, d)
				if kind == "" {
					continue
				}
				for _, s := range c.Cal.ShiftsByDay[d.Format(model.DateLayout)] {
					if c.Cal.Shifts[s].Kind == kind {
						pin(s, w, "历史固定分配")
					}
				}
			}
		}
	}
}

// buildRestConflicts 计算重叠或间隔不足 24h 的班次对
func (c *Context) buildRestConflicts() {
	n := len(c.Cal.Shifts)
	c.RestConflicts = make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			si, sj := c.Cal.Shifts[i], c.Cal.Shifts[j]
			// 相距超过两天的班次不可能冲突
			if dayDelta(si.Day, sj.Day) > 2 {
				continue
			}
			if si.Overlaps(sj) || si.GapHours(sj) < model.MinRestHours {
				c.RestConflicts[i] = append(c.RestConflicts[i], j)
				c.RestConflicts[j] = append(c.RestConflicts[j], i)
			}
		}
	}
}

// buildCrossBlocked 根据窗口外的历史班次计算跨窗口休息冲突
func (c *Context) buildCrossBlocked() {
	c.CrossBlocked = make([][]bool, len(c.Cal.Shifts))
	for i := range c.CrossBlocked {
		c.CrossBlocked[i] = make([]bool, len(c.Workers))
	}
	if c.Hist == nil {
		return
	}

	windowDays := make(map[string]bool, len(c.Cal.Window.Days))
	for _, d := range c.Cal.Window.Days {
		windowDays[d.Format(model.DateLayout)] = true
	}

	c.Hist.IterAssignments(func(worker string, date time.Time, e history.Entry) {
		// 窗口内的历史分配作为固定分配处理，不在此重复
		if windowDays[e.Date] {
			return
		}
		w, ok := c.WorkerIndex[worker]
		if !ok {
			return
		}
		histShift := model.NewShift(-1, date, e.Shift)
		for s, sh := range c.Cal.Shifts {
			if dayDelta(sh.Day, date) > 2 {
				continue
			}
			if histShift.Overlaps(sh) || histShift.GapHours(sh) < model.MinRestHours {
				c.CrossBlocked[s][w] = true
			}
		}
	})
}

// buildEligibility 计算每周有资格参与分配的员工
// 有资格 = 在该周含节假日的工作日中至少有一天未整天不可用
func (c *Context) buildEligibility() {
	for key, wk := range c.Cal.Weeks {
		for w, worker := range c.Workers {
			eligible := false
			for _, d := range wk.WeekdaysForDistribution {
				if c.Unavail == nil || !c.Unavail.BlocksDay(worker.Name, d.Format(model.DateLayout)) {
					eligible = true
					break
				}
			}
			if eligible {
				c.EligibleWeeks[key] = append(c.EligibleWeeks[key], w)
			}
		}
	}
}

// buildSoftPairs 预计算软规则使用的班次对
func (c *Context) buildSoftPairs() {
	shifts := c.Cal.Shifts
	n := len(shifts)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			si, sj := shifts[i], shifts[j]
			if dayDelta(si.Day, sj.Day) > 3 {
				continue
			}

			// 连续班次惩罚区间 [24,48)
			if !si.Day.Equal(sj.Day) && !si.Overlaps(sj) {
				gap := si.GapHours(sj)
				if gap >= model.ConsecPenaltyMinHours && gap < model.ConsecPenaltyMaxHours {
					c.Consec48Pairs = append(c.Consec48Pairs, [2]int{i, j})
				}
			}

			if si.IsNight() && sj.IsNight() {
				delta := si.StartDelta(sj)
				if delta <= model.NightMinIntervalHours {
					c.NightIntervalPairs = append(c.NightIntervalPairs, [2]int{i, j})
				}
				if dayDelta(si.Day, sj.Day) == 1 && delta < model.NightConsecutiveMinHours {
					c.ConsecNightPairs = append(c.ConsecNightPairs, [2]int{i, j})
				}
			}
		}
	}
}

// dayDelta 返回两个日期相差的天数（绝对值）
func dayDelta(a, b time.Time) int {
	d := int(a.Sub(b).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}

// WorkerName 返回员工索引对应的名字
func (c *Context) WorkerName(w int) string {
	if w < 0 || w >= len(c.Workers) {
		return ""
	}
	return c.Workers[w].Name
}
