// Package scheduler 提供月度排班生成引擎
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/escala/escala/pkg/availability"
	"github.com/escala/escala/pkg/calendar"
	"github.com/escala/escala/pkg/diagnostics"
	"github.com/escala/escala/pkg/errors"
	"github.com/escala/escala/pkg/history"
	"github.com/escala/escala/pkg/model"
	"github.com/escala/escala/pkg/scheduler/constraint"
	"github.com/escala/escala/pkg/scheduler/objective"
	"github.com/escala/escala/pkg/scheduler/optimizer"
	"github.com/escala/escala/pkg/scheduler/solver"
	"github.com/escala/escala/pkg/stats"
)

// GenerateInput 一次排班生成的全部输入
type GenerateInput struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`

	Workers []model.Worker `json:"workers"`

	// Unavailable / Required 员工名 -> 声明 token 列表
	Unavailable map[string][]string `json:"unavailable,omitempty"`
	Required    map[string][]string `json:"required,omitempty"`

	History history.History `json:"history,omitempty"`

	// HolidayDays 目标月份内的节假日日号；HolidayDates 显式节假日日期。
	// 两者都为空时对窗口覆盖的各年月自动计算公共假日。
	HolidayDays  []int       `json:"holiday_days,omitempty"`
	HolidayDates []time.Time `json:"holiday_dates,omitempty"`

	EquityWeights map[string]int `json:"equity_weights,omitempty"`
	DOWWeight     int            `json:"dow_weight,omitempty"`

	// ManualCredits 手工补偿积分，覆盖自动缺勤积分
	ManualCredits map[string]map[string]int `json:"manual_credits,omitempty"`

	// Lexicographic 为 true 时按阶段字典序求解，否则加权求和
	Lexicographic bool `json:"lexicographic"`
}

// Engine 排班引擎：构建窗口与约束上下文，调用求解器并提取结果
type Engine struct {
	manager *constraint.Manager
	config  *optimizer.OptimizationConfig
}

// NewEngine 创建排班引擎
func NewEngine(manager *constraint.Manager, config *optimizer.OptimizationConfig) *Engine {
	if manager == nil {
		manager = constraint.NewDefaultManager()
	}
	return &Engine{
		manager: manager,
		config:  config,
	}
}

// Manager 返回引擎使用的约束管理器
func (e *Engine) Manager() *constraint.Manager {
	return e.manager
}

// Generate 生成目标月份的排班
func (e *Engine) Generate(ctx context.Context, in GenerateInput) (*model.ScheduleResult, error) {
	if err := validateInput(in); err != nil {
		return &model.ScheduleResult{
			Stats:        model.SolveStats{Status: model.StatusModelInvalid, Error: err.Error()},
			ErrorMessage: err.Error(),
		}, err
	}

	cal := calendar.Build(in.Year, in.Month, in.HolidayDays, in.HolidayDates)
	view := history.NewView(in.History)

	// 历史中已排过的周从求解窗口剔除，结果阶段再从历史回填
	excluded := excludedWeeks(cal, view)
	allDays := cal.Window.Days
	if len(excluded) > 0 {
		cal.RemoveDays(excluded)
	}
	if len(cal.Shifts) == 0 {
		err := errors.ModelInvalid("窗口内全部周都已有排班")
		return &model.ScheduleResult{
			Stats:        model.SolveStats{Status: model.StatusModelInvalid, Error: err.Error()},
			ErrorMessage: err.Error(),
		}, err
	}

	unavail := availability.NewSet(availability.ParseAll(in.Unavailable))
	required := availability.NewSet(availability.ParseAll(in.Required))

	schedCtx := constraint.NewContext(cal, in.Workers, unavail, required, view, in.Year, in.Month)
	e.attachEquity(schedCtx, in, cal, view, unavail)

	var s solver.Solver
	if in.Lexicographic {
		s = solver.NewLexicographicSolver(e.manager, e.config)
	} else {
		s = solver.NewWeightedSolver(e.manager, e.config)
	}

	res, err := s.Solve(ctx, schedCtx)
	if err != nil {
		return nil, err
	}

	result := &model.ScheduleResult{
		Stats:     *res.Stats,
		PastStats: schedCtx.PastStats,
	}
	result.Stats.StageCosts = res.StageCosts
	if !res.Succeeded() {
		result.ErrorMessage = res.Stats.Error
		if res.Stats.Status == model.StatusInfeasible {
			var budget time.Duration
			if e.config != nil {
				budget = e.config.MaxTime / 4
			}
			report := diagnostics.Diagnose(ctx, schedCtx, e.manager, budget)
			result.Diagnostic = report
			if report.Summary != "" {
				result.ErrorMessage = result.ErrorMessage + "。" + report.Summary
			}
		}
		return result, nil
	}

	result.Success = true
	result.Schedule, result.Weekly, result.Assignments = Extract(schedCtx, res.Assign)
	result.CurrentStats = objective.CurrentStats(schedCtx, res.Assign)
	mergeExcludedWeeks(result, cal, allDays, view, in.Workers, excluded)
	return result, nil
}

// attachEquity 计算历史统计与补偿积分并挂到求解上下文
func (e *Engine) attachEquity(schedCtx *constraint.Context, in GenerateInput,
	cal *calendar.Calendar, view *history.View, unavail *availability.Set) {

	activeDates := make(map[string]bool, len(cal.Window.Days))
	for _, d := range cal.Window.Days {
		activeDates[d.Format(model.DateLayout)] = true
	}

	credits := stats.MergeCredits(
		stats.AutoAbsenceCredits(unavail, cal.Window.Start), in.ManualCredits)
	schedCtx.PastStats, schedCtx.PastDOW = stats.EquityTotals(view, in.Workers, activeDates, credits)

	schedCtx.EquityWeights = in.EquityWeights
	if schedCtx.EquityWeights == nil {
		schedCtx.EquityWeights = model.EquityWeights
	}
	schedCtx.DOWWeight = in.DOWWeight
	if schedCtx.DOWWeight == 0 {
		schedCtx.DOWWeight = model.DOWEquityWeight
	}
}

// validateInput 校验生成输入
func validateInput(in GenerateInput) error {
	if in.Year < 2000 || in.Year > 2200 {
		return errors.ModelInvalid(fmt.Sprintf("年份超出范围: %d", in.Year))
	}
	if in.Month < time.January || in.Month > time.December {
		return errors.ModelInvalid(fmt.Sprintf("月份无效: %d", in.Month))
	}
	if len(in.Workers) == 0 {
		return errors.ModelInvalid("员工列表为空")
	}
	seen := make(map[string]bool, len(in.Workers))
	for _, w := range in.Workers {
		if w.Name == "" {
			return errors.ModelInvalid("员工名不能为空")
		}
		if seen[w.Name] {
			return errors.ModelInvalid(fmt.Sprintf("员工名重复: %s", w.Name))
		}
		seen[w.Name] = true
		if !w.HasValidLoad() {
			return errors.ModelInvalid(fmt.Sprintf("员工 %s 的周工时无效: %d", w.Name, w.WeeklyLoad))
		}
	}
	return nil
}

// excludedWeeks 返回窗口内已有历史排班的周
func excludedWeeks(cal *calendar.Calendar, view *history.View) map[model.WeekKey]bool {
	scheduled := view.ScheduledWeeks()
	excluded := make(map[model.WeekKey]bool)
	for _, key := range cal.WeekOrder {
		if scheduled[key] {
			excluded[key] = true
		}
	}
	return excluded
}

// Extract 把解向量展开为排班表、周工时统计与分配列表。
// 排班表只含目标月份的日期，分配列表覆盖整个求解窗口。
func Extract(schedCtx *constraint.Context, assign []int) (model.Schedule, model.Weekly, []model.Assignment) {
	schedule := make(model.Schedule)
	assignments := make([]model.Assignment, 0, len(assign))

	for s, w := range assign {
		if w == constraint.Unassigned {
			continue
		}
		shift := schedCtx.Cal.Shifts[s]
		date := shift.Date()
		worker := schedCtx.Workers[w].Name

		assignments = append(assignments, model.Assignment{
			Worker: worker,
			Date:   date,
			Shift:  shift.Kind,
			Dur:    shift.Duration,
		})

		if schedCtx.Cal.Window.InTargetMonth(shift.Day) {
			if schedule[date] == nil {
				schedule[date] = make(map[model.ShiftKind]string)
			}
			schedule[date][shift.Kind] = worker
		}
	}

	weekly := extractWeekly(schedCtx, assign)
	return schedule, weekly, assignments
}

// extractWeekly 按 ISO 周统计每个员工的工时与超缺时
func extractWeekly(schedCtx *constraint.Context, assign []int) model.Weekly {
	weekly := make(model.Weekly, len(schedCtx.Cal.WeekOrder))

	for _, key := range schedCtx.Cal.WeekOrder {
		wk := schedCtx.Cal.Weeks[key]
		hours := make(map[string]int)
		for _, s := range wk.Shifts {
			if w := assign[s]; w != constraint.Unassigned {
				hours[schedCtx.Workers[w].Name] += schedCtx.Cal.Shifts[s].Duration
			}
		}

		weekStats := make(map[string]model.WeeklyStat, len(hours))
		for _, worker := range schedCtx.Workers {
			h, worked := hours[worker.Name]
			if !worked {
				continue
			}
			stat := model.WeeklyStat{Hours: h}
			if h > worker.WeeklyLoad {
				stat.Overtime = h - worker.WeeklyLoad
			} else {
				stat.Undertime = worker.WeeklyLoad - h
			}
			weekStats[worker.Name] = stat
		}
		weekly[key.String()] = weekStats
	}

	return weekly
}

// mergeExcludedWeeks 把被剔除周的历史排班回填到结果：
// 排班表与分配列表补目标月份内的条目，周工时按历史重建超缺时
func mergeExcludedWeeks(result *model.ScheduleResult, cal *calendar.Calendar,
	allDays []time.Time, view *history.View, workers []model.Worker,
	excluded map[model.WeekKey]bool) {

	if len(excluded) == 0 {
		return
	}

	byDate := view.AssignmentsByDate()

	weekDays := make(map[model.WeekKey][]string)
	for _, d := range allDays {
		key := model.WeekKeyOf(d)
		if !excluded[key] {
			continue
		}
		dateStr := d.Format(model.DateLayout)
		weekDays[key] = append(weekDays[key], dateStr)

		if !cal.Window.InTargetMonth(d) {
			continue
		}
		for _, a := range byDate[dateStr] {
			if result.Schedule[dateStr] == nil {
				result.Schedule[dateStr] = make(map[model.ShiftKind]string)
			}
			result.Schedule[dateStr][a.Shift] = a.Worker
			result.Assignments = append(result.Assignments, a)
		}
	}

	loads := make(map[string]int, len(workers))
	for _, w := range workers {
		loads[w.Name] = w.WeeklyLoad
	}

	for key, days := range weekDays {
		hours := make(map[string]int)
		for _, dateStr := range days {
			for _, a := range byDate[dateStr] {
				hours[a.Worker] += a.Dur
			}
		}
		if len(hours) == 0 {
			continue
		}

		weekStats := result.Weekly[key.String()]
		if weekStats == nil {
			weekStats = make(map[string]model.WeeklyStat, len(hours))
			result.Weekly[key.String()] = weekStats
		}
		for worker, h := range hours {
			stat := model.WeeklyStat{Hours: h}
			if load := loads[worker]; h > load {
				stat.Overtime = h - load
			} else {
				stat.Undertime = load - h
			}
			weekStats[worker] = stat
		}
	}
}
