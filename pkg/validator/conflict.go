// Package validator 对最终排班结果做独立复核
package validator

import (
	"fmt"
	"sort"
	"time"

	"github.com/escala/escala/pkg/availability"
	"github.com/escala/escala/pkg/model"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictOverlap      ConflictType = "overlap"           // 时间重叠
	ConflictRestTime     ConflictType = "rest_time"         // 休息时间不足
	ConflictDoubleShift  ConflictType = "double_shift"      // 同日多班次
	ConflictNight        ConflictType = "night_eligibility" // 夜班资格
	ConflictAvailability ConflictType = "availability"      // 不可用声明
	ConflictWeeklyHours  ConflictType = "weekly_hours"      // 周工时偏离
)

// Conflict 一条复核冲突
type Conflict struct {
	Type     ConflictType `json:"type"`
	Severity string       `json:"severity"` // error/warning
	Worker   string       `json:"worker"`
	Date     string       `json:"date,omitempty"`
	Message  string       `json:"message"`
}

// ConflictDetector 排班冲突检测器
//
// 求解器内部已保证硬约束，这里对落盘前的结果做一次独立复核，
// 捕捉历史合并或人工改动引入的问题
type ConflictDetector struct {
	config *DetectorConfig
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	MinRestHours      int  // 班次间最小休息时间（小时）
	CheckNight        bool // 是否检查夜班资格
	CheckAvailability bool // 是否检查不可用声明
	CheckWeeklyHours  bool // 是否检查周工时偏离
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		MinRestHours:      model.MinRestHours,
		CheckNight:        true,
		CheckAvailability: true,
		CheckWeeklyHours:  true,
	}
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{config: config}
}

// DetectAll 对完整分配列表运行全部检查
func (d *ConflictDetector) DetectAll(assignments []model.Assignment,
	workers []model.Worker, unavail *availability.Set) []Conflict {

	var conflicts []Conflict

	byName := make(map[string]model.Worker, len(workers))
	for _, w := range workers {
		byName[w.Name] = w
	}

	byWorker := groupByWorker(assignments)
	names := make([]string, 0, len(byWorker))
	for name := range byWorker {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		wa := byWorker[name]
		worker, known := byName[name]

		conflicts = append(conflicts, d.detectOverlapAndRest(name, wa)...)
		conflicts = append(conflicts, d.detectDoubleShifts(name, wa)...)
		if known && d.config.CheckNight {
			conflicts = append(conflicts, d.detectNightViolations(worker, wa)...)
		}
		if d.config.CheckAvailability && unavail != nil {
			conflicts = append(conflicts, d.detectAvailabilityViolations(name, wa, unavail)...)
		}
		if known && d.config.CheckWeeklyHours {
			conflicts = append(conflicts, d.detectWeeklyDeviation(worker, wa)...)
		}
	}
	return conflicts
}

// DetectForAssignment 检测在现有排班上追加一条分配会引入的冲突
// 供人工调班前的预检使用
func (d *ConflictDetector) DetectForAssignment(candidate model.Assignment,
	existing []model.Assignment, worker model.Worker) []Conflict {

	var conflicts []Conflict

	cs, ok := toShift(candidate)
	if !ok {
		return conflicts
	}

	if d.config.CheckNight && cs.IsNight() && !worker.CanNight {
		conflicts = append(conflicts, Conflict{
			Type:     ConflictNight,
			Severity: "error",
			Worker:   candidate.Worker,
			Date:     candidate.Date,
			Message:  fmt.Sprintf("%s 不可排夜班", candidate.Worker),
		})
	}

	for _, a := range existing {
		if a.Worker != candidate.Worker {
			continue
		}
		if a.Date == candidate.Date {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictDoubleShift,
				Severity: "error",
				Worker:   candidate.Worker,
				Date:     candidate.Date,
				Message:  fmt.Sprintf("%s 在 %s 已有班次 %s", candidate.Worker, a.Date, a.Shift),
			})
			continue
		}
		es, ok := toShift(a)
		if !ok {
			continue
		}
		if cs.Overlaps(es) || cs.GapHours(es) < float64(d.config.MinRestHours) {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictRestTime,
				Severity: "error",
				Worker:   candidate.Worker,
				Date:     candidate.Date,
				Message: fmt.Sprintf("与 %s %s 的休息间隔不足 %d 小时",
					a.Date, a.Shift, d.config.MinRestHours),
			})
		}
	}
	return conflicts
}

// detectOverlapAndRest 检测同一员工班次之间的重叠与休息不足
func (d *ConflictDetector) detectOverlapAndRest(name string, assignments []model.Assignment) []Conflict {
	var conflicts []Conflict

	shifts := make([]model.Shift, 0, len(assignments))
	for _, a := range assignments {
		if s, ok := toShift(a); ok {
			shifts = append(shifts, s)
		}
	}
	sort.Slice(shifts, func(i, j int) bool { return shifts[i].Start.Before(shifts[j].Start) })

	for i := 0; i+1 < len(shifts); i++ {
		cur, next := shifts[i], shifts[i+1]
		if cur.Overlaps(next) {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictOverlap,
				Severity: "error",
				Worker:   name,
				Date:     next.Date(),
				Message: fmt.Sprintf("%s 的班次 %s %s 与 %s %s 时间重叠",
					name, cur.Date(), cur.Kind, next.Date(), next.Kind),
			})
			continue
		}
		if rest := cur.GapHours(next); rest < float64(d.config.MinRestHours) {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictRestTime,
				Severity: "error",
				Worker:   name,
				Date:     next.Date(),
				Message: fmt.Sprintf("%s 班次间休息仅 %.0f 小时，少于要求的 %d 小时",
					name, rest, d.config.MinRestHours),
			})
		}
	}
	return conflicts
}

// detectDoubleShifts 检测同日多班次
func (d *ConflictDetector) detectDoubleShifts(name string, assignments []model.Assignment) []Conflict {
	var conflicts []Conflict

	perDay := make(map[string]int)
	for _, a := range assignments {
		perDay[a.Date]++
	}
	dates := make([]string, 0, len(perDay))
	for date := range perDay {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		if n := perDay[date]; n > 1 {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictDoubleShift,
				Severity: "error",
				Worker:   name,
				Date:     date,
				Message:  fmt.Sprintf("%s 在 %s 被分配了 %d 个班次", name, date, n),
			})
		}
	}
	return conflicts
}

// detectNightViolations 检测夜班资格
func (d *ConflictDetector) detectNightViolations(worker model.Worker, assignments []model.Assignment) []Conflict {
	var conflicts []Conflict
	if worker.CanNight {
		return conflicts
	}
	for _, a := range assignments {
		if a.Shift == model.ShiftN {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictNight,
				Severity: "error",
				Worker:   worker.Name,
				Date:     a.Date,
				Message:  fmt.Sprintf("%s 不可排夜班，却在 %s 被分配夜班", worker.Name, a.Date),
			})
		}
	}
	return conflicts
}

// detectAvailabilityViolations 检测不可用声明
func (d *ConflictDetector) detectAvailabilityViolations(name string,
	assignments []model.Assignment, unavail *availability.Set) []Conflict {

	var conflicts []Conflict
	for _, a := range assignments {
		if unavail.BlocksShift(name, a.Date, a.Shift) {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictAvailability,
				Severity: "error",
				Worker:   name,
				Date:     a.Date,
				Message:  fmt.Sprintf("%s 声明 %s %s 不可用，却被分配", name, a.Date, a.Shift),
			})
		}
	}
	return conflicts
}

// detectWeeklyDeviation 检测周工时偏离目标负荷
// 偏离是软性结果，记为 warning
func (d *ConflictDetector) detectWeeklyDeviation(worker model.Worker, assignments []model.Assignment) []Conflict {
	var conflicts []Conflict

	weekly := make(map[model.WeekKey]int)
	for _, a := range assignments {
		day, err := time.Parse(model.DateLayout, a.Date)
		if err != nil {
			continue
		}
		weekly[model.WeekKeyOf(day)] += a.Dur
	}

	keys := make([]model.WeekKey, 0, len(weekly))
	for k := range weekly {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Year != keys[j].Year {
			return keys[i].Year < keys[j].Year
		}
		return keys[i].Week < keys[j].Week
	})

	for _, k := range keys {
		hours := weekly[k]
		if hours > worker.WeeklyLoad {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictWeeklyHours,
				Severity: "warning",
				Worker:   worker.Name,
				Message: fmt.Sprintf("%s 在 %s 周工作 %d 小时，超出目标负荷 %d 小时",
					worker.Name, k, hours, worker.WeeklyLoad),
			})
		}
	}
	return conflicts
}

// toShift 由分配记录还原带时间段的班次
func toShift(a model.Assignment) (model.Shift, bool) {
	day, err := time.Parse(model.DateLayout, a.Date)
	if err != nil || !model.IsValidShiftKind(string(a.Shift)) {
		return model.Shift{}, false
	}
	return model.NewShift(-1, day, a.Shift), true
}

// groupByWorker 按员工分组
func groupByWorker(assignments []model.Assignment) map[string][]model.Assignment {
	result := make(map[string][]model.Assignment)
	for _, a := range assignments {
		result[a.Worker] = append(result[a.Worker], a)
	}
	return result
}

// Errors 过滤出 error 级冲突
func Errors(conflicts []Conflict) []Conflict {
	var out []Conflict
	for _, c := range conflicts {
		if c.Severity == "error" {
			out = append(out, c)
		}
	}
	return out
}
