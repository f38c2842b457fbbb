// Package diagnostics 提供排班不可行原因分析
package diagnostics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/escala/escala/pkg/model"
	"github.com/escala/escala/pkg/scheduler/constraint"
)

// Severity 诊断级别
type Severity string

const (
	SeverityError   Severity = "error"   // 必然导致不可行
	SeverityWarning Severity = "warning" // 可能导致不可行或解质量差
)

// FindingCode 诊断类别
type FindingCode string

const (
	CodeUncoverableShift   FindingCode = "uncoverable_shift"   // 班次无可用员工
	CodeSingleCandidate    FindingCode = "single_candidate"    // 班次仅一名候选
	CodeLowAvailability    FindingCode = "low_availability"    // 员工可用率过低
	CodeNoNightWorkers     FindingCode = "no_night_workers"    // 无夜班资格员工
	CodeFewNightWorkers    FindingCode = "few_night_workers"   // 夜班资格员工偏少
	CodePinConflict        FindingCode = "pin_conflict"        // 固定分配相互矛盾
	CodeWeekOversubscribed FindingCode = "week_oversubscribed" // 周班次数少于参与员工数
)

// Finding 一条诊断结论
type Finding struct {
	Severity Severity    `json:"severity"`
	Code     FindingCode `json:"code"`
	Worker   string      `json:"worker,omitempty"`
	Date     string      `json:"date,omitempty"`
	Message  string      `json:"message"`
}

// Report 诊断报告
type Report struct {
	Findings []Finding `json:"findings"`
	// RelaxationHints 松弛分析结论：移除哪些约束组后模型变得可行
	RelaxationHints []RelaxationHint `json:"relaxation_hints,omitempty"`
	// Summary 诊断结论摘要
	Summary string `json:"summary,omitempty"`
}

// buildSummary 根据松弛结果与静态结论生成摘要
func (r *Report) buildSummary() string {
	var feasibleGroups []string
	for _, hint := range r.RelaxationHints {
		if hint.Feasible {
			feasibleGroups = append(feasibleGroups, string(hint.Group))
		}
	}
	switch {
	case len(feasibleGroups) > 0:
		return fmt.Sprintf("放宽以下约束组后模型变得可行: %s", strings.Join(feasibleGroups, ", "))
	case r.HasErrors():
		return "静态检查发现必然不可行的冲突，见错误列表"
	default:
		return "未能定位导致不可行的具体约束组"
	}
}

// Errors 返回 error 级别的结论
func (r *Report) Errors() []Finding {
	return r.filter(SeverityError)
}

// Warnings 返回 warning 级别的结论
func (r *Report) Warnings() []Finding {
	return r.filter(SeverityWarning)
}

func (r *Report) filter(sev Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}

// HasErrors 是否存在必然不可行的结论
func (r *Report) HasErrors() bool {
	return len(r.Errors()) > 0
}

// FormatReport 生成人类可读的诊断报告
func (r *Report) FormatReport() string {
	var b strings.Builder
	errs := r.Errors()
	warns := r.Warnings()

	if len(errs) == 0 && len(warns) == 0 && len(r.RelaxationHints) == 0 {
		return "未发现结构性问题"
	}

	if len(errs) > 0 {
		fmt.Fprintf(&b, "错误 (%d):\n", len(errs))
		for _, f := range errs {
			fmt.Fprintf(&b, "  - %s\n", f.Message)
		}
	}
	if len(warns) > 0 {
		fmt.Fprintf(&b, "警告 (%d):\n", len(warns))
		for _, f := range warns {
			fmt.Fprintf(&b, "  - %s\n", f.Message)
		}
	}
	for _, hint := range r.RelaxationHints {
		fmt.Fprintf(&b, "松弛分析: 放宽约束组 %s 后%s\n", hint.Group, hint.Conclusion())
	}
	return strings.TrimRight(b.String(), "\n")
}

// AnalyzerConfig 静态分析配置
type AnalyzerConfig struct {
	// LowAvailabilityRatio 低于此可用率的员工触发警告
	LowAvailabilityRatio float64
	// MinNightWorkers 夜班资格员工数低于此值触发警告
	MinNightWorkers int
}

// DefaultAnalyzerConfig 返回默认分析配置
func DefaultAnalyzerConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		LowAvailabilityRatio: 0.10,
		MinNightWorkers:      3,
	}
}

// Analyzer 静态不可行分析器
type Analyzer struct {
	config *AnalyzerConfig
}

// NewAnalyzer 创建静态分析器
func NewAnalyzer(config *AnalyzerConfig) *Analyzer {
	if config == nil {
		config = DefaultAnalyzerConfig()
	}
	return &Analyzer{config: config}
}

// Analyze 对求解上下文做静态检查，返回全部结论
func (a *Analyzer) Analyze(schedCtx *constraint.Context) *Report {
	report := &Report{}

	a.checkPinConflicts(schedCtx, report)
	a.checkShiftCandidates(schedCtx, report)
	a.checkNightWorkers(schedCtx, report)
	a.checkWorkerAvailability(schedCtx, report)
	a.checkWeeklyParticipation(schedCtx, report)

	sort.SliceStable(report.Findings, func(i, j int) bool {
		if report.Findings[i].Severity != report.Findings[j].Severity {
			return report.Findings[i].Severity == SeverityError
		}
		return report.Findings[i].Date < report.Findings[j].Date
	})
	return report
}

// checkPinConflicts 固定分配之间的矛盾
func (a *Analyzer) checkPinConflicts(schedCtx *constraint.Context, report *Report) {
	for _, msg := range schedCtx.PinConflicts {
		report.Findings = append(report.Findings, Finding{
			Severity: SeverityError,
			Code:     CodePinConflict,
			Message:  msg,
		})
	}
}

// checkShiftCandidates 每个班次的可用候选数
func (a *Analyzer) checkShiftCandidates(schedCtx *constraint.Context, report *Report) {
	for s := 0; s < schedCtx.NumShifts(); s++ {
		count := 0
		last := ""
		for w := 0; w < schedCtx.NumWorkers(); w++ {
			if !schedCtx.Forbidden[s][w] && !schedCtx.CrossBlocked[s][w] {
				count++
				last = schedCtx.Workers[w].Name
			}
		}

		shift := schedCtx.Cal.Shifts[s]
		dateStr := shift.Date()
		switch count {
		case 0:
			report.Findings = append(report.Findings, Finding{
				Severity: SeverityError,
				Code:     CodeUncoverableShift,
				Date:     dateStr,
				Message:  fmt.Sprintf("%s 的 %s 班次没有任何可用员工", dateStr, shift.Kind),
			})
		case 1:
			report.Findings = append(report.Findings, Finding{
				Severity: SeverityWarning,
				Code:     CodeSingleCandidate,
				Worker:   last,
				Date:     dateStr,
				Message:  fmt.Sprintf("%s 的 %s 班次只有 %s 一名候选", dateStr, shift.Kind, last),
			})
		}
	}
}

// checkNightWorkers 夜班资格覆盖
func (a *Analyzer) checkNightWorkers(schedCtx *constraint.Context, report *Report) {
	count := 0
	for _, w := range schedCtx.Workers {
		if w.CanNight {
			count++
		}
	}
	switch {
	case count == 0:
		report.Findings = append(report.Findings, Finding{
			Severity: SeverityError,
			Code:     CodeNoNightWorkers,
			Message:  "没有员工具备夜班资格，夜班无法覆盖",
		})
	case count < a.config.MinNightWorkers:
		report.Findings = append(report.Findings, Finding{
			Severity: SeverityWarning,
			Code:     CodeFewNightWorkers,
			Message:  fmt.Sprintf("仅 %d 名员工具备夜班资格，夜班轮换空间不足", count),
		})
	}
}

// checkWorkerAvailability 员工整体可用率
func (a *Analyzer) checkWorkerAvailability(schedCtx *constraint.Context, report *Report) {
	totalDays := len(schedCtx.Cal.Window.Days)
	if totalDays == 0 {
		return
	}
	for _, w := range schedCtx.Workers {
		available := 0
		for _, d := range schedCtx.Cal.Window.Days {
			if !schedCtx.Unavail.BlocksDay(w.Name, d.Format(model.DateLayout)) {
				available++
			}
		}
		ratio := float64(available) / float64(totalDays)
		if ratio < a.config.LowAvailabilityRatio {
			report.Findings = append(report.Findings, Finding{
				Severity: SeverityWarning,
				Code:     CodeLowAvailability,
				Worker:   w.Name,
				Message:  fmt.Sprintf("%s 的可用率仅 %.0f%%，可能无法满足周参与度", w.Name, ratio*100),
			})
		}
	}
}

// checkWeeklyParticipation 每周的班次数是否容得下全部参与员工
func (a *Analyzer) checkWeeklyParticipation(schedCtx *constraint.Context, report *Report) {
	for _, key := range schedCtx.Cal.WeekOrder {
		wk := schedCtx.Cal.Weeks[key]
		eligible := len(schedCtx.EligibleWeeks[key])
		if eligible > len(wk.Shifts) {
			report.Findings = append(report.Findings, Finding{
				Severity: SeverityError,
				Code:     CodeWeekOversubscribed,
				Date:     wk.Monday.Format(model.DateLayout),
				Message: fmt.Sprintf("周 %s 仅 %d 个班次，无法让 %d 名员工每人至少一班",
					key, len(wk.Shifts), eligible),
			})
		}
	}
}
