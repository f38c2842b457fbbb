package diagnostics

import (
	"context"
	"time"

	"github.com/escala/escala/pkg/logger"
	"github.com/escala/escala/pkg/scheduler/constraint"
	"github.com/escala/escala/pkg/scheduler/optimizer"
	"github.com/escala/escala/pkg/scheduler/solver"
)

// RelaxationHint 松弛分析结论
type RelaxationHint struct {
	Group    constraint.Group `json:"group"`
	Feasible bool             `json:"feasible"`
}

// Conclusion 返回结论的文字描述
func (h RelaxationHint) Conclusion() string {
	if h.Feasible {
		return "模型变得可行，该约束组很可能是不可行的根因"
	}
	return "模型仍不可行"
}

// relaxationGroups 按怀疑程度排序的可松弛约束组。
// 覆盖、可用性与固定分配不参与松弛：放宽它们得到的解没有意义。
var relaxationGroups = []constraint.Group{
	constraint.GroupWeeklyParticipation,
	constraint.GroupRest24h,
	constraint.GroupOneShiftPerDay,
	constraint.GroupNightRestrictions,
}

// RelaxationAnalyzer 松弛分析器：逐组移除约束并尝试快速求解
type RelaxationAnalyzer struct {
	manager *constraint.Manager
	budget  time.Duration
}

// NewRelaxationAnalyzer 创建松弛分析器
func NewRelaxationAnalyzer(manager *constraint.Manager, budget time.Duration) *RelaxationAnalyzer {
	if budget <= 0 {
		budget = 5 * time.Second
	}
	return &RelaxationAnalyzer{manager: manager, budget: budget}
}

// Analyze 对每个候选约束组做松弛求解，全部组都记录结论
func (r *RelaxationAnalyzer) Analyze(ctx context.Context, schedCtx *constraint.Context) []RelaxationHint {
	hints := make([]RelaxationHint, 0, len(relaxationGroups))

	for _, group := range relaxationGroups {
		relaxed := r.manager.WithoutGroup(group)

		config := optimizer.DefaultOptConfig()
		config.MaxTime = r.budget
		config.ParallelWorkers = 1

		hint := RelaxationHint{Group: group}
		s := solver.NewWeightedSolver(relaxed, config)
		result, err := s.Solve(ctx, schedCtx)
		if err != nil {
			logger.Warn().Err(err).Str("group", string(group)).Msg("松弛求解失败")
		} else {
			hint.Feasible = result.Succeeded()
		}
		hints = append(hints, hint)

		logger.Info().
			Str("group", string(group)).
			Bool("feasible", hint.Feasible).
			Msg("松弛分析完成一组")
	}

	return hints
}

// Diagnose 组合静态检查与松弛分析。
// 即使静态检查已发现 error，松弛求解仍全部执行并记录各组结论。
func Diagnose(ctx context.Context, schedCtx *constraint.Context, manager *constraint.Manager,
	budget time.Duration) *Report {

	report := NewAnalyzer(nil).Analyze(schedCtx)
	report.RelaxationHints = NewRelaxationAnalyzer(manager, budget).Analyze(ctx, schedCtx)
	report.Summary = report.buildSummary()
	return report
}
