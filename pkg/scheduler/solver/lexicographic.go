package solver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/escala/escala/pkg/logger"
	"github.com/escala/escala/pkg/model"
	"github.com/escala/escala/pkg/scheduler/constraint"
	"github.com/escala/escala/pkg/scheduler/objective"
	"github.com/escala/escala/pkg/scheduler/optimizer"
)

const (
	// violationPenalty 硬约束违反的惩罚系数
	violationPenalty = 1e13
	// boundPenalty 超出已锁定阶段代价上界的惩罚系数
	boundPenalty = 1e9
)

// LexicographicSolver 字典序求解器：按阶段顺序逐级优化，
// 每级锁定已达成的代价作为后续阶段的上界
type LexicographicSolver struct {
	constraintManager *constraint.Manager
	config            *optimizer.OptimizationConfig
	logger            *logger.SchedulerLogger
}

// NewLexicographicSolver 创建字典序求解器
func NewLexicographicSolver(cm *constraint.Manager, config *optimizer.OptimizationConfig) *LexicographicSolver {
	if config == nil {
		config = optimizer.DefaultOptConfig()
		config.MaxTime = model.SolverTimeout
	}
	return &LexicographicSolver{
		constraintManager: cm,
		config:            config,
		logger:            logger.NewSchedulerLogger(),
	}
}

// Name 返回求解器名称
func (s *LexicographicSolver) Name() string {
	return "LexicographicSolver"
}

// Solve 生成排班：贪心构造 -> 可行化 -> 逐阶段字典序优化
func (s *LexicographicSolver) Solve(ctx context.Context, schedCtx *constraint.Context) (*Result, error) {
	startTime := time.Now()
	s.logger.StartSchedule(schedCtx.Year, int(schedCtx.Month),
		schedCtx.NumWorkers(), len(schedCtx.Cal.Window.Days))

	if len(schedCtx.PinConflicts) > 0 {
		s.logger.InfeasibleModel(schedCtx.Year, int(schedCtx.Month),
			strings.Join(schedCtx.PinConflicts, "; "))
		return &Result{
			Stats: &model.SolveStats{
				WallTime: time.Since(startTime).Seconds(),
				Status:   model.StatusModelInvalid,
				Error:    strings.Join(schedCtx.PinConflicts, "; "),
			},
		}, nil
	}

	stages := objective.BuildStages(schedCtx)

	// 总预算均分到可行化阶段 + 各优化阶段
	phaseBudget := s.config.MaxTime / time.Duration(len(stages)+1)

	assign, iterations, err := Construct(ctx, schedCtx, s.constraintManager)
	if err != nil {
		return nil, err
	}

	sol, feasIter, err := s.repair(ctx, schedCtx, assign, phaseBudget)
	iterations += feasIter
	if err != nil && sol == nil {
		return nil, err
	}

	if !sol.Feasible {
		violations := s.constraintManager.Check(schedCtx, sol.Assign)
		summary := summarizeViolations(violations)
		s.logger.InfeasibleModel(schedCtx.Year, int(schedCtx.Month), summary)
		return &Result{
			Assign: sol.Assign,
			Stats: &model.SolveStats{
				WallTime:   time.Since(startTime).Seconds(),
				Iterations: iterations,
				Conflicts:  int64(len(violations)),
				Status:     model.StatusInfeasible,
				Error:      summary,
			},
			Violations: violations,
		}, nil
	}

	// 逐阶段优化，锁定上界
	bounds := make([]int64, 0, len(stages))
	stageCosts := make(map[string]int64, len(stages))
	for _, obj := range stages {
		stageStart := time.Now()
		candidate, stageIter := s.optimizeStage(ctx, schedCtx, sol, stages, bounds, obj, phaseBudget)
		iterations += stageIter

		if candidate != nil && candidate.Feasible && withinBounds(schedCtx, stages, bounds, candidate.Assign) {
			sol = candidate
		}

		cost := obj.Cost(schedCtx, sol.Assign)
		bounds = append(bounds, cost)
		stageCosts[obj.Name()] = cost
		s.logger.StageComplete(obj.Name(), cost, time.Since(stageStart))

		if ctx.Err() != nil {
			break
		}
	}

	duration := time.Since(startTime)
	s.logger.ScheduleComplete(schedCtx.Year, int(schedCtx.Month), duration, schedCtx.NumShifts())

	return &Result{
		Assign: sol.Assign,
		Stats: &model.SolveStats{
			WallTime:       duration.Seconds(),
			Iterations:     iterations,
			ObjectiveValue: objective.WeightedCost(schedCtx, sol.Assign, stages),
			Status:         model.StatusFeasible,
		},
		StageCosts: stageCosts,
	}, nil
}

// repair 可行化阶段：以违反数为唯一目标做局部搜索
func (s *LexicographicSolver) repair(ctx context.Context, schedCtx *constraint.Context,
	assign []int, budget time.Duration) (*optimizer.Solution, int64, error) {

	eval := optimizer.EvaluatorFunc(func(a []int) (float64, int) {
		v := s.constraintManager.CountViolations(schedCtx, a)
		return float64(v), v
	})

	initial := &optimizer.Solution{Assign: assign}
	initial.Cost, initial.Violations = eval.Evaluate(assign)
	initial.Feasible = initial.Violations == 0
	if initial.Feasible {
		return initial, 0, nil
	}

	cfg := *s.config
	cfg.MaxTime = budget
	opt := optimizer.NewIslandOptimizer(&cfg, eval, BuildMoveSpace(schedCtx))
	sol, err := opt.Optimize(ctx, initial)
	if sol == nil {
		sol = initial
	}
	return sol, 0, err
}

// optimizeStage 在保持可行性与已锁定上界的前提下优化单个阶段目标
func (s *LexicographicSolver) optimizeStage(ctx context.Context, schedCtx *constraint.Context,
	current *optimizer.Solution, stages []objective.Objective, bounds []int64,
	obj objective.Objective, budget time.Duration) (*optimizer.Solution, int64) {

	eval := optimizer.EvaluatorFunc(func(a []int) (float64, int) {
		v := s.constraintManager.CountViolations(schedCtx, a)
		cost := float64(v) * violationPenalty
		for j := range bounds {
			if over := stages[j].Cost(schedCtx, a) - bounds[j]; over > 0 {
				cost += float64(over) * boundPenalty
			}
		}
		cost += float64(obj.Cost(schedCtx, a))
		return cost, v
	})

	cfg := *s.config
	cfg.MaxTime = budget
	opt := optimizer.NewLocalSearchOptimizer(&cfg, eval, BuildMoveSpace(schedCtx))

	initial := current.Clone()
	initial.Cost, initial.Violations = eval.Evaluate(initial.Assign)
	sol, _ := opt.Optimize(ctx, initial)
	return sol, opt.Iterations()
}

// withinBounds 检查解是否仍满足已锁定的各阶段上界
func withinBounds(schedCtx *constraint.Context, stages []objective.Objective,
	bounds []int64, assign []int) bool {
	for j := range bounds {
		if stages[j].Cost(schedCtx, assign) > bounds[j] {
			return false
		}
	}
	return true
}

// BuildMoveSpace 从求解上下文构建邻域移动空间
func BuildMoveSpace(schedCtx *constraint.Context) *optimizer.MoveSpace {
	n := schedCtx.NumShifts()
	space := &optimizer.MoveSpace{
		Candidates: make([][]int, n),
		Pinned:     make([]bool, n),
	}
	for s := 0; s < n; s++ {
		if schedCtx.Pins[s] != constraint.Unassigned {
			space.Pinned[s] = true
			space.Candidates[s] = []int{schedCtx.Pins[s]}
			continue
		}
		for w := 0; w < schedCtx.NumWorkers(); w++ {
			if !schedCtx.Forbidden[s][w] && !schedCtx.CrossBlocked[s][w] {
				space.Candidates[s] = append(space.Candidates[s], w)
			}
		}
	}
	return space
}

// summarizeViolations 汇总违反信息用于日志与错误报告
func summarizeViolations(violations []constraint.Violation) string {
	if len(violations) == 0 {
		return ""
	}
	byGroup := make(map[constraint.Group]int)
	for _, v := range violations {
		byGroup[v.Group]++
	}
	parts := make([]string, 0, len(byGroup))
	for g, count := range byGroup {
		parts = append(parts, fmt.Sprintf("%s: %d", g, count))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
