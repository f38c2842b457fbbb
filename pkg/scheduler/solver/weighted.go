package solver

import (
	"context"
	"strings"
	"time"

	"github.com/escala/escala/pkg/logger"
	"github.com/escala/escala/pkg/model"
	"github.com/escala/escala/pkg/scheduler/constraint"
	"github.com/escala/escala/pkg/scheduler/objective"
	"github.com/escala/escala/pkg/scheduler/optimizer"
)

// WeightedSolver 加权求和求解器：所有软规则按固定权重合并为单一目标
type WeightedSolver struct {
	constraintManager *constraint.Manager
	config            *optimizer.OptimizationConfig
	logger            *logger.SchedulerLogger
}

// NewWeightedSolver 创建加权求和求解器
func NewWeightedSolver(cm *constraint.Manager, config *optimizer.OptimizationConfig) *WeightedSolver {
	if config == nil {
		config = optimizer.DefaultOptConfig()
		config.MaxTime = model.SolverTimeout
	}
	return &WeightedSolver{
		constraintManager: cm,
		config:            config,
		logger:            logger.NewSchedulerLogger(),
	}
}

// Name 返回求解器名称
func (s *WeightedSolver) Name() string {
	return "WeightedSolver"
}

// Solve 生成排班：贪心构造后对加权总目标做并行局部搜索
func (s *WeightedSolver) Solve(ctx context.Context, schedCtx *constraint.Context) (*Result, error) {
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

	eval := optimizer.EvaluatorFunc(func(a []int) (float64, int) {
		v := s.constraintManager.CountViolations(schedCtx, a)
		return float64(v)*violationPenalty + objective.WeightedCost(schedCtx, a, stages), v
	})

	assign, iterations, err := Construct(ctx, schedCtx, s.constraintManager)
	if err != nil {
		return nil, err
	}

	initial := &optimizer.Solution{Assign: assign}
	initial.Cost, initial.Violations = eval.Evaluate(assign)
	initial.Feasible = initial.Violations == 0

	opt := optimizer.NewIslandOptimizer(s.config, eval, BuildMoveSpace(schedCtx))
	sol, optErr := opt.Optimize(ctx, initial)
	if sol == nil {
		if optErr != nil {
			return nil, optErr
		}
		sol = initial
	}

	duration := time.Since(startTime)

	if !sol.Feasible {
		violations := s.constraintManager.Check(schedCtx, sol.Assign)
		summary := summarizeViolations(violations)
		s.logger.InfeasibleModel(schedCtx.Year, int(schedCtx.Month), summary)
		return &Result{
			Assign: sol.Assign,
			Stats: &model.SolveStats{
				WallTime:   duration.Seconds(),
				Iterations: iterations,
				Conflicts:  int64(len(violations)),
				Status:     model.StatusInfeasible,
				Error:      summary,
			},
			Violations: violations,
		}, nil
	}

	stageCosts := make(map[string]int64, len(stages))
	for _, obj := range stages {
		stageCosts[obj.Name()] = obj.Cost(schedCtx, sol.Assign)
	}

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
