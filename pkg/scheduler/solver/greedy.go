// Package solver 提供排班求解器
package solver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/escala/escala/pkg/logger"
	"github.com/escala/escala/pkg/model"
	"github.com/escala/escala/pkg/scheduler/constraint"
)

// Solver 求解器接口
type Solver interface {
	// Solve 生成排班方案
	Solve(ctx context.Context, schedCtx *constraint.Context) (*Result, error)

	// Name 返回求解器名称
	Name() string
}

// Result 求解结果
type Result struct {
	Assign     []int                  `json:"assign"`      // 班次索引 -> 员工索引
	Stats      *model.SolveStats      `json:"stats"`       // 求解统计
	StageCosts map[string]int64       `json:"stage_costs"` // 各优化阶段的最终代价
	Violations []constraint.Violation `json:"violations"`  // 剩余硬约束违反
}

// Succeeded 求解是否得到可行解
func (r *Result) Succeeded() bool {
	return r.Stats != nil && r.Stats.Succeeded()
}

// GreedySolver 贪心求解器：按候选数升序逐班次指派，工时少者优先
type GreedySolver struct {
	constraintManager *constraint.Manager
	logger            *logger.SchedulerLogger
}

// NewGreedySolver 创建贪心求解器
func NewGreedySolver(cm *constraint.Manager) *GreedySolver {
	return &GreedySolver{
		constraintManager: cm,
		logger:            logger.NewSchedulerLogger(),
	}
}

// Name 返回求解器名称
func (s *GreedySolver) Name() string {
	return "GreedySolver"
}

// Solve 使用贪心算法生成初始排班
func (s *GreedySolver) Solve(ctx context.Context, schedCtx *constraint.Context) (*Result, error) {
	startTime := time.Now()

	if schedCtx.NumWorkers() == 0 {
		return nil, fmt.Errorf("没有可用员工")
	}

	assign, iterations, err := Construct(ctx, schedCtx, s.constraintManager)
	if err != nil {
		return nil, err
	}

	violations := s.constraintManager.Check(schedCtx, assign)
	status := model.StatusFeasible
	if n := countUnassigned(assign); n > 0 || len(violations) > 0 {
		status = model.StatusUnknown
	}

	return &Result{
		Assign: assign,
		Stats: &model.SolveStats{
			WallTime:   time.Since(startTime).Seconds(),
			Iterations: iterations,
			Conflicts:  int64(len(violations)),
			Status:     status,
		},
		StageCosts: map[string]int64{},
		Violations: violations,
	}, nil
}

// Construct 贪心构造初始解：先落实固定指派，再按候选数升序填充其余班次。
// 无可行候选的班次留空，由后续局部搜索修复。
func Construct(ctx context.Context, schedCtx *constraint.Context, cm *constraint.Manager) ([]int, int64, error) {
	n := schedCtx.NumShifts()
	assign := make([]int, n)
	for s := range assign {
		assign[s] = constraint.Unassigned
	}

	// 员工累计工时，用于公平排序
	hours := make([]int, schedCtx.NumWorkers())

	// 固定指派优先落实
	open := make([]int, 0, n)
	for s := 0; s < n; s++ {
		if w := schedCtx.Pins[s]; w != constraint.Unassigned {
			assign[s] = w
			hours[w] += schedCtx.Cal.Shifts[s].Duration
		} else {
			open = append(open, s)
		}
	}

	// 候选少的班次先排，减少回填失败
	sort.SliceStable(open, func(i, j int) bool {
		ci := candidateCount(schedCtx, open[i])
		cj := candidateCount(schedCtx, open[j])
		if ci != cj {
			return ci < cj
		}
		return open[i] < open[j]
	})

	var iterations int64
	for _, shift := range open {
		if err := ctx.Err(); err != nil {
			return assign, iterations, err
		}
		iterations++

		candidates := orderedCandidates(schedCtx, shift, hours)
		for _, w := range candidates {
			ok, _ := cm.CanAssign(schedCtx, assign, shift, w)
			if !ok {
				continue
			}
			assign[shift] = w
			hours[w] += schedCtx.Cal.Shifts[shift].Duration
			break
		}
	}

	return assign, iterations, nil
}

// candidateCount 统计班次的非禁派员工数
func candidateCount(schedCtx *constraint.Context, shift int) int {
	count := 0
	for w := 0; w < schedCtx.NumWorkers(); w++ {
		if !schedCtx.Forbidden[shift][w] && !schedCtx.CrossBlocked[shift][w] {
			count++
		}
	}
	return count
}

// orderedCandidates 返回班次的候选员工，按累计工时升序排序保证公平
func orderedCandidates(schedCtx *constraint.Context, shift int, hours []int) []int {
	candidates := make([]int, 0, schedCtx.NumWorkers())
	for w := 0; w < schedCtx.NumWorkers(); w++ {
		if !schedCtx.Forbidden[shift][w] && !schedCtx.CrossBlocked[shift][w] {
			candidates = append(candidates, w)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return hours[candidates[i]] < hours[candidates[j]]
	})
	return candidates
}

func countUnassigned(assign []int) int {
	count := 0
	for _, w := range assign {
		if w == constraint.Unassigned {
			count++
		}
	}
	return count
}
