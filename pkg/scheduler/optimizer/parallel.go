package optimizer

import (
	"context"
	"sync"

	"github.com/escala/escala/pkg/logger"
)

// ParallelEvaluator 并行评估器
type ParallelEvaluator struct {
	workers   int
	evaluator Evaluator
}

// NewParallelEvaluator 创建并行评估器
func NewParallelEvaluator(workers int, evaluator Evaluator) *ParallelEvaluator {
	if workers <= 0 {
		workers = 4
	}
	return &ParallelEvaluator{
		workers:   workers,
		evaluator: evaluator,
	}
}

// EvaluateBatch 并行评估一批解
func (p *ParallelEvaluator) EvaluateBatch(ctx context.Context, solutions []*Solution) {
	if len(solutions) == 0 {
		return
	}

	jobChan := make(chan *Solution, len(solutions))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sol := range jobChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				sol.Cost, sol.Violations = p.evaluator.Evaluate(sol.Assign)
				sol.Feasible = sol.Violations == 0
			}
		}()
	}

	for _, sol := range solutions {
		jobChan <- sol
	}
	close(jobChan)
	wg.Wait()
}

// FindBest 返回一批解中代价最低的解
func FindBest(solutions []*Solution) *Solution {
	var best *Solution
	for _, sol := range solutions {
		if sol == nil {
			continue
		}
		if best == nil || sol.Cost < best.Cost {
			best = sol
		}
	}
	return best
}

// IslandOptimizer 岛屿模型并行优化器：多个独立种子的局部搜索并行运行，取最优解
type IslandOptimizer struct {
	config    *OptimizationConfig
	evaluator Evaluator
	space     *MoveSpace
}

// NewIslandOptimizer 创建岛屿优化器
func NewIslandOptimizer(config *OptimizationConfig, evaluator Evaluator, space *MoveSpace) *IslandOptimizer {
	if config == nil {
		config = DefaultOptConfig()
	}
	return &IslandOptimizer{
		config:    config,
		evaluator: evaluator,
		space:     space,
	}
}

// Optimize 并行运行多个岛屿并返回全局最优解
func (o *IslandOptimizer) Optimize(ctx context.Context, initial *Solution) (*Solution, error) {
	islands := o.config.ParallelWorkers
	if islands <= 1 {
		ls := NewLocalSearchOptimizer(o.config, o.evaluator, o.space)
		return ls.Optimize(ctx, initial)
	}

	results := make([]*Solution, islands)
	var wg sync.WaitGroup
	for i := 0; i < islands; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			cfg := *o.config
			if cfg.Seed != 0 {
				cfg.Seed = cfg.Seed + int64(idx)*7919
			}
			ls := NewLocalSearchOptimizer(&cfg, o.evaluator, o.space)
			sol, err := ls.Optimize(ctx, initial)
			if err != nil && sol == nil {
				return
			}
			results[idx] = sol
		}(i)
	}
	wg.Wait()

	best := FindBest(results)
	if best == nil {
		best = initial.Clone()
		best.Cost, best.Violations = o.evaluator.Evaluate(best.Assign)
		best.Feasible = best.Violations == 0
	}

	logger.Debug().
		Int("islands", islands).
		Float64("best_cost", best.Cost).
		Msg("岛屿并行优化完成")

	return best, nil
}
