// Package optimizer 提供排班优化算法
package optimizer

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/escala/escala/pkg/logger"
)

// OptimizationConfig 优化配置
type OptimizationConfig struct {
	MaxIterations    int           `json:"max_iterations"`    // 最大迭代次数
	MaxTime          time.Duration `json:"max_time"`          // 最大运行时间
	InitialTemp      float64       `json:"initial_temp"`      // 模拟退火初始温度
	CoolingRate      float64       `json:"cooling_rate"`      // 冷却速率
	TabuSize         int           `json:"tabu_size"`         // 禁忌表大小
	NeighborhoodSize int           `json:"neighborhood_size"` // 邻域大小
	ParallelWorkers  int           `json:"parallel_workers"`  // 并行岛屿数
	StopOnPlateau    bool          `json:"stop_on_plateau"`   // 平台期停止
	PlateauThreshold int           `json:"plateau_threshold"` // 平台期阈值（无改进迭代次数）
	Seed             int64         `json:"seed"`              // 随机种子，0 表示按时间
}

// DefaultOptConfig 默认优化配置
func DefaultOptConfig() *OptimizationConfig {
	return &OptimizationConfig{
		MaxIterations:    20000,
		MaxTime:          30 * time.Second,
		InitialTemp:      100.0,
		CoolingRate:      0.995,
		TabuSize:         200,
		NeighborhoodSize: 30,
		ParallelWorkers:  4,
		StopOnPlateau:    true,
		PlateauThreshold: 2000,
	}
}

// Solution 一个排班解：班次索引 -> 员工索引
type Solution struct {
	Assign     []int
	Cost       float64
	Violations int
	Feasible   bool
}

// Clone 深拷贝解
func (s *Solution) Clone() *Solution {
	clone := &Solution{
		Assign:     make([]int, len(s.Assign)),
		Cost:       s.Cost,
		Violations: s.Violations,
		Feasible:   s.Feasible,
	}
	copy(clone.Assign, s.Assign)
	return clone
}

// Evaluator 解评估器：返回代价与硬约束违反数
type Evaluator interface {
	Evaluate(assign []int) (cost float64, violations int)
}

// EvaluatorFunc 函数式评估器
type EvaluatorFunc func(assign []int) (float64, int)

// Evaluate 实现 Evaluator 接口
func (f EvaluatorFunc) Evaluate(assign []int) (float64, int) {
	return f(assign)
}

// Iterations 统计接口：优化结束后读取实际迭代次数
type Iterations interface {
	Iterations() int64
}

// LocalSearchOptimizer 局部搜索优化器（模拟退火 + 禁忌表）
type LocalSearchOptimizer struct {
	config     *OptimizationConfig
	evaluator  Evaluator
	neighbors  *NeighborhoodGenerator
	tabuList   *TabuList
	rng        *rand.Rand
	iterations int64
}

// NewLocalSearchOptimizer 创建局部搜索优化器
func NewLocalSearchOptimizer(config *OptimizationConfig, evaluator Evaluator, moves *MoveSpace) *LocalSearchOptimizer {
	if config == nil {
		config = DefaultOptConfig()
	}
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &LocalSearchOptimizer{
		config:    config,
		evaluator: evaluator,
		neighbors: NewNeighborhoodGenerator(moves, seed),
		tabuList:  NewTabuList(config.TabuSize),
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Iterations 返回最近一次优化的迭代次数
func (o *LocalSearchOptimizer) Iterations() int64 {
	return o.iterations
}

// Optimize 优化排班解
func (o *LocalSearchOptimizer) Optimize(ctx context.Context, initial *Solution) (*Solution, error) {
	start := time.Now()

	current := initial.Clone()
	current.Cost, current.Violations = o.evaluator.Evaluate(current.Assign)
	current.Feasible = current.Violations == 0
	best := current.Clone()

	temperature := o.config.InitialTemp
	noImprovementCount := 0
	o.iterations = 0

	logger.Debug().
		Int("max_iterations", o.config.MaxIterations).
		Dur("max_time", o.config.MaxTime).
		Float64("initial_cost", current.Cost).
		Msg("开始局部搜索优化")

	for i := 0; i < o.config.MaxIterations; i++ {
		select {
		case <-ctx.Done():
			return best, ctx.Err()
		default:
		}

		if time.Since(start) > o.config.MaxTime {
			break
		}
		o.iterations++

		// 生成并评估邻域解
		bestNeighbor := o.bestNeighbor(current)
		if bestNeighbor == nil {
			continue
		}

		moveKey := hashAssign(bestNeighbor.Assign)
		inTabu := o.tabuList.Contains(moveKey)

		// 模拟退火接受准则
		accept := false
		if bestNeighbor.Cost < current.Cost {
			accept = true
		} else if !inTabu {
			delta := bestNeighbor.Cost - current.Cost
			if o.rng.Float64() < boltzmannProbability(delta, temperature) {
				accept = true
			}
		}

		if accept {
			current = bestNeighbor
			o.tabuList.Add(moveKey)

			if current.Cost < best.Cost {
				best = current.Clone()
				noImprovementCount = 0
			} else {
				noImprovementCount++
			}
		} else {
			noImprovementCount++
		}

		if o.config.StopOnPlateau && noImprovementCount >= o.config.PlateauThreshold {
			break
		}

		temperature *= o.config.CoolingRate
	}

	logger.Debug().
		Float64("initial_cost", initial.Cost).
		Float64("final_cost", best.Cost).
		Int64("iterations", o.iterations).
		Dur("elapsed", time.Since(start)).
		Msg("局部搜索优化完成")

	return best, nil
}

// bestNeighbor 生成邻域并返回其中代价最低的解
func (o *LocalSearchOptimizer) bestNeighbor(current *Solution) *Solution {
	var best *Solution
	for i := 0; i < o.config.NeighborhoodSize; i++ {
		neighbor := o.neighbors.GenerateNeighbor(current)
		if neighbor == nil {
			continue
		}
		neighbor.Cost, neighbor.Violations = o.evaluator.Evaluate(neighbor.Assign)
		neighbor.Feasible = neighbor.Violations == 0
		if best == nil || neighbor.Cost < best.Cost {
			best = neighbor
		}
	}
	return best
}

// hashAssign 计算解向量的 FNV-1a 哈希
func hashAssign(assign []int) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, w := range assign {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(w)))
		h.Write(buf[:])
	}
	return h.Sum64()
}

// boltzmannProbability 计算模拟退火的接受概率
// delta: 代价差 (new - old)
// temperature: 当前温度
func boltzmannProbability(delta, temperature float64) float64 {
	if delta <= 0 {
		return 1.0 // 更优解总是接受
	}
	if temperature <= 0 {
		return 0.0 // 温度为0时不接受更差的解
	}
	return math.Exp(-delta / temperature)
}

// TabuList 禁忌表（使用uint64哈希作为键提高性能）
type TabuList struct {
	items   map[uint64]struct{}
	order   []uint64
	maxSize int
	mu      sync.RWMutex
}

// NewTabuList 创建禁忌表
func NewTabuList(size int) *TabuList {
	return &TabuList{
		items:   make(map[uint64]struct{}),
		order:   make([]uint64, 0, size),
		maxSize: size,
	}
}

// Add 添加到禁忌表
func (t *TabuList) Add(key uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.items[key]; exists {
		return
	}

	// 超出容量时移除最旧的
	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.items, oldest)
	}

	t.items[key] = struct{}{}
	t.order = append(t.order, key)
}

// Contains 检查是否在禁忌表中
func (t *TabuList) Contains(key uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.items[key]
	return exists
}

// Clear 清空禁忌表
func (t *TabuList) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = make(map[uint64]struct{})
	t.order = t.order[:0]
}
