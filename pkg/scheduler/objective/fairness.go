// Package objective 实现排班软规则的代价函数
package objective

import (
	"sort"

	"github.com/escala/escala/pkg/model"
	"github.com/escala/escala/pkg/scheduler/constraint"
)

// equityScale 公平性权重的整数缩放因子
const equityScale = 10

// Fairness 公平性阶段：工时平衡 + 统计桶公平 + 星期几公平的合并代价
type Fairness struct {
	// weekShifts[i] 第 i 周的班次索引
	weekShifts [][]int
	loads      []int
	// scaledWeights[stat] 缩放后的整数权重
	scaledWeights map[string]int
	scaledDOW     int
}

// NewFairness 创建公平性目标
func NewFairness(ctx *constraint.Context) *Fairness {
	obj := &Fairness{
		loads:         make([]int, ctx.NumWorkers()),
		scaledWeights: make(map[string]int, len(model.EquityStats)),
	}
	for _, key := range ctx.Cal.WeekOrder {
		obj.weekShifts = append(obj.weekShifts, ctx.Cal.Weeks[key].Shifts)
	}
	for w, worker := range ctx.Workers {
		obj.loads[w] = worker.WeeklyLoad
	}
	weights := ctx.EquityWeights
	if weights == nil {
		weights = model.EquityWeights
	}
	for _, stat := range model.EquityStats {
		obj.scaledWeights[stat] = int(float64(weights[stat])*equityScale + 0.5)
	}
	dow := ctx.DOWWeight
	obj.scaledDOW = dow * equityScale
	return obj
}

func (*Fairness) Name() string { return "fairness_load_equity" }

func (o *Fairness) Cost(ctx *constraint.Context, assign []int) int64 {
	return o.loadCost(ctx, assign) + o.equityCost(ctx, assign) + o.dowCost(ctx, assign)
}

// loadCost 每名员工每周工时与目标负荷偏差之和
func (o *Fairness) loadCost(ctx *constraint.Context, assign []int) int64 {
	var cost int64
	hours := make([]int, ctx.NumWorkers())
	for _, shifts := range o.weekShifts {
		for i := range hours {
			hours[i] = 0
		}
		for _, s := range shifts {
			if w := assign[s]; w != constraint.Unassigned {
				hours[w] += ctx.Cal.Shifts[s].Duration
			}
		}
		for w, h := range hours {
			dev := h - o.loads[w]
			if dev < 0 {
				dev = -dev
			}
			cost += int64(dev)
		}
	}
	return cost
}

// equityCost 各统计桶的历史+当前总量极差加权和
func (o *Fairness) equityCost(ctx *constraint.Context, assign []int) int64 {
	current := CurrentStats(ctx, assign)
	var cost int64
	for _, stat := range model.EquityStats {
		weight := o.scaledWeights[stat]
		if weight == 0 {
			continue
		}
		maxT, minT := 0, model.MaxStatValue
		for w, worker := range ctx.Workers {
			t := ctx.PastStats[worker.Name][stat] + current[stat][w]
			if t > maxT {
				maxT = t
			}
			if t < minT {
				minT = t
			}
		}
		cost += int64(weight) * int64(maxT-minT)
	}
	return cost
}

// dowCost 按星期几的总量极差加权和
func (o *Fairness) dowCost(ctx *constraint.Context, assign []int) int64 {
	if o.scaledDOW == 0 {
		return 0
	}
	var cost int64
	for d := 0; d < 7; d++ {
		counts := make([]int, ctx.NumWorkers())
		for _, s := range ctx.Cal.DOWIndices[d] {
			if w := assign[s]; w != constraint.Unassigned {
				counts[w]++
			}
		}
		maxT, minT := 0, model.MaxStatValue
		for w, worker := range ctx.Workers {
			t := ctx.PastDOW[worker.Name][d] + counts[w]
			if t > maxT {
				maxT = t
			}
			if t < minT {
				minT = t
			}
		}
		cost += int64(o.scaledDOW) * int64(maxT-minT)
	}
	return cost
}

// CurrentStats 从解中统计各公平性桶的当前计数：桶 -> 员工索引 -> 次数
func CurrentStats(ctx *constraint.Context, assign []int) map[string][]int {
	current := make(map[string][]int, len(model.EquityStats))
	for _, stat := range model.EquityStats {
		current[stat] = make([]int, ctx.NumWorkers())
		for _, s := range ctx.Cal.StatIndices[stat] {
			if w := assign[s]; w != constraint.Unassigned {
				current[stat][w]++
			}
		}
	}
	return current
}

// Tiebreak 最终决胜：按 (ID, 名字) 排序的员工序优先
type Tiebreak struct {
	rank []int64
}

// NewTiebreak 创建决胜目标
func NewTiebreak(ctx *constraint.Context) *Tiebreak {
	order := make([]int, ctx.NumWorkers())
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		wa, wb := ctx.Workers[order[a]], ctx.Workers[order[b]]
		if wa.ID != wb.ID {
			return wa.ID < wb.ID
		}
		return wa.Name < wb.Name
	})
	rank := make([]int64, ctx.NumWorkers())
	for r, idx := range order {
		rank[idx] = int64(r)
	}
	return &Tiebreak{rank: rank}
}

func (*Tiebreak) Name() string { return "tiebreak" }

func (o *Tiebreak) Cost(_ *constraint.Context, assign []int) int64 {
	var cost int64
	for _, w := range assign {
		if w != constraint.Unassigned {
			cost += o.rank[w]
		}
	}
	return cost
}
