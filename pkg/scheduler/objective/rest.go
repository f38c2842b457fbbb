// Package objective 实现排班软规则的代价函数
package objective

import "github.com/escala/escala/pkg/scheduler/constraint"

// Consec48 规则11：惩罚休息间隔落在 [24,48) 小时的班次对
type Consec48 struct{}

func (Consec48) Name() string { return "rule11_consec48" }

func (Consec48) Cost(ctx *constraint.Context, assign []int) int64 {
	return countSharedPairs(ctx.Consec48Pairs, assign)
}

// NightInterval 规则12：惩罚开始时间相距不超过 48 小时的夜班对
type NightInterval struct{}

func (NightInterval) Name() string { return "rule12_night_interval" }

func (NightInterval) Cost(ctx *constraint.Context, assign []int) int64 {
	return countSharedPairs(ctx.NightIntervalPairs, assign)
}

// ConsecutiveNight 规则13：惩罚相邻两天的夜班对（开始时间相距不足 96 小时）
type ConsecutiveNight struct{}

func (ConsecutiveNight) Name() string { return "rule13_consec_night" }

func (ConsecutiveNight) Cost(ctx *constraint.Context, assign []int) int64 {
	return countSharedPairs(ctx.ConsecNightPairs, assign)
}

// countSharedPairs 统计两个班次分给同一员工的对数
func countSharedPairs(pairs [][2]int, assign []int) int64 {
	var count int64
	for _, p := range pairs {
		w := assign[p[0]]
		if w != constraint.Unassigned && assign[p[1]] == w {
			count++
		}
	}
	return count
}
