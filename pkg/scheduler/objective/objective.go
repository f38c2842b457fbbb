// Package objective 实现排班软规则的代价函数
//
// 每个目标对完整解返回整数代价，阶段顺序即字典序优化顺序
package objective

import (
	"time"

	"github.com/escala/escala/pkg/model"
	"github.com/escala/escala/pkg/scheduler/constraint"
)

// Objective 软规则代价函数
type Objective interface {
	// Name 返回目标名称
	Name() string

	// Cost 计算解的代价，越低越好
	Cost(ctx *constraint.Context, assign []int) int64
}

// BuildStages 按字典序优化顺序构建全部目标
func BuildStages(ctx *constraint.Context) []Objective {
	return []Objective{
		NewSaturdayPreference(ctx),
		NewThreeDayWeekend(ctx),
		NewWeekendLimits(ctx),
		NewConsecutiveWeekend(ctx),
		NewM2Priority(ctx),
		Consec48{},
		NightInterval{},
		ConsecutiveNight{},
		NewFairness(ctx),
		NewTiebreak(ctx),
	}
}

// flexIndex 阶段序号 -> StageFlexWeights 下标
// 规则 1-5 取 0-4，休息类规则 11-13 取 10-12，
// 公平性目标权重已内置于统计桶权重故取 1，决胜目标取最小权重。
var flexIndex = map[string]int{
	"rule1_sat_pref":        0,
	"rule2_3day_min_workers": 1,
	"rule3_weekend_limits":  2,
	"rule4_consec_weekend":  3,
	"rule5_m2_priority":     4,
	"rule11_consec48":       10,
	"rule12_night_interval": 11,
	"rule13_consec_night":   12,
	"tiebreak":              9,
}

// WeightedCost 加权求和模式下的总代价
func WeightedCost(ctx *constraint.Context, assign []int, stages []Objective) float64 {
	total := 0.0
	for _, obj := range stages {
		w := 1.0
		if idx, ok := flexIndex[obj.Name()]; ok && idx < len(model.StageFlexWeights) {
			w = model.StageFlexWeights[idx]
		}
		total += w * float64(obj.Cost(ctx, assign))
	}
	return total
}

// weekdayOffset 距周一的天数（周一=0 … 周日=6）
func weekdayOffset(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

// hasThreeDayWeekend 检查某周是否含周五或周一节假日
func hasThreeDayWeekend(ctx *constraint.Context, wk *model.ISOWeek) bool {
	for _, d := range wk.Days {
		if !ctx.Cal.IsHoliday(d) {
			continue
		}
		if d.Weekday() == time.Friday || d.Weekday() == time.Monday {
			return true
		}
	}
	return false
}
