package swap

import (
	"sort"

	"github.com/escala/escala/pkg/availability"
	"github.com/escala/escala/pkg/model"
)

// Recommender 替班推荐器
type Recommender struct {
	evaluator *Evaluator
	workers   []model.Worker
}

// NewRecommender 创建替班推荐器
func NewRecommender(workers []model.Worker, unavail *availability.Set) *Recommender {
	return &Recommender{
		evaluator: NewEvaluator(workers, unavail),
		workers:   workers,
	}
}

// Recommendation 替班推荐
type Recommendation struct {
	Worker        string            `json:"worker"`
	Exchange      *model.Assignment `json:"exchange,omitempty"` // 互换场景下对方转出的班次
	Score         float64           `json:"score"`
	SwapType      string            `json:"swap_type"` // take_over/exchange
	Reason        string            `json:"reason"`
	ImpactSummary string            `json:"impact_summary"`
	Rank          int               `json:"rank"`
}

// Options 推荐选项
type Options struct {
	Max           int      // 最大推荐数量
	Preferred     []string // 优先考虑的员工
	Exclude       []string // 排除的员工
	AllowExchange bool     // 是否允许互换
	MinScore      float64  // 最低得分
}

// DefaultOptions 返回默认选项
func DefaultOptions() *Options {
	return &Options{
		Max:           5,
		AllowExchange: true,
		MinScore:      60,
	}
}

// RecommendTargets 为一个待转出的班次推荐接班员工
func (r *Recommender) RecommendTargets(assignments []model.Assignment,
	source model.Assignment, opts *Options) []Recommendation {
	if opts == nil {
		opts = DefaultOptions()
	}

	exclude := map[string]bool{source.Worker: true}
	for _, name := range opts.Exclude {
		exclude[name] = true
	}
	preferred := make(map[string]bool)
	for _, name := range opts.Preferred {
		preferred[name] = true
	}

	var candidates []Recommendation
	for _, w := range r.workers {
		if exclude[w.Name] {
			continue
		}

		evaluation := r.evaluator.Evaluate(assignments, &Request{
			Source: source,
			Target: w.Name,
		})
		if evaluation.Feasible && evaluation.Score >= opts.MinScore {
			candidate := Recommendation{
				Worker:        w.Name,
				Score:         evaluation.Score,
				SwapType:      "take_over",
				Reason:        takeOverReason(evaluation),
				ImpactSummary: impactSummary(evaluation),
			}
			if preferred[w.Name] {
				candidate.Score += 10
			}
			candidates = append(candidates, candidate)
		}

		if opts.AllowExchange {
			candidates = append(candidates,
				r.exchangeCandidates(assignments, source, w.Name, opts)...)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > opts.Max {
		candidates = candidates[:opts.Max]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	return candidates
}

// exchangeCandidates 评估与目标员工互换班次的方案
func (r *Recommender) exchangeCandidates(assignments []model.Assignment,
	source model.Assignment, target string, opts *Options) []Recommendation {
	var out []Recommendation
	for _, a := range assignments {
		if a.Worker != target || a.Date == source.Date {
			continue
		}
		exchange := a
		evaluation := r.evaluator.Evaluate(assignments, &Request{
			Source:   source,
			Target:   target,
			Exchange: &exchange,
		})
		if !evaluation.Feasible || evaluation.Score < opts.MinScore {
			continue
		}
		out = append(out, Recommendation{
			Worker:        target,
			Exchange:      &exchange,
			Score:         evaluation.Score,
			SwapType:      "exchange",
			Reason:        "互换班次，双方工时保持平衡",
			ImpactSummary: impactSummary(evaluation),
		})
	}
	return out
}

// FindBestCover 为某员工某天的班次找最佳替班人
func (r *Recommender) FindBestCover(assignments []model.Assignment,
	worker, date string) *Recommendation {
	var source *model.Assignment
	for i, a := range assignments {
		if a.Worker == worker && a.Date == date {
			source = &assignments[i]
			break
		}
	}
	if source == nil {
		return nil
	}

	recs := r.RecommendTargets(assignments, *source, &Options{
		Max:      1,
		MinScore: 50,
	})
	if len(recs) == 0 {
		return nil
	}
	return &recs[0]
}

func takeOverReason(evaluation *Evaluation) string {
	if len(evaluation.Issues) == 0 {
		return "无任何冲突"
	}
	if evaluation.Impact != nil && evaluation.Impact.TargetWarnings <= 1 {
		return "仅有少量工时提醒"
	}
	return "可以接替此班次"
}

func impactSummary(evaluation *Evaluation) string {
	if evaluation.Impact == nil {
		return "影响较小"
	}
	switch {
	case evaluation.Impact.TargetHoursChange > 0:
		return "接班员工工时增加"
	case evaluation.Impact.TargetHoursChange < 0:
		return "接班员工工时减少"
	default:
		return "对双方工时影响均衡"
	}
}
