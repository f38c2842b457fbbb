// Package swap 提供换班评估与替班推荐
package swap

import (
	"fmt"

	"github.com/escala/escala/pkg/availability"
	"github.com/escala/escala/pkg/model"
	"github.com/escala/escala/pkg/validator"
)

// Evaluator 换班评估器
type Evaluator struct {
	detector *validator.ConflictDetector
	workers  []model.Worker
	unavail  *availability.Set
}

// NewEvaluator 创建换班评估器
func NewEvaluator(workers []model.Worker, unavail *availability.Set) *Evaluator {
	return &Evaluator{
		detector: validator.NewConflictDetector(nil),
		workers:  workers,
		unavail:  unavail,
	}
}

// Request 换班请求
type Request struct {
	Source model.Assignment `json:"source"` // 要转出的班次
	Target string           `json:"target"` // 接班员工
	// Exchange 互换时目标员工转出的班次，接管场景为 nil
	Exchange *model.Assignment `json:"exchange,omitempty"`
}

// Evaluation 换班评估结果
type Evaluation struct {
	Feasible       bool    `json:"feasible"`
	Score          float64 `json:"score"` // 0-100
	Issues         []Issue `json:"issues"`
	Impact         *Impact `json:"impact"`
	Recommendation string  `json:"recommendation"`
}

// Issue 换班问题
type Issue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"` // error/warning
	Message  string `json:"message"`
}

// Impact 换班对双方工时的影响
type Impact struct {
	SourceHoursChange int `json:"source_hours_change"`
	TargetHoursChange int `json:"target_hours_change"`
	TargetWarnings    int `json:"target_warnings"`
}

// Evaluate 评估一次换班：把 Source 班次转给 Target，互换时 Exchange 班次反向转给原员工
func (e *Evaluator) Evaluate(assignments []model.Assignment, req *Request) *Evaluation {
	result := &Evaluation{
		Feasible: true,
		Score:    100,
		Issues:   make([]Issue, 0),
		Impact:   &Impact{},
	}

	target, ok := e.findWorker(req.Target)
	if !ok {
		result.Feasible = false
		result.Issues = append(result.Issues, Issue{
			Type:     "unknown_worker",
			Severity: "error",
			Message:  "目标员工不存在: " + req.Target,
		})
		return result
	}
	if target.Name == req.Source.Worker {
		result.Feasible = false
		result.Issues = append(result.Issues, Issue{
			Type:     "same_worker",
			Severity: "error",
			Message:  "不能换给班次的原员工",
		})
		return result
	}

	if req.Source.Shift == model.ShiftN && !target.CanNight {
		result.Feasible = false
		result.Issues = append(result.Issues, Issue{
			Type:     "night_eligibility",
			Severity: "error",
			Message:  fmt.Sprintf("%s 没有夜班资格", target.Name),
		})
		return result
	}

	simulated, found := e.simulate(assignments, req)
	if !found {
		result.Feasible = false
		result.Issues = append(result.Issues, Issue{
			Type:     "assignment_not_found",
			Severity: "error",
			Message:  "原班次不在当前排班中",
		})
		return result
	}

	affected := map[string]bool{target.Name: true}
	if req.Exchange != nil {
		affected[req.Source.Worker] = true
	}

	conflicts := e.detector.DetectAll(simulated, e.workers, e.unavail)
	for _, c := range conflicts {
		if !affected[c.Worker] {
			continue
		}
		result.Issues = append(result.Issues, Issue{
			Type:     string(c.Type),
			Severity: c.Severity,
			Message:  c.Message,
		})
		if c.Severity == "error" {
			result.Feasible = false
		} else {
			result.Score -= 15
			if c.Worker == target.Name {
				result.Impact.TargetWarnings++
			}
		}
	}
	if result.Score < 0 {
		result.Score = 0
	}
	if !result.Feasible {
		result.Score = 0
	}

	result.Impact.SourceHoursChange = -req.Source.Dur
	result.Impact.TargetHoursChange = req.Source.Dur
	if req.Exchange != nil {
		result.Impact.SourceHoursChange += req.Exchange.Dur
		result.Impact.TargetHoursChange -= req.Exchange.Dur
	}

	result.Recommendation = e.recommendation(result)
	return result
}

// CanSwap 快速检查是否可换班
func (e *Evaluator) CanSwap(assignments []model.Assignment, req *Request) (bool, string) {
	result := e.Evaluate(assignments, req)
	if !result.Feasible {
		if len(result.Issues) > 0 {
			return false, result.Issues[0].Message
		}
		return false, "无法进行换班"
	}
	return true, ""
}

// simulate 构造换班后的排班，返回是否找到了原班次
func (e *Evaluator) simulate(assignments []model.Assignment, req *Request) ([]model.Assignment, bool) {
	simulated := make([]model.Assignment, len(assignments))
	found := false
	for i, a := range assignments {
		switch {
		case a.Worker == req.Source.Worker && a.Date == req.Source.Date && a.Shift == req.Source.Shift:
			a.Worker = req.Target
			found = true
		case req.Exchange != nil &&
			a.Worker == req.Exchange.Worker && a.Date == req.Exchange.Date && a.Shift == req.Exchange.Shift:
			a.Worker = req.Source.Worker
		}
		simulated[i] = a
	}
	return simulated, found
}

func (e *Evaluator) findWorker(name string) (model.Worker, bool) {
	for _, w := range e.workers {
		if w.Name == name {
			return w, true
		}
	}
	return model.Worker{}, false
}

func (e *Evaluator) recommendation(result *Evaluation) string {
	if !result.Feasible {
		return "不建议进行此换班，存在硬性冲突"
	}
	switch {
	case result.Score >= 90:
		return "推荐，换班后无遗留问题"
	case result.Score >= 70:
		return "可以进行，存在少量工时提醒"
	default:
		return "谨慎进行，会明显偏离周负荷"
	}
}
