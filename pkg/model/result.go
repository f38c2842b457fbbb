// Package model 定义排班引擎的核心数据模型
package model

// Assignment 一条排班分配记录
type Assignment struct {
	Worker string    `json:"worker"`
	Date   string    `json:"date"` // YYYY-MM-DD
	Shift  ShiftKind `json:"shift"`
	Dur    int       `json:"dur"` // 小时
}

// WeeklyStat 单个员工在某个 ISO 周的工时统计
type WeeklyStat struct {
	Hours     int `json:"hours"`
	Overtime  int `json:"overtime"`
	Undertime int `json:"undertime"`
}

// 求解状态
const (
	StatusOptimal      = "OPTIMAL"
	StatusFeasible     = "FEASIBLE"
	StatusInfeasible   = "INFEASIBLE"
	StatusModelInvalid = "MODEL_INVALID"
	StatusUnknown      = "UNKNOWN"
)

// SolveStats 求解过程统计
type SolveStats struct {
	WallTime       float64 `json:"wall_time"` // 秒
	Iterations     int64   `json:"iterations"`
	Conflicts      int64   `json:"conflicts"`
	ObjectiveValue float64 `json:"objective_value"`
	Status         string  `json:"status"`
	Error          string  `json:"error,omitempty"`
	// StageCosts 字典序各阶段锁定的目标值
	StageCosts map[string]int64 `json:"stage_costs,omitempty"`
}

// Succeeded 检查求解是否得到可用解
func (s SolveStats) Succeeded() bool {
	return s.Status == StatusOptimal || s.Status == StatusFeasible
}

// Schedule 目标月份的排班表：日期 -> 班次类型 -> 员工名
type Schedule map[string]map[ShiftKind]string

// Weekly 周工时统计："YYYY-Www" 周键 -> 员工名 -> 统计
type Weekly map[string]map[string]WeeklyStat

// ScheduleResult 一次排班生成的完整结果
type ScheduleResult struct {
	Success      bool                         `json:"success"`
	Schedule     Schedule                     `json:"schedule"`
	Weekly       Weekly                       `json:"weekly"`
	Assignments  []Assignment                 `json:"assignments"`
	Stats        SolveStats                   `json:"stats"`
	CurrentStats map[string][]int             `json:"current_stats,omitempty"`
	PastStats    map[string]map[string]int    `json:"past_stats,omitempty"`
	ErrorMessage string                       `json:"error_message,omitempty"`
	// Diagnostic 求解失败时附带的不可行诊断报告
	Diagnostic interface{} `json:"diagnostic,omitempty"`
}
