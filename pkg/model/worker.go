// Package model 定义排班引擎的核心数据模型
package model

// Worker 参与排班的员工
type Worker struct {
	Name string `json:"name" yaml:"name"`
	ID   string `json:"id" yaml:"id"`
	// Color 前端展示用的颜色标识
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
	// CanNight 是否可排夜班
	CanNight bool `json:"can_night" yaml:"can_night"`
	// WeeklyLoad 每周目标工时（12 或 18）
	WeeklyLoad int `json:"weekly_load" yaml:"weekly_load"`
}

// HasValidLoad 检查周工时是否为允许值
func (w Worker) HasValidLoad() bool {
	for _, l := range WeeklyLoads {
		if w.WeeklyLoad == l {
			return true
		}
	}
	return false
}

// WorkerByName 按名字索引员工列表
func WorkerByName(workers []Worker) map[string]Worker {
	m := make(map[string]Worker, len(workers))
	for _, w := range workers {
		m[w.Name] = w
	}
	return m
}
