// Package model 定义排班引擎的核心数据模型
package model

import "time"

// 求解与休息间隔相关常量
const (
	// SolverTimeout 单次求解的默认墙钟预算
	SolverTimeout = 30 * time.Second
	// MinRestHours 班次之间的最短休息间隔（小时）
	MinRestHours = 24
	// ConsecPenaltyMinHours / ConsecPenaltyMaxHours 连续班次软惩罚区间 [24,48)
	ConsecPenaltyMinHours = 24
	ConsecPenaltyMaxHours = 48
	// NightMinIntervalHours 夜班开始时间之间的最短期望间隔
	NightMinIntervalHours = 48
	// NightConsecutiveMinHours 相邻两天夜班的最短期望间隔
	NightConsecutiveMinHours = 96
	// MaxStatValue 公平性统计值上界
	MaxStatValue = 10000
	// PastReportWeeks 历史统计回溯周数
	PastReportWeeks = 52
	// AbsenceLookbackWeeks 自动缺勤补偿的回溯周数
	AbsenceLookbackWeeks = 12
	// AbsenceMinConsecutiveWeeks 触发自动补偿的最少连续缺勤周数
	AbsenceMinConsecutiveWeeks = 3
)

// WeeklyLoads 允许的每周目标工时
var WeeklyLoads = []int{12, 18}

// 公平性统计桶，按互斥分类的优先级顺序排列
const (
	StatSatN              = "sat_n"
	StatSunHolidayM2      = "sun_holiday_m2"
	StatSunHolidayM1      = "sun_holiday_m1"
	StatSunHolidayN       = "sun_holiday_n"
	StatSatM2             = "sat_m2"
	StatSatM1             = "sat_m1"
	StatFriNight          = "fri_night"
	StatWeekdayNotFriN    = "weekday_not_fri_n"
	StatMondayDay         = "monday_day"
	StatWeekdayNotMonDay  = "weekday_not_mon_day"
)

// EquityStats 全部公平性统计桶（分类优先级顺序）
var EquityStats = []string{
	StatSatN,
	StatSunHolidayM2,
	StatSunHolidayM1,
	StatSunHolidayN,
	StatSatM2,
	StatSatM1,
	StatFriNight,
	StatWeekdayNotFriN,
	StatMondayDay,
	StatWeekdayNotMonDay,
}

// EquityWeights 各统计桶的公平性权重
var EquityWeights = map[string]int{
	StatSunHolidayM2:     10000,
	StatSatN:             9500,
	StatSatM2:            9200,
	StatSunHolidayN:      8300,
	StatSunHolidayM1:     7600,
	StatSatM1:            6800,
	StatFriNight:         1000,
	StatWeekdayNotFriN:   700,
	StatMondayDay:        300,
	StatWeekdayNotMonDay: 50,
}

// DOWEquityWeight 按星期几的公平性权重
const DOWEquityWeight = 1

// LoadBalanceWeight 工时平衡目标的权重
const LoadBalanceWeight = 1

// StageFlexWeights 加权求和模式下各规则的权重
// 顺序与引擎的阶段顺序一致
var StageFlexWeights = []float64{
	10000, 10000, 5000, 1000, 10, 1, 0.1, 0.01, 0.001, 0.0001, 100, 500, 500,
}

// AbsenceCreditRates 每缺勤一周各统计桶的平均补偿率
var AbsenceCreditRates = map[string]float64{
	StatSatN:             0.07,
	StatSunHolidayM2:     0.07,
	StatSunHolidayM1:     0.07,
	StatSunHolidayN:      0.07,
	StatSatM2:            0.07,
	StatSatM1:            0.07,
	StatFriNight:         0.07,
	StatWeekdayNotFriN:   0.20,
	StatMondayDay:        0.07,
	StatWeekdayNotMonDay: 0.47,
}
