package stats

import (
	"sort"

	"github.com/escala/escala/pkg/model"
)

// CoverageMetrics 排班表覆盖率指标
type CoverageMetrics struct {
	TotalShifts     int     `json:"total_shifts"`     // 应排班次数
	AssignedShifts  int     `json:"assigned_shifts"`  // 已排班次数
	OverallCoverage float64 `json:"overall_coverage"` // 整体覆盖率 (%)

	DailyCoverage map[string]DayCoverage `json:"daily_coverage"`

	// ShiftKindCoverage 各班次类型的覆盖率 (%)
	ShiftKindCoverage map[model.ShiftKind]float64 `json:"shift_kind_coverage"`

	// MissingShifts 缺排的 (日期, 班次类型)
	MissingShifts []MissingShift `json:"missing_shifts"`
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Date         string  `json:"date"`
	Assigned     int     `json:"assigned"`
	CoverageRate float64 `json:"coverage_rate"`
	TotalHours   int     `json:"total_hours"`
}

// MissingShift 缺排班次
type MissingShift struct {
	Date  string          `json:"date"`
	Shift model.ShiftKind `json:"shift"`
}

// CoverageAnalyzer 覆盖率分析器：检查每天三类班次是否齐备
type CoverageAnalyzer struct{}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{}
}

// Analyze 分析排班表对给定日期列表的覆盖情况
func (c *CoverageAnalyzer) Analyze(schedule model.Schedule, dates []string) *CoverageMetrics {
	metrics := &CoverageMetrics{
		DailyCoverage:     make(map[string]DayCoverage),
		ShiftKindCoverage: make(map[model.ShiftKind]float64),
	}
	if len(dates) == 0 {
		metrics.OverallCoverage = 100
		return metrics
	}

	kindAssigned := make(map[model.ShiftKind]int)

	for _, date := range dates {
		day := DayCoverage{Date: date}
		for _, kind := range model.ShiftKinds {
			metrics.TotalShifts++
			worker := ""
			if row, ok := schedule[date]; ok {
				worker = row[kind]
			}
			if worker == "" {
				metrics.MissingShifts = append(metrics.MissingShifts, MissingShift{Date: date, Shift: kind})
				continue
			}
			metrics.AssignedShifts++
			kindAssigned[kind]++
			day.Assigned++
			day.TotalHours += model.ShiftSpecs[kind].Duration
		}
		day.CoverageRate = float64(day.Assigned) / float64(len(model.ShiftKinds)) * 100
		metrics.DailyCoverage[date] = day
	}

	metrics.OverallCoverage = float64(metrics.AssignedShifts) / float64(metrics.TotalShifts) * 100
	for _, kind := range model.ShiftKinds {
		metrics.ShiftKindCoverage[kind] = float64(kindAssigned[kind]) / float64(len(dates)) * 100
	}

	sort.Slice(metrics.MissingShifts, func(i, j int) bool {
		if metrics.MissingShifts[i].Date != metrics.MissingShifts[j].Date {
			return metrics.MissingShifts[i].Date < metrics.MissingShifts[j].Date
		}
		return metrics.MissingShifts[i].Shift < metrics.MissingShifts[j].Shift
	})

	return metrics
}
