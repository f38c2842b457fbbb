package handler

import (
	"net/http"
	"time"

	"github.com/escala/escala/pkg/calendar"
	"github.com/escala/escala/pkg/errors"
	"github.com/escala/escala/pkg/model"
	"github.com/escala/escala/pkg/service"
	"github.com/escala/escala/pkg/stats"
)

// StatsHandler 统计分析处理器
type StatsHandler struct {
	svc *service.SchedulerService
}

// NewStatsHandler 创建统计分析处理器
func NewStatsHandler(svc *service.SchedulerService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// FairnessResponse 公平性响应
type FairnessResponse struct {
	Month string                 `json:"month"`
	Data  *stats.FairnessMetrics `json:"data"`
}

// Fairness 分析某月份排班的公平性
func (h *StatsHandler) Fairness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	monthStr := r.URL.Query().Get("month")
	year, month, appErr := parseMonth(monthStr)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	assignments := h.windowAssignments(year, month)
	if len(assignments) == 0 {
		respondError(w, errors.New(errors.CodeNotFound, "该月份没有排班记录"))
		return
	}

	metrics := stats.NewFairnessAnalyzer().Analyze(assignments, h.svc.Workers())
	respondJSON(w, http.StatusOK, FairnessResponse{Month: monthStr, Data: metrics})
}

// CoverageResponse 覆盖率响应
type CoverageResponse struct {
	Month string                 `json:"month"`
	Data  *stats.CoverageMetrics `json:"data"`
}

// Coverage 分析某月份排班窗口的覆盖率
func (h *StatsHandler) Coverage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	monthStr := r.URL.Query().Get("month")
	year, month, appErr := parseMonth(monthStr)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	cal := calendar.Build(year, month, nil, nil)
	seen := make(map[string]bool)
	var dates []string
	for _, sh := range cal.Shifts {
		d := sh.Date()
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}

	schedule := make(model.Schedule)
	for date, as := range h.svc.History().AssignmentsByDate() {
		if !seen[date] {
			continue
		}
		day := schedule[date]
		if day == nil {
			day = make(map[model.ShiftKind]string)
			schedule[date] = day
		}
		for _, a := range as {
			day[a.Shift] = a.Worker
		}
	}

	metrics := stats.NewCoverageAnalyzer().Analyze(schedule, dates)
	respondJSON(w, http.StatusOK, CoverageResponse{Month: monthStr, Data: metrics})
}

// ReportsResponse 员工统计报告响应
type ReportsResponse struct {
	Reports []*stats.WorkerReport `json:"reports"`
}

// Reports 返回全部员工的回溯统计报告
func (h *StatsHandler) Reports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}
	respondJSON(w, http.StatusOK, ReportsResponse{Reports: h.svc.WorkerReports()})
}

// windowAssignments 返回目标月份排班窗口内的历史排班
func (h *StatsHandler) windowAssignments(year int, month time.Month) []model.Assignment {
	cal := calendar.Build(year, month, nil, nil)
	inWindow := make(map[string]bool)
	for _, sh := range cal.Shifts {
		inWindow[sh.Date()] = true
	}

	var out []model.Assignment
	for date, as := range h.svc.History().AssignmentsByDate() {
		if inWindow[date] {
			out = append(out, as...)
		}
	}
	return out
}
