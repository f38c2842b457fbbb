// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/escala/escala/internal/repository"
	"github.com/escala/escala/pkg/diagnostics"
	"github.com/escala/escala/pkg/errors"
	"github.com/escala/escala/pkg/history"
	"github.com/escala/escala/pkg/logger"
	"github.com/escala/escala/pkg/model"
	"github.com/escala/escala/pkg/service"
	"github.com/escala/escala/pkg/swap"
)

// ScheduleHandler 排班处理器
type ScheduleHandler struct {
	svc    *service.SchedulerService
	mirror *repository.ScheduleRepository // 可选的数据库镜像
}

// NewScheduleHandler 创建排班处理器，mirror 为 nil 时不写数据库
func NewScheduleHandler(svc *service.SchedulerService, mirror *repository.ScheduleRepository) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, mirror: mirror}
}

// GenerateRequest 排班生成请求
type GenerateRequest struct {
	Month string `json:"month"` // YYYY-MM
	Force bool   `json:"force,omitempty"`
}

// GenerateResponse 排班生成响应
type GenerateResponse struct {
	Success     bool               `json:"success"`
	Month       string             `json:"month"`
	Schedule    model.Schedule     `json:"schedule,omitempty"`
	Weekly      model.Weekly       `json:"weekly,omitempty"`
	Assignments []model.Assignment `json:"assignments,omitempty"`
	Stats       model.SolveStats   `json:"stats"`
	Message     string             `json:"message,omitempty"`
	Duration    string             `json:"duration"`
}

// Generate 生成目标月份的排班表
func (h *ScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	year, month, appErr := parseMonth(req.Month)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	if !req.Force && h.svc.HasScheduleForMonth(year, month) {
		respondError(w, errors.New(errors.CodeAlreadyExists,
			"该月份已有排班记录，重新生成请先重置或使用 force"))
		return
	}
	if req.Force {
		removed := h.svc.ResetScheduleForMonth(year, month)
		if removed > 0 {
			logger.Info().Str("month", req.Month).Int("workers", removed).Msg("已清除旧排班")
		}
	}

	start := time.Now()
	result, err := h.svc.Generate(r.Context(), year, month)
	if err != nil {
		if r.Context().Err() == context.DeadlineExceeded {
			respondError(w, errors.New(errors.CodeTimeout, "排班计算超时"))
			return
		}
		respondAnyError(w, err, "排班生成失败")
		return
	}

	resp := GenerateResponse{
		Success:  result.Success,
		Month:    req.Month,
		Duration: time.Since(start).String(),
	}
	if result.Success {
		resp.Schedule = result.Schedule
		resp.Weekly = result.Weekly
		resp.Assignments = result.Assignments
		resp.Stats = result.Stats

		if h.mirror != nil {
			if err := h.mirror.SaveAssignments(r.Context(), result.Assignments); err != nil {
				logger.WithError(err).Msg("排班镜像写入数据库失败")
			}
		}
	} else {
		resp.Message = result.ErrorMessage
	}
	respondJSON(w, http.StatusOK, resp)
}

// DiagnoseResponse 诊断响应
type DiagnoseResponse struct {
	Month    string              `json:"month"`
	Feasible bool                `json:"feasible"`
	Report   *diagnostics.Report `json:"report"`
}

// Diagnose 对目标月份做可行性诊断
func (h *ScheduleHandler) Diagnose(w http.ResponseWriter, r *http.Request) {
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

	report, err := h.svc.Diagnose(r.Context(), year, month)
	if err != nil {
		respondAnyError(w, err, "诊断失败")
		return
	}

	respondJSON(w, http.StatusOK, DiagnoseResponse{
		Month:    monthStr,
		Feasible: len(report.Errors()) == 0,
		Report:   report,
	})
}

// MonthResponse 月度排班查询响应
type MonthResponse struct {
	Month       string             `json:"month"`
	Assignments []model.Assignment `json:"assignments"`
}

// GetMonth 查询某月份的历史排班
func (h *ScheduleHandler) GetMonth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	monthStr := r.URL.Query().Get("month")
	if _, _, appErr := parseMonth(monthStr); appErr != nil {
		respondError(w, appErr)
		return
	}

	var assignments []model.Assignment
	h.svc.History().IterAssignments(func(worker string, date time.Time, e history.Entry) {
		if date.Format(model.MonthLayout) == monthStr {
			assignments = append(assignments, model.Assignment{
				Worker: worker,
				Date:   e.Date,
				Shift:  e.Shift,
				Dur:    e.Dur,
			})
		}
	})

	respondJSON(w, http.StatusOK, MonthResponse{Month: monthStr, Assignments: assignments})
}

// ResetResponse 重置响应
type ResetResponse struct {
	Month   string `json:"month"`
	Removed int    `json:"removed"` // 受影响的员工数
}

// Reset 清除某月份的排班记录
func (h *ScheduleHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete && r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持DELETE方法"))
		return
	}

	monthStr := r.URL.Query().Get("month")
	year, month, appErr := parseMonth(monthStr)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	removed := h.svc.ResetScheduleForMonth(year, month)
	if err := h.svc.SaveHistory(); err != nil {
		respondAnyError(w, err, "历史保存失败")
		return
	}
	if h.mirror != nil {
		if _, err := h.mirror.DeleteMonth(r.Context(), year, month); err != nil {
			logger.WithError(err).Msg("排班镜像清除失败")
		}
	}
	respondJSON(w, http.StatusOK, ResetResponse{Month: monthStr, Removed: removed})
}

// SwapsRequest 替班推荐请求
type SwapsRequest struct {
	Month    string `json:"month"`
	Worker   string `json:"worker"`
	Date     string `json:"date"` // YYYY-MM-DD
	Max      int    `json:"max,omitempty"`
	Exchange bool   `json:"allow_exchange,omitempty"`
}

// SwapsResponse 替班推荐响应
type SwapsResponse struct {
	Worker          string                `json:"worker"`
	Date            string                `json:"date"`
	Recommendations []swap.Recommendation `json:"recommendations"`
}

// Swaps 为某员工某天的班次推荐替班人选
func (h *ScheduleHandler) Swaps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req SwapsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if _, _, appErr := parseMonth(req.Month); appErr != nil {
		respondError(w, appErr)
		return
	}
	if req.Worker == "" || req.Date == "" {
		respondError(w, errors.New(errors.CodeInvalidInput, "员工与日期不能为空"))
		return
	}

	var assignments []model.Assignment
	var source *model.Assignment
	h.svc.History().IterAssignments(func(worker string, date time.Time, e history.Entry) {
		a := model.Assignment{Worker: worker, Date: e.Date, Shift: e.Shift, Dur: e.Dur}
		assignments = append(assignments, a)
		if worker == req.Worker && e.Date == req.Date {
			src := a
			source = &src
		}
	})
	if source == nil {
		respondError(w, errors.New(errors.CodeNotFound, "该员工当天没有班次"))
		return
	}

	opts := swap.DefaultOptions()
	opts.AllowExchange = req.Exchange
	if req.Max > 0 {
		opts.Max = req.Max
	}

	recommender := swap.NewRecommender(h.svc.Workers(), h.svc.UnavailableSet())
	recs := recommender.RecommendTargets(assignments, *source, opts)

	respondJSON(w, http.StatusOK, SwapsResponse{
		Worker:          req.Worker,
		Date:            req.Date,
		Recommendations: recs,
	})
}

// parseMonth 解析 YYYY-MM 月份参数
func parseMonth(s string) (int, time.Month, *errors.AppError) {
	if strings.TrimSpace(s) == "" {
		return 0, 0, errors.New(errors.CodeInvalidInput, "月份不能为空")
	}
	t, err := time.Parse(model.MonthLayout, s)
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.CodeInvalidInput, "月份格式无效，应为YYYY-MM")
	}
	return t.Year(), t.Month(), nil
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	})
}

// respondAnyError 把任意错误规整为错误响应
func respondAnyError(w http.ResponseWriter, err error, fallback string) {
	if appErr, ok := err.(*errors.AppError); ok {
		respondError(w, appErr)
		return
	}
	respondError(w, errors.Wrap(err, errors.CodeInternal, fallback))
}
