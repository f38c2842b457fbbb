package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/escala/escala/pkg/errors"
	"github.com/escala/escala/pkg/model"
	"github.com/escala/escala/pkg/service"
)

// WorkerHandler 员工名册处理器
type WorkerHandler struct {
	svc *service.SchedulerService
}

// NewWorkerHandler 创建员工名册处理器
func NewWorkerHandler(svc *service.SchedulerService) *WorkerHandler {
	return &WorkerHandler{svc: svc}
}

// WorkerRequest 员工创建/更新请求
type WorkerRequest struct {
	Name       string `json:"name"`
	CanNight   bool   `json:"can_night"`
	WeeklyLoad int    `json:"weekly_load"`
}

// WorkerResponse 单个员工响应
type WorkerResponse struct {
	Worker model.Worker `json:"worker"`
	IsNew  bool         `json:"is_new"` // 是否为无历史记录的新员工
}

// Collection 处理 /api/v1/workers：GET列表、POST创建
func (h *WorkerHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"workers": h.svc.Workers(),
		})
	case http.MethodPost:
		var req WorkerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
			return
		}
		worker, err := h.svc.AddWorker(req.Name, req.CanNight, req.WeeklyLoad)
		if err != nil {
			respondAnyError(w, err, "员工创建失败")
			return
		}
		if err := h.svc.SaveConfig(); err != nil {
			respondAnyError(w, err, "配置保存失败")
			return
		}
		respondJSON(w, http.StatusCreated, WorkerResponse{Worker: worker, IsNew: true})
	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "不支持的方法"))
	}
}

// Item 处理 /api/v1/workers/{name}：GET查询、PUT更新、DELETE移除
func (h *WorkerHandler) Item(w http.ResponseWriter, r *http.Request) {
	name := workerName(r.URL.Path)
	if name == "" {
		respondError(w, errors.New(errors.CodeInvalidInput, "员工姓名不能为空"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		worker, err := h.svc.GetWorker(name)
		if err != nil {
			respondAnyError(w, err, "员工查询失败")
			return
		}
		respondJSON(w, http.StatusOK, WorkerResponse{
			Worker: worker,
			IsNew:  h.svc.IsNewWorker(name),
		})
	case http.MethodPut:
		var req WorkerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
			return
		}
		if err := h.svc.UpdateWorker(name, req.CanNight, req.WeeklyLoad); err != nil {
			respondAnyError(w, err, "员工更新失败")
			return
		}
		if err := h.svc.SaveConfig(); err != nil {
			respondAnyError(w, err, "配置保存失败")
			return
		}
		worker, _ := h.svc.GetWorker(name)
		respondJSON(w, http.StatusOK, WorkerResponse{Worker: worker})
	case http.MethodDelete:
		if err := h.svc.RemoveWorker(name); err != nil {
			respondAnyError(w, err, "员工移除失败")
			return
		}
		if err := h.svc.SaveConfig(); err != nil {
			respondAnyError(w, err, "配置保存失败")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"removed": name})
	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "不支持的方法"))
	}
}

// DeclarationRequest 可用性/必须上班声明请求
type DeclarationRequest struct {
	Worker string   `json:"worker"`
	Tokens []string `json:"tokens"` // 空列表表示清除声明
}

// SetUnavailable 设置不可用声明
func (h *WorkerHandler) SetUnavailable(w http.ResponseWriter, r *http.Request) {
	h.setDeclaration(w, r, true)
}

// SetRequired 设置必须上班声明
func (h *WorkerHandler) SetRequired(w http.ResponseWriter, r *http.Request) {
	h.setDeclaration(w, r, false)
}

func (h *WorkerHandler) setDeclaration(w http.ResponseWriter, r *http.Request, unavailable bool) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持PUT方法"))
		return
	}

	var req DeclarationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	var err error
	if unavailable {
		err = h.svc.SetUnavailable(req.Worker, req.Tokens)
	} else {
		err = h.svc.SetRequired(req.Worker, req.Tokens)
	}
	if err != nil {
		respondAnyError(w, err, "声明设置失败")
		return
	}
	if err := h.svc.SaveConfig(); err != nil {
		respondAnyError(w, err, "配置保存失败")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"worker": req.Worker,
		"tokens": len(req.Tokens),
	})
}

// CreditsRequest 手工补偿额度请求
type CreditsRequest struct {
	Worker  string         `json:"worker"`
	Credits map[string]int `json:"credits,omitempty"`
	Reduce  *int           `json:"reduce_percent,omitempty"` // 按百分比削减现有额度
}

// SetCredits 设置或削减员工的补偿额度
func (h *WorkerHandler) SetCredits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持PUT方法"))
		return
	}

	var req CreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	var err error
	if req.Reduce != nil {
		err = h.svc.ReduceCredits(req.Worker, *req.Reduce)
	} else {
		err = h.svc.SetManualCredits(req.Worker, req.Credits)
	}
	if err != nil {
		respondAnyError(w, err, "额度设置失败")
		return
	}
	if err := h.svc.SaveConfig(); err != nil {
		respondAnyError(w, err, "配置保存失败")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"worker": req.Worker})
}

// HolidayRequest 节假日请求
type HolidayRequest struct {
	Date string `json:"date"` // YYYY-MM-DD
}

// Holidays 处理 /api/v1/holidays：POST添加、DELETE移除
func (h *WorkerHandler) Holidays(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req HolidayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
			return
		}
		if err := h.svc.AddHoliday(req.Date); err != nil {
			respondAnyError(w, err, "节假日添加失败")
			return
		}
		if err := h.svc.SaveConfig(); err != nil {
			respondAnyError(w, err, "配置保存失败")
			return
		}
		respondJSON(w, http.StatusCreated, map[string]interface{}{"date": req.Date})
	case http.MethodDelete:
		date := r.URL.Query().Get("date")
		if date == "" {
			respondError(w, errors.New(errors.CodeInvalidInput, "日期不能为空"))
			return
		}
		h.svc.RemoveHoliday(date)
		if err := h.svc.SaveConfig(); err != nil {
			respondAnyError(w, err, "配置保存失败")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"date": date})
	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "不支持的方法"))
	}
}

// ImportWorkers 处理员工 CSV 导入：请求体为 CSV 内容
func (h *WorkerHandler) ImportWorkers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "不支持的方法"))
		return
	}
	added, err := h.svc.ImportWorkersCSV(r.Body)
	if err != nil {
		respondAnyError(w, err, "员工导入失败")
		return
	}
	if added > 0 {
		if err := h.svc.SaveConfig(); err != nil {
			respondAnyError(w, err, "配置保存失败")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"added": added})
}

// ImportHolidays 处理节假日 CSV 导入：请求体为 CSV 内容
func (h *WorkerHandler) ImportHolidays(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "不支持的方法"))
		return
	}
	added, err := h.svc.ImportHolidaysCSV(r.Body)
	if err != nil {
		respondAnyError(w, err, "节假日导入失败")
		return
	}
	if added > 0 {
		if err := h.svc.SaveConfig(); err != nil {
			respondAnyError(w, err, "配置保存失败")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"added": added})
}

// workerName 从路径末段提取员工姓名
func workerName(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	name := parts[len(parts)-1]
	if name == "workers" {
		return ""
	}
	return name
}
