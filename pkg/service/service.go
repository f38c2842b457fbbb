// Package service 提供排班项目的编排层：项目配置、员工名册、历史与生成流程
package service

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/escala/escala/internal/metrics"
	"github.com/escala/escala/pkg/availability"
	"github.com/escala/escala/pkg/calendar"
	"github.com/escala/escala/pkg/diagnostics"
	"github.com/escala/escala/pkg/errors"
	"github.com/escala/escala/pkg/history"
	"github.com/escala/escala/pkg/logger"
	"github.com/escala/escala/pkg/model"
	"github.com/escala/escala/pkg/scheduler"
	"github.com/escala/escala/pkg/scheduler/constraint"
	"github.com/escala/escala/pkg/stats"
	"github.com/escala/escala/pkg/validator"
)

// ProjectConfig 一个排班项目的全部可持久化配置
type ProjectConfig struct {
	Workers []model.Worker `yaml:"workers"`

	// Unavailable / Required 员工名 -> 声明 token 列表
	Unavailable map[string][]string `yaml:"unavailable,omitempty"`
	Required    map[string][]string `yaml:"required,omitempty"`

	// Holidays 手工节假日（YYYY-MM-DD），公共假日自动计算无需声明
	Holidays []string `yaml:"holidays,omitempty"`

	EquityWeights map[string]int            `yaml:"equity_weights,omitempty"`
	DOWWeight     int                       `yaml:"dow_weight,omitempty"`
	ManualCredits map[string]map[string]int `yaml:"manual_credits,omitempty"`

	Lexicographic bool `yaml:"lexicographic"`
}

// SchedulerService 排班服务：持有项目配置与历史，编排生成与诊断
type SchedulerService struct {
	mu sync.RWMutex

	cfg  ProjectConfig
	hist history.History

	configPath  string
	historyPath string

	engine   *scheduler.Engine
	detector *validator.ConflictDetector
}

// NewSchedulerService 创建服务并加载配置与历史
// 文件不存在时以空项目启动
func NewSchedulerService(configPath, historyPath string) (*SchedulerService, error) {
	s := &SchedulerService{
		cfg:         ProjectConfig{Lexicographic: true},
		hist:        make(history.History),
		configPath:  configPath,
		historyPath: historyPath,
		engine:      scheduler.NewEngine(nil, nil),
		detector:    validator.NewConflictDetector(nil),
	}

	if configPath != "" {
		if err := s.loadConfig(); err != nil && !errors.Is(err, errors.CodeNotFound) {
			return nil, err
		}
	}
	if historyPath != "" {
		hist, err := history.Load(historyPath, s.hist)
		if err != nil && !errors.Is(err, errors.CodeNotFound) {
			return nil, err
		}
		s.hist = hist
	}
	return s, nil
}

func (s *SchedulerService) loadConfig() error {
	data, err := os.ReadFile(s.configPath)
	if err != nil {
		return errors.Wrap(err, errors.CodeNotFound, "配置文件读取失败")
	}
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return errors.Wrap(err, errors.CodeInvalidInput, "配置文件格式无效")
	}
	s.cfg = cfg
	logger.Info().Str("path", s.configPath).Int("workers", len(cfg.Workers)).Msg("项目配置加载完成")
	return nil
}

// SaveConfig 把项目配置写回 YAML 文件
func (s *SchedulerService) SaveConfig() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.configPath == "" {
		return errors.New(errors.CodeInvalidInput, "未配置项目文件路径")
	}
	data, err := yaml.Marshal(s.cfg)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "配置序列化失败")
	}
	if err := os.WriteFile(s.configPath, data, 0644); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "配置文件写入失败")
	}
	logger.Info().Str("path", s.configPath).Msg("项目配置保存完成")
	return nil
}

// SaveHistory 把历史写回 JSON 文件
func (s *SchedulerService) SaveHistory() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.historyPath == "" {
		return errors.New(errors.CodeInvalidInput, "未配置历史文件路径")
	}
	return history.Save(s.historyPath, s.hist)
}

// Workers 返回员工名册的副本
func (s *SchedulerService) Workers() []model.Worker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Worker, len(s.cfg.Workers))
	copy(out, s.cfg.Workers)
	return out
}

// GetWorker 按名字查找员工
func (s *SchedulerService) GetWorker(name string) (model.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.cfg.Workers {
		if w.Name == name {
			return w, nil
		}
	}
	return model.Worker{}, errors.NotFound("worker", name)
}

// AddWorker 登记新员工并分配顺延编号
func (s *SchedulerService) AddWorker(name string, canNight bool, weeklyLoad int) (model.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		return model.Worker{}, errors.InvalidInput("name", "员工名不能为空")
	}
	for _, w := range s.cfg.Workers {
		if w.Name == name {
			return model.Worker{}, errors.New(errors.CodeAlreadyExists,
				fmt.Sprintf("员工已存在: %s", name))
		}
	}

	worker := model.Worker{
		Name:       name,
		ID:         s.nextWorkerID(),
		CanNight:   canNight,
		WeeklyLoad: weeklyLoad,
	}
	if !worker.HasValidLoad() {
		return model.Worker{}, errors.InvalidInput("weekly_load",
			fmt.Sprintf("周工时无效: %d", weeklyLoad))
	}

	s.cfg.Workers = append(s.cfg.Workers, worker)
	logger.Info().Str("worker", name).Str("id", worker.ID).Msg("员工登记完成")
	return worker, nil
}

// nextWorkerID 返回下一个未占用的顺延编号
func (s *SchedulerService) nextWorkerID() string {
	used := make(map[string]bool, len(s.cfg.Workers))
	for _, w := range s.cfg.Workers {
		used[w.ID] = true
	}
	for i := 1; ; i++ {
		id := fmt.Sprintf("ID%03d", i)
		if !used[id] {
			return id
		}
	}
}

// UpdateWorker 修改员工的夜班资格与周工时
func (s *SchedulerService) UpdateWorker(name string, canNight bool, weeklyLoad int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, w := range s.cfg.Workers {
		if w.Name != name {
			continue
		}
		updated := w
		updated.CanNight = canNight
		updated.WeeklyLoad = weeklyLoad
		if !updated.HasValidLoad() {
			return errors.InvalidInput("weekly_load", fmt.Sprintf("周工时无效: %d", weeklyLoad))
		}
		s.cfg.Workers[i] = updated
		return nil
	}
	return errors.NotFound("worker", name)
}

// RemoveWorker 注销员工并清理其声明与积分
// 历史记录保留，用于统计与跨窗口约束
func (s *SchedulerService) RemoveWorker(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, w := range s.cfg.Workers {
		if w.Name != name {
			continue
		}
		s.cfg.Workers = append(s.cfg.Workers[:i], s.cfg.Workers[i+1:]...)
		delete(s.cfg.Unavailable, name)
		delete(s.cfg.Required, name)
		delete(s.cfg.ManualCredits, name)
		logger.Info().Str("worker", name).Msg("员工注销完成")
		return nil
	}
	return errors.NotFound("worker", name)
}

// SetUnavailable 设置员工的不可用声明，覆盖原有声明
func (s *SchedulerService) SetUnavailable(worker string, tokens []string) error {
	return s.setDeclaration(worker, tokens, true)
}

// SetRequired 设置员工的必排声明，覆盖原有声明
func (s *SchedulerService) SetRequired(worker string, tokens []string) error {
	return s.setDeclaration(worker, tokens, false)
}

func (s *SchedulerService) setDeclaration(worker string, tokens []string, unavailable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasWorker(worker) {
		return errors.NotFound("worker", worker)
	}
	if len(tokens) > 0 && len(availability.ParseTokens(tokens)) == 0 {
		return errors.InvalidInput("tokens", "没有任何可解析的声明")
	}

	target := &s.cfg.Unavailable
	if !unavailable {
		target = &s.cfg.Required
	}
	if *target == nil {
		*target = make(map[string][]string)
	}
	if len(tokens) == 0 {
		delete(*target, worker)
	} else {
		(*target)[worker] = tokens
	}
	return nil
}

func (s *SchedulerService) hasWorker(name string) bool {
	for _, w := range s.cfg.Workers {
		if w.Name == name {
			return true
		}
	}
	return false
}

// AddHoliday 登记手工节假日
func (s *SchedulerService) AddHoliday(date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return errors.InvalidInput("date", fmt.Sprintf("日期无效: %s", date))
	}
	for _, h := range s.cfg.Holidays {
		if h == date {
			return nil
		}
	}
	s.cfg.Holidays = append(s.cfg.Holidays, date)
	sort.Strings(s.cfg.Holidays)
	return nil
}

// RemoveHoliday 移除手工节假日
func (s *SchedulerService) RemoveHoliday(date string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, h := range s.cfg.Holidays {
		if h == date {
			s.cfg.Holidays = append(s.cfg.Holidays[:i], s.cfg.Holidays[i+1:]...)
			return
		}
	}
}

// SetManualCredits 设置员工的手工补偿积分，覆盖同名桶的自动积分
func (s *SchedulerService) SetManualCredits(worker string, credits map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasWorker(worker) {
		return errors.NotFound("worker", worker)
	}
	if s.cfg.ManualCredits == nil {
		s.cfg.ManualCredits = make(map[string]map[string]int)
	}
	if len(credits) == 0 {
		delete(s.cfg.ManualCredits, worker)
		return nil
	}
	copied := make(map[string]int, len(credits))
	for k, v := range credits {
		copied[k] = v
	}
	s.cfg.ManualCredits[worker] = copied
	return nil
}

// ReduceCredits 按百分比缩减员工的手工积分，用于已部分消化的补偿
func (s *SchedulerService) ReduceCredits(worker string, percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if percent < 0 || percent > 100 {
		return errors.InvalidInput("percent", fmt.Sprintf("百分比无效: %d", percent))
	}
	credits, ok := s.cfg.ManualCredits[worker]
	if !ok {
		return errors.NotFound("credits", worker)
	}
	factor := float64(100-percent) / 100
	for bucket, v := range credits {
		credits[bucket] = int(math.Round(float64(v) * factor))
	}
	return nil
}

// ImportHistory 从 JSON 文件合并历史
func (s *SchedulerService) ImportHistory(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hist, err := history.Load(path, s.hist)
	if err != nil {
		return err
	}
	s.hist = hist
	return nil
}

// History 返回历史的只读视图
func (s *SchedulerService) History() *history.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return history.NewView(s.hist)
}

// UnavailableSet 返回当前不可用声明的解析结果
func (s *SchedulerService) UnavailableSet() *availability.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return availability.NewSet(availability.ParseAll(s.cfg.Unavailable))
}

// HasScheduleForMonth 检查目标月份的求解窗口是否已有历史排班
func (s *SchedulerService) HasScheduleForMonth(year int, month time.Month) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cal := calendar.Build(year, month, nil, s.holidayDates(year, month))
	scheduled := history.NewView(s.hist).ScheduledWeeks()
	for _, key := range cal.WeekOrder {
		if scheduled[key] {
			return true
		}
	}
	return false
}

// ResetScheduleForMonth 清除目标月份的全部历史记录
func (s *SchedulerService) ResetScheduleForMonth(year int, month time.Month) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	monthKey := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format(model.MonthLayout)
	removed := 0
	for worker, months := range s.hist {
		if entries, ok := months[monthKey]; ok {
			removed += len(entries)
			delete(months, monthKey)
		}
		if len(months) == 0 {
			delete(s.hist, worker)
		}
	}
	if removed > 0 {
		logger.Warn().Str("month", monthKey).Int("entries", removed).Msg("月份历史已清除")
	}
	return removed
}

// IsNewWorker 检查员工是否没有任何历史记录
func (s *SchedulerService) IsNewWorker(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stats.IsNewWorker(history.NewView(s.hist), name)
}

// WorkerReports 返回全部员工的历史统计报告
func (s *SchedulerService) WorkerReports() []*stats.WorkerReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stats.ComputeAllWorkerReports(history.NewView(s.hist), s.cfg.Workers)
}

// Generate 生成目标月份的排班；成功后复核结果并把分配合并进历史
func (s *SchedulerService) Generate(ctx context.Context, year int, month time.Month) (*model.ScheduleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in := s.buildInput(year, month)
	solverName := "weighted"
	if in.Lexicographic {
		solverName = "lexicographic"
	}
	start := time.Now()
	result, err := s.engine.Generate(ctx, in)
	metrics.RecordScheduleGeneration(solverName, err == nil && result != nil && result.Success, time.Since(start))
	if err != nil {
		return result, err
	}
	if !result.Success {
		return result, nil
	}

	s.recordScheduleMetrics(year, month, result)

	conflicts := s.detector.DetectAll(result.Assignments, s.cfg.Workers,
		availability.NewSet(availability.ParseAll(s.cfg.Unavailable)))
	if errs := validator.Errors(conflicts); len(errs) > 0 {
		for _, c := range errs {
			logger.Error().Str("worker", c.Worker).Str("date", c.Date).
				Str("type", string(c.Type)).Msg(c.Message)
		}
		return result, errors.New(errors.CodeScheduleConflict, "生成结果未通过独立复核")
	}

	s.hist = history.Update(result.Assignments, s.hist)
	if s.historyPath != "" {
		if err := history.Save(s.historyPath, s.hist); err != nil {
			logger.WithError(err).Msg("历史保存失败")
		}
	}
	return result, nil
}

// recordScheduleMetrics 把生成结果的覆盖率与公平性写入监控指标，调用方负责加锁
func (s *SchedulerService) recordScheduleMetrics(year int, month time.Month, result *model.ScheduleResult) {
	monthKey := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format(model.MonthLayout)

	// 排班表只含目标月份的日期，覆盖率也按目标月份计算
	cal := calendar.Build(year, month, nil, s.holidayDates(year, month))
	dates := make([]string, 0, len(cal.Window.Days))
	for _, d := range cal.Window.Days {
		if cal.Window.InTargetMonth(d) {
			dates = append(dates, d.Format(model.DateLayout))
		}
	}

	cov := stats.NewCoverageAnalyzer().Analyze(result.Schedule, dates)
	metrics.SetCoverageRate(monthKey, cov.OverallCoverage)

	fair := stats.NewFairnessAnalyzer().Analyze(result.Assignments, s.cfg.Workers)
	metrics.SetFairnessGini(monthKey, "workload", fair.WorkloadGini)
	metrics.SetFairnessGini(monthKey, "night", fair.NightShiftGini)
	metrics.SetFairnessGini(monthKey, "weekend", fair.WeekendShiftGini)
}

// Diagnose 对目标月份做可行性诊断，不产出排班
func (s *SchedulerService) Diagnose(ctx context.Context, year int, month time.Month) (*diagnostics.Report, error) {
	s.mu.RLock()
	in := s.buildInput(year, month)
	s.mu.RUnlock()

	cal := calendar.Build(year, month, in.HolidayDays, in.HolidayDates)
	view := history.NewView(in.History)
	schedCtx := constraint.NewContext(cal,
		in.Workers,
		availability.NewSet(availability.ParseAll(in.Unavailable)),
		availability.NewSet(availability.ParseAll(in.Required)),
		view, year, month)

	return diagnostics.Diagnose(ctx, schedCtx, s.engine.Manager(), 0), nil
}

// buildInput 由项目配置与历史组装生成输入，调用方负责加锁
func (s *SchedulerService) buildInput(year int, month time.Month) scheduler.GenerateInput {
	return scheduler.GenerateInput{
		Year:          year,
		Month:         month,
		Workers:       s.cfg.Workers,
		Unavailable:   s.cfg.Unavailable,
		Required:      s.cfg.Required,
		History:       s.hist,
		HolidayDates:  s.holidayDates(year, month),
		EquityWeights: s.cfg.EquityWeights,
		DOWWeight:     s.cfg.DOWWeight,
		ManualCredits: s.cfg.ManualCredits,
		Lexicographic: s.cfg.Lexicographic,
	}
}

// holidayDates 返回手工节假日与窗口内公共假日的并集，调用方负责加锁
func (s *SchedulerService) holidayDates(year int, month time.Month) []time.Time {
	var manual []time.Time
	for _, h := range s.cfg.Holidays {
		if d, err := time.Parse(model.DateLayout, h); err == nil {
			manual = append(manual, d)
		}
	}
	return calendar.WindowHolidays(year, month, manual)
}
