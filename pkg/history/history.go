// Package history 管理排班历史：员工 -> 月份("YYYY-MM") -> 分配记录列表
package history

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/escala/escala/pkg/errors"
	"github.com/escala/escala/pkg/logger"
	"github.com/escala/escala/pkg/model"
)

// Entry 历史中的一条分配记录
type Entry struct {
	Date  string          `json:"date"`
	Shift model.ShiftKind `json:"shift"`
	Dur   int             `json:"dur"`
}

// History 员工名 -> 月份键 -> 记录列表
type History map[string]map[string][]Entry

// Valid 检查记录是否完整且可解析
func (e Entry) Valid() bool {
	if e.Date == "" || !model.IsValidShiftKind(string(e.Shift)) {
		return false
	}
	_, err := time.Parse(model.DateLayout, e.Date)
	return err == nil
}

// Update 将新分配合并进历史，按日期替换后追加，重复调用幂等
func Update(assignments []model.Assignment, hist History) History {
	if hist == nil {
		hist = make(History)
	}

	// 按员工与月份分组
	grouped := make(map[string]map[string][]Entry)
	for _, a := range assignments {
		d, err := time.Parse(model.DateLayout, a.Date)
		if err != nil {
			continue
		}
		monthKey := d.Format(model.MonthLayout)
		if grouped[a.Worker] == nil {
			grouped[a.Worker] = make(map[string][]Entry)
		}
		grouped[a.Worker][monthKey] = append(grouped[a.Worker][monthKey],
			Entry{Date: a.Date, Shift: a.Shift, Dur: a.Dur})
	}

	for worker, months := range grouped {
		if hist[worker] == nil {
			hist[worker] = make(map[string][]Entry)
		}
		for monthKey, entries := range months {
			newDates := make(map[string]bool, len(entries))
			for _, e := range entries {
				newDates[e.Date] = true
			}
			// 先移除同日期的旧记录再追加，保证幂等
			var kept []Entry
			for _, old := range hist[worker][monthKey] {
				if !newDates[old.Date] {
					kept = append(kept, old)
				}
			}
			hist[worker][monthKey] = append(kept, entries...)
		}
	}
	return hist
}

// View 历史的只读视图，容忍格式错误的记录
type View struct {
	hist History
}

// NewView 创建历史视图
func NewView(hist History) *View {
	return &View{hist: hist}
}

// IterAssignments 遍历全部有效记录
func (v *View) IterAssignments(fn func(worker string, date time.Time, e Entry)) {
	for worker, months := range v.hist {
		for _, entries := range months {
			for _, e := range entries {
				if !e.Valid() {
					continue
				}
				d, _ := time.Parse(model.DateLayout, e.Date)
				fn(worker, d, e)
			}
		}
	}
}

// ScheduledWeeks 返回历史中出现过任意分配的 ISO 周集合
func (v *View) ScheduledWeeks() map[model.WeekKey]bool {
	weeks := make(map[model.WeekKey]bool)
	v.IterAssignments(func(_ string, date time.Time, _ Entry) {
		weeks[model.WeekKeyOf(date)] = true
	})
	return weeks
}

// ScheduledDates 返回历史中出现过任意分配的日期集合
func (v *View) ScheduledDates() map[string]bool {
	dates := make(map[string]bool)
	v.IterAssignments(func(_ string, _ time.Time, e Entry) {
		dates[e.Date] = true
	})
	return dates
}

// FixedShiftFor 返回某员工在某日的历史班次；无则返回空串
func (v *View) FixedShiftFor(worker string, day time.Time) model.ShiftKind {
	months, ok := v.hist[worker]
	if !ok {
		return ""
	}
	dateStr := day.Format(model.DateLayout)
	for _, entries := range months {
		for _, e := range entries {
			if e.Valid() && e.Date == dateStr {
				return e.Shift
			}
		}
	}
	return ""
}

// AssignmentsByDate 返回日期 -> 当日全部历史分配
func (v *View) AssignmentsByDate() map[string][]model.Assignment {
	byDate := make(map[string][]model.Assignment)
	v.IterAssignments(func(worker string, _ time.Time, e Entry) {
		byDate[e.Date] = append(byDate[e.Date],
			model.Assignment{Worker: worker, Date: e.Date, Shift: e.Shift, Dur: e.Dur})
	})
	for _, as := range byDate {
		sort.Slice(as, func(i, j int) bool { return as[i].Worker < as[j].Worker })
	}
	return byDate
}

// WorkedOn 检查某员工在某日是否有历史分配
func (v *View) WorkedOn(worker string, day time.Time) bool {
	return v.FixedShiftFor(worker, day) != ""
}

// Load 从 JSON 文件加载历史并合并进现有历史
// 按 (date, shift) 去重
func Load(path string, hist History) (History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return hist, errors.Wrap(err, errors.CodeNotFound, "历史文件读取失败")
	}

	var loaded History
	if err := json.Unmarshal(data, &loaded); err != nil {
		return hist, errors.Wrap(err, errors.CodeHistoryCorrupt, "历史文件格式无效")
	}

	if hist == nil {
		hist = make(History)
	}
	for worker, months := range loaded {
		if hist[worker] == nil {
			hist[worker] = make(map[string][]Entry)
		}
		for monthKey, entries := range months {
			existing := make(map[[2]string]bool)
			for _, e := range hist[worker][monthKey] {
				existing[[2]string{e.Date, string(e.Shift)}] = true
			}
			for _, e := range entries {
				key := [2]string{e.Date, string(e.Shift)}
				if !existing[key] {
					hist[worker][monthKey] = append(hist[worker][monthKey], e)
					existing[key] = true
				}
			}
		}
	}

	logger.Info().Str("path", path).Msg("历史加载完成")
	return hist, nil
}

// Save 将历史保存为 JSON 文件
func Save(path string, hist History) error {
	if len(hist) == 0 {
		logger.Warn().Msg("历史为空，跳过保存")
		return errors.New(errors.CodeInvalidInput, "历史为空")
	}
	data, err := json.MarshalIndent(hist, "", "    ")
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "历史序列化失败")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "历史文件写入失败")
	}
	logger.Info().Str("path", path).Msg("历史保存完成")
	return nil
}
