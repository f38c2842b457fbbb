package stats

import (
	"sort"
	"time"

	"github.com/escala/escala/pkg/calendar"
	"github.com/escala/escala/pkg/history"
	"github.com/escala/escala/pkg/model"
)

// WorkerReport 单个员工的历史统计报告
type WorkerReport struct {
	Worker      string         `json:"worker"`
	Buckets     map[string]int `json:"buckets"`
	DOW         [7]int         `json:"dow"` // 周一=0
	TotalShifts int            `json:"total_shifts"`
	TotalHours  int            `json:"total_hours"`
	From        string         `json:"from"`
	To          string         `json:"to"`
}

// WorkerReportRange 统计报告的回溯区间：
// 以历史记录最晚日期所在周的周一为终点，向前回溯固定周数
func WorkerReportRange(view *history.View) (from, to time.Time, ok bool) {
	var maxDate time.Time
	view.IterAssignments(func(_ string, date time.Time, _ history.Entry) {
		if date.After(maxDate) {
			maxDate = date
		}
	})
	if maxDate.IsZero() {
		return time.Time{}, time.Time{}, false
	}

	monday := maxDate.AddDate(0, 0, -((int(maxDate.Weekday())+6)%7))
	return monday.AddDate(0, 0, -7*model.PastReportWeeks), maxDate, true
}

// ComputeWorkerReport 统计单个员工在区间内的历史数据
func ComputeWorkerReport(view *history.View, worker string, from, to time.Time) *WorkerReport {
	report := &WorkerReport{
		Worker:  worker,
		Buckets: make(map[string]int),
		From:    from.Format(model.DateLayout),
		To:      to.Format(model.DateLayout),
	}
	holidays := newHolidayLookup()

	view.IterAssignments(func(w string, date time.Time, e history.Entry) {
		if w != worker || date.Before(from) || date.After(to) {
			return
		}
		report.TotalShifts++
		report.TotalHours += e.Dur

		if stat := calendar.ClassifyShift(date.Weekday(), holidays.IsHoliday(date), e.Shift); stat != "" {
			report.Buckets[stat]++
		}
		report.DOW[(int(date.Weekday())+6)%7]++
	})

	return report
}

// ComputeAllWorkerReports 统计全部员工的历史报告，按员工名排序
func ComputeAllWorkerReports(view *history.View, workers []model.Worker) []*WorkerReport {
	from, to, ok := WorkerReportRange(view)
	if !ok {
		return nil
	}

	reports := make([]*WorkerReport, 0, len(workers))
	for _, w := range workers {
		reports = append(reports, ComputeWorkerReport(view, w.Name, from, to))
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Worker < reports[j].Worker
	})
	return reports
}

// EquityTotals 求解用的公平性总计：历史统计并入补偿积分，
// 无历史记录的新员工按完整回溯期授予初始积分
func EquityTotals(view *history.View, workers []model.Worker,
	activeDates map[string]bool, credits map[string]map[string]int) (map[string]map[string]int, map[string][7]int) {

	buckets, dow := ComputePast(view, activeDates)
	ApplyCredits(buckets, credits)

	for _, w := range workers {
		if _, has := buckets[w.Name]; has {
			continue
		}
		if _, manual := credits[w.Name]; manual {
			continue
		}
		if IsNewWorker(view, w.Name) {
			buckets[w.Name] = NewWorkerCredits()
		}
	}

	return buckets, dow
}
