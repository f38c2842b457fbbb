package stats

import (
	"math"
	"time"

	"github.com/escala/escala/pkg/availability"
	"github.com/escala/escala/pkg/history"
	"github.com/escala/escala/pkg/model"
)

// AutoAbsenceCredits 根据不可用声明自动计算缺勤补偿积分。
// 回溯窗口开始前若干周，某周的五个工作日全部声明整天不可用则视为缺勤周；
// 连续缺勤达到阈值后，按各统计桶的平均补偿率折算积分。
func AutoAbsenceCredits(unavail *availability.Set, windowStart time.Time) map[string]map[string]int {
	credits := make(map[string]map[string]int)

	// 窗口开始所在周的周一
	monday := windowStart.AddDate(0, 0, -((int(windowStart.Weekday())+6)%7))

	for worker := range unavail.Workers() {
		// 从最近的已结束周向前找连续缺勤
		streak := 0
		maxStreak := 0
		for week := 1; week <= model.AbsenceLookbackWeeks; week++ {
			weekMonday := monday.AddDate(0, 0, -7*week)
			if absentAllWeekdays(unavail, worker, weekMonday) {
				streak++
				if streak > maxStreak {
					maxStreak = streak
				}
			} else {
				streak = 0
			}
		}

		if maxStreak < model.AbsenceMinConsecutiveWeeks {
			continue
		}

		workerCredits := make(map[string]int, len(model.EquityStats))
		for _, stat := range model.EquityStats {
			workerCredits[stat] = int(math.Round(model.AbsenceCreditRates[stat] * float64(maxStreak)))
		}
		credits[worker] = workerCredits
	}

	return credits
}

// absentAllWeekdays 检查某周的周一至周五是否全部声明整天不可用
func absentAllWeekdays(unavail *availability.Set, worker string, monday time.Time) bool {
	for d := 0; d < 5; d++ {
		date := monday.AddDate(0, 0, d).Format(model.DateLayout)
		if !unavail.BlocksDay(worker, date) {
			return false
		}
	}
	return true
}

// NewWorkerCredits 新员工的初始补偿积分：按完整回溯期折算，
// 避免无历史记录的员工在公平性上吃满全部稀缺班次。
func NewWorkerCredits() map[string]int {
	credits := make(map[string]int, len(model.EquityStats))
	for _, stat := range model.EquityStats {
		credits[stat] = int(math.Round(model.AbsenceCreditRates[stat] * float64(model.PastReportWeeks)))
	}
	return credits
}

// IsNewWorker 判断员工是否没有任何历史排班记录
func IsNewWorker(view *history.View, worker string) bool {
	found := false
	view.IterAssignments(func(w string, _ time.Time, _ history.Entry) {
		if w == worker {
			found = true
		}
	})
	return !found
}

// MergeCredits 合并自动与手工补偿积分，手工值优先
func MergeCredits(auto, manual map[string]map[string]int) map[string]map[string]int {
	merged := make(map[string]map[string]int)
	for worker, workerCredits := range auto {
		wc := make(map[string]int, len(workerCredits))
		for stat, v := range workerCredits {
			wc[stat] = v
		}
		merged[worker] = wc
	}
	for worker, workerCredits := range manual {
		wc, ok := merged[worker]
		if !ok {
			wc = make(map[string]int, len(workerCredits))
			merged[worker] = wc
		}
		for stat, v := range workerCredits {
			if stat == "dow" {
				continue
			}
			wc[stat] = v
		}
	}
	return merged
}
