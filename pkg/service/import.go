package service

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/escala/escala/pkg/errors"
	"github.com/escala/escala/pkg/logger"
)

// 员工 CSV 省略列时使用的缺省登记参数
const (
	importDefaultCanNight   = true
	importDefaultWeeklyLoad = 18
)

// ImportWorkersCSV 从 CSV 导入员工名册。
// 每行首列为员工名，可选第二列夜班资格（true/false）、第三列周工时。
// 已存在或无效的行跳过不计，返回新增员工数。
func (s *SchedulerService) ImportWorkersCSV(r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	added := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return added, errors.Wrap(err, errors.CodeInvalidInput, "员工 CSV 解析失败")
		}
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}

		canNight := importDefaultCanNight
		if len(row) > 1 {
			if v, err := strconv.ParseBool(strings.TrimSpace(row[1])); err == nil {
				canNight = v
			}
		}
		load := importDefaultWeeklyLoad
		if len(row) > 2 {
			if v, err := strconv.Atoi(strings.TrimSpace(row[2])); err == nil {
				load = v
			}
		}

		if _, err := s.AddWorker(name, canNight, load); err != nil {
			logger.Warn().Str("worker", name).Err(err).Msg("导入员工行被跳过")
			continue
		}
		added++
	}

	logger.Info().Int("added", added).Msg("员工 CSV 导入完成")
	return added, nil
}

// ImportHolidaysCSV 从 CSV 导入手工节假日，每行首列为 YYYY-MM-DD 日期。
// 无法解析或已存在的行跳过不计，返回新增节假日数。
func (s *SchedulerService) ImportHolidaysCSV(r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	added := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return added, errors.Wrap(err, errors.CodeInvalidInput, "节假日 CSV 解析失败")
		}
		if len(row) == 0 {
			continue
		}
		date := strings.TrimSpace(row[0])
		if date == "" {
			continue
		}

		s.mu.RLock()
		exists := containsHoliday(s.cfg.Holidays, date)
		s.mu.RUnlock()
		if exists {
			continue
		}
		if err := s.AddHoliday(date); err != nil {
			logger.Warn().Str("date", date).Err(err).Msg("导入节假日行被跳过")
			continue
		}
		added++
	}

	logger.Info().Int("added", added).Msg("节假日 CSV 导入完成")
	return added, nil
}

// ImportWorkersCSVFile 从文件导入员工名册
func (s *SchedulerService) ImportWorkersCSVFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeNotFound, "员工 CSV 文件打开失败")
	}
	defer f.Close()
	return s.ImportWorkersCSV(f)
}

// ImportHolidaysCSVFile 从文件导入手工节假日
func (s *SchedulerService) ImportHolidaysCSVFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeNotFound, "节假日 CSV 文件打开失败")
	}
	defer f.Close()
	return s.ImportHolidaysCSV(f)
}

func containsHoliday(holidays []string, date string) bool {
	for _, h := range holidays {
		if h == date {
			return true
		}
	}
	return false
}
