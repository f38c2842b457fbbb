package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/escala/escala/pkg/history"
	"github.com/escala/escala/pkg/model"
)

// ScheduleRepository 排班记录仓储
//
// 与文件历史互为镜像：服务以文件历史为准，数据库用于查询与报表
type ScheduleRepository struct {
	db DB
}

// NewScheduleRepository 创建排班仓储
func NewScheduleRepository(db DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// SaveAssignments 写入分配记录，同 (员工, 日期, 班次) 的旧记录被替换
func (r *ScheduleRepository) SaveAssignments(ctx context.Context, assignments []model.Assignment) error {
	query := `
		INSERT INTO schedule_entries (worker, date, shift, dur, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (worker, date, shift) DO UPDATE SET dur = EXCLUDED.dur
	`
	now := time.Now()
	for _, a := range assignments {
		if _, err := r.db.ExecContext(ctx, query, a.Worker, a.Date, string(a.Shift), a.Dur, now); err != nil {
			return fmt.Errorf("写入分配记录失败: %w", err)
		}
	}
	return nil
}

// List 查询分配记录
func (r *ScheduleRepository) List(ctx context.Context, filter ListFilter) ([]model.Assignment, error) {
	var conditions []string
	var args []interface{}

	if filter.Worker != "" {
		args = append(args, filter.Worker)
		conditions = append(conditions, fmt.Sprintf("worker = $%d", len(args)))
	}
	if filter.StartDate != "" {
		args = append(args, filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)))
	}
	if filter.EndDate != "" {
		args = append(args, filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)))
	}

	query := `SELECT worker, to_char(date, 'YYYY-MM-DD'), shift, dur FROM schedule_entries`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date, shift, worker"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询分配记录失败: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		var a model.Assignment
		var shift string
		if err := rows.Scan(&a.Worker, &a.Date, &shift, &a.Dur); err != nil {
			return nil, fmt.Errorf("读取分配记录失败: %w", err)
		}
		a.Shift = model.ShiftKind(shift)
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// ListByMonth 查询某年月（按日期归属）的全部分配
func (r *ScheduleRepository) ListByMonth(ctx context.Context, year int, month time.Month) ([]model.Assignment, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return r.List(ctx, ListFilter{
		StartDate: first.Format(model.DateLayout),
		EndDate:   last.Format(model.DateLayout),
	})
}

// DeleteMonth 删除某年月的全部分配记录，返回删除条数
func (r *ScheduleRepository) DeleteMonth(ctx context.Context, year int, month time.Month) (int64, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM schedule_entries WHERE date >= $1 AND date <= $2`,
		first.Format(model.DateLayout), last.Format(model.DateLayout))
	if err != nil {
		return 0, fmt.Errorf("删除月份记录失败: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// LoadHistory 把数据库中的全部分配折叠为历史结构
func (r *ScheduleRepository) LoadHistory(ctx context.Context) (history.History, error) {
	assignments, err := r.List(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}
	return history.Update(assignments, make(history.History)), nil
}
