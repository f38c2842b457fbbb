package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/escala/escala/pkg/errors"
	"github.com/escala/escala/pkg/model"
)

// WorkerRepository 员工名册仓储
type WorkerRepository struct {
	db DB
}

// NewWorkerRepository 创建员工仓储
func NewWorkerRepository(db DB) *WorkerRepository {
	return &WorkerRepository{db: db}
}

// Create 登记员工
func (r *WorkerRepository) Create(ctx context.Context, w *model.Worker) error {
	now := time.Now()
	query := `
		INSERT INTO workers (id, name, can_night, weekly_load, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, w.ID, w.Name, w.CanNight, w.WeeklyLoad, now, now)
	if err != nil {
		return fmt.Errorf("登记员工失败: %w", err)
	}
	return nil
}

// GetByName 根据名字获取员工
func (r *WorkerRepository) GetByName(ctx context.Context, name string) (*model.Worker, error) {
	query := `
		SELECT id, name, can_night, weekly_load
		FROM workers
		WHERE name = $1
	`
	return r.scanWorker(r.db.QueryRowContext(ctx, query, name))
}

// Update 更新员工属性
func (r *WorkerRepository) Update(ctx context.Context, w *model.Worker) error {
	query := `
		UPDATE workers SET
			can_night = $2, weekly_load = $3, updated_at = $4
		WHERE name = $1
	`
	result, err := r.db.ExecContext(ctx, query, w.Name, w.CanNight, w.WeeklyLoad, time.Now())
	if err != nil {
		return fmt.Errorf("更新员工失败: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NotFound("worker", w.Name)
	}
	return nil
}

// Delete 注销员工
func (r *WorkerRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workers WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("注销员工失败: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NotFound("worker", name)
	}
	return nil
}

// List 按编号顺序列出全部员工
func (r *WorkerRepository) List(ctx context.Context) ([]model.Worker, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, can_night, weekly_load
		FROM workers
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("查询员工列表失败: %w", err)
	}
	defer rows.Close()

	var workers []model.Worker
	for rows.Next() {
		w, err := r.scanWorker(rows)
		if err != nil {
			return nil, err
		}
		workers = append(workers, *w)
	}
	return workers, rows.Err()
}

// Sync 用给定名册整体替换数据库中的员工表
func (r *WorkerRepository) Sync(ctx context.Context, workers []model.Worker) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM workers`); err != nil {
		return fmt.Errorf("清空员工表失败: %w", err)
	}
	for i := range workers {
		if err := r.Create(ctx, &workers[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *WorkerRepository) scanWorker(s Scanner) (*model.Worker, error) {
	var w model.Worker
	err := s.Scan(&w.ID, &w.Name, &w.CanNight, &w.WeeklyLoad)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("worker", "")
	}
	if err != nil {
		return nil, fmt.Errorf("读取员工记录失败: %w", err)
	}
	return &w, nil
}
