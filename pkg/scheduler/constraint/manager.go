// Package constraint 定义硬约束接口、分组与排班上下文
package constraint

import (
	"sync"

	"github.com/escala/escala/pkg/logger"
)

// Manager 约束管理器
type Manager struct {
	constraints []Constraint
	mu          sync.RWMutex
	logger      *logger.SchedulerLogger
}

// NewManager 创建约束管理器
func NewManager() *Manager {
	return &Manager{
		constraints: make([]Constraint, 0),
		logger:      logger.NewSchedulerLogger(),
	}
}

// NewDefaultManager 创建注册了全部硬约束的管理器
func NewDefaultManager() *Manager {
	m := NewManager()
	m.Register(OneShiftPerDay{})
	m.Register(NightEligibility{})
	m.Register(Availability{})
	m.Register(Required{})
	m.Register(Rest24h{})
	m.Register(CrossWindowRest{})
	m.Register(WeeklyParticipation{})
	return m
}

// Register 注册约束，同分组的已有约束被替换
func (m *Manager) Register(c Constraint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.constraints {
		if existing.Group() == c.Group() {
			m.constraints[i] = c
			return
		}
	}
	m.constraints = append(m.constraints, c)
}

// Unregister 注销指定分组的约束
func (m *Manager) Unregister(g Group) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.constraints {
		if c.Group() == g {
			m.constraints = append(m.constraints[:i], m.constraints[i+1:]...)
			return
		}
	}
}

// GetAll 获取所有约束
func (m *Manager) GetAll() []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Constraint, len(m.constraints))
	copy(result, m.constraints)
	return result
}

// WithoutGroup 返回剔除指定分组后的新管理器，用于松弛分析
func (m *Manager) WithoutGroup(g Group) *Manager {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clone := NewManager()
	for _, c := range m.constraints {
		if c.Group() != g {
			clone.constraints = append(clone.constraints, c)
		}
	}
	return clone
}

// Check 对完整解运行全部约束，返回全部违反
func (m *Manager) Check(ctx *Context, assign []int) []Violation {
	var violations []Violation
	for _, c := range m.GetAll() {
		violations = append(violations, c.Check(ctx, assign)...)
	}
	return violations
}

// CountViolations 返回完整解的违反总数（含未覆盖班次）
func (m *Manager) CountViolations(ctx *Context, assign []int) int {
	count := 0
	for _, w := range assign {
		if w == Unassigned {
			count++
		}
	}
	for _, c := range m.GetAll() {
		count += len(c.Check(ctx, assign))
	}
	return count
}

// CanAssign 检查将 shift 分配给 worker 是否立即违反任一约束
func (m *Manager) CanAssign(ctx *Context, assign []int, shift, worker int) (bool, string) {
	if ctx.Forbidden[shift][worker] {
		return false, "不可用或无夜班资格"
	}
	for _, c := range m.GetAll() {
		if !c.CheckAssign(ctx, assign, shift, worker) {
			return false, c.Name()
		}
	}
	return true, ""
}

// Count 返回约束数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.constraints)
}
