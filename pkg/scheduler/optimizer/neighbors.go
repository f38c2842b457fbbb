package optimizer

import (
	"math/rand"
)

// MoveType 邻域移动类型
type MoveType int

const (
	MoveReassign MoveType = iota // 改派：将一个班次换给另一名员工
	MoveSwap                     // 交换：交换两个班次的员工
	MoveChain                    // 链式：三个班次的员工循环轮换
)

// moveWeights 各移动类型的选择权重，固定顺序保证同种子可复现
var moveWeights = []struct {
	mt MoveType
	w  int
}{
	{MoveReassign, 50},
	{MoveSwap, 35},
	{MoveChain, 15},
}

// MoveSpace 移动空间：每个班次的可行员工候选，以及被固定的班次
type MoveSpace struct {
	// Candidates[s] 为班次 s 允许指派的员工索引（已排除禁派与夜班资格限制）
	Candidates [][]int
	// Pinned[s] 为 true 表示班次 s 的指派不可变更
	Pinned []bool
}

// NumShifts 班次总数
func (m *MoveSpace) NumShifts() int {
	return len(m.Candidates)
}

// movableShifts 返回可变更班次的索引列表
func (m *MoveSpace) movableShifts() []int {
	shifts := make([]int, 0, len(m.Candidates))
	for s := range m.Candidates {
		if !m.Pinned[s] && len(m.Candidates[s]) > 0 {
			shifts = append(shifts, s)
		}
	}
	return shifts
}

// allowed 检查员工 w 是否可指派到班次 s
func (m *MoveSpace) allowed(s, w int) bool {
	for _, c := range m.Candidates[s] {
		if c == w {
			return true
		}
	}
	return false
}

// NeighborhoodGenerator 邻域生成器
type NeighborhoodGenerator struct {
	space       *MoveSpace
	movable     []int
	rng         *rand.Rand
	totalWeight int
}

// NewNeighborhoodGenerator 创建邻域生成器
func NewNeighborhoodGenerator(space *MoveSpace, seed int64) *NeighborhoodGenerator {
	total := 0
	for _, e := range moveWeights {
		total += e.w
	}
	return &NeighborhoodGenerator{
		space:       space,
		movable:     space.movableShifts(),
		rng:         rand.New(rand.NewSource(seed)),
		totalWeight: total,
	}
}

// GenerateNeighbor 按权重随机选择移动类型生成一个邻域解
func (g *NeighborhoodGenerator) GenerateNeighbor(current *Solution) *Solution {
	if len(g.movable) == 0 {
		return nil
	}

	switch g.pickMoveType() {
	case MoveSwap:
		return g.swapMove(current)
	case MoveChain:
		return g.chainMove(current)
	default:
		return g.reassignMove(current)
	}
}

// pickMoveType 按权重抽取移动类型
func (g *NeighborhoodGenerator) pickMoveType() MoveType {
	r := g.rng.Intn(g.totalWeight)
	for _, e := range moveWeights {
		if r < e.w {
			return e.mt
		}
		r -= e.w
	}
	return MoveReassign
}

// reassignMove 将一个班次改派给另一名可行员工
func (g *NeighborhoodGenerator) reassignMove(current *Solution) *Solution {
	s := g.movable[g.rng.Intn(len(g.movable))]
	cands := g.space.Candidates[s]
	w := cands[g.rng.Intn(len(cands))]
	if w == current.Assign[s] {
		return nil
	}
	neighbor := current.Clone()
	neighbor.Assign[s] = w
	return neighbor
}

// swapMove 交换两个班次的员工
func (g *NeighborhoodGenerator) swapMove(current *Solution) *Solution {
	if len(g.movable) < 2 {
		return g.reassignMove(current)
	}
	s1 := g.movable[g.rng.Intn(len(g.movable))]
	s2 := g.movable[g.rng.Intn(len(g.movable))]
	if s1 == s2 {
		return nil
	}
	w1, w2 := current.Assign[s1], current.Assign[s2]
	if w1 == w2 {
		return nil
	}
	// 双方互换后仍需满足各自的候选约束
	if w2 >= 0 && !g.space.allowed(s1, w2) {
		return nil
	}
	if w1 >= 0 && !g.space.allowed(s2, w1) {
		return nil
	}
	neighbor := current.Clone()
	neighbor.Assign[s1], neighbor.Assign[s2] = w2, w1
	return neighbor
}

// chainMove 三个班次的员工循环轮换
func (g *NeighborhoodGenerator) chainMove(current *Solution) *Solution {
	if len(g.movable) < 3 {
		return g.swapMove(current)
	}
	s1 := g.movable[g.rng.Intn(len(g.movable))]
	s2 := g.movable[g.rng.Intn(len(g.movable))]
	s3 := g.movable[g.rng.Intn(len(g.movable))]
	if s1 == s2 || s2 == s3 || s1 == s3 {
		return nil
	}
	w1, w2, w3 := current.Assign[s1], current.Assign[s2], current.Assign[s3]
	// 轮换：s1 <- w3, s2 <- w1, s3 <- w2
	if w3 >= 0 && !g.space.allowed(s1, w3) {
		return nil
	}
	if w1 >= 0 && !g.space.allowed(s2, w1) {
		return nil
	}
	if w2 >= 0 && !g.space.allowed(s3, w2) {
		return nil
	}
	neighbor := current.Clone()
	neighbor.Assign[s1], neighbor.Assign[s2], neighbor.Assign[s3] = w3, w1, w2
	return neighbor
}
