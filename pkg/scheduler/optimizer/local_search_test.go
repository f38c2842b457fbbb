package optimizer

import (
	"context"
	"testing"
	"time"
)

func TestTabuList(t *testing.T) {
	tl := NewTabuList(2)

	tl.Add(1)
	tl.Add(2)
	if !tl.Contains(1) || !tl.Contains(2) {
		t.Error("禁忌表应包含已添加的键")
	}

	// 超出容量时最旧的被淘汰
	tl.Add(3)
	if tl.Contains(1) {
		t.Error("超出容量后最旧的键应被移除")
	}
	if !tl.Contains(2) || !tl.Contains(3) {
		t.Error("较新的键应保留")
	}

	// 重复添加不应触发淘汰
	tl.Add(3)
	if !tl.Contains(2) {
		t.Error("重复添加已有键不应淘汰其他键")
	}

	tl.Clear()
	if tl.Contains(2) || tl.Contains(3) {
		t.Error("清空后禁忌表应为空")
	}
}

func TestBoltzmannProbability(t *testing.T) {
	tests := []struct {
		name  string
		delta float64
		temp  float64
		check func(p float64) bool
	}{
		{"更优解总是接受", -5, 10, func(p float64) bool { return p == 1.0 }},
		{"零温度不接受更差解", 5, 0, func(p float64) bool { return p == 0.0 }},
		{"高温接受概率更高", 5, 100, func(p float64) bool { return p > boltzmannProbability(5, 1) }},
		{"概率在区间内", 3, 10, func(p float64) bool { return p > 0 && p < 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := boltzmannProbability(tt.delta, tt.temp)
			if !tt.check(p) {
				t.Errorf("boltzmannProbability(%v, %v) = %v", tt.delta, tt.temp, p)
			}
		})
	}
}

func TestSolutionClone(t *testing.T) {
	original := &Solution{
		Assign:   []int{0, 1, 2},
		Cost:     42,
		Feasible: true,
	}
	clone := original.Clone()

	clone.Assign[0] = 9
	if original.Assign[0] != 0 {
		t.Error("克隆的修改不应影响原解")
	}
	if clone.Cost != 42 || !clone.Feasible {
		t.Error("克隆应保留代价与可行性")
	}
}

func TestHashAssign(t *testing.T) {
	a := []int{0, 1, 2, -1}
	b := []int{0, 1, 2, -1}
	c := []int{0, 1, 3, -1}

	if hashAssign(a) != hashAssign(b) {
		t.Error("相同解向量的哈希应一致")
	}
	if hashAssign(a) == hashAssign(c) {
		t.Error("不同解向量的哈希应不同")
	}
}

// evalSumDistance 简单评估器：代价为与目标向量的逐位差异数
func evalSumDistance(target []int) Evaluator {
	return EvaluatorFunc(func(assign []int) (float64, int) {
		diff := 0
		for i, w := range assign {
			if w != target[i] {
				diff++
			}
		}
		return float64(diff), 0
	})
}

func TestLocalSearchOptimize(t *testing.T) {
	// 4 个班次，每班次候选 {0,1}，目标解全 1
	space := &MoveSpace{
		Candidates: [][]int{{0, 1}, {0, 1}, {0, 1}, {0, 1}},
		Pinned:     []bool{false, false, false, false},
	}
	target := []int{1, 1, 1, 1}
	config := DefaultOptConfig()
	config.MaxIterations = 5000
	config.MaxTime = 5 * time.Second
	config.Seed = 7

	opt := NewLocalSearchOptimizer(config, evalSumDistance(target), space)
	initial := &Solution{Assign: []int{0, 0, 0, 0}}

	result, err := opt.Optimize(context.Background(), initial)
	if err != nil {
		t.Fatalf("优化失败: %v", err)
	}
	if result.Cost != 0 {
		t.Errorf("期望找到最优解（代价0），实际代价 %v，解 %v", result.Cost, result.Assign)
	}
}

func TestLocalSearchRespectsPins(t *testing.T) {
	space := &MoveSpace{
		Candidates: [][]int{{0}, {0, 1}, {0, 1}},
		Pinned:     []bool{true, false, false},
	}
	config := DefaultOptConfig()
	config.MaxIterations = 1000
	config.Seed = 3

	// 目标解要求班次0为1，但它被固定为0，优化器不得改动
	opt := NewLocalSearchOptimizer(config, evalSumDistance([]int{1, 1, 1}), space)
	initial := &Solution{Assign: []int{0, 0, 0}}

	result, err := opt.Optimize(context.Background(), initial)
	if err != nil {
		t.Fatalf("优化失败: %v", err)
	}
	if result.Assign[0] != 0 {
		t.Error("固定班次的指派不应被改变")
	}
}

func TestOptimizeContextCancel(t *testing.T) {
	space := &MoveSpace{
		Candidates: [][]int{{0, 1}},
		Pinned:     []bool{false},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opt := NewLocalSearchOptimizer(DefaultOptConfig(), evalSumDistance([]int{1}), space)
	_, err := opt.Optimize(ctx, &Solution{Assign: []int{0}})
	if err == nil {
		t.Error("已取消的上下文应返回错误")
	}
}
