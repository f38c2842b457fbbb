package optimizer

import (
	"testing"
)

func TestPickMoveTypeDeterministic(t *testing.T) {
	// 相同种子下移动类型抽取序列必须一致，保证求解可复现
	space := &MoveSpace{
		Candidates: [][]int{{0, 1}, {1, 2}, {0, 2}},
		Pinned:     []bool{false, false, false},
	}
	g1 := NewNeighborhoodGenerator(space, 7)
	g2 := NewNeighborhoodGenerator(space, 7)

	for i := 0; i < 500; i++ {
		if mt1, mt2 := g1.pickMoveType(), g2.pickMoveType(); mt1 != mt2 {
			t.Fatalf("第 %d 次抽取不一致: %v != %v", i, mt1, mt2)
		}
	}
}

func TestGenerateNeighborValidity(t *testing.T) {
	space := &MoveSpace{
		Candidates: [][]int{{0, 1}, {1, 2}, {0, 2}, {2}},
		Pinned:     []bool{false, false, false, true},
	}
	gen := NewNeighborhoodGenerator(space, 42)
	current := &Solution{Assign: []int{0, 1, 0, 2}}

	for i := 0; i < 500; i++ {
		neighbor := gen.GenerateNeighbor(current)
		if neighbor == nil {
			continue
		}
		if len(neighbor.Assign) != len(current.Assign) {
			t.Fatal("邻域解长度应与当前解一致")
		}
		// 固定班次不可变
		if neighbor.Assign[3] != 2 {
			t.Fatal("固定班次的指派被邻域移动改变")
		}
		// 每个变动都必须在候选集内
		for s, w := range neighbor.Assign {
			if w == current.Assign[s] {
				continue
			}
			if !space.allowed(s, w) {
				t.Fatalf("班次 %d 被指派了候选集外的员工 %d", s, w)
			}
		}
	}
}

func TestGenerateNeighborEmptySpace(t *testing.T) {
	space := &MoveSpace{
		Candidates: [][]int{{0}},
		Pinned:     []bool{true},
	}
	gen := NewNeighborhoodGenerator(space, 1)
	if n := gen.GenerateNeighbor(&Solution{Assign: []int{0}}); n != nil {
		t.Error("全部班次固定时不应生成邻域解")
	}
}

func TestMovableShifts(t *testing.T) {
	space := &MoveSpace{
		Candidates: [][]int{{0, 1}, {}, {1}},
		Pinned:     []bool{false, false, true},
	}
	movable := space.movableShifts()
	if len(movable) != 1 || movable[0] != 0 {
		t.Errorf("期望仅班次0可移动，实际 %v", movable)
	}
}
