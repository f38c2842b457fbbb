package availability

import (
	"testing"

	"github.com/escala/escala/pkg/model"
)

func TestParseTokens(t *testing.T) {
	tests := []struct {
		name     string
		tokens   []string
		expected []Entry
	}{
		{
			name:     "单个整天声明",
			tokens:   []string{"2026-03-02"},
			expected: []Entry{{Date: "2026-03-02"}},
		},
		{
			name:     "指定班次声明",
			tokens:   []string{"2026-03-02 N"},
			expected: []Entry{{Date: "2026-03-02", Shift: model.ShiftN}},
		},
		{
			name:   "日期区间展开为整天声明",
			tokens: []string{"2026-03-02 to 2026-03-04"},
			expected: []Entry{
				{Date: "2026-03-02"},
				{Date: "2026-03-03"},
				{Date: "2026-03-04"},
			},
		},
		{
			name:     "未知班次类型忽略整条",
			tokens:   []string{"2026-03-02 X"},
			expected: nil,
		},
		{
			name:     "非法日期忽略",
			tokens:   []string{"not-a-date", "2026-13-40"},
			expected: nil,
		},
		{
			name:     "区间终点早于起点忽略",
			tokens:   []string{"2026-03-04 to 2026-03-02"},
			expected: nil,
		},
		{
			name:   "混合声明",
			tokens: []string{"2026-03-02", "2026-03-05 M2", "bogus"},
			expected: []Entry{
				{Date: "2026-03-02"},
				{Date: "2026-03-05", Shift: model.ShiftM2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTokens(tt.tokens)
			if len(got) != len(tt.expected) {
				t.Fatalf("ParseTokens() = %v, 期望 %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("条目 %d = %v, 期望 %v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestSet_Blocks(t *testing.T) {
	parsed := ParseAll(map[string][]string{
		"Tome":  {"2026-03-02", "2026-03-05 N"},
		"Sofia": {"2026-03-03 M1"},
	})
	s := NewSet(parsed)

	if !s.BlocksDay("Tome", "2026-03-02") {
		t.Error("整天声明应阻塞当日")
	}
	if s.BlocksDay("Tome", "2026-03-05") {
		t.Error("班次声明不应阻塞整天")
	}
	if !s.BlocksShift("Tome", "2026-03-02", model.ShiftM1) {
		t.Error("整天声明应阻塞所有班次")
	}
	if !s.BlocksShift("Tome", "2026-03-05", model.ShiftN) {
		t.Error("班次声明应阻塞对应班次")
	}
	if s.BlocksShift("Tome", "2026-03-05", model.ShiftM1) {
		t.Error("班次声明不应阻塞其他班次")
	}
	if s.BlocksShift("Sofia", "2026-03-02", model.ShiftM1) {
		t.Error("未声明的员工日期不应被阻塞")
	}
}

func TestSet_ShiftOnly(t *testing.T) {
	s := NewSet(ParseAll(map[string][]string{
		"Tome": {"2026-03-05 N", "2026-03-06"},
	}))

	if kind, ok := s.ShiftOnly("Tome", "2026-03-05"); !ok || kind != model.ShiftN {
		t.Errorf("ShiftOnly = (%v, %v), 期望 (N, true)", kind, ok)
	}
	if _, ok := s.ShiftOnly("Tome", "2026-03-06"); ok {
		t.Error("整天声明不应返回单班次")
	}
}
