// Package constraints 对外暴露排班规则目录
package constraints

// RuleParam 规则参数定义
type RuleParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, float, string, bool
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
}

// RuleDefinition 规则定义
type RuleDefinition struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Type        string      `json:"type"`            // hard 硬约束, soft 软目标
	Category    string      `json:"category"`        // 分类
	Stage       int         `json:"stage,omitempty"` // 软目标的字典序阶段，1 为最高优先
	Description string      `json:"description"`
	Params      []RuleParam `json:"params,omitempty"`
}

// LibraryResponse 规则目录响应
type LibraryResponse struct {
	Library []RuleDefinition `json:"library"`
}

// GetLibrary 返回引擎支持的全部规则定义
func GetLibrary() []RuleDefinition {
	return []RuleDefinition{
		// =====================================================
		// 硬约束
		// =====================================================
		{
			Name:        "coverage",
			DisplayName: "班次全覆盖",
			Type:        "hard",
			Category:    "覆盖保障",
			Description: "排班窗口内每天的早班、长班、夜班各有且仅有一名员工。",
		},
		{
			Name:        "one_shift_per_day",
			DisplayName: "每日单班",
			Type:        "hard",
			Category:    "工时限制",
			Description: "同一员工同一天最多承担一个班次。",
		},
		{
			Name:        "night_restrictions",
			DisplayName: "夜班资格",
			Type:        "hard",
			Category:    "资质要求",
			Description: "夜班只能分配给具备夜班资格的员工。",
		},
		{
			Name:        "availability",
			DisplayName: "不可用声明",
			Type:        "hard",
			Category:    "时间限制",
			Description: "员工声明不可用的日期或班次不参与分配。",
		},
		{
			Name:        "required",
			DisplayName: "必须上班声明",
			Type:        "hard",
			Category:    "时间限制",
			Description: "员工声明必须上班的日期必有班次，声明到具体班次时固定分配。",
		},
		{
			Name:        "24h_rest_interval",
			DisplayName: "24小时休息间隔",
			Type:        "hard",
			Category:    "休息保障",
			Description: "同一员工相邻两个班次的开始时间至少间隔24小时。",
			Params: []RuleParam{
				{Name: "min_hours", Type: "int", Description: "最小间隔(小时)", Default: "24"},
			},
		},
		{
			Name:        "cross_window_rest",
			DisplayName: "跨窗口休息衔接",
			Type:        "hard",
			Category:    "休息保障",
			Description: "窗口首日的班次与上月历史中最后的班次之间同样满足休息间隔。",
		},
		{
			Name:        "fixed_assignments",
			DisplayName: "历史固定分配",
			Type:        "hard",
			Category:    "排班模式",
			Description: "窗口内已有历史记录的日期沿用历史分配，不重新求解。",
		},
		{
			Name:        "weekly_participation",
			DisplayName: "周参与保障",
			Type:        "hard",
			Category:    "公平性",
			Description: "每个完整周内，所有该周可用的员工都至少分到一个班次。",
		},

		// =====================================================
		// 软目标，按字典序阶段从高到低
		// =====================================================
		{
			Name:        "rule1_sat_pref",
			DisplayName: "周六偏好",
			Type:        "soft",
			Category:    "周末规则",
			Stage:       1,
			Description: "优先把周六早班排给上周六未上班的员工。",
			Params: []RuleParam{
				{Name: "weight", Type: "float", Description: "加权模式下的权重", Default: "100"},
			},
		},
		{
			Name:        "rule2_3day_min_workers",
			DisplayName: "三天周末人数下限",
			Type:        "soft",
			Category:    "周末规则",
			Stage:       2,
			Description: "节假日形成的三天周末尽量由足够多的不同员工分担。",
		},
		{
			Name:        "rule3_weekend_limits",
			DisplayName: "周末班次上限",
			Type:        "soft",
			Category:    "周末规则",
			Stage:       3,
			Description: "限制单个员工在同一个周末承担的班次数。",
		},
		{
			Name:        "rule4_consec_weekend",
			DisplayName: "连续周末规避",
			Type:        "soft",
			Category:    "周末规则",
			Stage:       4,
			Description: "避免同一员工连续多个周末都有排班。",
		},
		{
			Name:        "rule5_m2_priority",
			DisplayName: "长班优先级",
			Type:        "soft",
			Category:    "班次偏好",
			Stage:       5,
			Description: "长班优先分配给周负荷更高的员工。",
		},
		{
			Name:        "rule11_consec48",
			DisplayName: "48小时密集惩罚",
			Type:        "soft",
			Category:    "休息保障",
			Stage:       6,
			Description: "两个班次开始间隔落在24至48小时之间时记一次惩罚。",
			Params: []RuleParam{
				{Name: "min_hours", Type: "int", Description: "惩罚区间下界(小时)", Default: "24"},
				{Name: "max_hours", Type: "int", Description: "惩罚区间上界(小时)", Default: "48"},
			},
		},
		{
			Name:        "rule12_night_interval",
			DisplayName: "夜班间隔",
			Type:        "soft",
			Category:    "休息保障",
			Stage:       7,
			Description: "同一员工两个夜班的开始间隔不足48小时时记一次惩罚。",
			Params: []RuleParam{
				{Name: "min_hours", Type: "int", Description: "最小夜班间隔(小时)", Default: "48"},
			},
		},
		{
			Name:        "rule13_consec_night",
			DisplayName: "连续夜班规避",
			Type:        "soft",
			Category:    "休息保障",
			Stage:       8,
			Description: "同一员工相邻两晚连续夜班时记一次惩罚。",
			Params: []RuleParam{
				{Name: "min_hours", Type: "int", Description: "连续判定窗口(小时)", Default: "96"},
			},
		},
		{
			Name:        "fairness_load_equity",
			DisplayName: "历史公平",
			Type:        "soft",
			Category:    "公平性",
			Stage:       9,
			Description: "结合历史统计桶与补偿额度，平衡周六、夜班、节假日等稀缺班次的长期分布。",
			Params: []RuleParam{
				{Name: "weights", Type: "string", Description: "各统计桶的权重表", Default: "按项目配置"},
			},
		},
		{
			Name:        "tiebreak",
			DisplayName: "决胜目标",
			Type:        "soft",
			Category:    "公平性",
			Stage:       10,
			Description: "前序目标同分时按星期几的当期分布做最后平衡。",
			Params: []RuleParam{
				{Name: "dow_weight", Type: "float", Description: "星期分布权重", Default: "按项目配置"},
			},
		},
	}
}
