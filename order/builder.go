package order

// Request 描述一次规整后的下单意图；由执行引擎填充。
type Request struct {
	Side       Side
	Type       Type
	Quantity   float64
	LimitPrice float64
	StopLoss   float64
	TakeProfit float64
}

// Build 把一次下单意图展开为按提交顺序排列的订单腿。
// 无止损/止盈时生成单腿；否则生成括号单：父腿 Transmit=false，
// 子腿反向、引用父腿，只有序列中最后一腿 Transmit=true。
func Build(req Request) []Leg {
	parent := Leg{
		Role:        RoleParent,
		Side:        req.Side,
		Quantity:    req.Quantity,
		Type:        req.Type,
		ParentIndex: -1,
		Transmit:    true,
	}
	if req.Type == TypeLimit {
		parent.Price = req.LimitPrice
	}

	hasStop := req.StopLoss > 0
	hasTarget := req.TakeProfit > 0
	if !hasStop && !hasTarget {
		return []Leg{parent}
	}

	parent.Transmit = false
	legs := []Leg{parent}
	if hasStop {
		legs = append(legs, Leg{
			Role:        RoleStop,
			Side:        req.Side.Reverse(),
			Quantity:    req.Quantity,
			Type:        TypeMarket,
			Price:       req.StopLoss,
			ParentIndex: 0,
			Transmit:    !hasTarget,
		})
	}
	if hasTarget {
		legs = append(legs, Leg{
			Role:        RoleTarget,
			Side:        req.Side.Reverse(),
			Quantity:    req.Quantity,
			Type:        TypeLimit,
			Price:       req.TakeProfit,
			ParentIndex: 0,
			Transmit:    true,
		})
	}
	return legs
}
