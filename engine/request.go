package engine

import (
	"fmt"
	"strings"

	"trade-bridge-go/contract"
	"trade-bridge-go/order"
)

// Action 是信号动作；CLOSE/EXIT/FLATTEN 都路由到平仓器。
type Action string

const (
	ActionBuy     Action = "BUY"
	ActionSell    Action = "SELL"
	ActionClose   Action = "CLOSE"
	ActionExit    Action = "EXIT"
	ActionFlatten Action = "FLATTEN"
)

// ParseAction 归一入站 action 字段。
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToUpper(strings.TrimSpace(s))) {
	case ActionBuy:
		return ActionBuy, nil
	case ActionSell:
		return ActionSell, nil
	case ActionClose:
		return ActionClose, nil
	case ActionExit:
		return ActionExit, nil
	case ActionFlatten:
		return ActionFlatten, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// IsClose 判断动作是否为平仓类。
func (a Action) IsClose() bool {
	return a == ActionClose || a == ActionExit || a == ActionFlatten
}

// Request 是边界层解析完成的强类型交易请求；构造后不可变。
type Request struct {
	Action     Action
	Symbol     string
	Quantity   float64
	SecType    contract.SecType
	Currency   string
	Exchange   string
	OrderType  order.Type
	LimitPrice float64
	StopLoss   float64
	TakeProfit float64
}

// Summary 是一次执行的结构化结果。
type Summary struct {
	Message     string
	OrderID     int64
	VenueStatus string
	ClosedCount int
	Closed      []string
}
