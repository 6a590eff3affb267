package order

// Role 标记订单腿在组合单中的角色。
type Role string

const (
	RoleParent Role = "PARENT"
	RoleStop   Role = "STOP"
	RoleTarget Role = "TARGET"
)

// Side represents order direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Reverse 返回反向；止损/止盈腿使用。
func (s Side) Reverse() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Type represents order pricing type.
type Type string

const (
	TypeMarket Type = "MARKET"
	TypeLimit  Type = "LIMIT"
)

// Leg 是提交给券商的单条订单腿。组合单中只有最后一腿 Transmit=true，
// 网关收到它才会把整组订单一起激活。
type Leg struct {
	Role     Role
	Side     Side
	Quantity float64
	Type     Type
	// Price carries the limit price for LIMIT parents, the stop price
	// for STOP legs and the limit price for TARGET legs. 0 means none.
	Price float64
	// ParentIndex 指向同一序列中父腿的下标；-1 表示无父腿。
	// 父腿的网关订单号在提交时回填到 ParentID。
	ParentIndex int
	ParentID    int64
	Transmit    bool
}

// Ack 是网关对一次订单提交的回执。
type Ack struct {
	OrderID int64  `json:"orderId"`
	Status  string `json:"status"`
}
