package session

import (
	"trade-bridge-go/contract"
	"trade-bridge-go/inventory"
	"trade-bridge-go/order"
)

// 网关 JSON 帧操作码。请求带 reqId，响应原样回带。
const (
	opConnect         = "connect"
	opConnected       = "connected"
	opError           = "error"
	opPlaceOrder      = "placeOrder"
	opOrderAck        = "orderAck"
	opContractDetails = "contractDetails"
	opPositions       = "positions"
)

// frame 是会话上唯一的线格式；字段按操作码取用。
type frame struct {
	Op        string               `json:"op"`
	ReqID     int64                `json:"reqId,omitempty"`
	ClientID  int64                `json:"clientId,omitempty"`
	Code      string               `json:"code,omitempty"`
	Message   string               `json:"message,omitempty"`
	Order     *orderPayload        `json:"order,omitempty"`
	OrderID   int64                `json:"orderId,omitempty"`
	Status    string               `json:"status,omitempty"`
	Filter    *contract.Filter     `json:"filter,omitempty"`
	Contracts []contract.Variant   `json:"contracts,omitempty"`
	Positions []inventory.Position `json:"positions,omitempty"`
}

// orderPayload 把合约与订单腿拍平成网关下单请求。
type orderPayload struct {
	Contract contract.Contract `json:"contract"`
	Side     order.Side        `json:"side"`
	Quantity float64           `json:"quantity"`
	Type     order.Type        `json:"type"`
	Price    float64           `json:"price,omitempty"`
	ParentID int64             `json:"parentId,omitempty"`
	Transmit bool              `json:"transmit"`
}
