package inventory

// Position 是网关返回的一条实时持仓。Position 字段为净头寸，
// 多头为正、空头为负。
type Position struct {
	Symbol      string  `json:"symbol"`
	LocalSymbol string  `json:"localSymbol"`
	SecType     string  `json:"secType"`
	Exchange    string  `json:"exchange"`
	Currency    string  `json:"currency"`
	Position    float64 `json:"position"`
	AvgCost     float64 `json:"avgCost"`
}

// Flat 判断头寸是否已平。
func (p Position) Flat() bool { return p.Position == 0 }
