package contract

import (
	"fmt"
	"strings"
)

// SecType 是收敛后的证券类型标签；入站信号中的别名在 ParseSecType 归一。
type SecType string

const (
	SecCash    SecType = "CASH"
	SecStock   SecType = "STOCK"
	SecCrypto  SecType = "CRYPTO"
	SecFuture  SecType = "FUTURE"
	SecGeneric SecType = "GENERIC"
)

// ParseSecType 归一入站 secType 字段（接受 IB 风格缩写）。
func ParseSecType(s string) (SecType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CASH", "FOREX", "FX":
		return SecCash, nil
	case "STK", "STOCK":
		return SecStock, nil
	case "CRYPTO":
		return SecCrypto, nil
	case "FUT", "FUTURE":
		return SecFuture, nil
	case "", "GENERIC":
		return SecGeneric, nil
	default:
		return "", fmt.Errorf("unknown secType %q", s)
	}
}

// Contract 是可直接提交的具体合约标识。期货合约带有解析出的
// 到期日与本地代码；每次请求重新解析，不跨请求缓存。
type Contract struct {
	Symbol      string  `json:"symbol"`
	SecType     SecType `json:"secType"`
	Exchange    string  `json:"exchange"`
	Currency    string  `json:"currency"`
	LocalSymbol string  `json:"localSymbol,omitempty"`
	Expiry      string  `json:"expiry,omitempty"`
}

// Filter 是合约明细查询条件。
type Filter struct {
	Symbol   string `json:"symbol"`
	SecType  string `json:"secType"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
}

// Variant 是网关返回的一个合约变体（期货的某个到期月）。
type Variant struct {
	Symbol      string `json:"symbol"`
	LocalSymbol string `json:"localSymbol"`
	// Expiry 为 YYYYMMDD；字典序即时间序。
	Expiry   string `json:"expiry"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
}
