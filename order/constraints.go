package order

import (
	"github.com/shopspring/decimal"
)

// SymbolConstraints 描述交易符号的最小手数与步长限制。
// 零值表示无约束，数量原样通过。
type SymbolConstraints struct {
	MinVolume  float64
	VolumeStep float64
}

// Normalize 将数量规整到券商可接受的手数：先补足最小手数，
// 再按步长四舍五入，最后截断到 2 位小数。
func (c SymbolConstraints) Normalize(qty float64) float64 {
	if qty <= 0 || (c.MinVolume <= 0 && c.VolumeStep <= 0) {
		return qty
	}
	if c.MinVolume > 0 && qty < c.MinVolume {
		qty = c.MinVolume
	}
	d := decimal.NewFromFloat(qty)
	if c.VolumeStep > 0 {
		step := decimal.NewFromFloat(c.VolumeStep)
		d = d.Div(step).Round(0).Mul(step)
	}
	return d.Truncate(2).InexactFloat64()
}
