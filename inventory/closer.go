package inventory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"trade-bridge-go/contract"
	"trade-bridge-go/order"
)

// Venue 是平仓器需要的最小会话能力；由 session.Client 实现。
type Venue interface {
	EnsureConnected(ctx context.Context) error
	Positions(ctx context.Context) ([]Position, error)
	PlaceOrder(ctx context.Context, c contract.Contract, leg order.Leg) (order.Ack, error)
}

// CloseResult 汇总一次平仓动作。零匹配不是错误。
type CloseResult struct {
	Closed   []string
	OrderIDs []int64
}

func (r CloseResult) Count() int { return len(r.Closed) }

// Closer 查询实时持仓并发出市价反向单把目标符号拍平。
type Closer struct {
	Venue Venue
	Log   *zap.Logger
}

func NewCloser(v Venue, log *zap.Logger) *Closer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Closer{Venue: v, Log: log}
}

// CloseAll 平掉所有与 symbol 匹配的持仓。匹配刻意宽松：对短符号与
// 网关本地代码做大小写不敏感的双向子串比较，因为网关展示的往往是
// 基准货币或本地合约代码而不是信号符号。
func (c *Closer) CloseAll(ctx context.Context, symbol string) (CloseResult, error) {
	var res CloseResult
	if err := c.Venue.EnsureConnected(ctx); err != nil {
		return res, err
	}
	positions, err := c.Venue.Positions(ctx)
	if err != nil {
		return res, fmt.Errorf("refresh positions: %w", err)
	}

	needle := strings.ToUpper(symbol)
	for _, p := range positions {
		if p.Flat() {
			continue
		}
		if !looseMatch(needle, strings.ToUpper(p.Symbol)) &&
			!looseMatch(needle, strings.ToUpper(p.LocalSymbol)) {
			continue
		}

		side := order.SideSell
		qty := p.Position
		if p.Position < 0 {
			side = order.SideBuy
			qty = -p.Position
		}
		leg := order.Leg{
			Role:        order.RoleParent,
			Side:        side,
			Quantity:    qty,
			Type:        order.TypeMarket,
			ParentIndex: -1,
			Transmit:    true,
		}
		secType, err := contract.ParseSecType(p.SecType)
		if err != nil {
			secType = contract.SecGeneric
		}
		ct := contract.Contract{
			Symbol:      p.Symbol,
			SecType:     secType,
			Exchange:    p.Exchange,
			Currency:    p.Currency,
			LocalSymbol: p.LocalSymbol,
		}
		ack, err := c.Venue.PlaceOrder(ctx, ct, leg)
		if err != nil {
			return res, fmt.Errorf("close %s: %w", displayName(p), err)
		}
		c.Log.Info("position flattened",
			zap.String("symbol", displayName(p)),
			zap.String("side", string(side)),
			zap.Float64("qty", qty),
			zap.Int64("order_id", ack.OrderID))
		res.Closed = append(res.Closed, displayName(p))
		res.OrderIDs = append(res.OrderIDs, ack.OrderID)
	}
	return res, nil
}

func looseMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func displayName(p Position) string {
	if p.LocalSymbol != "" {
		return p.LocalSymbol
	}
	return p.Symbol
}
