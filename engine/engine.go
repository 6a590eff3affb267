package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"trade-bridge-go/config"
	"trade-bridge-go/contract"
	"trade-bridge-go/inventory"
	"trade-bridge-go/metrics"
	"trade-bridge-go/order"
)

// Venue 是引擎需要的最小会话能力；由 session.Client（或 dry-run 包装）实现。
type Venue interface {
	EnsureConnected(ctx context.Context) error
	PlaceOrder(ctx context.Context, c contract.Contract, leg order.Leg) (order.Ack, error)
}

// Resolver 把符号解析为具体合约。
type Resolver interface {
	Resolve(ctx context.Context, symbol string, st contract.SecType, currency, exchange string) (contract.Contract, error)
}

// Closer 平掉匹配符号的全部持仓。
type Closer interface {
	CloseAll(ctx context.Context, symbol string) (inventory.CloseResult, error)
}

// Engine 串联符号映射、合约解析、订单构造与腿提交。
// 互斥锁覆盖 resolve→submit 全程：一组括号单的腿之间绝不会
// 插入其它请求的腿，否则末腿 transmit 会触发错误的订单组。
type Engine struct {
	mu       sync.Mutex
	trading  config.TradingConfig
	venue    Venue
	resolver Resolver
	closer   Closer
	status   *Status
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func New(trading config.TradingConfig, venue Venue, resolver Resolver, closer Closer, status *Status, m *metrics.Metrics, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		trading:  trading,
		venue:    venue,
		resolver: resolver,
		closer:   closer,
		status:   status,
		metrics:  m,
		log:      log,
	}
}

// Execute 同步处理一条交易请求：成功或失败都在返回前定论。
// 任何内部故障都转成 *ExecError 返回。
func (e *Engine) Execute(ctx context.Context, req Request) (Summary, error) {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.ExecutionDuration.Observe(time.Since(start).Seconds())
		}
	}()

	name, mult := e.trading.MapSymbol(req.Symbol)
	e.log.Info("trade request",
		zap.String("action", string(req.Action)),
		zap.String("symbol_in", req.Symbol),
		zap.String("symbol_out", name),
		zap.Float64("multiplier", mult))

	// 平仓也是一次完整的交易执行，与括号单共用同一把锁：
	// 平仓腿绝不能插进别的请求已登记、未传送的订单组。
	e.mu.Lock()
	defer e.mu.Unlock()

	if req.Action.IsClose() {
		return e.executeClose(ctx, name)
	}

	side, err := sideFor(req.Action)
	if err != nil {
		return e.fail("validation", name, err)
	}
	qty := req.Quantity
	if qty <= 0 {
		qty = e.trading.DefaultVolume
	}
	qty *= mult

	if err := e.venue.EnsureConnected(ctx); err != nil {
		return e.fail("connection", name, fmt.Errorf("could not connect to gateway: %w", err))
	}

	ct, err := e.resolver.Resolve(ctx, name, req.SecType, req.Currency, req.Exchange)
	if err != nil {
		// 解析失败不提交任何腿，不留下部分状态。
		return e.fail("resolution", name, err)
	}

	if c, ok := e.trading.Symbols[name]; ok {
		qty = order.SymbolConstraints{MinVolume: c.MinVolume, VolumeStep: c.VolumeStep}.Normalize(qty)
	}
	if qty <= 0 {
		return e.fail("validation", name, fmt.Errorf("quantity %.4f invalid after normalization", qty))
	}

	legs := order.Build(order.Request{
		Side:       side,
		Type:       req.OrderType,
		Quantity:   qty,
		LimitPrice: req.LimitPrice,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
	})

	var parentID int64
	var last order.Ack
	for _, leg := range legs {
		if leg.ParentIndex >= 0 {
			leg.ParentID = parentID
		}
		ack, err := e.venue.PlaceOrder(ctx, ct, leg)
		if err != nil {
			return e.fail("submission", name, fmt.Errorf("submit %s leg: %w", leg.Role, err))
		}
		if leg.Role == order.RoleParent {
			parentID = ack.OrderID
		}
		last = ack
		if e.metrics != nil {
			e.metrics.OrdersSubmitted.Inc()
		}
		e.log.Info("leg submitted",
			zap.String("role", string(leg.Role)),
			zap.String("side", string(leg.Side)),
			zap.Float64("qty", leg.Quantity),
			zap.Bool("transmit", leg.Transmit),
			zap.Int64("order_id", ack.OrderID))
	}

	summary := fmt.Sprintf("%s %.2f %s @ %s", side, qty, name, time.Now().UTC().Format("15:04:05"))
	if e.status != nil {
		e.status.RecordTrade(summary)
	}
	return Summary{
		Message:     "order submitted",
		OrderID:     last.OrderID,
		VenueStatus: last.Status,
	}, nil
}

func (e *Engine) executeClose(ctx context.Context, symbol string) (Summary, error) {
	res, err := e.closer.CloseAll(ctx, symbol)
	if err != nil {
		return e.fail("close", symbol, err)
	}
	summary := fmt.Sprintf("CLOSE %s (%d) @ %s", symbol, res.Count(), time.Now().UTC().Format("15:04:05"))
	if e.status != nil {
		e.status.RecordTrade(summary)
	}
	var orderID int64
	if n := len(res.OrderIDs); n > 0 {
		orderID = res.OrderIDs[n-1]
	}
	return Summary{
		Message:     fmt.Sprintf("closed %d positions for %s", res.Count(), symbol),
		OrderID:     orderID,
		ClosedCount: res.Count(),
		Closed:      res.Closed,
	}, nil
}

func (e *Engine) fail(kind, symbol string, err error) (Summary, error) {
	if e.metrics != nil {
		e.metrics.ExecutionErrors.WithLabelValues(kind).Inc()
	}
	if e.status != nil {
		e.status.RecordTrade(fmt.Sprintf("FAILED %s @ %s", symbol, time.Now().UTC().Format("15:04:05")))
	}
	e.log.Error("execution failed",
		zap.String("kind", kind),
		zap.String("symbol", symbol),
		zap.Error(err))
	var ee *ExecError
	if errors.As(err, &ee) {
		return Summary{}, ee
	}
	return Summary{}, execErr(kind+" failure", err)
}

func sideFor(a Action) (order.Side, error) {
	switch a {
	case ActionBuy:
		return order.SideBuy, nil
	case ActionSell:
		return order.SideSell, nil
	default:
		return "", fmt.Errorf("unsupported action %q", a)
	}
}
