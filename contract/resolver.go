package contract

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Clock 抽象时间便于测试。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// NowUTC 默认使用 UTC 时间。
var NowUTC Clock = realClock{}

// Fetcher 由会话层实现：向网关查询符号匹配的全部合约变体。
type Fetcher interface {
	ContractDetails(ctx context.Context, f Filter) ([]Variant, error)
}

// ResolutionError 表示符号无法解析为可交易合约；不重试，不猜测到期日。
type ResolutionError struct {
	Symbol string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %s", e.Symbol, e.Reason)
}

// Resolver 把逻辑符号 + 证券类型解析为具体合约。
type Resolver struct {
	Fetcher Fetcher
	Clock   Clock
}

func NewResolver(f Fetcher) *Resolver {
	return &Resolver{Fetcher: f, Clock: NowUTC}
}

// Resolve 按证券类型分派。期货走动态近月解析，失败时直接报错，
// 绝不回退到猜测的到期日。
func (r *Resolver) Resolve(ctx context.Context, symbol string, st SecType, currency, exchange string) (Contract, error) {
	switch st {
	case SecCash:
		return resolveCash(symbol, exchange), nil
	case SecStock, SecCrypto, SecGeneric:
		return Contract{
			Symbol:   symbol,
			SecType:  st,
			Exchange: exchange,
			Currency: currency,
		}, nil
	case SecFuture:
		return r.resolveFuture(ctx, symbol, currency, exchange)
	default:
		return Contract{}, &ResolutionError{Symbol: symbol, Reason: fmt.Sprintf("unsupported secType %q", st)}
	}
}

// resolveCash 处理外汇对：6 字符符号拆成基准/计价货币，
// 其余原样交给网关的货币对构造。
func resolveCash(symbol, exchange string) Contract {
	if len(symbol) == 6 {
		return Contract{
			Symbol:   symbol[:3],
			SecType:  SecCash,
			Exchange: exchange,
			Currency: symbol[3:],
		}
	}
	return Contract{
		Symbol:   symbol,
		SecType:  SecCash,
		Exchange: exchange,
	}
}

func (r *Resolver) resolveFuture(ctx context.Context, symbol, currency, exchange string) (Contract, error) {
	variants, err := r.Fetcher.ContractDetails(ctx, Filter{
		Symbol:   symbol,
		SecType:  string(SecFuture),
		Exchange: exchange,
		Currency: currency,
	})
	if err != nil {
		return Contract{}, &ResolutionError{Symbol: symbol, Reason: err.Error()}
	}

	clock := r.Clock
	if clock == nil {
		clock = NowUTC
	}
	today := clock.Now().UTC().Format("20060102")

	live := variants[:0:0]
	for _, v := range variants {
		if len(v.Expiry) >= 8 && v.Expiry[:8] >= today {
			live = append(live, v)
		}
	}
	if len(live) == 0 {
		return Contract{}, &ResolutionError{Symbol: symbol, Reason: "no valid future contracts"}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].Expiry < live[j].Expiry })

	front := live[0]
	return Contract{
		Symbol:      symbol,
		SecType:     SecFuture,
		Exchange:    exchange,
		Currency:    currency,
		LocalSymbol: front.LocalSymbol,
		Expiry:      front.Expiry,
	}, nil
}
