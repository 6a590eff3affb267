package contract

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubFetcher struct {
	variants []Variant
	err      error
	lastReq  Filter
}

func (s *stubFetcher) ContractDetails(ctx context.Context, f Filter) ([]Variant, error) {
	s.lastReq = f
	return s.variants, s.err
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestResolveCashPair(t *testing.T) {
	r := NewResolver(nil)
	ct, err := r.Resolve(context.Background(), "EURUSD", SecCash, "USD", "IDEALPRO")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct.Symbol != "EUR" || ct.Currency != "USD" {
		t.Fatalf("expected base/quote split, got %+v", ct)
	}
}

func TestResolveCashPassthrough(t *testing.T) {
	r := NewResolver(nil)
	ct, err := r.Resolve(context.Background(), "USDSEK.X", SecCash, "", "IDEALPRO")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct.Symbol != "USDSEK.X" {
		t.Fatalf("non 6-char symbol must pass through, got %+v", ct)
	}
}

func TestResolveStockDirect(t *testing.T) {
	r := NewResolver(nil)
	ct, err := r.Resolve(context.Background(), "AAPL", SecStock, "USD", "SMART")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct.Symbol != "AAPL" || ct.Exchange != "SMART" || ct.SecType != SecStock {
		t.Fatalf("unexpected contract: %+v", ct)
	}
}

func TestResolveFutureFrontMonth(t *testing.T) {
	fetcher := &stubFetcher{variants: []Variant{
		{Symbol: "MNQ", LocalSymbol: "MNQH4", Expiry: "20240315"},
		{Symbol: "MNQ", LocalSymbol: "MNQM4", Expiry: "20240621"},
		{Symbol: "MNQ", LocalSymbol: "MNQZ3", Expiry: "20231215"},
	}}
	r := &Resolver{
		Fetcher: fetcher,
		Clock:   fixedClock{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	ct, err := r.Resolve(context.Background(), "MNQ", SecFuture, "USD", "GLOBEX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 已过期的 20231215 被过滤，选最近未到期的 20240315。
	if ct.Expiry != "20240315" || ct.LocalSymbol != "MNQH4" {
		t.Fatalf("front month wrong: %+v", ct)
	}
	if fetcher.lastReq.Symbol != "MNQ" || fetcher.lastReq.Exchange != "GLOBEX" {
		t.Fatalf("unexpected details query: %+v", fetcher.lastReq)
	}
}

func TestResolveFutureAllExpired(t *testing.T) {
	fetcher := &stubFetcher{variants: []Variant{
		{Symbol: "MNQ", Expiry: "20231215"},
	}}
	r := &Resolver{
		Fetcher: fetcher,
		Clock:   fixedClock{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	_, err := r.Resolve(context.Background(), "MNQ", SecFuture, "USD", "GLOBEX")
	var re *ResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
}

func TestResolveFutureFetchError(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("gateway down")}
	r := NewResolver(fetcher)
	_, err := r.Resolve(context.Background(), "MNQ", SecFuture, "USD", "GLOBEX")
	var re *ResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
}

func TestParseSecTypeAliases(t *testing.T) {
	cases := map[string]SecType{
		"STK":    SecStock,
		"stock":  SecStock,
		"FUT":    SecFuture,
		"cash":   SecCash,
		"CRYPTO": SecCrypto,
		"":       SecGeneric,
	}
	for in, want := range cases {
		got, err := ParseSecType(in)
		if err != nil || got != want {
			t.Fatalf("ParseSecType(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseSecType("BOND9"); err == nil {
		t.Fatalf("expected error for unknown secType")
	}
}
