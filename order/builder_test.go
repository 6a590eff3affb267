package order

import "testing"

func TestBuildSimpleOrder(t *testing.T) {
	legs := Build(Request{Side: SideSell, Type: TypeMarket, Quantity: 2})
	if len(legs) != 1 {
		t.Fatalf("expected 1 leg, got %d", len(legs))
	}
	leg := legs[0]
	if leg.Role != RoleParent || leg.Side != SideSell || !leg.Transmit {
		t.Fatalf("unexpected leg: %+v", leg)
	}
	if leg.ParentIndex != -1 {
		t.Fatalf("simple order must not reference a parent")
	}
}

func TestBuildFullBracket(t *testing.T) {
	legs := Build(Request{
		Side:       SideBuy,
		Type:       TypeMarket,
		Quantity:   1,
		StopLoss:   90,
		TakeProfit: 110,
	})
	if len(legs) != 3 {
		t.Fatalf("expected 3 legs, got %d", len(legs))
	}

	parent, stop, target := legs[0], legs[1], legs[2]
	if parent.Role != RoleParent || parent.Side != SideBuy || parent.Quantity != 1 || parent.Transmit {
		t.Fatalf("unexpected parent: %+v", parent)
	}
	if stop.Role != RoleStop || stop.Side != SideSell || stop.Price != 90 || stop.Transmit {
		t.Fatalf("unexpected stop: %+v", stop)
	}
	if target.Role != RoleTarget || target.Side != SideSell || target.Price != 110 || !target.Transmit {
		t.Fatalf("unexpected target: %+v", target)
	}
	if stop.ParentIndex != 0 || target.ParentIndex != 0 {
		t.Fatalf("children must reference the parent leg")
	}

	// 整组只有最后一腿 transmit。
	transmits := 0
	for _, l := range legs {
		if l.Transmit {
			transmits++
		}
	}
	if transmits != 1 || !legs[len(legs)-1].Transmit {
		t.Fatalf("exactly the final leg must transmit")
	}
}

func TestBuildStopOnlyBracket(t *testing.T) {
	legs := Build(Request{Side: SideBuy, Type: TypeMarket, Quantity: 1, StopLoss: 90})
	if len(legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(legs))
	}
	if legs[0].Transmit {
		t.Fatalf("parent must stage until the stop leg")
	}
	if legs[1].Role != RoleStop || !legs[1].Transmit {
		t.Fatalf("stop must be the transmitting leg: %+v", legs[1])
	}
}

func TestBuildTargetOnlyBracket(t *testing.T) {
	legs := Build(Request{Side: SideSell, Type: TypeLimit, LimitPrice: 105, Quantity: 3, TakeProfit: 95})
	if len(legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(legs))
	}
	if legs[0].Price != 105 || legs[0].Type != TypeLimit {
		t.Fatalf("parent limit price lost: %+v", legs[0])
	}
	if legs[1].Role != RoleTarget || legs[1].Side != SideBuy || !legs[1].Transmit {
		t.Fatalf("unexpected target: %+v", legs[1])
	}
}
