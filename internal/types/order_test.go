package types

import (
	"testing"
	"time"
)

func TestTriggeredMarketAlwaysTrue(t *testing.T) {
	o := NewMarketOrder("AAPL", Buy, 1)
	if !o.Triggered(999) {
		t.Fatalf("market order should always trigger")
	}
}

func TestTriggeredLimitBuyRequiresOpenAtOrBelowPrice(t *testing.T) {
	o := NewLimitOrder("AAPL", Buy, 1, 100)
	if o.Triggered(101) {
		t.Fatalf("limit buy should not trigger above its price")
	}
	if !o.Triggered(100) {
		t.Fatalf("limit buy should trigger at its price")
	}
	if !o.Triggered(99) {
		t.Fatalf("limit buy should trigger below its price")
	}
}

func TestTriggeredStopSellRequiresOpenAtOrBelowPrice(t *testing.T) {
	o := NewStopOrder("AAPL", Sell, 1, 100)
	if o.Triggered(101) {
		t.Fatalf("stop sell should not trigger above its price")
	}
	if !o.Triggered(100) {
		t.Fatalf("stop sell should trigger at its price")
	}
}

func TestExpiredWithNoDeadlineNeverExpires(t *testing.T) {
	o := NewMarketOrder("AAPL", Buy, 1)
	if o.Expired(time.Now().Add(100 * 365 * 24 * time.Hour)) {
		t.Fatalf("order with no ValidUntil should never expire")
	}
}

func TestExpiredStrictlyAfterDeadline(t *testing.T) {
	deadline := time.Now()
	o := NewLimitOrder("AAPL", Buy, 1, 100)
	o.ValidUntil = &deadline

	if o.Expired(deadline) {
		t.Fatalf("order valid exactly through deadline should not be expired")
	}
	if !o.Expired(deadline.Add(time.Nanosecond)) {
		t.Fatalf("order should expire strictly after deadline")
	}
}
