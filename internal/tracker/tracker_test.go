package tracker

import (
	"testing"
	"time"
)

func TestRecordBuySellSingleLotProfit(t *testing.T) {
	tr := New()
	now := time.Now()

	tr.RecordBuy("AAPL", now, 10, 10, 0, 0)
	tr.RecordSell("AAPL", now.Add(time.Hour), 12, 10, 0, 0)

	trades := tr.ClosedTrades()
	if len(trades) != 1 {
		t.Fatalf("expected 1 closed trade, got %d", len(trades))
	}
	trade := trades[0]
	if trade.Quantity != 10 {
		t.Fatalf("quantity = %v, want 10", trade.Quantity)
	}
	if got, want := trade.ProfitLoss, 20.0; got != want {
		t.Fatalf("profit/loss = %v, want %v", got, want)
	}
}

func TestFIFOMatchingAcrossTwoLots(t *testing.T) {
	tr := New()
	now := time.Now()

	// Two buys of 5 units each at different prices, both with entry fees.
	tr.RecordBuy("AAPL", now, 10, 5, 1, 0)
	tr.RecordBuy("AAPL", now.Add(time.Minute), 20, 5, 1, 0)

	// Sell 8: fully consumes lot 1 (5) and partially consumes lot 2 (3).
	tr.RecordSell("AAPL", now.Add(time.Hour), 15, 8, 0.8, 0)

	trades := tr.ClosedTrades()
	if len(trades) != 2 {
		t.Fatalf("expected 2 closed trades from one sell spanning two lots, got %d", len(trades))
	}

	first, second := trades[0], trades[1]
	if first.Quantity != 5 {
		t.Fatalf("first trade quantity = %v, want 5 (fully consumed lot)", first.Quantity)
	}
	if second.Quantity != 3 {
		t.Fatalf("second trade quantity = %v, want 3 (partially consumed lot)", second.Quantity)
	}

	// share = m/size: first trade consumed 5/8 of the sell's fees.
	wantFirstExitFees := 0.8 * (5.0 / 8.0)
	if diff := first.ExitFees - wantFirstExitFees; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("first trade exit fees = %v, want %v", first.ExitFees, wantFirstExitFees)
	}

	// shareBuy = m/lot.quantity: second trade consumed 3/5 of its lot's entry fees.
	wantSecondEntryFees := 1.0 * (3.0 / 5.0)
	if diff := second.EntryFees - wantSecondEntryFees; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("second trade entry fees = %v, want %v", second.EntryFees, wantSecondEntryFees)
	}

	// The remaining 2 units of lot 2 are still open.
	remainingLots := tr.open["AAPL"]
	if len(remainingLots) != 1 {
		t.Fatalf("expected 1 remaining open lot, got %d", len(remainingLots))
	}
	if remainingLots[0].quantity != 2 {
		t.Fatalf("remaining lot quantity = %v, want 2", remainingLots[0].quantity)
	}
}

func TestEquityCurveRecordsEverySample(t *testing.T) {
	tr := New()
	now := time.Now()
	tr.RecordEquity(now, 1000)
	tr.RecordEquity(now.Add(time.Minute), 1010)

	curve := tr.EquityCurve()
	if len(curve) != 2 {
		t.Fatalf("expected 2 equity samples, got %d", len(curve))
	}
	if curve[1].Value != 1010 {
		t.Fatalf("second sample value = %v, want 1010", curve[1].Value)
	}
}
