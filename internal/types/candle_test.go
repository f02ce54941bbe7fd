package types

import (
	"testing"
	"time"
)

func TestCandleValidAcceptsOrdinaryBar(t *testing.T) {
	c := Candle{Time: time.Unix(0, 0), Open: 10, High: 12, Low: 9, Close: 11, Volume: 100}
	if !c.Valid() {
		t.Fatalf("expected an ordinary OHLCV bar to be valid")
	}
}

func TestCandleValidRejectsOpenAboveHigh(t *testing.T) {
	c := Candle{Open: 13, High: 12, Low: 9, Close: 11, Volume: 100}
	if c.Valid() {
		t.Fatalf("open above high should be invalid")
	}
}

func TestCandleValidRejectsCloseBelowLow(t *testing.T) {
	c := Candle{Open: 10, High: 12, Low: 9, Close: 8, Volume: 100}
	if c.Valid() {
		t.Fatalf("close below low should be invalid")
	}
}

func TestCandleValidRejectsNegativeVolume(t *testing.T) {
	c := Candle{Open: 10, High: 12, Low: 9, Close: 11, Volume: -1}
	if c.Valid() {
		t.Fatalf("negative volume should be invalid")
	}
}

func TestSortedAscendingEmptyAndSingleAreTrivially(t *testing.T) {
	if !SortedAscending(nil) {
		t.Fatalf("an empty feed is trivially sorted")
	}
	one := []Candle{{Time: time.Unix(0, 0)}}
	if !SortedAscending(one) {
		t.Fatalf("a single-candle feed is trivially sorted")
	}
}

func TestSortedAscendingDetectsOutOfOrder(t *testing.T) {
	feed := []Candle{
		{Time: time.Unix(100, 0)},
		{Time: time.Unix(50, 0)},
	}
	if SortedAscending(feed) {
		t.Fatalf("expected out-of-order feed to be reported as not sorted")
	}
}

func TestSortedAscendingRejectsDuplicateTimestamps(t *testing.T) {
	feed := []Candle{
		{Time: time.Unix(100, 0)},
		{Time: time.Unix(100, 0)},
	}
	if SortedAscending(feed) {
		t.Fatalf("a repeated timestamp is not strictly increasing")
	}
}
