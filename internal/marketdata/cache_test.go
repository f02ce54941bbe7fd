package marketdata

import "testing"

func TestCacheKeyFormat(t *testing.T) {
	got := cacheKey("AAPL", "2024-01-01", "2024-02-01")
	want := "aggs:AAPL:2024-01-01:2024-02-01"
	if got != want {
		t.Fatalf("cacheKey = %q, want %q", got, want)
	}
}
