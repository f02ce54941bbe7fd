package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCSVSortsAscendingAndSkipsIncompleteRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "candles.csv")
	content := "time,open,high,low,close,volume\n" +
		"2024-01-02T00:00:00Z,11,12,10,11.5,100\n" +
		"2024-01-01T00:00:00Z,10,11,9,10.5,200\n" +
		",10,11,9,10.5,200\n" // missing time, should be skipped

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture csv: %v", err)
	}

	candles, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV returned error: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 valid rows, got %d", len(candles))
	}
	if !candles[0].Time.Before(candles[1].Time) {
		t.Fatalf("candles should be sorted ascending by time")
	}
	if candles[0].Open != 10 {
		t.Fatalf("first candle open = %v, want 10", candles[0].Open)
	}
}

func TestLoadCSVMissingFileReturnsError(t *testing.T) {
	if _, err := LoadCSV("/nonexistent/path.csv"); err == nil {
		t.Fatalf("expected error for a nonexistent file")
	}
}
