package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chidi150c/backtestkit/internal/types"
)

// LoadCSV reads a generic OHLCV CSV with headers time|timestamp, open, high,
// low, close, volume (case-insensitive, any order) and returns the candles
// sorted ascending by time. Rows missing time/open/close are skipped.
func LoadCSV(path string) ([]types.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("engine: opening csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var out []types.Candle
	var headers []string
	rowIdx := 0

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("engine: reading csv: %w", err)
		}
		if rowIdx == 0 {
			headers = rec
			rowIdx++
			continue
		}

		row := map[string]string{}
		for j, h := range headers {
			k := strings.ToLower(strings.TrimSpace(h))
			if j < len(rec) {
				row[k] = strings.TrimSpace(rec[j])
			}
		}

		ts := firstNonEmpty(row, "time", "timestamp")
		op := firstNonEmpty(row, "open")
		hp := firstNonEmpty(row, "high")
		lp := firstNonEmpty(row, "low")
		cp := firstNonEmpty(row, "close")
		vp := firstNonEmpty(row, "volume", "vol")
		if ts == "" || op == "" || cp == "" {
			continue
		}

		tt, err := parseTimeFlexible(ts)
		if err != nil {
			continue
		}
		o, _ := strconv.ParseFloat(op, 64)
		h, _ := strconv.ParseFloat(hp, 64)
		l, _ := strconv.ParseFloat(lp, 64)
		c, _ := strconv.ParseFloat(cp, 64)
		v, _ := strconv.ParseFloat(vp, 64)

		out = append(out, types.Candle{Time: tt, Open: o, High: h, Low: l, Close: c, Volume: v})
		rowIdx++
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// parseTimeFlexible accepts RFC3339 or UNIX seconds.
func parseTimeFlexible(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("bad time: %s", s)
}

func firstNonEmpty(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v
		}
	}
	return ""
}
