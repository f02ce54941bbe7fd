// Package config parses the simulation request parameters — dates, tick
// duration, fee schedule — that arrive at the HTTP boundary as strings, and
// separately loads the long-lived service configuration the API server
// process runs under.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chidi150c/backtestkit/internal/broker"
)

// Typed request-parsing failures, surfaced at the HTTP boundary as 400s.
var (
	ErrInvalidDate = errors.New("config: invalid date")
	ErrInvalidTick = errors.New("config: invalid tick")
	ErrInvalidFee  = errors.New("config: invalid fee schedule")
)

// dateLayout is the UTC-naive wire format: "YYYY-MM-DD HH:MM:SS".
const dateLayout = "2006-01-02 15:04:05"

// ParseDate parses a UTC-naive timestamp in the wire format. Invalid input
// returns ErrInvalidDate.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t.UTC(), nil
}

// ParseTick parses an integer followed by a unit suffix of "s" or "ns".
// Invalid input returns ErrInvalidTick.
func ParseTick(s string) (time.Duration, error) {
	var unit time.Duration
	var numeric string
	switch {
	case strings.HasSuffix(s, "ns"):
		unit = time.Nanosecond
		numeric = strings.TrimSuffix(s, "ns")
	case strings.HasSuffix(s, "s"):
		unit = time.Second
		numeric = strings.TrimSuffix(s, "s")
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidTick, s)
	}

	value, err := strconv.ParseInt(numeric, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTick, s)
	}
	return time.Duration(value) * unit, nil
}

// FeeRequest is the wire shape of the broker's fee schedule, tagged by kind.
type FeeRequest struct {
	Kind   string  `json:"kind"` // "flat" or "percentage"
	Amount float64 `json:"amount"`
}

// ToSchedule validates and converts a FeeRequest to a broker.FeeSchedule.
// A Percentage fraction outside [0,1] is rejected.
func (f FeeRequest) ToSchedule() (broker.FeeSchedule, error) {
	switch strings.ToLower(f.Kind) {
	case "flat":
		return broker.Flat(f.Amount), nil
	case "percentage":
		if f.Amount < 0 || f.Amount > 1 {
			return broker.FeeSchedule{}, fmt.Errorf("%w: percentage fraction %v out of [0,1]", ErrInvalidFee, f.Amount)
		}
		return broker.Percentage(f.Amount), nil
	default:
		return broker.FeeSchedule{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidFee, f.Kind)
	}
}

// SlippageRequest is the wire shape of the broker's slippage bounds.
type SlippageRequest struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}
