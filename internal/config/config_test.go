package config

import (
	"errors"
	"testing"
	"time"
)

func TestParseDateRoundTrip(t *testing.T) {
	got, err := ParseDate("2024-03-15 09:30:00")
	if err != nil {
		t.Fatalf("ParseDate returned error: %v", err)
	}
	want := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("ParseDate = %v, want %v", got, want)
	}
}

func TestParseDateRejectsBadFormat(t *testing.T) {
	_, err := ParseDate("03/15/2024")
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("err = %v, want ErrInvalidDate", err)
	}
}

func TestParseTickSeconds(t *testing.T) {
	got, err := ParseTick("30s")
	if err != nil {
		t.Fatalf("ParseTick returned error: %v", err)
	}
	if got != 30*time.Second {
		t.Fatalf("ParseTick(30s) = %v, want 30s", got)
	}
}

func TestParseTickNanoseconds(t *testing.T) {
	got, err := ParseTick("500ns")
	if err != nil {
		t.Fatalf("ParseTick returned error: %v", err)
	}
	if got != 500*time.Nanosecond {
		t.Fatalf("ParseTick(500ns) = %v, want 500ns", got)
	}
}

func TestParseTickRejectsUnknownSuffix(t *testing.T) {
	_, err := ParseTick("5m")
	if !errors.Is(err, ErrInvalidTick) {
		t.Fatalf("err = %v, want ErrInvalidTick", err)
	}
}

func TestFeeRequestToScheduleFlat(t *testing.T) {
	f := FeeRequest{Kind: "flat", Amount: 1.5}
	sched, err := f.ToSchedule()
	if err != nil {
		t.Fatalf("ToSchedule returned error: %v", err)
	}
	if got := sched.Fee(1000); got != 1.5 {
		t.Fatalf("flat fee = %v, want 1.5", got)
	}
}

func TestFeeRequestToScheduleRejectsOutOfRangePercentage(t *testing.T) {
	f := FeeRequest{Kind: "percentage", Amount: 1.5}
	_, err := f.ToSchedule()
	if !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("err = %v, want ErrInvalidFee", err)
	}
}

func TestFeeRequestToScheduleRejectsUnknownKind(t *testing.T) {
	f := FeeRequest{Kind: "bogus", Amount: 1}
	_, err := f.ToSchedule()
	if !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("err = %v, want ErrInvalidFee", err)
	}
}
