package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFormatIndianCurrency(t *testing.T) {
	testCases := []struct {
		amount   float64
		expected string
	}{
		{0, "₹0.00"},
		{100, "₹100.00"},
		{1000, "₹1,000.00"},
		{100000, "₹1,00,000.00"},
		{10000000, "₹1,00,00,000.00"},
		{-1234.56, "-₹1,234.56"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			if got := FormatIndianCurrency(tc.amount); got != tc.expected {
				t.Errorf("FormatIndianCurrency(%v) = %s, want %s", tc.amount, got, tc.expected)
			}
		})
	}
}

func TestFormatQuantity(t *testing.T) {
	if got := FormatQuantity(10); got != "+10 (long)" {
		t.Errorf("FormatQuantity(10) = %s", got)
	}
	if got := FormatQuantity(-5); got != "-5 (short)" {
		t.Errorf("FormatQuantity(-5) = %s", got)
	}
	if got := FormatQuantity(0); got != "0 (flat)" {
		t.Errorf("FormatQuantity(0) = %s", got)
	}
}

func TestIsMarketOpen(t *testing.T) {
	testCases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"monday mid-session", time.Date(2026, 8, 31, 11, 0, 0, 0, IndiaLocation), true},
		{"opening minute", time.Date(2026, 8, 31, 9, 15, 0, 0, IndiaLocation), true},
		{"before open", time.Date(2026, 8, 31, 9, 14, 0, 0, IndiaLocation), false},
		{"at close", time.Date(2026, 8, 31, 15, 30, 0, 0, IndiaLocation), false},
		{"sunday", time.Date(2026, 8, 30, 11, 0, 0, 0, IndiaLocation), false},
		{"saturday", time.Date(2026, 9, 5, 11, 0, 0, 0, IndiaLocation), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsMarketOpen(tc.at); got != tc.want {
				t.Errorf("IsMarketOpen(%v) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestPollStopsOnDone(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), DefaultPollConfig(), func() (bool, error) {
		calls++
		return calls >= 3, nil
	})
	if err != nil {
		t.Fatalf("Poll returned error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestPollTimesOut(t *testing.T) {
	cfg := PollConfig{
		Timeout:       30 * time.Millisecond,
		Interval:      5 * time.Millisecond,
		MaxInterval:   10 * time.Millisecond,
		BackoffFactor: 1.5,
	}
	err := Poll(context.Background(), cfg, func() (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestPollAbortsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Poll(context.Background(), DefaultPollConfig(), func() (bool, error) {
		calls++
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want boom", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestPollRespectsParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Poll(ctx, DefaultPollConfig(), func() (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryExhausts(t *testing.T) {
	boom := errors.New("boom")
	cfg := RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
	err := Retry(context.Background(), cfg, func() error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want boom", err)
	}
}
