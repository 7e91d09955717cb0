package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/tickerdeck/internal/api"
	"github.com/five82/tickerdeck/internal/state"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 60 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 60 * time.Second},
		{"negative failures", -1, 60 * time.Second},
		{"one failure", 1, 2 * time.Minute},
		{"two failures", 2, 4 * time.Minute},
		{"three failures", 3, 8 * time.Minute},
		{"four failures capped", 4, 10 * time.Minute}, // Would be 16m, capped to 10m
		{"many failures capped", 40, 10 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Verify that backoff never exceeds maxBackoff regardless of input
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 80; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

type fakeMarket struct {
	dateCalls    int
	summaryCalls int
	datesErr     error
	summaryErr   error
}

func (f *fakeMarket) TradeDates(context.Context) ([]string, error) {
	f.dateCalls++
	if f.datesErr != nil {
		return nil, f.datesErr
	}
	return []string{"20240102", "20240103"}, nil
}

func (f *fakeMarket) DailySummary(_ context.Context, date string) (*api.DailySummary, error) {
	f.summaryCalls++
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return &api.DailySummary{Date: "20240103", Status: api.SummaryOK}, nil
}

func TestPollerRefresh_CalendarHourly(t *testing.T) {
	store := &state.Store{}
	src := &fakeMarket{}
	p := poller{store: store, source: src, log: zerolog.Nop()}
	start := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)

	p.refresh(context.Background(), start)
	p.refresh(context.Background(), start.Add(time.Minute))
	p.refresh(context.Background(), start.Add(61*time.Minute))

	if src.dateCalls != 2 {
		t.Fatalf("TradeDates calls = %d, want 2", src.dateCalls)
	}
	if src.summaryCalls != 3 {
		t.Fatalf("DailySummary calls = %d, want 3", src.summaryCalls)
	}
	snap := store.Snapshot()
	if len(snap.TradeDates) != 2 || !snap.HasSummary || snap.Summary.Date != "20240103" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestPollerRefresh_FailuresCountAndReset(t *testing.T) {
	store := &state.Store{}
	src := &fakeMarket{summaryErr: errors.New("down")}
	p := poller{store: store, source: src, log: zerolog.Nop()}
	now := time.Now()

	p.refresh(context.Background(), now)
	p.refresh(context.Background(), now)
	if p.failures != 2 {
		t.Fatalf("failures = %d, want 2", p.failures)
	}
	snap := store.Snapshot()
	if !snap.IsOffline() {
		t.Fatal("IsOffline() = false after two failures")
	}
	if len(snap.TradeDates) != 2 {
		t.Fatalf("calendar fetched before the summary failure should be kept, got %v", snap.TradeDates)
	}

	src.summaryErr = nil
	p.refresh(context.Background(), now)
	if p.failures != 0 || store.Snapshot().IsOffline() {
		t.Fatalf("success should reset failures, got %d", p.failures)
	}
}

func TestPollerRefresh_CancelledContextIsNotAFailure(t *testing.T) {
	store := &state.Store{}
	src := &fakeMarket{datesErr: context.Canceled}
	p := poller{store: store, source: src, log: zerolog.Nop()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p.refresh(ctx, time.Now())
	if p.failures != 0 || store.Snapshot().LastError != nil {
		t.Fatalf("shutdown recorded as failure: failures=%d", p.failures)
	}
}
