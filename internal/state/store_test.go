package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/tickerdeck/internal/api"
)

func TestStore_UpdateAndSnapshotClone(t *testing.T) {
	var s Store

	dates := []string{"20240103", "20240102"}
	summary := &api.DailySummary{Date: "20240103", Status: api.SummaryOK, Data: []map[string]any{{"item": "market cap", "value": 1.5}}}

	before := time.Now()
	s.Update(dates, summary, nil)

	snap := s.Snapshot()
	if !snap.HasSummary || snap.Summary.Date != "20240103" {
		t.Fatalf("snapshot summary = %#v, want date 20240103 HasSummary=true", snap.Summary)
	}
	if !reflect.DeepEqual(snap.TradeDates, []string{"20240102", "20240103"}) {
		t.Fatalf("snapshot dates = %v, want sorted pair", snap.TradeDates)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}

	// Returned snapshot should be independent of the stored one.
	snap.TradeDates[0] = "19990101"
	snap.Summary.Data[0]["value"] = 0
	snap2 := s.Snapshot()
	if snap2.TradeDates[0] != "20240102" {
		t.Fatalf("Snapshot should clone dates; got %s", snap2.TradeDates[0])
	}
	if snap2.Summary.Data[0]["value"] != 1.5 {
		t.Fatalf("Snapshot should clone summary rows; got %v", snap2.Summary.Data[0]["value"])
	}
	if dates[0] != "20240103" {
		t.Fatalf("Update must not reorder the caller's slice")
	}
}

func TestStore_PartialUpdateKeepsOtherData(t *testing.T) {
	var s Store

	s.Update([]string{"20240102"}, nil, nil)
	s.Update(nil, &api.DailySummary{Date: "20240102"}, nil)

	snap := s.Snapshot()
	if len(snap.TradeDates) != 1 {
		t.Fatalf("dates dropped by summary-only update: %v", snap.TradeDates)
	}
	if !snap.HasSummary {
		t.Fatal("HasSummary = false, want true")
	}
}

func TestStore_UpdateErrorKeepsPreviousData(t *testing.T) {
	var s Store

	s.Update([]string{"20240102"}, &api.DailySummary{Date: "20240102"}, nil)
	prev := s.Snapshot()

	before := time.Now()
	origErr := errors.New("boom")
	s.Update(nil, nil, origErr)

	snap := s.Snapshot()
	if snap.HasSummary != prev.HasSummary || snap.Summary.Date != prev.Summary.Date {
		t.Fatalf("summary changed on error: got %#v want %#v", snap.Summary, prev.Summary)
	}
	if len(snap.TradeDates) != 1 {
		t.Fatalf("dates changed on error: got %#v want %#v", snap.TradeDates, prev.TradeDates)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if !errors.Is(snap.LastError, origErr) {
		t.Fatalf("LastError should wrap the recorded error")
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("fresh store: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	for i, wantOffline := range []bool{false, true, true} {
		s.Update(nil, nil, errors.New("fail"))
		snap = s.Snapshot()
		if snap.ConsecutiveFailures != i+1 {
			t.Fatalf("ConsecutiveFailures = %d, want %d", snap.ConsecutiveFailures, i+1)
		}
		if snap.IsOffline() != wantOffline {
			t.Fatalf("IsOffline() = %v after %d failures, want %v", snap.IsOffline(), i+1, wantOffline)
		}
	}

	// Success resets counter
	s.Update(nil, &api.DailySummary{}, nil)
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 0 {
		t.Fatalf("ConsecutiveFailures = %d, want 0 after success", snap.ConsecutiveFailures)
	}
	if snap.IsOffline() {
		t.Fatal("IsOffline() = true, want false after success")
	}
}

func TestSnapshot_LatestTradeDate(t *testing.T) {
	snap := Snapshot{TradeDates: []string{"20240102", "20240103", "20240105", "20240108"}}
	day := func(s string) time.Time {
		tm, err := time.Parse("20060102", s)
		if err != nil {
			t.Fatal(err)
		}
		return tm
	}

	tests := []struct {
		now  string
		want string
	}{
		{"20240103", "20240103"},
		{"20240106", "20240105"},
		{"20240101", ""},
		{"20250101", "20240108"},
	}
	for _, tt := range tests {
		if got := snap.LatestTradeDate(day(tt.now)); got != tt.want {
			t.Errorf("LatestTradeDate(%s) = %q, want %q", tt.now, got, tt.want)
		}
	}
	if got := (Snapshot{}).LatestTradeDate(time.Now()); got != "" {
		t.Errorf("empty calendar = %q, want empty", got)
	}
}
