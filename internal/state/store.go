package state

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/five82/tickerdeck/internal/api"
)

// Snapshot represents the latest market data available to the UI.
type Snapshot struct {
	TradeDates          []string // YYYYMMDD, oldest first
	Summary             api.DailySummary
	HasSummary          bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// LatestTradeDate returns the most recent trading date on or before now, or
// "" when the calendar is not loaded.
func (s Snapshot) LatestTradeDate(now time.Time) string {
	today := now.Format("20060102")
	i := sort.SearchStrings(s.TradeDates, today)
	if i < len(s.TradeDates) && s.TradeDates[i] == today {
		return today
	}
	if i == 0 {
		return ""
	}
	return s.TradeDates[i-1]
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update records one poll. When err is non-nil the previous data is kept but
// the error is recorded for visibility. A nil dates slice or summary leaves
// that part of the snapshot unchanged.
func (s *Store) Update(dates []string, summary *api.DailySummary, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	if dates != nil {
		s.snapshot.TradeDates = cloneDates(dates)
	}
	if summary != nil {
		s.snapshot.Summary = cloneSummary(*summary)
		s.snapshot.HasSummary = true
	}
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.TradeDates = cloneDates(s.snapshot.TradeDates)
	snap.Summary = cloneSummary(s.snapshot.Summary)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneDates(dates []string) []string {
	if len(dates) == 0 {
		return nil
	}
	dup := make([]string, len(dates))
	copy(dup, dates)
	sort.Strings(dup)
	return dup
}

func cloneSummary(summary api.DailySummary) api.DailySummary {
	if len(summary.Data) == 0 {
		return summary
	}
	rows := make([]map[string]any, len(summary.Data))
	for i, row := range summary.Data {
		dup := make(map[string]any, len(row))
		for k, v := range row {
			dup[k] = v
		}
		rows[i] = dup
	}
	summary.Data = rows
	return summary
}
