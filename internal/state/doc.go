// Package state provides thread-safe state management for the market view.
//
// # Overview
//
// The Store shares the trading calendar and the latest SSE daily summary
// between the background poller and the UI. The poller writes; the Market
// view reads snapshots on its own refresh tick.
//
//	Producer (Poller):             Consumer (UI):
//	┌────────────────┐            ┌─────────────────┐
//	│ TradeDates()   │            │                 │
//	│ DailySummary() │            │                 │
//	│      ↓         │            │                 │
//	│ store.Update() │───────────→│ store.Snapshot()│
//	│      ↓         │  (mutex)   │      ↓          │
//	│  repeat...     │            │  render market  │
//	└────────────────┘            └─────────────────┘
//
// # Update Semantics
//
//	// Success: replace whatever was fetched
//	store.Update(dates, summary, nil)   // nil dates or summary keeps the old value
//
//	// Error: keep old data, record error
//	store.Update(nil, nil, err)
//	→ snapshot.LastError = err
//	→ snapshot.ConsecutiveFailures++
//
// Two consecutive failures mark the snapshot offline, which the header shows
// instead of the last update time.
//
// # Defensive Copying
//
// Update and Snapshot copy the date slice and every summary row, so the UI
// can sort or annotate what it renders without racing the poller.
//
// The zero Store is ready to use.
package state
