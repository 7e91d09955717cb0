// Package paging keeps the state of a paginated remote list.
//
// # Overview
//
// A Pager wraps a fetch function that returns one page of items plus the
// total number of items on the backend. Views call the navigation methods
// and render State; they never track page arithmetic themselves.
//
//	p := paging.New(ctx, paging.Options[api.Company]{
//		Fetch:    fetchCompanies,
//		AutoLoad: true,
//		Notifier: center,
//	})
//	_ = p.NextPage(ctx)
//	st := p.State() // st.CurrentPage == 2
//
// # Semantics
//
//   - TotalPages is ceil(Total/PageSize); HasNext and HasPrev derive from it
//   - GoToPage ignores pages outside [1, TotalPages] and makes no call
//   - ChangePageSize returns to page 1 and reloads
//   - Reset restores construction-time defaults with no call
//   - A failed load clears Items and records the error
//
// # Ordering
//
// Every load takes a sequence number. When it returns, its result is applied
// only if no later load or Reset has started since. Stale results change no
// state and fire no callbacks.
//
// # Notices
//
// A failed load emits "failed to load data, please retry" unless the request
// pipeline already notified the user about the same error.
package paging
