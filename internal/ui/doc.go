// Package ui provides the Bubble Tea terminal dashboard for tickerdeck.
//
// # Views
//
//   - Market: daily summary of the latest or a chosen trading date
//   - History: per-stock bars with adjust mode, source, paging and PDF export
//   - Search: debounced stock autocomplete and the chosen company's profile
//   - Companies: paged company search with an industry filter
//   - Profile: the signed-in user, with profile, avatar and password dialogs
//   - Logs: the tickerdeck log file, followed and searchable
//
// # Event Flow
//
//  1. Run builds the Model and starts the program
//  2. A tick re-reads the state.Store the poller fills and prunes notices
//  3. Backend calls run as tea.Cmds through the paging, search and form
//     state holders; their results come back as messages
//  4. Notices from the request pipeline arrive on the notify.Center channel
//     and show in the footer until they expire
//  5. Session changes are posted to an internal channel; losing the session
//     while signed in reopens the sign-in dialog
//
// Key bindings are listed by the help overlay (?).
package ui
