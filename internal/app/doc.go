// Package app is the composition root for tickerdeck.
//
// Setup loads the config (file, .env, environment, flags), starts zerolog
// with a rotated log file and restores the stored session token. Run then
// builds the request pipeline, the session actions, the snapshot store and
// its poller, and hands everything to the TUI.
//
// The poller refreshes the trading calendar hourly and the latest daily
// summary every poll interval. Failures are logged and back off
// exponentially up to ten minutes; they never stop the loop.
package app
