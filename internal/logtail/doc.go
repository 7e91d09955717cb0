// Package logtail reads the tail of the application log for the Logs view.
//
// tickerdeck writes JSON lines through zerolog into a lumberjack-rotated
// file. The TUI owns the terminal, so the Logs view is the only place those
// records are visible while it runs.
//
//	tail := logtail.NewTailer(cfg.LogPath(), 2000)
//	lines, err := tail.Lines() // call again on every refresh
//
// A Tailer remembers its read offset, so a refresh costs only the bytes
// written since the last one. Rotation renames the file and opens a new
// one; the Tailer notices the different file (or a shorter one) and starts
// over. Rotated backups are never read.
//
// A missing file returns nil, nil, which is the normal state before the
// first log write.
package logtail
