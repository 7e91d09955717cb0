// Package notify delivers short user-facing notices (toasts) from the request
// pipeline and state components to whatever front end is running.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level classifies a notice.
type Level int

const (
	Info Level = iota
	Success
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Notice is one transient message.
type Notice struct {
	Level   Level
	Message string
	At      time.Time
	Expires time.Time
}

// Notifier receives notices.
type Notifier interface {
	Notify(level Level, message string)
}

// Func adapts a function to Notifier.
type Func func(level Level, message string)

// Notify implements Notifier.
func (f Func) Notify(level Level, message string) { f(level, message) }

// Discard drops every notice.
var Discard Notifier = Func(func(Level, string) {})

const (
	defaultTTL      = 5 * time.Second
	defaultCapacity = 32
)

// Center keeps recent notices for a UI to render and publishes each new
// one on a channel. It is safe for concurrent use.
type Center struct {
	mu      sync.Mutex
	ttl     time.Duration
	cap     int
	notices []Notice
	ch      chan Notice
	log     zerolog.Logger
	now     func() time.Time
}

// NewCenter creates a Center whose notices live for ttl (default 5s).
func NewCenter(ttl time.Duration, logger zerolog.Logger) *Center {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Center{
		ttl: ttl,
		cap: defaultCapacity,
		ch:  make(chan Notice, defaultCapacity),
		log: logger,
		now: time.Now,
	}
}

// Notify records a notice. When the channel buffer is full the oldest
// unread notice is dropped from it; Active still reports it until expiry.
func (c *Center) Notify(level Level, message string) {
	now := c.now()
	n := Notice{Level: level, Message: message, At: now, Expires: now.Add(c.ttl)}

	c.mu.Lock()
	c.notices = append(c.notices, n)
	if len(c.notices) > c.cap {
		c.notices = c.notices[len(c.notices)-c.cap:]
	}
	c.mu.Unlock()

	logNotice(c.log, n)

	for {
		select {
		case c.ch <- n:
			return
		default:
		}
		select {
		case <-c.ch:
		default:
		}
	}
}

// C returns the channel new notices are published on.
func (c *Center) C() <-chan Notice {
	return c.ch
}

// Active returns unexpired notices, oldest first, pruning expired ones.
func (c *Center) Active() []Notice {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.notices[:0]
	for _, n := range c.notices {
		if now.Before(n.Expires) {
			kept = append(kept, n)
		}
	}
	c.notices = kept

	out := make([]Notice, len(kept))
	copy(out, kept)
	return out
}

// Writer prints notices as single lines, for CLI subcommands.
type Writer struct {
	mu  sync.Mutex
	Out io.Writer
	Log zerolog.Logger
}

// Notify implements Notifier.
func (w *Writer) Notify(level Level, message string) {
	logNotice(w.Log, Notice{Level: level, Message: message})
	if w.Out == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.Out, "%s: %s\n", level, message)
}

// Recorder captures notices in memory.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify implements Notifier.
func (r *Recorder) Notify(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Level: level, Message: message, At: time.Now()})
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Count returns how many notices of the given level were recorded.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, notice := range r.notices {
		if notice.Level == level {
			n++
		}
	}
	return n
}

func logNotice(logger zerolog.Logger, n Notice) {
	var evt *zerolog.Event
	switch n.Level {
	case Error:
		evt = logger.Warn()
	default:
		evt = logger.Debug()
	}
	evt.Str("level_notice", n.Level.String()).Str("notice", n.Message).Msg("notify")
}
