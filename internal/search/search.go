// Package search keeps the state of a debounced remote query, such as the
// stock autocomplete box.
package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/five82/tickerdeck/internal/api"
	"github.com/five82/tickerdeck/internal/notify"
)

const (
	// DefaultDebounce is the quiet period before a triggered search runs.
	DefaultDebounce   = 300 * time.Millisecond
	defaultMinLength  = 1
	defaultFailureMsg = "search failed, please retry"
)

// Func runs one query against the backend.
type Func[T any] func(ctx context.Context, query string) ([]T, error)

// Options configures a Searcher. Only Search is required.
type Options[T any] struct {
	Search    Func[T]
	Debounce  time.Duration
	MinLength int

	OnSuccess func([]T)
	OnError   func(error)
	// OnDone runs after every executed search settles, including queries too
	// short to send.
	OnDone func(State[T])

	Notifier       notify.Notifier
	FailureMessage string
}

// State is a snapshot of a Searcher.
type State[T any] struct {
	Query   string
	Results []T
	Loading bool
	Err     error
}

// Searcher debounces query triggers and tracks the latest results. Each
// trigger cancels the pending one, and a response that arrives after a newer
// trigger or Reset is dropped.
type Searcher[T any] struct {
	fn       Func[T]
	debounce time.Duration
	minLen   int
	onOK     func([]T)
	onErr    func(error)
	onDone   func(State[T])
	notifier notify.Notifier
	failMsg  string

	mu      sync.Mutex
	query   string
	results []T
	loading bool
	err     error
	timer   *time.Timer
	gen     uint64
}

// New builds a Searcher.
func New[T any](opts Options[T]) *Searcher[T] {
	s := &Searcher[T]{
		fn:       opts.Search,
		debounce: opts.Debounce,
		minLen:   opts.MinLength,
		onOK:     opts.OnSuccess,
		onErr:    opts.OnError,
		onDone:   opts.OnDone,
		notifier: opts.Notifier,
		failMsg:  opts.FailureMessage,
	}
	if s.debounce <= 0 {
		s.debounce = DefaultDebounce
	}
	if s.minLen <= 0 {
		s.minLen = defaultMinLength
	}
	if s.notifier == nil {
		s.notifier = notify.Discard
	}
	if s.failMsg == "" {
		s.failMsg = defaultFailureMsg
	}
	return s
}

// State returns a copy of the current state.
func (s *Searcher[T]) State() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Searcher[T]) stateLocked() State[T] {
	return State[T]{
		Query:   s.query,
		Results: append([]T(nil), s.results...),
		Loading: s.loading,
		Err:     s.err,
	}
}

// Search sets the query and schedules a debounced run.
func (s *Searcher[T]) Search(ctx context.Context, query string) {
	s.SetQuery(query)
	s.Trigger(ctx)
}

// SetQuery changes the query without scheduling anything.
func (s *Searcher[T]) SetQuery(query string) {
	s.mu.Lock()
	s.query = query
	s.mu.Unlock()
}

// Trigger (re)arms the debounce timer. Only the last trigger in a quiet
// period executes, with whatever query is set when the timer fires.
func (s *Searcher[T]) Trigger(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen := s.cancelLocked()
	s.timer = time.AfterFunc(s.debounce, func() {
		_ = s.run(ctx, gen)
	})
}

// Execute cancels any pending trigger and runs the search now, returning
// once it settles.
func (s *Searcher[T]) Execute(ctx context.Context) error {
	s.mu.Lock()
	gen := s.cancelLocked()
	s.mu.Unlock()
	return s.run(ctx, gen)
}

// Reset stops any pending trigger and clears query, results, error and the
// loading flag. In-flight responses are dropped.
func (s *Searcher[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.query = ""
	s.results = nil
	s.loading = false
	s.err = nil
}

// Close stops any pending trigger.
func (s *Searcher[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

// cancelLocked stops the timer and starts a new generation, which
// invalidates any pending or in-flight run.
func (s *Searcher[T]) cancelLocked() uint64 {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	return s.gen
}

func (s *Searcher[T]) run(ctx context.Context, gen uint64) error {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return nil
	}
	s.timer = nil
	query := strings.TrimSpace(s.query)
	if utf8.RuneCountInString(query) < s.minLen {
		s.results = nil
		s.err = nil
		s.loading = false
		st := s.stateLocked()
		s.mu.Unlock()
		s.done(st)
		return nil
	}
	s.loading = true
	s.mu.Unlock()

	var (
		results []T
		err     error
	)
	if s.fn == nil {
		err = errors.New("search: no search function")
	} else {
		results, err = s.fn(ctx, query)
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return err
	}
	s.loading = false
	if err != nil {
		s.results = nil
		s.err = err
	} else {
		s.results = results
		s.err = nil
	}
	st := s.stateLocked()
	s.mu.Unlock()

	if err != nil {
		if s.onErr != nil {
			s.onErr(err)
		}
		if !api.Notified(err) && !errors.Is(err, context.Canceled) {
			s.notifier.Notify(notify.Error, s.failMsg)
		}
	} else if s.onOK != nil {
		s.onOK(results)
	}
	s.done(st)
	return err
}

func (s *Searcher[T]) done(st State[T]) {
	if s.onDone != nil {
		s.onDone(st)
	}
}
