package paging

import (
	"context"
	"errors"
	"sync"

	"github.com/five82/tickerdeck/internal/api"
	"github.com/five82/tickerdeck/internal/notify"
)

const (
	defaultPage       = 1
	defaultPageSize   = 20
	defaultFailureMsg = "failed to load data, please retry"
)

// Page is one slice of a remote list together with the size of the whole list.
type Page[T any] struct {
	Items []T
	Total int
}

// FetchFunc loads one page. page is 1-based.
type FetchFunc[T any] func(ctx context.Context, page, size int) (Page[T], error)

// Options configures a Pager. Only Fetch is required.
type Options[T any] struct {
	Fetch           FetchFunc[T]
	InitialPage     int
	InitialPageSize int
	AutoLoad        bool

	OnSuccess func(Page[T])
	OnError   func(error)

	Notifier       notify.Notifier
	FailureMessage string
}

// State is a snapshot of a Pager.
type State[T any] struct {
	Items       []T
	Total       int
	CurrentPage int
	PageSize    int
	Loading     bool
	Err         error
}

// TotalPages is ceil(Total/PageSize).
func (s State[T]) TotalPages() int {
	if s.PageSize <= 0 || s.Total <= 0 {
		return 0
	}
	return (s.Total + s.PageSize - 1) / s.PageSize
}

// HasNext reports whether a page after the current one exists.
func (s State[T]) HasNext() bool { return s.CurrentPage < s.TotalPages() }

// HasPrev reports whether a page before the current one exists.
func (s State[T]) HasPrev() bool { return s.CurrentPage > 1 }

// Pager tracks a paginated remote list. Methods block until the fetch they
// start has settled; callers that must not block run them on a goroutine.
// Only the most recently started load may change state, so a slow response
// never overwrites a newer one.
type Pager[T any] struct {
	fetch    FetchFunc[T]
	page0    int
	size0    int
	onOK     func(Page[T])
	onErr    func(error)
	notifier notify.Notifier
	failMsg  string

	mu      sync.Mutex
	page    int
	size    int
	items   []T
	total   int
	loading bool
	err     error
	seq     uint64
}

// New builds a Pager. With AutoLoad set the first page is loaded before New
// returns.
func New[T any](ctx context.Context, opts Options[T]) *Pager[T] {
	p := &Pager[T]{
		fetch:    opts.Fetch,
		page0:    opts.InitialPage,
		size0:    opts.InitialPageSize,
		onOK:     opts.OnSuccess,
		onErr:    opts.OnError,
		notifier: opts.Notifier,
		failMsg:  opts.FailureMessage,
	}
	if p.page0 < 1 {
		p.page0 = defaultPage
	}
	if p.size0 < 1 {
		p.size0 = defaultPageSize
	}
	if p.notifier == nil {
		p.notifier = notify.Discard
	}
	if p.failMsg == "" {
		p.failMsg = defaultFailureMsg
	}
	p.page, p.size = p.page0, p.size0
	if opts.AutoLoad {
		_ = p.LoadData(ctx)
	}
	return p
}

// State returns a copy of the current state.
func (p *Pager[T]) State() State[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State[T]{
		Items:       append([]T(nil), p.items...),
		Total:       p.total,
		CurrentPage: p.page,
		PageSize:    p.size,
		Loading:     p.loading,
		Err:         p.err,
	}
}

// LoadData fetches the current page. The returned error is also recorded
// in State.
func (p *Pager[T]) LoadData(ctx context.Context) error {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	page, size := p.page, p.size
	p.loading = true
	p.mu.Unlock()

	if p.fetch == nil {
		return p.settle(seq, Page[T]{}, errors.New("paging: no fetch function"))
	}
	result, err := p.fetch(ctx, page, size)
	return p.settle(seq, result, err)
}

func (p *Pager[T]) settle(seq uint64, result Page[T], err error) error {
	p.mu.Lock()
	if seq != p.seq {
		p.mu.Unlock()
		return err
	}
	p.loading = false
	if err != nil {
		p.items = nil
		p.err = err
	} else {
		p.items = result.Items
		p.total = result.Total
		p.err = nil
	}
	p.mu.Unlock()

	if err != nil {
		if p.onErr != nil {
			p.onErr(err)
		}
		if !api.Notified(err) && !errors.Is(err, context.Canceled) {
			p.notifier.Notify(notify.Error, p.failMsg)
		}
		return err
	}
	if p.onOK != nil {
		p.onOK(result)
	}
	return nil
}

// GoToPage moves to page n and loads it. Pages outside [1, TotalPages] are
// ignored.
func (p *Pager[T]) GoToPage(ctx context.Context, n int) error {
	p.mu.Lock()
	st := State[T]{Total: p.total, PageSize: p.size}
	if n < 1 || n > st.TotalPages() {
		p.mu.Unlock()
		return nil
	}
	p.page = n
	p.mu.Unlock()
	return p.LoadData(ctx)
}

// NextPage loads the following page if there is one.
func (p *Pager[T]) NextPage(ctx context.Context) error {
	st := p.State()
	if !st.HasNext() {
		return nil
	}
	return p.GoToPage(ctx, st.CurrentPage+1)
}

// PrevPage loads the preceding page if there is one.
func (p *Pager[T]) PrevPage(ctx context.Context) error {
	st := p.State()
	if !st.HasPrev() {
		return nil
	}
	return p.GoToPage(ctx, st.CurrentPage-1)
}

// ChangePageSize switches to size n, returns to page 1 and reloads.
// Non-positive sizes are ignored.
func (p *Pager[T]) ChangePageSize(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	p.mu.Lock()
	p.size = n
	p.page = 1
	p.mu.Unlock()
	return p.LoadData(ctx)
}

// Refresh reloads the current page.
func (p *Pager[T]) Refresh(ctx context.Context) error {
	return p.LoadData(ctx)
}

// Reset restores construction-time defaults without fetching. Loads still
// in flight are discarded when they return.
func (p *Pager[T]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	p.page, p.size = p.page0, p.size0
	p.items = nil
	p.total = 0
	p.loading = false
	p.err = nil
}
