package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/tickerdeck/internal/notify"
)

type recorder struct {
	mu      sync.Mutex
	queries []string
	results []string
	err     error
}

func (r *recorder) search(_ context.Context, q string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, q)
	if r.err != nil {
		return nil, r.err
	}
	return append([]string(nil), r.results...), nil
}

func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}

func waitDone(t *testing.T, ch <-chan State[string]) State[string] {
	t.Helper()
	select {
	case st := <-ch:
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("search did not settle")
		return State[string]{}
	}
}

func TestSearch_DebounceCollapsesTriggers(t *testing.T) {
	rec := &recorder{results: []string{"600519 Kweichow Moutai"}}
	done := make(chan State[string], 4)
	s := New(Options[string]{
		Search:   rec.search,
		Debounce: 30 * time.Millisecond,
		OnDone:   func(st State[string]) { done <- st },
	})
	defer s.Close()

	ctx := context.Background()
	for _, q := range []string{"6", "60", "600", " 6005 "} {
		s.Search(ctx, q)
	}

	st := waitDone(t, done)
	assert.Equal(t, []string{"6005"}, rec.calls(), "one call with the last trimmed query")
	assert.Equal(t, []string{"600519 Kweichow Moutai"}, st.Results)
	assert.False(t, st.Loading)

	select {
	case <-done:
		t.Fatal("superseded triggers must not run")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Len(t, rec.calls(), 1)
}

func TestSearch_ShortQueryClearsWithoutCall(t *testing.T) {
	rec := &recorder{results: []string{"x"}}
	done := make(chan State[string], 2)
	s := New(Options[string]{
		Search:    rec.search,
		Debounce:  10 * time.Millisecond,
		MinLength: 2,
		OnDone:    func(st State[string]) { done <- st },
	})
	defer s.Close()

	s.Search(context.Background(), "a")
	st := waitDone(t, done)

	assert.Empty(t, rec.calls())
	assert.Empty(t, st.Results)

	s.SetQuery("  ")
	require.NoError(t, s.Execute(context.Background()))
	assert.Empty(t, rec.calls())
}

func TestSearch_MinLengthCountsCharacters(t *testing.T) {
	rec := &recorder{results: []string{"600036 招商银行"}}
	s := New(Options[string]{Search: rec.search, MinLength: 2})

	s.SetQuery("招商")
	require.NoError(t, s.Execute(context.Background()))

	assert.Equal(t, []string{"招商"}, rec.calls())
	assert.Equal(t, []string{"600036 招商银行"}, s.State().Results)
}

func TestExecute_FailureClearsResultsAndNotifies(t *testing.T) {
	rec := &recorder{results: []string{"a1", "a2"}}
	notices := &notify.Recorder{}
	var gotErr error
	s := New(Options[string]{
		Search:   rec.search,
		Notifier: notices,
		OnError:  func(err error) { gotErr = err },
	})
	s.SetQuery("a")
	require.NoError(t, s.Execute(context.Background()))
	require.Len(t, s.State().Results, 2)

	boom := errors.New("boom")
	rec.err = boom
	err := s.Execute(context.Background())

	assert.ErrorIs(t, err, boom)
	st := s.State()
	assert.Empty(t, st.Results)
	assert.ErrorIs(t, st.Err, boom)
	assert.False(t, st.Loading)
	assert.Equal(t, boom, gotErr)
	got := notices.Notices()
	require.Len(t, got, 1)
	assert.Equal(t, "search failed, please retry", got[0].Message)
}

func TestExecute_SuccessCallback(t *testing.T) {
	rec := &recorder{results: []string{"r"}}
	var got []string
	s := New(Options[string]{Search: rec.search, OnSuccess: func(r []string) { got = r }})

	s.SetQuery("r")
	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"r"}, got)
}

func TestReset_ClearsEverythingAndCancelsPending(t *testing.T) {
	rec := &recorder{results: []string{"r"}}
	s := New(Options[string]{Search: rec.search, Debounce: 20 * time.Millisecond})

	s.SetQuery("first")
	require.NoError(t, s.Execute(context.Background()))
	s.Search(context.Background(), "second")
	s.Reset()

	assert.Equal(t, State[string]{}, s.State())
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []string{"first"}, rec.calls(), "pending trigger was cancelled")
}

func TestReset_DropsInFlightResponse(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := New(Options[string]{Search: func(context.Context, string) ([]string, error) {
		close(started)
		<-release
		return []string{"late"}, nil
	}})

	s.SetQuery("q")
	done := make(chan struct{})
	go func() {
		_ = s.Execute(context.Background())
		close(done)
	}()
	<-started
	assert.True(t, s.State().Loading)

	s.Reset()
	close(release)
	<-done

	assert.Equal(t, State[string]{}, s.State())
}

func TestExecute_NewerRunWins(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	n := 0
	s := New(Options[string]{Search: func(_ context.Context, q string) ([]string, error) {
		mu.Lock()
		n++
		first := n == 1
		mu.Unlock()
		if first {
			close(started)
			<-release
		}
		return []string{q}, nil
	}})

	s.SetQuery("old")
	done := make(chan struct{})
	go func() {
		_ = s.Execute(context.Background())
		close(done)
	}()
	<-started

	s.SetQuery("new")
	require.NoError(t, s.Execute(context.Background()))
	close(release)
	<-done

	assert.Equal(t, []string{"new"}, s.State().Results)
}
