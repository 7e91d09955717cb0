package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/tickerdeck/internal/api"
	"github.com/five82/tickerdeck/internal/state"
)

const (
	defaultPollInterval = 60 * time.Second
	calendarEvery       = time.Hour
	maxBackoff          = 10 * time.Minute
)

// MarketSource is the part of the API the poller reads.
type MarketSource interface {
	TradeDates(ctx context.Context) ([]string, error)
	DailySummary(ctx context.Context, date string) (*api.DailySummary, error)
}

// StartPoller launches a background goroutine that refreshes the store. The
// daily summary is fetched every interval, the trading calendar once and then
// hourly. Failures back off exponentially. It returns immediately.
func StartPoller(ctx context.Context, store *state.Store, source MarketSource, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		p := poller{store: store, source: source, log: logger}
		for {
			p.refresh(ctx, time.Now())
			wait := calculateBackoff(p.failures, interval)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}()
}

// calculateBackoff doubles the base interval per consecutive failure, capped
// at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}

type poller struct {
	store    *state.Store
	source   MarketSource
	log      zerolog.Logger
	failures int
	calendar time.Time // last successful calendar fetch
}

func (p *poller) refresh(ctx context.Context, now time.Time) {
	var dates []string
	if p.calendar.IsZero() || now.Sub(p.calendar) >= calendarEvery {
		fetched, err := p.source.TradeDates(ctx)
		if err != nil {
			p.fail(ctx, err, "trade dates poll failed")
			return
		}
		if fetched == nil {
			fetched = []string{}
		}
		dates = fetched
		p.calendar = now
	}

	summary, err := p.source.DailySummary(ctx, "")
	if err != nil {
		if dates != nil {
			p.store.Update(dates, nil, nil)
		}
		p.fail(ctx, err, "daily summary poll failed")
		return
	}
	p.store.Update(dates, summary, nil)
	p.failures = 0
}

func (p *poller) fail(ctx context.Context, err error, msg string) {
	if ctx.Err() != nil {
		return
	}
	p.failures++
	p.store.Update(nil, nil, err)
	p.log.Warn().Err(err).Int("failures", p.failures).Msg(msg)
}
