// Package poller runs the fetch → validate → notify cycle on a fixed
// cadence. Every per-cycle error is caught at the loop boundary, logged,
// best-effort reported to the chat, and the loop sleeps regardless.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hwbot/internal/review"
	logx "hwbot/pkg/logx"
)

// Fetcher is the review API port (satisfied by *review.Client).
type Fetcher interface {
	Fetch(ctx context.Context, from int64) (any, error)
}

// Notifier is the notify-on-change port (satisfied by *notify.Service).
type Notifier interface {
	NotifyChange(ctx context.Context, text string) (sent bool, err error)
	ReportFailure(ctx context.Context, cause error)
}

type Poller struct {
	client Fetcher
	notify Notifier
	log    logx.Logger

	mu    sync.Mutex
	sched Schedule

	// now is swappable for tests.
	now func() time.Time

	// cursor is the from_date passed to the review API. Initialized to
	// startup time: reviews completed while the process was down are not
	// retroactively reported.
	cursor int64
}

func New(client Fetcher, notify Notifier, sched Schedule, log logx.Logger) *Poller {
	if log.IsZero() {
		log = logx.Nop()
	}
	p := &Poller{
		client: client,
		notify: notify,
		sched:  sched,
		log:    log,
		now:    time.Now,
	}
	p.cursor = p.now().Unix()
	return p
}

// SetSchedule swaps the poll cadence; takes effect after the current sleep.
func (p *Poller) SetSchedule(sched Schedule) {
	p.mu.Lock()
	p.sched = sched
	p.mu.Unlock()
}

func (p *Poller) schedule() Schedule {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sched
}

// Cursor returns the current poll cursor (epoch seconds).
func (p *Poller) Cursor() int64 { return p.cursor }

// RunCycle performs one fetch → validate → notify pass.
//
// The poll cursor advances to the server-supplied current_date only when the
// cycle fully succeeds: a delivery failure leaves it unchanged so the same
// review is re-fetched (and the notification retried) next cycle. An empty
// entry list is a no-op and also leaves the cursor unchanged.
func (p *Poller) RunCycle(ctx context.Context) error {
	body, err := p.client.Fetch(ctx, p.cursor)
	if err != nil {
		return err
	}

	homeworks, err := review.CheckResponse(body)
	if err != nil {
		return err
	}
	if len(homeworks) == 0 {
		p.log.Debug("no review updates", logx.Int64("from_date", p.cursor))
		return nil
	}

	// Only the most recent entry is considered.
	text, err := review.ParseStatus(homeworks[0])
	if err != nil {
		return err
	}

	if _, err := p.notify.NotifyChange(ctx, text); err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}

	cur, ok := review.CurrentDate(body)
	if !ok {
		cur = p.now().Unix()
	}
	p.cursor = cur
	return nil
}

// Run executes cycles until ctx is done. It never returns an error under
// normal operation: per-cycle failures are absorbed here.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("poller started",
		logx.Int64("from_date", p.cursor),
		logx.String("schedule", p.schedule().String()),
	)

	for {
		if err := p.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.log.Error("poll cycle failed", logx.Err(err))
			p.notify.ReportFailure(ctx, err)
		}

		wait := p.schedule().NextWait(p.now())
		p.log.Debug("waiting for next cycle", logx.Duration("wait", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.log.Info("poller stopped")
			return nil
		case <-timer.C:
		}
	}
}
