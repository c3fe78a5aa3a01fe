package poller

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"hwbot/internal/notify"
	"hwbot/internal/review"
	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

type fakeClient struct {
	mu     sync.Mutex
	bodies []any
	errs   []error
	calls  int
	froms  []int64
}

func (f *fakeClient) Fetch(ctx context.Context, from int64) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.froms = append(f.froms, from)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(f.bodies) {
		return f.bodies[i], nil
	}
	return f.bodies[len(f.bodies)-1], nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSender) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return kit.MessageRef{}, f.err
	}
	f.sent = append(f.sent, text)
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

func (f *fakeSender) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeSender) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func body(status, name string, currentDate int64) any {
	m := map[string]any{
		"homeworks": []any{
			map[string]any{"status": status, "homework_name": name},
		},
	}
	if currentDate != 0 {
		m["current_date"] = json.Number(intStr(currentDate))
	}
	return m
}

func intStr(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func newTestPoller(client Fetcher, sender kit.Sender) (*Poller, *notify.Service) {
	n := notify.New(notify.Config{ChatID: 7, RatePerSec: 100}, sender, logx.Nop(), nil)
	sched, _ := ParseSchedule("10m")
	p := New(client, n, sched, logx.Nop())
	return p, n
}

func TestRunCycleSendsAndAdvancesCursor(t *testing.T) {
	t.Parallel()
	fc := &fakeClient{bodies: []any{body("reviewing", "X", 1000)}}
	fs := &fakeSender{}
	p, _ := newTestPoller(fc, fs)
	p.cursor = 500

	if err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle error: %v", err)
	}
	if len(fs.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(fs.sent))
	}
	if !strings.Contains(fs.sent[0], "X") || !strings.Contains(fs.sent[0], "Работа взята на проверку") {
		t.Fatalf("unexpected notification text: %q", fs.sent[0])
	}
	if p.Cursor() != 1000 {
		t.Fatalf("cursor = %d, want 1000", p.Cursor())
	}
	if fc.froms[0] != 500 {
		t.Fatalf("from_date = %d, want 500", fc.froms[0])
	}
}

func TestRunCycleEmptyListIsNoop(t *testing.T) {
	t.Parallel()
	fc := &fakeClient{bodies: []any{map[string]any{
		"homeworks":    []any{},
		"current_date": json.Number("9999"),
	}}}
	fs := &fakeSender{}
	p, _ := newTestPoller(fc, fs)
	p.cursor = 500

	if err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle error: %v", err)
	}
	if len(fs.sent) != 0 {
		t.Fatalf("expected no notifications, got %d", len(fs.sent))
	}
	if p.Cursor() != 500 {
		t.Fatalf("cursor = %d, want unchanged 500", p.Cursor())
	}
}

func TestRunCycleDeliveryFailureKeepsCursor(t *testing.T) {
	t.Parallel()
	fc := &fakeClient{bodies: []any{body("approved", "X", 2000)}}
	fs := &fakeSender{err: errors.New("telegram down")}
	p, _ := newTestPoller(fc, fs)
	p.cursor = 500

	if err := p.RunCycle(context.Background()); err == nil {
		t.Fatal("expected delivery error")
	}
	if p.Cursor() != 500 {
		t.Fatalf("cursor = %d, want unchanged 500", p.Cursor())
	}

	// Next cycle re-fetches with the same cursor and retries the send.
	fs.err = nil
	if err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle retry error: %v", err)
	}
	if len(fs.sent) != 1 {
		t.Fatalf("expected 1 notification after recovery, got %d", len(fs.sent))
	}
	if fc.froms[1] != 500 {
		t.Fatalf("retry from_date = %d, want 500", fc.froms[1])
	}
	if p.Cursor() != 2000 {
		t.Fatalf("cursor = %d, want 2000", p.Cursor())
	}
}

func TestRunCycleShapeErrorAborts(t *testing.T) {
	t.Parallel()
	fc := &fakeClient{bodies: []any{[]any{"not", "an", "object"}}}
	fs := &fakeSender{}
	p, _ := newTestPoller(fc, fs)
	p.cursor = 500

	err := p.RunCycle(context.Background())
	var se *review.ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
	if len(fs.sent) != 0 {
		t.Fatalf("expected no notifications, got %d", len(fs.sent))
	}
	if p.Cursor() != 500 {
		t.Fatalf("cursor = %d, want unchanged 500", p.Cursor())
	}
}

func TestRunCycleServerErrorKeepsCursor(t *testing.T) {
	t.Parallel()
	fc := &fakeClient{errs: []error{&review.StatusError{Code: 500}}, bodies: []any{nil}}
	fs := &fakeSender{}
	p, _ := newTestPoller(fc, fs)
	p.cursor = 500

	err := p.RunCycle(context.Background())
	var se *review.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if len(fs.sent) != 0 {
		t.Fatalf("expected no notifications, got %d", len(fs.sent))
	}
	if p.Cursor() != 500 {
		t.Fatalf("cursor = %d, want unchanged 500", p.Cursor())
	}
}

func TestRunCycleMissingCurrentDateFallsBackToNow(t *testing.T) {
	t.Parallel()
	fc := &fakeClient{bodies: []any{body("approved", "X", 0)}}
	fs := &fakeSender{}
	p, _ := newTestPoller(fc, fs)
	p.cursor = 500
	p.now = func() time.Time { return time.Unix(7777, 0) }

	if err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle error: %v", err)
	}
	if p.Cursor() != 7777 {
		t.Fatalf("cursor = %d, want 7777", p.Cursor())
	}
}

// Three-cycle scenario: a new review, the same review unchanged, then the
// review flipping to approved.
func TestEndToEndStatusTransitions(t *testing.T) {
	t.Parallel()
	fc := &fakeClient{bodies: []any{
		body("reviewing", "X", 1000),
		body("reviewing", "X", 1000),
		body("approved", "X", 2000),
	}}
	fs := &fakeSender{}
	p, _ := newTestPoller(fc, fs)

	if err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle 1: %v", err)
	}
	if len(fs.sent) != 1 || !strings.Contains(fs.sent[0], "X") {
		t.Fatalf("cycle 1: sent = %v", fs.sent)
	}
	if !strings.Contains(fs.sent[0], "Работа взята на проверку ревьюером.") {
		t.Fatalf("cycle 1: wrong verdict: %q", fs.sent[0])
	}

	if err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle 2: %v", err)
	}
	if len(fs.sent) != 1 {
		t.Fatalf("cycle 2: expected no new notifications, sent = %v", fs.sent)
	}

	if err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle 3: %v", err)
	}
	if len(fs.sent) != 2 {
		t.Fatalf("cycle 3: expected a second notification, sent = %v", fs.sent)
	}
	if !strings.Contains(fs.sent[1], "ревьюеру всё понравилось") {
		t.Fatalf("cycle 3: wrong verdict: %q", fs.sent[1])
	}
	if p.Cursor() != 2000 {
		t.Fatalf("cursor = %d, want 2000", p.Cursor())
	}
}

// Run absorbs per-cycle failures: the loop keeps going and the failure is
// reported at most once per distinct error text.
func TestRunReportsFailuresOnce(t *testing.T) {
	t.Parallel()
	fc := &fakeClient{
		errs:   []error{&review.StatusError{Code: 500}, &review.StatusError{Code: 500}},
		bodies: []any{nil, nil, body("approved", "X", 3000)},
	}
	fs := &fakeSender{}
	p, _ := newTestPoller(fc, fs)
	sched, _ := ParseSchedule("1ms")
	p.SetSchedule(sched)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()

	hasStatus := func() bool {
		for _, s := range fs.snapshot() {
			if !strings.HasPrefix(s, "Сбой в работе программы:") {
				return true
			}
		}
		return false
	}
	deadline := time.After(5 * time.Second)
	for !hasStatus() {
		select {
		case <-deadline:
			t.Fatalf("poller did not deliver the status notification in time (calls=%d, sent=%v)",
				fc.callCount(), fs.snapshot())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	var failures, statuses int
	for _, s := range fs.snapshot() {
		if strings.HasPrefix(s, "Сбой в работе программы:") {
			failures++
		} else {
			statuses++
		}
	}
	if failures != 1 {
		t.Fatalf("expected exactly 1 failure report, got %d (%v)", failures, fs.sent)
	}
	if statuses < 1 {
		t.Fatalf("expected the status notification after recovery, got %v", fs.sent)
	}
}
