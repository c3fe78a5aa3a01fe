// Package notify delivers status-change messages to the fixed chat and keeps
// the two dedup baselines: the last successfully delivered status text and
// the last reported failure text.
package notify

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"hwbot/internal/storage"
	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

type Config struct {
	ChatID int64
	// RatePerSec caps outbound sends (default 1).
	RatePerSec int
	// SendTimeout bounds one delivery call (default 10s).
	SendTimeout time.Duration
}

// Service is the notify-on-change step.
//
// The delivery baseline (lastText) advances only when a send actually
// landed, so a transient Telegram failure makes the next cycle retry the
// same text instead of silently dropping the status change.
type Service struct {
	cfg     Config
	sender  kit.Sender
	log     logx.Logger
	store   storage.Store
	limiter *rate.Limiter

	lastText string
	// lastErrText starts empty on purpose: the very first failure of a
	// process lifetime must be reported.
	lastErrText string
}

func New(cfg Config, sender kit.Sender, log logx.Logger, store storage.Store) *Service {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:     cfg,
		sender:  sender,
		log:     log,
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

// NotifyChange delivers text if it differs from the last delivered status.
// Returns sent=false with a nil error when the text is unchanged (no
// delivery attempted); on delivery failure the baseline stays as-is so the
// send is retried once the caller comes back with the same text.
func (s *Service) NotifyChange(ctx context.Context, text string) (sent bool, err error) {
	if text == s.lastText {
		s.log.Debug("homework status unchanged")
		return false, nil
	}

	if err := s.send(ctx, text); err != nil {
		s.record(ctx, storage.KindStatusChange, text, err)
		return false, err
	}

	s.lastText = text
	s.record(ctx, storage.KindStatusChange, text, nil)
	s.log.Info("status change notification sent")
	return true, nil
}

// ReportFailure best-effort announces a cycle failure to the chat,
// suppressing repeats of the same message text. Delivery problems are
// logged and never returned: failure reporting must not fail the loop.
func (s *Service) ReportFailure(ctx context.Context, cause error) {
	msg := "Сбой в работе программы: " + cause.Error()
	if msg == s.lastErrText {
		s.log.Debug("failure already reported; suppressing")
		return
	}

	if err := s.send(ctx, msg); err != nil {
		s.log.Error("failed to deliver failure report", logx.Err(err))
		s.record(ctx, storage.KindFailure, msg, err)
		return
	}

	s.lastErrText = msg
	s.record(ctx, storage.KindFailure, msg, nil)
}

func (s *Service) send(ctx context.Context, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	sctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()

	s.log.Debug("sending message", logx.Int64("chat_id", s.cfg.ChatID))
	_, err := s.sender.SendText(sctx, kit.ChatTarget{ChatID: s.cfg.ChatID}, text, nil)
	return err
}

func (s *Service) record(ctx context.Context, kind, text string, sendErr error) {
	if s.store == nil {
		return
	}
	e := storage.NotificationEntry{
		At:     time.Now(),
		ChatID: s.cfg.ChatID,
		Kind:   kind,
		Text:   text,
		OK:     sendErr == nil,
	}
	if sendErr != nil {
		e.Error = sendErr.Error()
	}
	wctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	if err := s.store.AppendNotification(wctx, e); err != nil {
		s.log.Debug("history append failed", logx.Err(err))
	}
}
