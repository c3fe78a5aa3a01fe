// Package app wires configuration, logging, the Telegram adapter, the
// review client and the poller together, and owns their lifecycle.
package app

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"hwbot/internal/config"
	"hwbot/internal/notify"
	"hwbot/internal/poller"
	"hwbot/internal/review"
	rtsup "hwbot/internal/runtime/supervisor"
	"hwbot/internal/storage"
	"hwbot/internal/transport/telegram"
	logx "hwbot/pkg/logx"
)

type App struct {
	cfg  *config.Config
	cfgm *config.Manager

	logs *logx.Service
	log  logx.Logger

	store storage.Store
	poll  *poller.Poller

	sup *rtsup.Supervisor
}

// New performs the startup sequence. The credential check runs first and is
// the only failure allowed to terminate the process; everything after it is
// plain wiring.
func New(cfgPath string) (*App, error) {
	config.LoadEnv()

	boot := logx.NewConsole("info")
	secrets, err := config.ReadSecrets(nil)
	if err != nil {
		boot.Fatal("credential check failed", logx.Err(err))
		return nil, err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	cfg.Secrets = secrets

	logs, log := logx.New(logConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	sendTimeout, err := config.DurationField("notify.send_timeout", cfg.Notify.SendTimeout, 10*time.Second)
	if err != nil {
		logs.Close()
		return nil, err
	}
	fetchTimeout, err := config.DurationField("review.timeout", cfg.Review.Timeout, 30*time.Second)
	if err != nil {
		logs.Close()
		return nil, err
	}
	busyTimeout, err := config.DurationField("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
	if err != nil {
		logs.Close()
		return nil, err
	}
	sched, err := poller.ParseSchedule(cfg.Poll.Schedule)
	if err != nil {
		logs.Close()
		return nil, err
	}

	ad, err := telegram.New(telegram.Config{Token: secrets.TelegramToken})
	if err != nil {
		logs.Close()
		return nil, err
	}

	// Last fallible step: everything below must not error, so an early
	// return can never leak an open store.
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		logs.Close()
		return nil, err
	}

	notif := notify.New(notify.Config{
		ChatID:      secrets.ChatID,
		RatePerSec:  cfg.Notify.RatePerSec,
		SendTimeout: sendTimeout,
	}, ad, log.With(logx.String("comp", "notify")), store)

	client := review.NewClient(review.Config{
		Endpoint: cfg.Review.Endpoint,
		Token:    secrets.PracticumToken,
		Timeout:  fetchTimeout,
	}, log.With(logx.String("comp", "review")))

	poll := poller.New(client, notif, sched, log.With(logx.String("comp", "poller")))

	cfgm := config.NewManager(cfgPath, log.With(logx.String("comp", "config")))
	cfgm.Commit(cfg)

	return &App{
		cfg:   cfg,
		cfgm:  cfgm,
		logs:  logs,
		log:   log,
		store: store,
		poll:  poll,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log))

	a.sup.GoRestart("poller", a.poll.Run)

	if a.cfgm.Exists() {
		a.sup.Go("config.watch", a.cfgm.Watch)
		a.sup.Go("config.apply", a.applyReloads)
	}

	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		a.sup.Go("watchdog", func(ctx context.Context) error {
			return watchdogLoop(ctx, interval)
		})
	}

	// Best-effort; no-op outside systemd.
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	var err error
	if a.sup != nil {
		err = a.sup.Stop(ctx)
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	a.log.Info("stopped")
	a.logs.Close()
	return err
}

// applyReloads consumes config updates from the manager and applies the
// hot-swappable knobs: log level/sinks and the poll schedule. Everything
// else (endpoint, storage, chat) requires a restart.
func (a *App) applyReloads(ctx context.Context) error {
	ch := a.cfgm.Subscribe(1)
	defer a.cfgm.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg, ok := <-ch:
			if !ok || cfg == nil {
				return nil
			}
			a.logs.Apply(logConfig(cfg))
			if sched, err := poller.ParseSchedule(cfg.Poll.Schedule); err != nil {
				a.log.Warn("reload: bad poll schedule; keeping current", logx.Err(err))
			} else {
				a.poll.SetSchedule(sched)
			}
		}
	}
}

func watchdogLoop(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}

func logConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.ConsoleLogging(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}
