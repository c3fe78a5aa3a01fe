package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the optional notification history.
//
// Driver values:
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Kinds of recorded entries.
const (
	KindStatusChange = "status_change"
	KindFailure      = "failure"
)

// NotificationEntry is one delivery attempt outcome.
// Write-only audit data: nothing in the bot reads it back.
type NotificationEntry struct {
	At     time.Time
	ChatID int64
	Kind   string
	Text   string
	OK     bool
	Error  string
}
