package config

import (
	"fmt"
	"sort"
	"strings"
)

// Env variable names for the required credentials.
const (
	EnvPracticumToken = "PRACTICUM_TOKEN"
	EnvTelegramToken  = "TELEGRAM_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"
)

// Config is the full runtime configuration.
//
// Non-secret knobs come from an optional JSON/YAML file; secrets come from
// the environment only (see ReadSecrets) and are never part of the file or
// of hot reload.
type Config struct {
	Review  ReviewConfig  `json:"review"`
	Poll    PollConfig    `json:"poll"`
	Logging LoggingConfig `json:"logging"`
	Notify  NotifyConfig  `json:"notify,omitempty"`
	Storage StorageConfig `json:"storage,omitempty"`

	// Secrets are attached after ReadSecrets; excluded from file decode.
	Secrets Secrets `json:"-"`
}

type ReviewConfig struct {
	// Endpoint is the homework status URL. Defaults to the hosted service.
	Endpoint string `json:"endpoint,omitempty"`
	// Timeout is a Go duration string bounding one API call (default "30s").
	Timeout string `json:"timeout,omitempty"`
}

type PollConfig struct {
	// Schedule is either a Go duration ("10m") or a cron expression
	// ("*/10 * * * *", "@hourly"). Default: "10m".
	Schedule string `json:"schedule,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console *bool       `json:"console,omitempty"` // default true
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type NotifyConfig struct {
	// RatePerSec caps outbound Telegram sends (default 1).
	RatePerSec int `json:"rate_per_sec,omitempty"`
	// SendTimeout is a Go duration string bounding one delivery (default "10s").
	SendTimeout string `json:"send_timeout,omitempty"`
}

// StorageConfig controls the optional notification history.
//
// Driver values:
//   - "" or "none": disabled
//   - "sqlite": SQLite database file
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// Secrets holds the three required credentials.
type Secrets struct {
	PracticumToken string
	TelegramToken  string
	ChatID         int64
}

// MissingCredentialError names every absent required credential.
type MissingCredentialError struct {
	Names []string
}

func (e *MissingCredentialError) Error() string {
	names := append([]string(nil), e.Names...)
	sort.Strings(names)
	return fmt.Sprintf("missing required credentials: %s", strings.Join(names, ", "))
}

func (c *Config) ConsoleLogging() bool {
	if c.Logging.Console == nil {
		return true
	}
	return *c.Logging.Console
}
