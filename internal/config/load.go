package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	yaml "go.yaml.in/yaml/v3"
)

const defaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

// LoadEnv loads a .env file if present. Absence is not an error; explicit
// environment always wins over the file (godotenv semantics).
func LoadEnv() {
	_ = godotenv.Load()
}

// Load reads the optional config file and applies defaults.
// An empty path or a missing file yields the default configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else {
			parsed, err := parseBytes(path, b)
			if err != nil {
				return nil, err
			}
			cfg = parsed
		}
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseBytes(path string, b []byte) (*Config, error) {
	// YAML goes through a JSON round-trip so both formats share the strict
	// decoder below. yaml/v3 decodes mappings into map[string]any, so the
	// intermediate value marshals to JSON directly.
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var v any
		if err := yaml.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("yaml unmarshal: %w", err)
		}
		jb, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("yaml to json: %w", err)
		}
		b = jb
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Review.Endpoint) == "" {
		cfg.Review.Endpoint = defaultEndpoint
	}
	if strings.TrimSpace(cfg.Poll.Schedule) == "" {
		cfg.Poll.Schedule = "10m"
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Notify.RatePerSec <= 0 {
		cfg.Notify.RatePerSec = 1
	}
}

// DurationField parses one of the duration-as-string config knobs.
// An empty value yields def; negative durations are rejected.
func DurationField(name, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", name, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", name)
	}
	return d, nil
}

func validate(cfg *Config) error {
	if _, err := DurationField("review.timeout", cfg.Review.Timeout, 0); err != nil {
		return err
	}
	if _, err := DurationField("notify.send_timeout", cfg.Notify.SendTimeout, 0); err != nil {
		return err
	}
	if _, err := DurationField("storage.busy_timeout", cfg.Storage.BusyTimeout, 0); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "none", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver)
	}
	return nil
}

// ReadSecrets performs the startup credential check.
//
// Every absent or empty required value is collected so the resulting
// MissingCredentialError names all of them at once. getenv defaults to
// os.Getenv.
func ReadSecrets(getenv func(string) string) (Secrets, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	var missing []string
	practicum := strings.TrimSpace(getenv(EnvPracticumToken))
	if practicum == "" {
		missing = append(missing, EnvPracticumToken)
	}
	telegram := strings.TrimSpace(getenv(EnvTelegramToken))
	if telegram == "" {
		missing = append(missing, EnvTelegramToken)
	}
	chatRaw := strings.TrimSpace(getenv(EnvTelegramChatID))
	if chatRaw == "" {
		missing = append(missing, EnvTelegramChatID)
	}
	if len(missing) > 0 {
		return Secrets{}, &MissingCredentialError{Names: missing}
	}

	chatID, err := strconv.ParseInt(chatRaw, 10, 64)
	if err != nil {
		return Secrets{}, fmt.Errorf("%s: not a valid chat id: %w", EnvTelegramChatID, err)
	}

	return Secrets{
		PracticumToken: practicum,
		TelegramToken:  telegram,
		ChatID:         chatID,
	}, nil
}
