package poller

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule is the poll cadence: either a fixed interval or a cron
// expression. The cadence is the same for success and failure cycles.
//
// Supported forms:
//   - Go duration: "10m", "2h30m"
//   - Cron (crontab.guru-style): "*/10 * * * *", "@hourly", "@every 10m"
//   - Optional "cron:" prefix forces cron parsing
type Schedule struct {
	every  time.Duration
	cron   cron.Schedule
	source string // "duration" | "cron"
}

// ParseSchedule parses a schedule string.
func ParseSchedule(raw string) (Schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Schedule{}, fmt.Errorf("schedule required")
	}

	if strings.HasPrefix(strings.ToLower(s), "cron:") {
		expr := strings.TrimSpace(s[len("cron:"):])
		if expr == "" {
			return Schedule{}, fmt.Errorf("cron schedule required after 'cron:'")
		}
		return parseCron(expr)
	}

	// Heuristic: any whitespace or leading '@' means cron.
	if strings.ContainsAny(s, " \t\n\r") || strings.HasPrefix(s, "@") {
		return parseCron(s)
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return Schedule{}, fmt.Errorf(
			"invalid schedule %q (use a duration like '10m' or cron like '*/10 * * * *')", raw)
	}
	if d <= 0 {
		return Schedule{}, fmt.Errorf("interval must be > 0")
	}
	return Schedule{every: d, source: "duration"}, nil
}

func parseCron(expr string) (Schedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return Schedule{cron: sched, source: "cron"}, nil
}

// NextWait returns how long to sleep after a cycle that ended at now.
func (s Schedule) NextWait(now time.Time) time.Duration {
	if s.every > 0 {
		return s.every
	}
	if s.cron != nil {
		d := s.cron.Next(now).Sub(now)
		if d < 0 {
			d = 0
		}
		return d
	}
	// Zero value: fall back to the default cadence.
	return 10 * time.Minute
}

func (s Schedule) String() string {
	if s.every > 0 {
		return s.every.String()
	}
	if s.cron != nil {
		return "cron"
	}
	return "default"
}
