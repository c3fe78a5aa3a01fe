package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "hwbot/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", "NONE"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q) error: %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q) = %v, want nil", driver, st)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestSQLiteAppendNotification(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "hwbot.db")
	st, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	entries := []NotificationEntry{
		{ChatID: 42, Kind: KindStatusChange, Text: "status A", OK: true},
		{ChatID: 42, Kind: KindFailure, Text: "boom", OK: false, Error: "telegram down"},
	}
	for _, e := range entries {
		if err := st.AppendNotification(ctx, e); err != nil {
			t.Fatalf("AppendNotification: %v", err)
		}
	}

	ss, ok := st.(*sqliteStore)
	if !ok {
		t.Fatalf("unexpected store type %T", st)
	}
	var n int
	if err := ss.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`).Scan(&n); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}

	var okFlag int
	var errText string
	row := ss.db.QueryRowContext(ctx,
		`SELECT ok, err FROM notifications WHERE kind = ?`, KindFailure)
	if err := row.Scan(&okFlag, &errText); err != nil {
		t.Fatalf("row scan: %v", err)
	}
	if okFlag != 0 || errText != "telegram down" {
		t.Fatalf("unexpected failure row: ok=%d err=%q", okFlag, errText)
	}
}
