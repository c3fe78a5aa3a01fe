package logx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFatalPassesErrorLevelFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	svc, log := New(Config{
		Level:   "error",
		Console: false,
		File:    FileConfig{Enabled: true, Path: path},
	})
	defer svc.Close()

	log.Debug("dropped")
	log.Fatal("credential check failed", String("k", "v"))

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	out := string(b)
	if !strings.Contains(out, `"level":"fatal"`) {
		t.Fatalf("expected a fatal-level record, got: %s", out)
	}
	if !strings.Contains(out, "credential check failed") {
		t.Fatalf("expected the message in output, got: %s", out)
	}
	if strings.Contains(out, "dropped") {
		t.Fatalf("debug record must not pass the error filter: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.raw, LevelInfo); got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
