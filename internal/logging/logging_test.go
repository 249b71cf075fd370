package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEventFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.log")
	l, err := New(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.Event("203.0.113.5:2342", "server timed out")
	l.System("listening on :2342")
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}
	if !strings.Contains(lines[0], "203.0.113.5:2342 server timed out") {
		t.Fatalf("unexpected line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "- listening on :2342") {
		t.Fatalf("unexpected line: %q", lines[1])
	}
}

func TestNewFailsOnUnwritablePath(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing-dir", "x.log")); err == nil {
		t.Fatal("expected error opening log file in missing directory")
	}
}
