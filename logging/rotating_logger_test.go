package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRotatingLogger(t *testing.T) {
	tempDir := t.TempDir()

	rl, err := NewRotatingLogger(tempDir, 1, 0)
	if err != nil {
		t.Fatalf("NewRotatingLogger() error = %v", err)
	}

	expected := filepath.Join(tempDir, "nvc-"+getWeekKey(time.Now())+".log")
	if _, statErr := os.Stat(expected); os.IsNotExist(statErr) {
		t.Errorf("Expected log file %s was not created", expected)
	}

	if _, err := rl.Write([]byte("Test log message")); err != nil {
		t.Fatalf("Failed to write to log: %v", err)
	}

	if err := rl.Close(); err != nil {
		t.Fatalf("Failed to close logger: %v", err)
	}

	content, err := os.ReadFile(expected)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "Test log message") {
		t.Errorf("Log file does not contain test message: %s", content)
	}
}

func TestGetWeekKey(t *testing.T) {
	tests := []struct {
		when     time.Time
		expected string
	}{
		{time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC), "2025-W41"},
		{time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), "2025-W01"},
		{time.Date(2021, 1, 3, 0, 0, 0, 0, time.UTC), "2020-W53"},
	}

	for _, tt := range tests {
		if got := getWeekKey(tt.when); got != tt.expected {
			t.Errorf("getWeekKey(%s) = %s, want %s", tt.when.Format(time.DateOnly), got, tt.expected)
		}
	}
}

func TestNewRotatingLoggerInvalidDir(t *testing.T) {
	tempDir := t.TempDir()
	blocker := filepath.Join(tempDir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewRotatingLogger(filepath.Join(blocker, "logs"), 1, 0); err == nil {
		t.Error("expected error when log dir cannot be created")
	}
}

func TestCleanupOldLogs(t *testing.T) {
	tempDir := t.TempDir()

	rl, err := NewRotatingLogger(tempDir, 1, 0)
	if err != nil {
		t.Fatalf("NewRotatingLogger() error = %v", err)
	}
	defer rl.Close()

	oldLog := filepath.Join(tempDir, "nvc-2020-W01.log")
	unrelated := filepath.Join(tempDir, "other.log")
	for _, f := range []string{oldLog, unrelated} {
		if err := os.WriteFile(f, []byte("old"), 0644); err != nil {
			t.Fatal(err)
		}
		old := time.Now().Add(-30 * 24 * time.Hour)
		if err := os.Chtimes(f, old, old); err != nil {
			t.Fatal(err)
		}
	}

	if err := rl.cleanupOldLogs(); err != nil {
		t.Fatalf("cleanupOldLogs() error = %v", err)
	}

	if _, err := os.Stat(oldLog); !os.IsNotExist(err) {
		t.Error("expected old log file to be removed")
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Error("files without the log prefix must be kept")
	}
	current := filepath.Join(tempDir, "nvc-"+getWeekKey(time.Now())+".log")
	if _, err := os.Stat(current); err != nil {
		t.Error("current log file must be kept")
	}
}

func TestRotatingLoggerWithSizeLimit(t *testing.T) {
	tempDir := t.TempDir()

	rl, err := NewRotatingLogger(tempDir, 1, 100)
	if err != nil {
		t.Fatalf("NewRotatingLogger() error = %v", err)
	}

	line := strings.Repeat("a", 40) + "\n"
	for i := 0; i < 6; i++ {
		if _, err := rl.Write([]byte(line)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := rl.Close(); err != nil {
		t.Fatal(err)
	}

	week := getWeekKey(time.Now())
	for _, name := range []string{
		"nvc-" + week + ".log",
		"nvc-" + week + "_01.log",
		"nvc-" + week + "_02.log",
	} {
		info, err := os.Stat(filepath.Join(tempDir, name))
		if err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
			continue
		}
		if info.Size() > 100 {
			t.Errorf("%s exceeds size limit: %d bytes", name, info.Size())
		}
	}
}

func TestRotatingLoggerExistingFileAtSizeLimit(t *testing.T) {
	tempDir := t.TempDir()
	week := getWeekKey(time.Now())

	base := filepath.Join(tempDir, "nvc-"+week+".log")
	if err := os.WriteFile(base, []byte(strings.Repeat("x", 100)), 0644); err != nil {
		t.Fatal(err)
	}

	rl, err := NewRotatingLogger(tempDir, 1, 100)
	if err != nil {
		t.Fatalf("NewRotatingLogger() error = %v", err)
	}
	defer rl.Close()

	expected := filepath.Join(tempDir, "nvc-"+week+"_01.log")
	if rl.currentFile.Name() != expected {
		t.Errorf("expected to open %s, got %s", expected, rl.currentFile.Name())
	}
}

func TestRotatingLoggerExistingFileBelowSizeLimit(t *testing.T) {
	tempDir := t.TempDir()
	week := getWeekKey(time.Now())

	base := filepath.Join(tempDir, "nvc-"+week+".log")
	if err := os.WriteFile(base, []byte("small"), 0644); err != nil {
		t.Fatal(err)
	}

	rl, err := NewRotatingLogger(tempDir, 1, 100)
	if err != nil {
		t.Fatalf("NewRotatingLogger() error = %v", err)
	}
	defer rl.Close()

	if rl.currentFile.Name() != base {
		t.Errorf("expected to append to %s, got %s", base, rl.currentFile.Name())
	}
	if rl.currentSize != 5 {
		t.Errorf("expected current size 5, got %d", rl.currentSize)
	}
}

func TestRotatingLoggerConcurrentWrites(t *testing.T) {
	tempDir := t.TempDir()

	rl, err := NewRotatingLogger(tempDir, 1, 0)
	if err != nil {
		t.Fatalf("NewRotatingLogger() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = fmt.Fprintf(rl, "writer %d line %d\n", id, j)
			}
		}(i)
	}
	wg.Wait()

	if err := rl.Close(); err != nil {
		t.Fatal(err)
	}

	content, err := os.ReadFile(filepath.Join(tempDir, "nvc-"+getWeekKey(time.Now())+".log"))
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(content), "\n"); lines != 500 {
		t.Errorf("expected 500 lines, got %d", lines)
	}
}

func TestRotatingLoggerWriteAfterClose(t *testing.T) {
	tempDir := t.TempDir()

	rl, err := NewRotatingLogger(tempDir, 1, 0)
	if err != nil {
		t.Fatalf("NewRotatingLogger() error = %v", err)
	}
	if err := rl.Close(); err != nil {
		t.Fatal(err)
	}

	// A closed logger reopens the week file on the next write
	if _, err := rl.Write([]byte("late line\n")); err != nil {
		t.Errorf("Write() after Close() error = %v", err)
	}
	rl.mu.Lock()
	if rl.currentFile != nil {
		_ = rl.currentFile.Close()
	}
	rl.mu.Unlock()
}

func TestMultiHandlerMethods(t *testing.T) {
	var info, debug strings.Builder
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}}

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("multiHandler should be enabled when any handler is")
	}

	logger := slog.New(h).With("run_id", "abc").WithGroup("fetch")
	logger.Debug("only debug sink", "status", 200)
	logger.Info("both sinks")

	if strings.Contains(info.String(), "only debug sink") {
		t.Error("info handler should not receive debug records")
	}
	if !strings.Contains(debug.String(), "only debug sink") {
		t.Error("debug handler should receive debug records")
	}
	for _, out := range []string{info.String(), debug.String()} {
		if !strings.Contains(out, "both sinks") || !strings.Contains(out, "run_id=abc") {
			t.Errorf("expected info record with attrs in every sink, got: %s", out)
		}
	}
	if !strings.Contains(debug.String(), "fetch.status=200") {
		t.Errorf("expected grouped attribute, got: %s", debug.String())
	}
}
