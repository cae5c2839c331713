package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phac-pdir/nvc-sync/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLogLevel(tt.input)
			if got != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGetConsoleLogLevel(t *testing.T) {
	tests := []struct {
		name        string
		env         config.Environment
		logLevelStr string
		verbose     bool
		expected    slog.Level
	}{
		{"dev defaults to info", config.EnvDevelopment, "", false, slog.LevelInfo},
		{"dev verbose is debug", config.EnvDevelopment, "", true, slog.LevelDebug},
		{"test quiet defaults to error", config.EnvTest, "", false, slog.LevelError},
		{"test verbose defaults to info", config.EnvTest, "", true, slog.LevelInfo},
		{"prod defaults to warn", config.EnvProduction, "", false, slog.LevelWarn},
		{"staging defaults to warn", config.EnvStaging, "", false, slog.LevelWarn},
		{"prod with debug override", config.EnvProduction, "debug", false, slog.LevelDebug},
		{"dev with error override", config.EnvDevelopment, "error", false, slog.LevelError},
		{"test ignores override", config.EnvTest, "debug", false, slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetConsoleLogLevel(tt.env, tt.logLevelStr, tt.verbose)
			if got != tt.expected {
				t.Errorf("GetConsoleLogLevel(%v, %q, %v) = %v, want %v", tt.env, tt.logLevelStr, tt.verbose, got, tt.expected)
			}
		})
	}
}

func TestGetFileLogLevel(t *testing.T) {
	if got := GetFileLogLevel(); got != slog.LevelDebug {
		t.Errorf("GetFileLogLevel() = %v, want %v", got, slog.LevelDebug)
	}
}

func TestSetupLoggerConsoleOnly(t *testing.T) {
	cfg := &config.Config{Env: config.EnvTest}

	logger, rotator := SetupLogger(cfg, false)
	if logger == nil {
		t.Fatal("expected a logger")
	}
	if rotator != nil {
		t.Error("expected no rotating logger without LOG_DIR")
	}
}

func TestSetupLoggerWritesJSONToFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Env:               config.EnvTest,
		LogDir:            dir,
		LogRetentionWeeks: 1,
		MaxLogFileSize:    1024 * 1024,
	}

	logger, rotator := SetupLogger(cfg, false)
	if rotator == nil {
		t.Fatal("expected a rotating logger with LOG_DIR set")
	}

	// Debug goes to the file even though the console only shows errors
	logger.Debug("bundle fetched", "entries", 5)

	if err := rotator.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "nvc-*.log"))
	if len(matches) != 1 {
		t.Fatalf("expected one log file, got %v", matches)
	}
	content, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"bundle fetched"`) {
		t.Errorf("expected JSON record in log file, got: %s", content)
	}
}

func TestInitLoggerAndClose(t *testing.T) {
	defer func() { DefaultLoggingService = nil }()

	InitLogger(nil, false)
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		t.Fatal("expected logging service to be initialized")
	}
	if Logger() != DefaultLoggingService.Logger {
		t.Error("Logger() should return the service logger")
	}

	// No file logger, so Close is a no-op
	if err := Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	Info("info message")
	Warn("warn message")
	Error("error message")
	Debug("debug message")
}

func TestPackageFunctionsWithoutInit(t *testing.T) {
	DefaultLoggingService = nil

	// Must not panic
	Info("fallback info")
	Warn("fallback warn")
	Error("fallback error")
	Debug("fallback debug")

	if Logger() == nil {
		t.Error("Logger() should fall back to slog.Default()")
	}
}
