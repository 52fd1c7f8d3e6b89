package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setupTestLogger creates a temp log file and initializes the logger with it.
func setupTestLogger(t *testing.T) (string, func()) {
	t.Helper()
	Reset()

	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test-debug.log")
	if err := Init(logPath); err != nil {
		t.Fatalf("Failed to init logger: %v", err)
	}

	return logPath, func() {
		Reset()
	}
}

func TestGet(t *testing.T) {
	_, cleanup := setupTestLogger(t)
	defer cleanup()

	log := Get()
	if log == nil {
		t.Fatal("Get() returned nil")
	}

	// Should not panic
	log.Info("test message")
	log.Debug("debug message", "key", "value")
	log.Warn("warning", "count", 42)
	log.Error("error occurred", "err", "something failed")
}

func TestGet_StructuredLogging(t *testing.T) {
	logPath, cleanup := setupTestLogger(t)
	defer cleanup()

	log := Get()
	log.Info("recap generated", "sessions", 3, "window", "yesterday")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	contentStr := string(content)

	if !strings.Contains(contentStr, "recap generated") {
		t.Error("Should contain message")
	}
	if !strings.Contains(contentStr, "sessions=3") {
		t.Error("Should contain sessions=3")
	}
	if !strings.Contains(contentStr, "window=yesterday") {
		t.Error("Should contain window=yesterday")
	}
}

func TestWithSession(t *testing.T) {
	logPath, cleanup := setupTestLogger(t)
	defer cleanup()

	log := WithSession("abc-123")
	log.Info("session event")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	if !strings.Contains(string(content), "sessionID=abc-123") {
		t.Error("Should contain sessionID field")
	}
}

func TestWithComponent(t *testing.T) {
	logPath, cleanup := setupTestLogger(t)
	defer cleanup()

	log := WithComponent("identity")
	log.Info("component event")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	if !strings.Contains(string(content), "component=identity") {
		t.Error("Should contain component field")
	}
}

func TestSetDebug(t *testing.T) {
	logPath, cleanup := setupTestLogger(t)
	defer cleanup()

	// Debug disabled by default
	Get().Debug("hidden message")

	SetDebug(true)
	Get().Debug("visible message")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	contentStr := string(content)

	if strings.Contains(contentStr, "hidden message") {
		t.Error("Debug message should be suppressed before SetDebug(true)")
	}
	if !strings.Contains(contentStr, "visible message") {
		t.Error("Debug message should appear after SetDebug(true)")
	}
}

func TestClose(t *testing.T) {
	_, cleanup := setupTestLogger(t)
	defer cleanup()

	// Close should not panic
	Close()
}

func TestInit_Idempotent(t *testing.T) {
	logPath, cleanup := setupTestLogger(t)
	defer cleanup()

	// Second Init should be a no-op, not an error
	if err := Init(filepath.Join(t.TempDir(), "other.log")); err != nil {
		t.Fatalf("second Init: %v", err)
	}

	Get().Info("after second init")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "after second init") {
		t.Error("Log output should still go to the first-initialized path")
	}
}
