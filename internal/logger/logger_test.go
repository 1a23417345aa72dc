package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

// TestSetup_JSONOutput はJSON形式でログが出力されることを検証する。
func TestSetup_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	l.Info("test message", slog.String("key", "value"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not valid JSON: %v", err)
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want %q", entry["key"], "value")
	}
}

// TestSetup_DebugSuppressedByDefault はデフォルトレベルでdebugが抑制されることを検証する。
func TestSetup_DebugSuppressedByDefault(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	var buf bytes.Buffer
	l := Setup(&buf)

	l.Debug("should not appear")
	if buf.Len() != 0 {
		t.Errorf("debug log should be suppressed at default level, got: %s", buf.String())
	}
}

// TestSetup_LevelFromEnv はLOG_LEVEL環境変数によるレベル制御を検証する。
func TestSetup_LevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	var buf bytes.Buffer
	l := Setup(&buf)

	l.Debug("debug enabled")
	if buf.Len() == 0 {
		t.Error("debug log should be emitted when LOG_LEVEL=debug")
	}
}
