package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"todolist/internal/config"
)

func TestNew_DiscardsByDefault(t *testing.T) {
	var stderr bytes.Buffer
	logger, closer, err := New(&config.Config{}, &stderr)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	logger.Error("should go nowhere")
	if stderr.Len() != 0 {
		t.Errorf("unexpected output: %q", stderr.String())
	}
}

func TestNew_DebugWritesToStderr(t *testing.T) {
	var stderr bytes.Buffer
	logger, closer, err := New(&config.Config{Debug: true}, &stderr)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	logger.Debug("fetch", "owner", "u1")
	if !strings.Contains(stderr.String(), "msg=fetch owner=u1") {
		t.Errorf("unexpected output: %q", stderr.String())
	}
}

func TestNew_FileRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todolist.log")
	cfg := &config.Config{}
	cfg.Settings.Log = config.LogSettings{File: path, Level: "warn"}

	logger, closer, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "shown") {
		t.Errorf("unexpected log file contents: %q", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error")
	}
}
