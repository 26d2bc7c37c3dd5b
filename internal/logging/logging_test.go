package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"auravox/internal/config"
)

func TestNewJSONIncludesNameAndValues(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(config.LogConfig{Level: "info", Format: "json"}, &buf).WithName("store")
	logger.Info("migrated", "tables", 5)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one json line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "migrated" || entry["tables"] != float64(5) {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if !strings.Contains(buf.String(), `"store"`) {
		t.Fatalf("expected logger name in %q", buf.String())
	}
}

func TestNewHonorsVerbosity(t *testing.T) {
	t.Parallel()

	var quiet bytes.Buffer
	New(config.LogConfig{Level: "info"}, &quiet).V(1).Info("hidden")
	if quiet.Len() != 0 {
		t.Fatalf("expected V(1) to be dropped at info, got %q", quiet.String())
	}

	var verbose bytes.Buffer
	New(config.LogConfig{Level: "debug"}, &verbose).V(1).Info("shown")
	if !strings.Contains(verbose.String(), "shown") {
		t.Fatalf("expected V(1) at debug, got %q", verbose.String())
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	if parseLevel("WARNING") != parseLevel("warn") {
		t.Fatalf("expected warning alias")
	}
	if parseLevel("bogus") != parseLevel("info") {
		t.Fatalf("expected info fallback")
	}
}
