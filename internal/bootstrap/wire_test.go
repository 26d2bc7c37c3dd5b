package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"auravox/internal/config"
	"auravox/internal/domain"
	"auravox/internal/transcribe"
)

func TestBuildVoiceSuccess(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AURAVOX_ENV_FILE", filepath.Join(home, "missing.env"))
	t.Setenv("DEEPGRAM_API_KEY", "test-key")
	t.Setenv("AURAVOX_FFMPEG_COMMAND", "auravox-test-no-such-recorder")

	voice, err := BuildVoice(noopEventSink{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if voice.Coordinator == nil {
		t.Fatalf("expected coordinator")
	}
	defer voice.Coordinator.Close()

	// No recorder binary means no microphone, so only manual entry remains.
	if got := voice.Coordinator.Status().Method; got != domain.StrategyManual {
		t.Fatalf("expected manual strategy without a microphone, got %q", got)
	}
}

func TestBuildVoiceFailsOnInvalidRules(t *testing.T) {
	home := t.TempDir()
	rules := filepath.Join(home, "bad.rules")
	if err := os.WriteFile(rules, []byte("not a valid rule\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("HOME", home)
	t.Setenv("AURAVOX_ENV_FILE", filepath.Join(home, "missing.env"))
	t.Setenv("AURAVOX_RULES_FILE", rules)

	if _, err := BuildVoice(noopEventSink{}); err == nil {
		t.Fatalf("expected build error due to invalid rules")
	}
}

func TestNewTranscriberSelectsBackend(t *testing.T) {
	t.Parallel()

	canned, err := NewTranscriber(config.TranscriberConfig{Backend: config.TranscriberCanned})
	if err != nil || canned.Name() != "canned" {
		t.Fatalf("expected canned backend, got %v / %v", canned, err)
	}
	whisper, err := NewTranscriber(config.TranscriberConfig{Backend: config.TranscriberWhisper, OpenAIKey: "sk-test", Model: "whisper-1"})
	if err != nil {
		t.Fatalf("whisper backend failed: %v", err)
	}
	if _, ok := whisper.(*transcribe.Whisper); !ok {
		t.Fatalf("expected whisper backend, got %T", whisper)
	}
	if _, err := NewTranscriber(config.TranscriberConfig{Backend: "vosk"}); err == nil {
		t.Fatalf("expected unsupported backend error")
	}
}

func testBackendConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Addr:            "127.0.0.1:0",
			UploadDir:       filepath.Join(dir, "uploads"),
			UploadRetention: time.Hour,
			SweepSchedule:   "@every 1h",
			MaxUploadBytes:  1 << 20,
		},
		Database:    config.DatabaseConfig{Driver: config.DriverSQLite, DSN: filepath.Join(dir, "db", "auravox.db")},
		Transcriber: config.TranscriberConfig{Backend: config.TranscriberCanned},
		Webhook:     config.WebhookConfig{Timeout: time.Second},
	}
}

func TestBuildBackendServesHealth(t *testing.T) {
	backend, err := BuildBackend(context.Background(), testBackendConfig(t), logr.Discard())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer backend.Store.Close()

	rec := httptest.NewRecorder()
	backend.HTTP.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBuildBackendRejectsInvalidConfig(t *testing.T) {
	cfg := testBackendConfig(t)
	cfg.Server.SweepSchedule = "whenever"
	if _, err := BuildBackend(context.Background(), cfg, logr.Discard()); err == nil {
		t.Fatalf("expected schedule error")
	}

	cfg = testBackendConfig(t)
	cfg.Database.Driver = "mysql"
	if _, err := BuildBackend(context.Background(), cfg, logr.Discard()); err == nil {
		t.Fatalf("expected driver error")
	}
}

func TestBackendRunStopsOnCancel(t *testing.T) {
	backend, err := BuildBackend(context.Background(), testBackendConfig(t), logr.Discard())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- backend.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}
}

type noopEventSink struct{}

func (noopEventSink) StateChanged(domain.Status, domain.StateReason) {}
func (noopEventSink) InterimTranscript(string)                       {}
func (noopEventSink) FinalTranscript(domain.FinalTranscript)         {}
func (noopEventSink) RecognitionError(domain.ErrorRecord)            {}
func (noopEventSink) MethodChanged(domain.Strategy, domain.Strategy) {}
