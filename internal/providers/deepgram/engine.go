package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"

	"auravox/internal/domain"
	"auravox/internal/ports"
)

const (
	defaultBaseURL = "https://api.deepgram.com/v1"
	defaultModel   = "nova-2"
)

// Config controls the Deepgram live transcription endpoint.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
	ChunkSize   int
	DialTimeout time.Duration
}

// Engine is a native recognition engine backed by the Deepgram listen
// websocket and a local microphone.
type Engine struct {
	cfg     Config
	capture ports.AudioCapture
	dialer  *websocket.Dialer
	logger  logr.Logger
}

func NewEngine(cfg Config, capture ports.AudioCapture, logger logr.Logger) *Engine {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = cfg.DialTimeout
	return &Engine{cfg: cfg, capture: capture, dialer: &dialer, logger: logger.WithName("deepgram")}
}

// Configured reports whether an API key is present.
func (e *Engine) Configured() bool {
	return strings.TrimSpace(e.cfg.APIKey) != ""
}

// Open dials the listen endpoint first, then acquires the microphone.
func (e *Engine) Open(ctx context.Context, cfg ports.EngineConfig) (ports.EngineSession, error) {
	if !e.Configured() {
		return nil, fmt.Errorf("%w: DEEPGRAM_API_KEY is not configured", domain.ErrServiceNotAllowed)
	}
	if e.capture == nil {
		return nil, errors.New("no audio capture configured")
	}

	listenURL, err := buildListenURL(e.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+e.cfg.APIKey)

	conn, resp, err := e.dialer.DialContext(ctx, listenURL, headers)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: deepgram rejected credentials (%d)", domain.ErrServiceNotAllowed, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: dial deepgram: %v", domain.ErrServiceUnreachable, err)
	}

	mic, err := e.capture.Start(ctx, cfg.Audio)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open microphone: %w", err)
	}

	run := newEngineRun(conn, mic, e.logger)
	run.start(ctx, e.cfg.ChunkSize)
	e.logger.V(1).Info("listen stream opened", "model", e.cfg.Model)
	return run, nil
}
