package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"

	"auravox/internal/domain"
	"auravox/internal/ports"
)

var closeStreamMessage = []byte(`{"type":"CloseStream"}`)

// engineRun streams microphone audio to one websocket connection and turns
// Deepgram messages into engine events.
type engineRun struct {
	conn   *websocket.Conn
	mic    ports.AudioSession
	logger logr.Logger

	events   chan ports.EngineEvent
	audio    chan []byte
	closing  chan struct{}
	abandon  chan struct{}
	finished chan struct{}

	wg sync.WaitGroup

	mu       sync.Mutex
	failCode domain.ErrorKind
	failErr  error
	stopping bool
	aborted  bool

	shutdownOnce sync.Once
	abortOnce    sync.Once
}

func newEngineRun(conn *websocket.Conn, mic ports.AudioSession, logger logr.Logger) *engineRun {
	return &engineRun{
		conn:     conn,
		mic:      mic,
		logger:   logger,
		events:   make(chan ports.EngineEvent, 128),
		audio:    make(chan []byte, 32),
		closing:  make(chan struct{}),
		abandon:  make(chan struct{}),
		finished: make(chan struct{}),
	}
}

func (r *engineRun) start(ctx context.Context, chunkSize int) {
	r.events <- ports.EngineEvent{Type: ports.EngineStarted}

	r.wg.Add(3)
	go r.pump(chunkSize)
	go r.write()
	go r.read()

	go func() {
		r.wg.Wait()
		r.shutdown()

		aborted, code, err := r.outcome()
		if !aborted {
			if err != nil {
				r.logger.Error(err, "listen stream failed", "kind", code)
				r.emitTerminal(ports.EngineEvent{Type: ports.EngineError, Code: string(code), Detail: err.Error()})
			}
			r.emitTerminal(ports.EngineEvent{Type: ports.EngineEnded})
		}
		close(r.events)
		close(r.finished)
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = r.Abort()
		case <-r.finished:
		}
	}()
}

func (r *engineRun) Events() <-chan ports.EngineEvent {
	return r.events
}

// Stop releases the microphone. The pump then closes the audio stream, which
// tells Deepgram to flush its final results and hang up.
func (r *engineRun) Stop() error {
	r.mu.Lock()
	r.stopping = true
	r.mu.Unlock()
	return r.mic.Stop()
}

func (r *engineRun) Abort() error {
	r.abortOnce.Do(func() {
		r.mu.Lock()
		r.aborted = true
		r.mu.Unlock()
		close(r.abandon)
		r.shutdown()
	})
	return nil
}

func (r *engineRun) pump(chunkSize int) {
	defer r.wg.Done()
	defer close(r.audio)

	buf := make([]byte, chunkSize)
	for {
		n, err := r.mic.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case r.audio <- chunk:
			case <-r.closing:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !r.isStopping() {
				r.fail(domain.ErrorAudioCapture, fmt.Errorf("audio capture: %w", err))
			}
			return
		}
	}
}

func (r *engineRun) write() {
	defer r.wg.Done()

	for chunk := range r.audio {
		if err := r.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			r.fail(domain.ErrorNetwork, fmt.Errorf("send audio: %w", err))
			return
		}
	}
	if err := r.conn.WriteMessage(websocket.TextMessage, closeStreamMessage); err != nil {
		r.fail(domain.ErrorNetwork, fmt.Errorf("close stream: %w", err))
	}
}

func (r *engineRun) read() {
	defer r.wg.Done()

	for {
		_, payload, err := r.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				r.fail(domain.ErrorNetwork, fmt.Errorf("read listen message: %w", err))
			}
			return
		}

		var msg listenMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}
		if msg.isError() {
			r.fail(domain.ErrorNetwork, errors.New(msg.errorText()))
			return
		}
		text := msg.transcript()
		if text == "" {
			continue
		}
		r.emit(ports.EngineEvent{
			Type:     ports.EngineResult,
			Segments: []domain.Segment{{Text: text, Final: msg.IsFinal || msg.SpeechFinal}},
		})
	}
}

// fail records the first failure and tears the connection down.
func (r *engineRun) fail(code domain.ErrorKind, err error) {
	r.mu.Lock()
	if r.failErr == nil {
		r.failCode = code
		r.failErr = err
	}
	r.mu.Unlock()
	r.shutdown()
}

func (r *engineRun) shutdown() {
	r.shutdownOnce.Do(func() {
		close(r.closing)
		_ = r.mic.Stop()
		_ = r.conn.Close()
	})
}

// emit drops interim-only results when the consumer falls behind. Results
// carrying a final segment wait for room so no committed text is lost.
func (r *engineRun) emit(event ports.EngineEvent) {
	for _, segment := range event.Segments {
		if segment.Final {
			r.emitTerminal(event)
			return
		}
	}
	select {
	case r.events <- event:
	case <-r.abandon:
	default:
	}
}

func (r *engineRun) emitTerminal(event ports.EngineEvent) {
	select {
	case r.events <- event:
	case <-r.abandon:
	}
}

func (r *engineRun) outcome() (bool, domain.ErrorKind, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aborted, r.failCode, r.failErr
}

func (r *engineRun) isStopping() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopping || r.aborted
}
