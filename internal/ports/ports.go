package ports

import (
	"context"
	"io"

	"auravox/internal/domain"
)

// CapabilityProvider reports which speech entry points the runtime offers.
type CapabilityProvider interface {
	Detect() domain.Capabilities
}

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session holding the microphone.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture acquires the microphone.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// EngineConfig configures a native recognition engine run.
type EngineConfig struct {
	Language       string
	Continuous     bool
	InterimResults bool
	Audio          AudioConfig
}

// EngineEventType enumerates the native engine callbacks.
type EngineEventType string

const (
	EngineStarted EngineEventType = "start"
	EngineResult  EngineEventType = "result"
	EngineError   EngineEventType = "error"
	EngineEnded   EngineEventType = "end"
)

// EngineEvent is one callback from a native recognition engine.
type EngineEvent struct {
	Type     EngineEventType
	Segments []domain.Segment
	Code     string
	Detail   string
}

// EngineSession is one run of a native engine. The events channel is closed
// after the end event.
type EngineSession interface {
	Events() <-chan EngineEvent
	// Stop requests graceful termination; the engine still delivers end.
	Stop() error
	// Abort terminates immediately and discards pending results.
	Abort() error
}

// RecognitionEngine opens native recognition runs.
type RecognitionEngine interface {
	Open(ctx context.Context, cfg EngineConfig) (EngineSession, error)
}

// TranscriptionClient uploads one recorded blob and returns its transcript.
type TranscriptionClient interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// RulesEngine transforms transcripts using deterministic rules.
type RulesEngine interface {
	Apply(text string) (string, error)
}

// MessageSender delivers a final transcript as a chat message.
type MessageSender interface {
	Send(ctx context.Context, text string) error
}

// EventSink emits coordinator state and events to the UI.
type EventSink interface {
	StateChanged(status domain.Status, reason domain.StateReason)
	InterimTranscript(text string)
	FinalTranscript(result domain.FinalTranscript)
	RecognitionError(record domain.ErrorRecord)
	MethodChanged(from domain.Strategy, to domain.Strategy)
}
