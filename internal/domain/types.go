package domain

import "errors"

var (
	// ErrPermissionDenied marks a microphone or engine access refusal.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrServiceUnreachable marks a recognition backend that could not be reached.
	ErrServiceUnreachable = errors.New("recognition service unreachable")
	// ErrServiceNotAllowed marks a recognition backend that refused the client.
	ErrServiceNotAllowed = errors.New("recognition service not allowed")
)

// RecognitionState models the lifecycle of one recognition session.
type RecognitionState string

const (
	RecognitionIdle      RecognitionState = "idle"
	RecognitionStarting  RecognitionState = "starting"
	RecognitionListening RecognitionState = "listening"
	RecognitionStopping  RecognitionState = "stopping"
	RecognitionErrored   RecognitionState = "errored"
)

// Strategy identifies one speech acquisition method.
type Strategy string

const (
	StrategyNone         Strategy = ""
	StrategyNativeEngine Strategy = "webSpeech"
	StrategyRecordUpload Strategy = "mediaRecorder"
	StrategyManual       Strategy = "manual"
)

// StateReason explains why the coordinator changed state.
type StateReason string

const (
	ReasonReady              StateReason = "ready"
	ReasonListeningStarted   StateReason = "listening_started"
	ReasonStopping           StateReason = "stopping"
	ReasonTranscriptReady    StateReason = "transcript_ready"
	ReasonNoTranscript       StateReason = "no_transcript"
	ReasonSessionFailed      StateReason = "session_failed"
	ReasonReset              StateReason = "reset"
	ReasonStrategyDemoted    StateReason = "strategy_demoted"
	ReasonDeliveryFailed     StateReason = "delivery_failed"
	ReasonManualEntry        StateReason = "manual_entry"
	ReasonCapabilitiesProbed StateReason = "capabilities_probed"
)

// ErrorKind is the closed set of recognition failures.
type ErrorKind string

const (
	ErrorNoSpeech            ErrorKind = "no-speech"
	ErrorAudioCapture        ErrorKind = "audio-capture"
	ErrorNotAllowed          ErrorKind = "not-allowed"
	ErrorNetwork             ErrorKind = "network"
	ErrorServiceNotAllowed   ErrorKind = "service-not-allowed"
	ErrorProcessingFailed    ErrorKind = "processing-failed"
	ErrorTranscriptionFailed ErrorKind = "transcription-failed"
	ErrorUnsupported         ErrorKind = "unsupported"
)

// ErrorRecord is produced by a session on failure and consumed by the coordinator.
type ErrorRecord struct {
	Kind        ErrorKind `json:"kind"`
	Message     string    `json:"message"`
	Recoverable bool      `json:"recoverable"`
}

// NewErrorRecord builds a record with the user-facing message for kind.
func NewErrorRecord(kind ErrorKind) ErrorRecord {
	return ErrorRecord{Kind: kind, Message: ErrorMessage(kind), Recoverable: kind != ErrorUnsupported}
}

// ErrorMessage returns the human-readable text for an error kind.
func ErrorMessage(kind ErrorKind) string {
	switch kind {
	case ErrorNoSpeech:
		return "No speech detected. Please try again."
	case ErrorAudioCapture:
		return "Audio capture failed. Please check your microphone."
	case ErrorNotAllowed:
		return "Microphone access denied. Please allow microphone access."
	case ErrorNetwork:
		return "Network error occurred. Please check your connection."
	case ErrorServiceNotAllowed:
		return "Speech recognition service not allowed."
	case ErrorProcessingFailed:
		return "Failed to process audio. Please try again."
	case ErrorTranscriptionFailed:
		return "Transcription failed. Please try again."
	case ErrorUnsupported:
		return "Voice recognition is not supported in this environment."
	default:
		return "Voice recognition error: " + string(kind)
	}
}

// ErrorKindFromEngineCode maps a raw engine error code onto the closed set.
func ErrorKindFromEngineCode(code string) ErrorKind {
	switch ErrorKind(code) {
	case ErrorNoSpeech, ErrorAudioCapture, ErrorNotAllowed, ErrorNetwork,
		ErrorServiceNotAllowed, ErrorProcessingFailed, ErrorTranscriptionFailed, ErrorUnsupported:
		return ErrorKind(code)
	case "aborted":
		return ErrorNoSpeech
	default:
		return ErrorProcessingFailed
	}
}

// ErrorKindFromError classifies an acquisition error, falling back to fallback
// when err carries none of the sentinel markers.
func ErrorKindFromError(err error, fallback ErrorKind) ErrorKind {
	switch {
	case err == nil:
		return fallback
	case errors.Is(err, ErrPermissionDenied):
		return ErrorNotAllowed
	case errors.Is(err, ErrServiceUnreachable):
		return ErrorNetwork
	case errors.Is(err, ErrServiceNotAllowed):
		return ErrorServiceNotAllowed
	default:
		return fallback
	}
}

// Capabilities describes what the runtime can do for speech input.
type Capabilities struct {
	NativeEngineAvailable bool `json:"nativeEngineAvailable"`
	MicrophoneAvailable   bool `json:"microphoneAvailable"`
	SecureContext         bool `json:"secureContext"`
	Restrictive           bool `json:"restrictive"`
}

// Segment is one piece of recognized text.
type Segment struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Status is the observable coordinator state consumed by the UI.
type Status struct {
	State          RecognitionState `json:"state"`
	Method         Strategy         `json:"method"`
	IsListening    bool             `json:"isListening"`
	IsSupported    bool             `json:"isSupported"`
	Transcript     string           `json:"transcript"`
	Interim        string           `json:"interim,omitempty"`
	Error          *ErrorRecord     `json:"error"`
	ToggleDisabled bool             `json:"toggleDisabled"`
}

// FinalTranscript is emitted once a session completes with text.
type FinalTranscript struct {
	Method      Strategy `json:"method"`
	Raw         string   `json:"raw"`
	Transformed string   `json:"transformed"`
	Delivered   bool     `json:"delivered"`
}
