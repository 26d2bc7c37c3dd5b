package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"auravox/internal/bootstrap"
	"auravox/internal/config"
	"auravox/internal/domain"
	"auravox/internal/usecase"
)

const (
	eventState   = "auravox:voice-state"
	eventInterim = "auravox:voice-interim"
	eventFinal   = "auravox:voice-final"
	eventError   = "auravox:voice-error"
	eventMethod  = "auravox:voice-method"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	coordinator *usecase.Coordinator
	cfg         config.Config
	bootErr     error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	voice, err := bootstrap.BuildVoice(a)
	if err != nil {
		a.bootErr = err
		a.emit(eventError, map[string]any{
			"kind":        domain.ErrorUnsupported,
			"message":     "Startup failed",
			"detail":      err.Error(),
			"recoverable": false,
		})
		return
	}

	a.cfg = voice.Config
	a.coordinator = voice.Coordinator
	a.StateChanged(a.coordinator.Status(), domain.ReasonReady)
}

func (a *App) shutdown(_ context.Context) {
	if a.coordinator != nil {
		a.coordinator.Close()
	}
}

// StartListening opens a recognition session with the current method.
func (a *App) StartListening() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	a.coordinator.StartListening(a.ctx)
	return a.coordinator.Status(), nil
}

// StopListening finishes the active session and waits for its transcript.
func (a *App) StopListening() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	a.coordinator.StopListening(a.ctx)
	return a.coordinator.Status(), nil
}

// Toggle starts or stops listening. Presses inside the cool-down are ignored.
func (a *App) Toggle() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.coordinator.Toggle(a.ctx); err != nil && !errors.Is(err, usecase.ErrCoolingDown) {
		return domain.Status{}, err
	}
	return a.coordinator.Status(), nil
}

// Reset discards any session and clears transcript and error state.
func (a *App) Reset() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	a.coordinator.Reset()
	return a.coordinator.Status(), nil
}

// SubmitManual sends typed text through the same path as speech.
func (a *App) SubmitManual(text string) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.coordinator.SubmitManual(a.ctx, text); err != nil {
		return a.coordinator.Status(), err
	}
	return a.coordinator.Status(), nil
}

// CheckSupport re-probes the runtime, for instance after a microphone is
// plugged in.
func (a *App) CheckSupport() (domain.Capabilities, error) {
	if err := a.requireReady(); err != nil {
		return domain.Capabilities{}, err
	}
	return a.coordinator.Probe(), nil
}

// GetStatus returns the current recognition status.
func (a *App) GetStatus() domain.Status {
	if a.coordinator == nil {
		status := domain.Status{State: domain.RecognitionIdle, Method: domain.StrategyManual}
		if a.bootErr != nil {
			record := domain.ErrorRecord{Kind: domain.ErrorUnsupported, Message: a.bootErr.Error()}
			status.State = domain.RecognitionErrored
			status.Error = &record
		}
		return status
	}
	return a.coordinator.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	info := map[string]string{
		"provider":         "Deepgram",
		"model":            a.cfg.Deepgram.Model,
		"language":         a.cfg.Voice.Language,
		"serverURL":        a.cfg.Voice.ServerURL,
		"rulesFile":        a.cfg.Rules.Path,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
	}
	if a.coordinator != nil {
		info["method"] = string(a.coordinator.Status().Method)
	}
	return info
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.coordinator == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

func (a *App) emit(name string, payload any) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, name, payload)
}

// StateChanged emits coordinator status updates to the frontend.
func (a *App) StateChanged(status domain.Status, reason domain.StateReason) {
	a.emit(eventState, map[string]any{
		"status":  status,
		"reason":  reason,
		"message": stateReasonMessage(reason),
	})
}

// InterimTranscript emits live, not yet final text.
func (a *App) InterimTranscript(text string) {
	a.emit(eventInterim, map[string]string{"text": text})
}

func (a *App) FinalTranscript(result domain.FinalTranscript) {
	a.emit(eventFinal, result)
}

// RecognitionError surfaces a session failure once.
func (a *App) RecognitionError(record domain.ErrorRecord) {
	a.emit(eventError, record)
}

func (a *App) MethodChanged(from domain.Strategy, to domain.Strategy) {
	a.emit(eventMethod, map[string]string{
		"from":    string(from),
		"to":      string(to),
		"message": methodMessage(to),
	})
}

func stateReasonMessage(reason domain.StateReason) string {
	switch reason {
	case domain.ReasonReady:
		return "Ready"
	case domain.ReasonListeningStarted:
		return "Listening..."
	case domain.ReasonStopping:
		return "Finishing up..."
	case domain.ReasonTranscriptReady:
		return "Transcript sent"
	case domain.ReasonNoTranscript:
		return "No transcript captured"
	case domain.ReasonSessionFailed:
		return "Voice input failed"
	case domain.ReasonReset:
		return "Cleared"
	case domain.ReasonStrategyDemoted:
		return "Switched to recorded audio"
	case domain.ReasonDeliveryFailed:
		return "Transcript ready (sending failed)"
	case domain.ReasonManualEntry:
		return "Message sent"
	case domain.ReasonCapabilitiesProbed:
		return "Voice support checked"
	default:
		return ""
	}
}

func methodMessage(method domain.Strategy) string {
	switch method {
	case domain.StrategyNativeEngine:
		return "Using live speech recognition"
	case domain.StrategyRecordUpload:
		return "Using recorded audio upload"
	case domain.StrategyManual:
		return "Voice input unavailable; type your message"
	default:
		return ""
	}
}
