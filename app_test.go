package main

import (
	"errors"
	"testing"

	"auravox/internal/domain"
)

func TestStateReasonMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.StateReason]string{
		domain.ReasonReady:              "Ready",
		domain.ReasonListeningStarted:   "Listening...",
		domain.ReasonStopping:           "Finishing up...",
		domain.ReasonTranscriptReady:    "Transcript sent",
		domain.ReasonNoTranscript:       "No transcript captured",
		domain.ReasonSessionFailed:      "Voice input failed",
		domain.ReasonReset:              "Cleared",
		domain.ReasonStrategyDemoted:    "Switched to recorded audio",
		domain.ReasonDeliveryFailed:     "Transcript ready (sending failed)",
		domain.ReasonManualEntry:        "Message sent",
		domain.ReasonCapabilitiesProbed: "Voice support checked",
	}

	for reason, want := range cases {
		t.Run(string(reason), func(t *testing.T) {
			t.Parallel()
			if got := stateReasonMessage(reason); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := stateReasonMessage("unknown"); got != "" {
		t.Fatalf("expected empty unknown reason message, got %q", got)
	}
}

func TestMethodMessage(t *testing.T) {
	t.Parallel()

	for _, method := range []domain.Strategy{domain.StrategyNativeEngine, domain.StrategyRecordUpload, domain.StrategyManual} {
		if methodMessage(method) == "" {
			t.Fatalf("expected message for %q", method)
		}
	}
	if got := methodMessage(domain.StrategyNone); got != "" {
		t.Fatalf("expected empty message, got %q", got)
	}
}

func TestRequireReady(t *testing.T) {
	t.Parallel()

	app := &App{}
	if err := app.requireReady(); err == nil {
		t.Fatalf("expected uninitialized error")
	}

	bootErr := errors.New("boot")
	app.bootErr = bootErr
	if err := app.requireReady(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error, got %v", err)
	}
	if _, err := app.StartListening(); !errors.Is(err, bootErr) {
		t.Fatalf("expected bindings to report boot error, got %v", err)
	}
}

func TestGetStatusWhenNotInitialized(t *testing.T) {
	t.Parallel()

	app := &App{}
	status := app.GetStatus()
	if status.State != domain.RecognitionIdle || status.IsListening || status.Error != nil {
		t.Fatalf("unexpected status: %+v", status)
	}

	app.bootErr = errors.New("boot")
	status = app.GetStatus()
	if status.State != domain.RecognitionErrored || status.Error == nil || status.Error.Message != "boot" {
		t.Fatalf("unexpected boot status: %+v", status)
	}
	if info := app.GetRuntimeInfo(); info["error"] != "boot" {
		t.Fatalf("expected runtime info error, got %+v", info)
	}
}

func TestSinkMethodsWithoutContextAreNoops(t *testing.T) {
	t.Parallel()

	app := &App{}
	app.StateChanged(domain.Status{}, domain.ReasonReady)
	app.InterimTranscript("partial")
	app.FinalTranscript(domain.FinalTranscript{Raw: "a", Transformed: "b"})
	app.RecognitionError(domain.NewErrorRecord(domain.ErrorNetwork))
	app.MethodChanged(domain.StrategyNativeEngine, domain.StrategyRecordUpload)
}
