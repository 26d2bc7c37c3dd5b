package usecase

import (
	"errors"
	"testing"

	"auravox/internal/domain"
)

func TestLifecycleHappyPath(t *testing.T) {
	t.Parallel()

	l := newLifecycle()
	if err := l.begin(); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if l.current() != domain.RecognitionStarting {
		t.Fatalf("expected starting, got %s", l.current())
	}
	if !l.acknowledge() {
		t.Fatalf("expected first acknowledge to succeed")
	}
	if l.acknowledge() {
		t.Fatalf("acknowledge must report only once")
	}
	if !l.requestStop() {
		t.Fatalf("expected stop request to succeed")
	}
	if l.requestStop() {
		t.Fatalf("second stop request must be ignored")
	}
	ok, acknowledged := l.finish()
	if !ok || !acknowledged {
		t.Fatalf("expected finish ok with acknowledgement, got ok=%v ack=%v", ok, acknowledged)
	}
	if l.current() != domain.RecognitionIdle {
		t.Fatalf("expected idle, got %s", l.current())
	}
	if ok, _ := l.finish(); ok {
		t.Fatalf("finish must run once")
	}
}

func TestLifecycleRejectsSecondBegin(t *testing.T) {
	t.Parallel()

	l := newLifecycle()
	if err := l.begin(); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := l.begin(); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
}

func TestLifecycleFailureGuardTripsOnce(t *testing.T) {
	t.Parallel()

	l := newLifecycle()
	_ = l.begin()
	l.acknowledge()

	if !l.fail() {
		t.Fatalf("expected first failure to be reported")
	}
	if l.fail() {
		t.Fatalf("second failure must be suppressed")
	}
	if l.honored() {
		t.Fatalf("events after failure must not be honored")
	}
	if ok, _ := l.finish(); ok {
		t.Fatalf("failed session must not finish")
	}
	if l.current() != domain.RecognitionErrored {
		t.Fatalf("expected errored, got %s", l.current())
	}
}

func TestLifecycleAbortSilencesSession(t *testing.T) {
	t.Parallel()

	l := newLifecycle()
	_ = l.begin()

	if !l.abort() {
		t.Fatalf("expected abort to report first call")
	}
	if l.abort() {
		t.Fatalf("abort must be idempotent")
	}
	if l.acknowledge() || l.fail() || l.requestStop() {
		t.Fatalf("aborted session must ignore transitions")
	}
	if !l.isAborted() || l.current() != domain.RecognitionIdle {
		t.Fatalf("expected aborted idle session")
	}
}
