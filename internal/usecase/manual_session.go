package usecase

import (
	"context"
	"strings"

	"auravox/internal/domain"
)

// manualSession has no microphone. It stays listening until the user types
// a transcript or stops.
type manualSession struct {
	cb   sessionCallbacks
	life *lifecycle
}

func newManualSession(cb sessionCallbacks) *manualSession {
	return &manualSession{cb: cb, life: newLifecycle()}
}

func (s *manualSession) Start(_ context.Context) error {
	if err := s.life.begin(); err != nil {
		return err
	}
	if s.life.acknowledge() {
		s.cb.onStart()
	}
	return nil
}

// Submit completes the session with typed text.
func (s *manualSession) Submit(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyTranscript
	}
	if s.life.current() != domain.RecognitionListening {
		return ErrNoActiveSession
	}
	ok, _ := s.life.finish()
	if !ok {
		return ErrNoActiveSession
	}
	s.cb.onResult(text)
	s.cb.onEnd()
	return nil
}

func (s *manualSession) Stop(_ context.Context) {
	if !s.life.requestStop() {
		return
	}
	if ok, _ := s.life.finish(); ok {
		s.cb.onEnd()
	}
}

func (s *manualSession) Abort() {
	s.life.abort()
}

func (s *manualSession) State() domain.RecognitionState {
	return s.life.current()
}
