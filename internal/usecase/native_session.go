package usecase

import (
	"context"
	"sync"
	"time"

	"auravox/internal/domain"
	"auravox/internal/ports"
)

// nativeSession drives one run of a streaming recognition engine.
type nativeSession struct {
	engine ports.RecognitionEngine
	cfg    ports.EngineConfig
	grace  time.Duration
	cb     sessionCallbacks
	life   *lifecycle
	agg    *transcriptAggregator

	mu          sync.Mutex
	run         ports.EngineSession
	cancel      context.CancelFunc
	done        chan struct{}
	pendingStop bool
}

func newNativeSession(engine ports.RecognitionEngine, cfg ports.EngineConfig, grace time.Duration, cb sessionCallbacks) *nativeSession {
	return &nativeSession{
		engine: engine,
		cfg:    cfg,
		grace:  grace,
		cb:     cb,
		life:   newLifecycle(),
		agg:    newTranscriptAggregator(),
		done:   make(chan struct{}),
	}
}

func (s *nativeSession) Start(ctx context.Context) error {
	if err := s.life.begin(); err != nil {
		return err
	}
	if s.engine == nil {
		close(s.done)
		s.fail(domain.NewErrorRecord(domain.ErrorUnsupported))
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	run, err := s.engine.Open(runCtx, s.cfg)
	if err != nil {
		cancel()
		close(s.done)
		s.fail(domain.NewErrorRecord(domain.ErrorKindFromError(err, domain.ErrorAudioCapture)))
		return nil
	}

	// Stop and Abort may have landed while the engine was opening. The
	// decision to hand the run over is made under mu so exactly one side
	// stops or aborts it.
	s.mu.Lock()
	if s.life.isAborted() {
		s.mu.Unlock()
		_ = run.Abort()
		cancel()
		close(s.done)
		return nil
	}
	s.run = run
	stopNow := s.pendingStop
	s.mu.Unlock()

	go s.consume(run)
	if stopNow {
		go s.stopRun(context.WithoutCancel(ctx), run)
	}
	return nil
}

func (s *nativeSession) consume(run ports.EngineSession) {
	defer close(s.done)

	for event := range run.Events() {
		switch event.Type {
		case ports.EngineStarted:
			if s.life.acknowledge() {
				s.cb.onStart()
			}
		case ports.EngineResult:
			if !s.life.honored() {
				continue
			}
			if s.life.acknowledge() {
				s.cb.onStart()
			}
			final, interim := s.agg.Add(event.Segments)
			s.cb.onProgress(final, interim)
		case ports.EngineError:
			_ = run.Abort()
			s.fail(domain.NewErrorRecord(domain.ErrorKindFromEngineCode(event.Code)))
			s.release()
			return
		case ports.EngineEnded:
			s.end()
			s.release()
			return
		}
	}
	s.end()
	s.release()
}

// Stop asks the engine to finish and waits up to the grace period for its end
// event before aborting the run.
func (s *nativeSession) Stop(ctx context.Context) {
	if !s.life.requestStop() {
		return
	}
	s.mu.Lock()
	run := s.run
	if run == nil {
		s.pendingStop = true
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.stopRun(ctx, run)
}

func (s *nativeSession) stopRun(ctx context.Context, run ports.EngineSession) {
	_ = run.Stop()

	grace := s.grace
	if grace <= 0 {
		grace = 4 * time.Second
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-s.done:
		return
	case <-timer.C:
	case <-ctx.Done():
	}
	_ = run.Abort()
	s.end()
	s.release()
	waitForDone(s.done, grace)
}

func (s *nativeSession) Abort() {
	if !s.life.abort() {
		return
	}
	if run := s.currentRun(); run != nil {
		_ = run.Abort()
	}
	s.release()
}

func (s *nativeSession) State() domain.RecognitionState {
	return s.life.current()
}

func (s *nativeSession) end() {
	ok, acknowledged := s.life.finish()
	if !ok {
		return
	}
	if text := s.agg.Final(); text != "" && acknowledged {
		s.cb.onResult(text)
	}
	s.cb.onEnd()
}

func (s *nativeSession) fail(record domain.ErrorRecord) {
	if !s.life.fail() {
		return
	}
	s.cb.onError(record)
}

func (s *nativeSession) currentRun() ports.EngineSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run
}

func (s *nativeSession) release() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
