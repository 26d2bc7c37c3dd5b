package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"auravox/internal/domain"
	"auravox/internal/ports"
)

const (
	defaultToggleCooldown = 1500 * time.Millisecond
	defaultStopGrace      = 4 * time.Second
)

// Config controls recognition sessions.
type Config struct {
	Engine    ports.EngineConfig
	Audio     ports.AudioConfig
	ChunkSize int
	StopGrace time.Duration
	Cooldown  time.Duration
}

// Coordinator selects a speech acquisition strategy, owns the single active
// session and exposes one contract to the UI regardless of strategy.
type Coordinator struct {
	caps        ports.CapabilityProvider
	engine      ports.RecognitionEngine
	capture     ports.AudioCapture
	transcriber ports.TranscriptionClient
	events      ports.EventSink
	finalizer   transcriptFinalizer
	cfg         Config
	logger      logr.Logger
	now         func() time.Time

	mu           sync.Mutex
	capabilities domain.Capabilities
	method       domain.Strategy
	demoted      bool
	closed       bool
	current      *activeSession
	seq          uint64
	state        domain.RecognitionState
	transcript   string
	interim      string
	lastErr      *domain.ErrorRecord
	lastAction   time.Time
}

type activeSession struct {
	id        uint64
	method    domain.Strategy
	session   recognitionSession
	ctx       context.Context
	stopping  bool
	delivered bool
}

func NewCoordinator(
	caps ports.CapabilityProvider,
	engine ports.RecognitionEngine,
	capture ports.AudioCapture,
	transcriber ports.TranscriptionClient,
	rules ports.RulesEngine,
	sender ports.MessageSender,
	events ports.EventSink,
	cfg Config,
	logger logr.Logger,
) *Coordinator {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = defaultStopGrace
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	} else if cfg.Cooldown == 0 {
		cfg.Cooldown = defaultToggleCooldown
	}

	c := &Coordinator{
		caps:        caps,
		engine:      engine,
		capture:     capture,
		transcriber: transcriber,
		events:      events,
		finalizer:   newTranscriptFinalizer(rules, sender, events, logger),
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
		state:       domain.RecognitionIdle,
	}
	if caps != nil {
		c.capabilities = caps.Detect()
	}
	c.method = selectStrategy(c.capabilities, false)
	c.logger.V(1).Info("voice strategy selected", "method", c.method, "capabilities", c.capabilities)
	return c
}

// selectStrategy picks the best method for caps. Once demoted the coordinator
// stays on the record-and-upload path.
func selectStrategy(caps domain.Capabilities, demoted bool) domain.Strategy {
	switch {
	case demoted:
		return domain.StrategyRecordUpload
	case caps.NativeEngineAvailable:
		return domain.StrategyNativeEngine
	case caps.Restrictive:
		return domain.StrategyRecordUpload
	default:
		return domain.StrategyManual
	}
}

// StartListening opens a session for the current method. It is a no-op while
// another session is active.
func (c *Coordinator) StartListening(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.current != nil {
		c.mu.Unlock()
		return
	}
	c.seq++
	active := &activeSession{id: c.seq, method: c.method, ctx: ctx}
	active.session = c.newSession(active)
	c.current = active
	c.state = domain.RecognitionStarting
	c.transcript = ""
	c.interim = ""
	c.lastErr = nil
	c.lastAction = c.now()
	status := c.statusLocked()
	c.mu.Unlock()

	c.logger.V(1).Info("recognition starting", "method", active.method, "session", active.id)
	c.events.StateChanged(status, domain.ReasonReady)

	if err := active.session.Start(ctx); err != nil {
		c.logger.Error(err, "recognition session refused start", "session", active.id)
	}
}

// StopListening asks the active session to finish. It blocks until the
// session has produced its result or failed. A stop that lands while the
// device is still opening returns at once and the session ends when the
// open completes.
func (c *Coordinator) StopListening(ctx context.Context) {
	c.mu.Lock()
	active := c.current
	if active == nil || active.stopping {
		c.mu.Unlock()
		return
	}
	active.stopping = true
	c.state = domain.RecognitionStopping
	c.lastAction = c.now()
	status := c.statusLocked()
	c.mu.Unlock()

	c.events.StateChanged(status, domain.ReasonStopping)
	active.session.Stop(ctx)
}

// Toggle starts or stops listening, honoring the cool-down between actions.
func (c *Coordinator) Toggle(ctx context.Context) error {
	c.mu.Lock()
	if c.coolingDownLocked() {
		c.mu.Unlock()
		return ErrCoolingDown
	}
	listening := c.current != nil
	c.mu.Unlock()

	if listening {
		c.StopListening(ctx)
	} else {
		c.StartListening(ctx)
	}
	return nil
}

// Reset discards the active session and clears transcript and error state.
func (c *Coordinator) Reset() {
	active := c.detach()
	if active != nil {
		active.session.Abort()
	}

	c.mu.Lock()
	status := c.statusLocked()
	c.mu.Unlock()
	c.events.StateChanged(status, domain.ReasonReset)
}

// SubmitManual delivers typed text. It completes an active manual session or
// abandons a device session first.
func (c *Coordinator) SubmitManual(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyTranscript
	}

	c.mu.Lock()
	active := c.current
	c.mu.Unlock()

	if active != nil {
		if manual, ok := active.session.(*manualSession); ok {
			if err := manual.Submit(text); err == nil {
				return nil
			}
		}
		if c.detach() == active {
			active.session.Abort()
		}
	}

	c.mu.Lock()
	c.transcript = text
	c.interim = ""
	c.lastErr = nil
	c.state = domain.RecognitionIdle
	c.mu.Unlock()

	_, reason := c.finalizer.Finalize(ctx, domain.StrategyManual, text)
	if reason == domain.ReasonTranscriptReady {
		reason = domain.ReasonManualEntry
	}
	c.mu.Lock()
	status := c.statusLocked()
	c.mu.Unlock()
	c.events.StateChanged(status, reason)
	return nil
}

// Probe re-detects capabilities. The method only changes while no session is
// active and never leaves record-and-upload after a demotion.
func (c *Coordinator) Probe() domain.Capabilities {
	var caps domain.Capabilities
	if c.caps != nil {
		caps = c.caps.Detect()
	}

	c.mu.Lock()
	c.capabilities = caps
	from := c.method
	if c.current == nil {
		c.method = selectStrategy(caps, c.demoted)
	}
	to := c.method
	status := c.statusLocked()
	c.mu.Unlock()

	if from != to {
		c.events.MethodChanged(from, to)
	}
	c.events.StateChanged(status, domain.ReasonCapabilitiesProbed)
	return caps
}

// Capabilities returns the last detected capabilities.
func (c *Coordinator) Capabilities() domain.Capabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capabilities
}

func (c *Coordinator) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Close releases any held microphone. Later starts are ignored.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	if active := c.detach(); active != nil {
		active.session.Abort()
	}
}

func (c *Coordinator) newSession(active *activeSession) recognitionSession {
	cb := c.callbacksFor(active)
	switch active.method {
	case domain.StrategyNativeEngine:
		return newNativeSession(c.engine, c.cfg.Engine, c.cfg.StopGrace, cb)
	case domain.StrategyRecordUpload:
		return newUploadSession(c.capture, c.cfg.Audio, c.transcriber, c.cfg.ChunkSize, c.cfg.StopGrace, cb)
	default:
		return newManualSession(cb)
	}
}

func (c *Coordinator) callbacksFor(active *activeSession) sessionCallbacks {
	return sessionCallbacks{
		onStart:    func() { c.handleStart(active) },
		onProgress: func(final string, interim string) { c.handleProgress(active, final, interim) },
		onResult:   func(transcript string) { c.handleResult(active, transcript) },
		onError:    func(record domain.ErrorRecord) { c.handleError(active, record) },
		onEnd:      func() { c.handleEnd(active) },
	}
}

func (c *Coordinator) handleStart(active *activeSession) {
	c.mu.Lock()
	if c.current != active {
		c.mu.Unlock()
		return
	}
	if !active.stopping {
		c.state = domain.RecognitionListening
	}
	status := c.statusLocked()
	c.mu.Unlock()

	c.events.StateChanged(status, domain.ReasonListeningStarted)
}

func (c *Coordinator) handleProgress(active *activeSession, final string, interim string) {
	c.mu.Lock()
	if c.current != active {
		c.mu.Unlock()
		return
	}
	c.transcript = final
	c.interim = interim
	c.mu.Unlock()

	c.events.InterimTranscript(interim)
}

func (c *Coordinator) handleResult(active *activeSession, transcript string) {
	c.mu.Lock()
	if c.current != active {
		c.mu.Unlock()
		return
	}
	active.delivered = true
	c.transcript = transcript
	c.interim = ""
	c.mu.Unlock()

	result, reason := c.finalizer.Finalize(context.WithoutCancel(active.ctx), active.method, transcript)
	c.mu.Lock()
	if c.current == active {
		c.transcript = result.Transformed
	}
	c.mu.Unlock()
	if reason == domain.ReasonDeliveryFailed {
		c.logger.Info("transcript not delivered", "session", active.id)
	}
}

func (c *Coordinator) handleError(active *activeSession, record domain.ErrorRecord) {
	c.mu.Lock()
	if c.current != active {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.interim = ""

	demote := active.method == domain.StrategyNativeEngine &&
		c.capabilities.Restrictive &&
		!c.demoted &&
		(record.Kind == domain.ErrorNetwork || record.Kind == domain.ErrorNotAllowed)
	if demote {
		from := c.method
		c.demoted = true
		c.method = domain.StrategyRecordUpload
		c.state = domain.RecognitionIdle
		c.lastErr = nil
		status := c.statusLocked()
		c.mu.Unlock()

		c.logger.Info("native recognition blocked, switching to record and upload", "kind", record.Kind)
		c.events.MethodChanged(from, domain.StrategyRecordUpload)
		c.events.StateChanged(status, domain.ReasonStrategyDemoted)
		return
	}

	c.state = domain.RecognitionErrored
	c.lastErr = &record
	status := c.statusLocked()
	c.mu.Unlock()

	c.logger.V(1).Info("recognition failed", "kind", record.Kind, "method", active.method)
	c.events.RecognitionError(record)
	c.events.StateChanged(status, domain.ReasonSessionFailed)
}

func (c *Coordinator) handleEnd(active *activeSession) {
	c.mu.Lock()
	if c.current != active {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.state = domain.RecognitionIdle
	c.interim = ""
	reason := domain.ReasonNoTranscript
	if active.delivered {
		reason = domain.ReasonTranscriptReady
	}
	status := c.statusLocked()
	c.mu.Unlock()

	c.events.StateChanged(status, reason)
}

// detach clears the active session and resets observable state.
func (c *Coordinator) detach() *activeSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	active := c.current
	c.current = nil
	c.state = domain.RecognitionIdle
	c.transcript = ""
	c.interim = ""
	c.lastErr = nil
	return active
}

func (c *Coordinator) coolingDownLocked() bool {
	if c.lastAction.IsZero() || c.cfg.Cooldown == 0 {
		return false
	}
	return c.now().Sub(c.lastAction) < c.cfg.Cooldown
}

func (c *Coordinator) statusLocked() domain.Status {
	status := domain.Status{
		State:          c.state,
		Method:         c.method,
		IsListening:    c.state == domain.RecognitionStarting || c.state == domain.RecognitionListening,
		IsSupported:    c.method != domain.StrategyNone,
		Transcript:     c.transcript,
		Interim:        c.interim,
		ToggleDisabled: c.coolingDownLocked(),
	}
	if c.lastErr != nil {
		record := *c.lastErr
		status.Error = &record
	}
	return status
}
