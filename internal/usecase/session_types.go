package usecase

import (
	"context"
	"errors"
	"sync"

	"auravox/internal/domain"
)

var (
	ErrAlreadyActive   = errors.New("recognition session already active")
	ErrNoActiveSession = errors.New("no active recognition session")
	ErrCoolingDown     = errors.New("voice toggle is cooling down")
	ErrEmptyTranscript = errors.New("transcript is empty")
)

// sessionCallbacks are invoked by a session on its own goroutine or inline
// from Start/Stop. A session never invokes them after Abort.
type sessionCallbacks struct {
	onStart    func()
	onProgress func(final string, interim string)
	onResult   func(transcript string)
	onError    func(record domain.ErrorRecord)
	onEnd      func()
}

// recognitionSession is the uniform contract every strategy implements.
// Stop and Abort are safe in any state.
type recognitionSession interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
	Abort()
	State() domain.RecognitionState
}

// lifecycle holds the state of one session and the transitions between them.
// Every transition reports whether the caller should emit the matching
// callback, so duplicate or late engine events are dropped here.
type lifecycle struct {
	mu           sync.Mutex
	state        domain.RecognitionState
	acknowledged bool
	failed       bool
	aborted      bool
	ended        bool
}

func newLifecycle() *lifecycle {
	return &lifecycle{state: domain.RecognitionIdle}
}

// begin moves idle to starting.
func (l *lifecycle) begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != domain.RecognitionIdle || l.ended || l.aborted {
		return ErrAlreadyActive
	}
	l.state = domain.RecognitionStarting
	return nil
}

// acknowledge moves starting to listening. It returns true only the first time.
func (l *lifecycle) acknowledge() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failed || l.aborted || l.ended || l.acknowledged {
		return false
	}
	if l.state != domain.RecognitionStarting && l.state != domain.RecognitionStopping {
		return false
	}
	l.acknowledged = true
	if l.state == domain.RecognitionStarting {
		l.state = domain.RecognitionListening
	}
	return true
}

// requestStop moves starting or listening to stopping.
func (l *lifecycle) requestStop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failed || l.aborted || l.ended {
		return false
	}
	switch l.state {
	case domain.RecognitionStarting, domain.RecognitionListening:
		l.state = domain.RecognitionStopping
		return true
	default:
		return false
	}
}

// fail trips the failure guard. Only the first failure is reported.
func (l *lifecycle) fail() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failed || l.aborted || l.ended {
		return false
	}
	l.failed = true
	l.state = domain.RecognitionErrored
	return true
}

// finish settles a healthy session back to idle. It reports whether end
// callbacks should run and whether onStart was ever emitted.
func (l *lifecycle) finish() (ok bool, acknowledged bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failed || l.aborted || l.ended {
		return false, l.acknowledged
	}
	l.ended = true
	l.state = domain.RecognitionIdle
	return true, l.acknowledged
}

// abort silences the session and returns it to idle.
func (l *lifecycle) abort() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.aborted {
		return false
	}
	l.aborted = true
	l.state = domain.RecognitionIdle
	return true
}

// honored reports whether events should still be processed.
func (l *lifecycle) honored() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.failed && !l.aborted && !l.ended
}

func (l *lifecycle) isAborted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.aborted
}

func (l *lifecycle) current() domain.RecognitionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}
