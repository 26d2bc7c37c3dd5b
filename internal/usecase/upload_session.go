package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"auravox/internal/audio"
	"auravox/internal/domain"
	"auravox/internal/ports"
)

const recordingFilename = "recording.wav"

// uploadSession records the microphone locally and uploads the whole
// recording for transcription once the user stops.
type uploadSession struct {
	capture     ports.AudioCapture
	audioCfg    ports.AudioConfig
	transcriber ports.TranscriptionClient
	chunkSize   int
	drain       time.Duration
	cb          sessionCallbacks
	life        *lifecycle
	recorder    *chunkRecorder

	mu          sync.Mutex
	audio       ports.AudioSession
	done        chan struct{}
	opening     bool
	pendingStop bool
}

func newUploadSession(
	capture ports.AudioCapture,
	audioCfg ports.AudioConfig,
	transcriber ports.TranscriptionClient,
	chunkSize int,
	drain time.Duration,
	cb sessionCallbacks,
) *uploadSession {
	return &uploadSession{
		capture:     capture,
		audioCfg:    audioCfg,
		transcriber: transcriber,
		chunkSize:   chunkSize,
		drain:       drain,
		cb:          cb,
		life:        newLifecycle(),
		recorder:    newChunkRecorder(),
	}
}

func (s *uploadSession) Start(ctx context.Context) error {
	if err := s.life.begin(); err != nil {
		return err
	}
	if s.capture == nil || s.transcriber == nil {
		s.fail(domain.NewErrorRecord(domain.ErrorUnsupported))
		return nil
	}

	s.mu.Lock()
	s.opening = true
	s.mu.Unlock()

	mic, err := s.capture.Start(ctx, s.audioCfg)

	s.mu.Lock()
	s.opening = false
	stopped := s.pendingStop
	aborted := s.life.isAborted()
	if err == nil && !stopped && !aborted {
		s.audio = mic
		s.done = make(chan struct{})
	}
	done := s.done
	s.mu.Unlock()

	if err != nil {
		s.fail(domain.NewErrorRecord(domain.ErrorKindFromError(err, domain.ErrorAudioCapture)))
		return nil
	}
	// A stop or abort that landed while the device was opening leaves
	// nothing to record.
	if stopped || aborted {
		_ = mic.Stop()
		_ = mic.Close()
		if stopped {
			s.endQuietly()
		}
		return nil
	}

	go s.recorder.record(mic, s.chunkSize, done)

	if s.life.acknowledge() {
		s.cb.onStart()
	}
	return nil
}

// Stop releases the microphone, assembles the recording and uploads it once.
// The upload is not bound to ctx cancellation.
func (s *uploadSession) Stop(ctx context.Context) {
	if !s.life.requestStop() {
		return
	}
	s.mu.Lock()
	if s.opening {
		s.pendingStop = true
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.releaseMicrophone()
	if s.life.isAborted() {
		return
	}

	if s.recorder.Len() == 0 {
		kind := domain.ErrorNoSpeech
		if s.recorder.Err() != nil {
			kind = domain.ErrorAudioCapture
		}
		s.fail(domain.NewErrorRecord(kind))
		return
	}

	blob := audio.EncodeWAV(s.recorder.Assemble(), s.audioCfg.SampleRate, s.audioCfg.Channels)
	transcript, err := s.transcriber.Transcribe(context.WithoutCancel(ctx), blob, recordingFilename)
	if s.life.isAborted() {
		return
	}
	if err != nil {
		s.fail(domain.NewErrorRecord(domain.ErrorTranscriptionFailed))
		return
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		s.fail(domain.ErrorRecord{
			Kind:        domain.ErrorTranscriptionFailed,
			Message:     "No transcript received. Please try again.",
			Recoverable: true,
		})
		return
	}

	if ok, _ := s.life.finish(); ok {
		s.cb.onResult(transcript)
		s.cb.onEnd()
	}
}

func (s *uploadSession) Abort() {
	if !s.life.abort() {
		return
	}
	s.releaseMicrophone()
}

func (s *uploadSession) State() domain.RecognitionState {
	return s.life.current()
}

// endQuietly closes a session stopped before any audio was captured.
func (s *uploadSession) endQuietly() {
	if ok, _ := s.life.finish(); ok {
		s.cb.onEnd()
	}
}

func (s *uploadSession) fail(record domain.ErrorRecord) {
	if !s.life.fail() {
		return
	}
	s.releaseMicrophone()
	s.cb.onError(record)
}

// releaseMicrophone stops capture and waits for the recorder to drain.
func (s *uploadSession) releaseMicrophone() {
	s.mu.Lock()
	mic := s.audio
	done := s.done
	s.audio = nil
	s.mu.Unlock()

	if mic == nil {
		return
	}
	_ = mic.Stop()
	if done != nil {
		if !waitForDone(done, s.drain) {
			_ = mic.Close()
			<-done
		}
	}
}
