package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"auravox/internal/domain"
	"auravox/internal/ports"
)

const (
	defaultSampleRate = 16000
	defaultChannels   = 1
	startupWindow     = 250 * time.Millisecond
	interruptGrace    = 1200 * time.Millisecond
)

// permissionMarkers are ffmpeg stderr fragments that mean the OS refused
// access to the input device.
var permissionMarkers = []string{
	"permission denied",
	"operation not permitted",
	"access denied",
	"not authorized",
}

// Microphone captures PCM s16le audio from the default input through ffmpeg.
type Microphone struct {
	command string
	logger  logr.Logger
}

func NewMicrophone(command string, logger logr.Logger) *Microphone {
	if command == "" {
		command = "ffmpeg"
	}
	return &Microphone{command: command, logger: logger.WithName("microphone")}
}

// Available reports whether the capture binary can be found.
func (m *Microphone) Available() bool {
	_, err := exec.LookPath(m.command)
	return err == nil
}

func (m *Microphone) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cfg = withDefaults(cfg)

	cmd := exec.CommandContext(ctx, m.command, captureArgs(cfg)...)
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr

	// The pipe is owned here rather than through StdoutPipe so reaping the
	// process never closes the read side before the tail has been drained.
	stdout, sink, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("open capture pipe: %w", err)
	}
	cmd.Stdout = sink
	if err := cmd.Start(); err != nil {
		_ = stdout.Close()
		_ = sink.Close()
		return nil, fmt.Errorf("start %s: %w", m.command, err)
	}
	_ = sink.Close()

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
		close(exited)
	}()

	timer := time.NewTimer(startupWindow)
	defer timer.Stop()
	select {
	case err := <-exited:
		_ = stdout.Close()
		return nil, classifyStartFailure(err, stderr.String())
	case <-timer.C:
	}

	m.logger.V(1).Info("microphone opened", "format", cfg.InputFormat, "device", cfg.InputDevice, "rate", cfg.SampleRate)
	return &captureSession{stdout: stdout, stderr: stderr, process: cmd.Process, exited: exited, logger: m.logger}, nil
}

func withDefaults(cfg ports.AudioConfig) ports.AudioConfig {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = defaultChannels
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	return cfg
}

func captureArgs(cfg ports.AudioConfig) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

// classifyStartFailure wraps domain.ErrPermissionDenied when the capture
// process reports a refusal, so callers can tell it apart from a missing device.
func classifyStartFailure(waitErr error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	lower := strings.ToLower(detail)
	for _, marker := range permissionMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, detail)
		}
	}
	if waitErr != nil {
		if detail == "" {
			return fmt.Errorf("capture exited before audio started: %w", waitErr)
		}
		return fmt.Errorf("capture exited before audio started: %w: %s", waitErr, detail)
	}
	return errors.New("capture exited before audio started")
}

type captureSession struct {
	stdout  *os.File
	stderr  *lockedBuffer
	process *os.Process
	exited  <-chan error
	logger  logr.Logger

	once      sync.Once
	closeOnce sync.Once
	stopErr   error
}

// Read keeps returning buffered audio after Stop until ffmpeg's output is
// exhausted.
func (s *captureSession) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if errors.Is(err, os.ErrClosed) {
		return n, io.EOF
	}
	if errors.Is(err, io.EOF) {
		s.closeReader()
	}
	return n, err
}

// Close stops capture and discards any audio not yet read.
func (s *captureSession) Close() error {
	err := s.Stop()
	s.closeReader()
	return err
}

func (s *captureSession) closeReader() {
	s.closeOnce.Do(func() {
		_ = s.stdout.Close()
	})
}

// Stop interrupts ffmpeg so it flushes, then kills it if it lingers. The
// read side stays open so the flushed tail can still be read.
func (s *captureSession) Stop() error {
	s.once.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		timer := time.NewTimer(interruptGrace)
		defer timer.Stop()
		select {
		case err, ok := <-s.exited:
			if ok {
				s.stopErr = ignoreExitStatus(err)
			}
		case <-timer.C:
			if s.process != nil {
				_ = s.process.Kill()
			}
			if err, ok := <-s.exited; ok {
				s.stopErr = ignoreExitStatus(err)
			}
		}
		if s.stopErr != nil {
			if detail := strings.TrimSpace(s.stderr.String()); detail != "" {
				s.stopErr = fmt.Errorf("%w: %s", s.stopErr, detail)
			}
		}
		s.logger.V(1).Info("microphone released")
	})
	return s.stopErr
}

// ignoreExitStatus drops the non-zero exit ffmpeg reports after SIGINT.
func ignoreExitStatus(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
