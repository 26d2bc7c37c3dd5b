package usecase

import (
	"errors"
	"testing"
	"time"
)

func TestChunkRecorderAssemblesChunksInOrder(t *testing.T) {
	t.Parallel()

	audio := &fakeAudioSession{chunks: [][]byte{[]byte("ab"), []byte("cd"), []byte("e")}}
	recorder := newChunkRecorder()
	done := make(chan struct{})

	go recorder.record(audio, 256, done)
	<-done

	if got := string(recorder.Assemble()); got != "abcde" {
		t.Fatalf("unexpected assembled audio: %q", got)
	}
	if recorder.Len() != 5 {
		t.Fatalf("unexpected length: %d", recorder.Len())
	}
	if recorder.Err() != nil {
		t.Fatalf("EOF should not be recorded as an error: %v", recorder.Err())
	}
}

func TestChunkRecorderKeepsReadError(t *testing.T) {
	t.Parallel()

	recorder := newChunkRecorder()
	done := make(chan struct{})

	go recorder.record(&errorAudioSession{err: errors.New("read failed")}, 256, done)
	<-done

	if recorder.Err() == nil || recorder.Err().Error() != "read failed" {
		t.Fatalf("expected read error, got %v", recorder.Err())
	}
	if recorder.Len() != 0 {
		t.Fatalf("expected empty recording")
	}
}

func TestWaitForDoneTimesOut(t *testing.T) {
	t.Parallel()

	if waitForDone(make(chan struct{}), 10*time.Millisecond) {
		t.Fatalf("expected timeout")
	}

	done := make(chan struct{})
	close(done)
	if !waitForDone(done, time.Second) {
		t.Fatalf("expected closed channel to report done")
	}
}

type errorAudioSession struct {
	err error
}

func (s *errorAudioSession) Read(_ []byte) (int, error) { return 0, s.err }
func (s *errorAudioSession) Close() error               { return nil }
func (s *errorAudioSession) Stop() error                { return nil }
