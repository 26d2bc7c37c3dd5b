package usecase

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"

	"auravox/internal/ports"
)

// chunkRecorder buffers microphone chunks until the recording is stopped.
type chunkRecorder struct {
	mu     sync.Mutex
	chunks [][]byte
	size   int
	err    error
}

func newChunkRecorder() *chunkRecorder {
	return &chunkRecorder{}
}

// record reads audio until EOF or a read error, then closes done.
func (r *chunkRecorder) record(audio ports.AudioSession, chunkSize int, done chan struct{}) {
	defer close(done)

	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			r.mu.Lock()
			r.chunks = append(r.chunks, chunk)
			r.size += n
			r.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.mu.Lock()
				r.err = err
				r.mu.Unlock()
			}
			return
		}
	}
}

func (r *chunkRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

func (r *chunkRecorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Assemble concatenates the recorded chunks in capture order.
func (r *chunkRecorder) Assemble() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out bytes.Buffer
	out.Grow(r.size)
	for _, chunk := range r.chunks {
		out.Write(chunk)
	}
	return out.Bytes()
}

// waitForDone waits for a reader goroutine, giving up after timeout.
func waitForDone(done <-chan struct{}, timeout time.Duration) bool {
	if timeout <= 0 {
		<-done
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
