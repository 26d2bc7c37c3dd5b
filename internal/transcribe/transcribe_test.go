package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCannedReturnsOneOfTheSentences(t *testing.T) {
	canned := NewCanned(nil)
	for i := 0; i < 20; i++ {
		text, err := canned.Transcribe(context.Background(), "ignored.wav")
		require.NoError(t, err)
		assert.Contains(t, Sentences, text)
	}
	assert.Len(t, Sentences, 8)
	assert.Equal(t, "canned", canned.Name())
}

func TestCannedUsesInjectedPick(t *testing.T) {
	text, err := NewCanned(func(int) int { return 4 }).Transcribe(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Voice recognition is working properly", text)

	text, err = NewCanned(func(int) int { return 42 }).Transcribe(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, Sentences[0], text)
}

func TestCannedHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCanned(nil).Transcribe(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeAudioClient struct {
	req  openai.AudioRequest
	resp openai.AudioResponse
	err  error
}

func (f *fakeAudioClient) CreateTranscription(_ context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestWhisperBuildsRequest(t *testing.T) {
	client := &fakeAudioClient{resp: openai.AudioResponse{Text: "  hello world \n"}}
	w := newWhisper(client, "", "en")

	text, err := w.Transcribe(context.Background(), "/tmp/upload.wav")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, openai.Whisper1, client.req.Model)
	assert.Equal(t, "/tmp/upload.wav", client.req.FilePath)
	assert.Equal(t, "en", client.req.Language)
	assert.Equal(t, "whisper", w.Name())
}

func TestWhisperWrapsErrors(t *testing.T) {
	boom := errors.New("rate limited")
	_, err := newWhisper(&fakeAudioClient{err: boom}, "whisper-1", "").Transcribe(context.Background(), "a.wav")
	assert.ErrorIs(t, err, boom)
}

func TestSpoolWritesFileWithPattern(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	path, err := Spool(dir, "audio-*.webm", strings.NewReader("RIFF"))
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, ".webm"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data))
}
