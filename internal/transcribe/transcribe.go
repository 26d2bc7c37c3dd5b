package transcribe

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Transcriber turns one uploaded recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
	Name() string
}

// Sentences are the canned mock transcripts.
var Sentences = []string{
	"Hello, how are you today?",
	"This is a test message from voice recognition",
	"The weather is nice today",
	"I would like to send a message",
	"Voice recognition is working properly",
	"Thank you for using our service",
	"This is a demonstration of voice input",
	"The system is functioning correctly",
}

// Canned ignores the audio and returns a random sentence.
type Canned struct {
	pick func(n int) int
}

// NewCanned uses pick to choose a sentence; nil picks at random.
func NewCanned(pick func(n int) int) *Canned {
	if pick == nil {
		pick = rand.IntN
	}
	return &Canned{pick: pick}
}

func (c *Canned) Name() string {
	return "canned"
}

func (c *Canned) Transcribe(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	i := c.pick(len(Sentences))
	if i < 0 || i >= len(Sentences) {
		i = 0
	}
	return Sentences[i], nil
}

type audioTranscriber interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// Whisper transcribes through the OpenAI audio API.
type Whisper struct {
	client   audioTranscriber
	model    string
	language string
}

func NewWhisper(apiKey string, model string, language string) *Whisper {
	return newWhisper(openai.NewClient(apiKey), model, language)
}

func newWhisper(client audioTranscriber, model string, language string) *Whisper {
	if strings.TrimSpace(model) == "" {
		model = openai.Whisper1
	}
	return &Whisper{client: client, model: model, language: language}
}

func (w *Whisper) Name() string {
	return "whisper"
}

func (w *Whisper) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: path,
		Language: w.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
