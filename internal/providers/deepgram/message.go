package deepgram

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"auravox/internal/ports"
)

type alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type channelResult struct {
	Alternatives []alternative `json:"alternatives"`
}

// listenMessage covers the Results, Metadata and Error messages of the live
// endpoint. Only the fields the engine needs are decoded.
type listenMessage struct {
	Type        string        `json:"type"`
	Message     string        `json:"message"`
	Description string        `json:"description"`
	IsFinal     bool          `json:"is_final"`
	SpeechFinal bool          `json:"speech_final"`
	Channel     channelResult `json:"channel"`
	Results     struct {
		Channels []channelResult `json:"channels"`
	} `json:"results"`
}

func (m listenMessage) isError() bool {
	return strings.EqualFold(m.Type, "Error")
}

func (m listenMessage) errorText() string {
	for _, text := range []string{m.Message, m.Description} {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return trimmed
		}
	}
	return "deepgram returned an unknown error"
}

func (m listenMessage) transcript() string {
	if text := firstTranscript(m.Channel); text != "" {
		return text
	}
	if len(m.Results.Channels) > 0 {
		return firstTranscript(m.Results.Channels[0])
	}
	return ""
}

func firstTranscript(channel channelResult) string {
	if len(channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(channel.Alternatives[0].Transcript)
}

func buildListenURL(cfg Config, engineCfg ports.EngineConfig) (string, error) {
	base := strings.TrimSpace(cfg.APIBaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	listenURL, err := url.Parse(strings.TrimRight(base, "/") + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	sampleRate := engineCfg.Audio.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	channels := engineCfg.Audio.Channels
	if channels <= 0 {
		channels = 1
	}
	language := firstNonEmpty(engineCfg.Language, cfg.Language)

	query := listenURL.Query()
	query.Set("model", cfg.Model)
	query.Set("encoding", "linear16")
	query.Set("sample_rate", strconv.Itoa(sampleRate))
	query.Set("channels", strconv.Itoa(channels))
	query.Set("interim_results", strconv.FormatBool(engineCfg.InterimResults))
	query.Set("smart_format", strconv.FormatBool(cfg.SmartFormat))
	if language != "" {
		query.Set("language", language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
