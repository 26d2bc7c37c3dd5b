package usecase

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"auravox/internal/domain"
)

// transcriptAggregator accumulates final segments across result events.
// Interim text is replaced on every event and never reaches the final text.
type transcriptAggregator struct {
	mu      sync.Mutex
	final   strings.Builder
	interim string
}

func newTranscriptAggregator() *transcriptAggregator {
	return &transcriptAggregator{}
}

// Add folds one result event in and returns the running final and interim text.
func (a *transcriptAggregator) Add(segments []domain.Segment) (string, string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var interim strings.Builder
	for _, segment := range segments {
		if segment.Text == "" {
			continue
		}
		if segment.Final {
			appendSegment(&a.final, segment.Text)
			continue
		}
		appendSegment(&interim, segment.Text)
	}
	a.interim = strings.TrimSpace(interim.String())
	return strings.TrimSpace(a.final.String()), a.interim
}

func (a *transcriptAggregator) Final() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.TrimSpace(a.final.String())
}

func (a *transcriptAggregator) Interim() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interim
}

// appendSegment joins engine fragments, inserting a space only when neither
// side already carries one.
func appendSegment(b *strings.Builder, text string) {
	if b.Len() > 0 {
		last, _ := utf8.DecodeLastRuneInString(b.String())
		first, _ := utf8.DecodeRuneInString(text)
		if !unicode.IsSpace(last) && !unicode.IsSpace(first) {
			b.WriteByte(' ')
		}
	}
	b.WriteString(text)
}
