package usecase

import (
	"testing"

	"auravox/internal/domain"
)

func TestTranscriptAggregatorJoinsFinalsAndDropsInterim(t *testing.T) {
	t.Parallel()

	agg := newTranscriptAggregator()
	agg.Add([]domain.Segment{{Text: "hello ", Final: true}})
	final, interim := agg.Add([]domain.Segment{{Text: "world", Final: true}, {Text: "again", Final: false}})

	if final != "hello world" {
		t.Fatalf("unexpected running final: %q", final)
	}
	if interim != "again" {
		t.Fatalf("unexpected interim: %q", interim)
	}
	if got := agg.Final(); got != "hello world" {
		t.Fatalf("unexpected final transcript: %q", got)
	}
}

func TestTranscriptAggregatorInsertsSpaceBetweenBareFragments(t *testing.T) {
	t.Parallel()

	agg := newTranscriptAggregator()
	agg.Add([]domain.Segment{{Text: "book", Final: true}})
	agg.Add([]domain.Segment{{Text: "a flight", Final: true}})

	if got := agg.Final(); got != "book a flight" {
		t.Fatalf("unexpected final transcript: %q", got)
	}
}

func TestTranscriptAggregatorInterimIsOverwritten(t *testing.T) {
	t.Parallel()

	agg := newTranscriptAggregator()
	agg.Add([]domain.Segment{{Text: "hel"}})
	agg.Add([]domain.Segment{{Text: "hello"}})

	if got := agg.Interim(); got != "hello" {
		t.Fatalf("unexpected interim: %q", got)
	}
	if got := agg.Final(); got != "" {
		t.Fatalf("interim leaked into final: %q", got)
	}
}

func TestTranscriptAggregatorSpacesAfterMultibyteRunes(t *testing.T) {
	t.Parallel()

	agg := newTranscriptAggregator()
	agg.Add([]domain.Segment{{Text: "voilà", Final: true}})
	agg.Add([]domain.Segment{{Text: "bien", Final: true}})
	agg.Add([]domain.Segment{{Text: "àpres", Final: true}})

	if got := agg.Final(); got != "voilà bien àpres" {
		t.Fatalf("unexpected final transcript: %q", got)
	}
}
