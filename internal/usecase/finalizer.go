package usecase

import (
	"context"

	"github.com/go-logr/logr"

	"auravox/internal/domain"
	"auravox/internal/ports"
)

type transcriptFinalizer struct {
	rules  ports.RulesEngine
	sender ports.MessageSender
	events ports.EventSink
	logger logr.Logger
}

func newTranscriptFinalizer(rules ports.RulesEngine, sender ports.MessageSender, events ports.EventSink, logger logr.Logger) transcriptFinalizer {
	return transcriptFinalizer{rules: rules, sender: sender, events: events, logger: logger}
}

// Finalize applies transcript rules, emits the final transcript and hands it
// to the chat sender. A rules failure delivers the raw text unchanged.
func (f transcriptFinalizer) Finalize(ctx context.Context, method domain.Strategy, raw string) (domain.FinalTranscript, domain.StateReason) {
	transformed := raw
	if f.rules != nil {
		out, err := f.rules.Apply(raw)
		if err != nil {
			f.logger.Error(err, "transcript rules failed, delivering raw text")
		} else {
			transformed = out
		}
	}

	result := domain.FinalTranscript{Method: method, Raw: raw, Transformed: transformed}
	reason := domain.ReasonTranscriptReady

	if f.sender != nil {
		if err := f.sender.Send(ctx, transformed); err != nil {
			f.logger.Error(err, "transcript delivery failed", "method", method)
			reason = domain.ReasonDeliveryFailed
			f.events.RecognitionError(domain.ErrorRecord{
				Kind:        domain.ErrorProcessingFailed,
				Message:     "Transcript ready but the message could not be sent.",
				Recoverable: true,
			})
		} else {
			result.Delivered = true
		}
	}

	f.events.FinalTranscript(result)
	return result, reason
}
