package webhook

import (
	"context"

	"auravox/internal/chat"
)

// Responder answers chat messages through the current webhook.
type Responder struct {
	repo   Repository
	client *Client
}

func NewResponder(repo Repository, client *Client) *Responder {
	return &Responder{repo: repo, client: client}
}

// Reply returns chat.ErrNoWebhook when no active webhook is assigned.
func (r *Responder) Reply(ctx context.Context, userID string, message string) (string, error) {
	current, err := active(ctx, r.repo)
	if err != nil {
		return "", err
	}
	return r.client.Ask(ctx, current.URL, userID, message)
}

var _ chat.Responder = (*Responder)(nil)
