package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"auravox/internal/chat"
)

const defaultQueueSize = 256

// Result reports the outcome of one webhook delivery.
type Result struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Notifier fans persisted changes out to subscribers and, when forwarding is
// enabled, to the current webhook. Deliveries run on one worker goroutine in
// publish order.
type Notifier struct {
	repo    Repository
	client  *Client
	forward bool
	logger  logr.Logger
	now     func() time.Time

	queue chan chat.ChangeEvent

	mu          sync.RWMutex
	subscribers []func(chat.ChangeEvent)
	dropped     int
}

func NewNotifier(repo Repository, client *Client, forward bool, logger logr.Logger) *Notifier {
	return &Notifier{
		repo:    repo,
		client:  client,
		forward: forward,
		logger:  logger.WithName("webhook-notifier"),
		now:     time.Now,
		queue:   make(chan chat.ChangeEvent, defaultQueueSize),
	}
}

// Subscribe registers fn for every change delivered by the worker.
func (n *Notifier) Subscribe(fn func(chat.ChangeEvent)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscribers = append(n.subscribers, fn)
}

// Publish enqueues a change without blocking. Changes are dropped when the
// queue is full.
func (n *Notifier) Publish(event chat.ChangeEvent) {
	select {
	case n.queue <- event:
	default:
		n.mu.Lock()
		n.dropped++
		n.mu.Unlock()
		n.logger.Info("change queue full, dropping event", "table", event.Table, "event", event.Event)
	}
}

// Dropped reports how many changes were discarded because the queue was full.
func (n *Notifier) Dropped() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.dropped
}

// Run delivers queued changes until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-n.queue:
			n.deliver(ctx, event)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, event chat.ChangeEvent) {
	n.mu.RLock()
	subscribers := append([]func(chat.ChangeEvent){}, n.subscribers...)
	n.mu.RUnlock()
	for _, fn := range subscribers {
		fn(event)
	}

	if !n.forward {
		return
	}
	result := n.send(ctx, event)
	if !result.Success && result.Error != "" {
		n.logger.Error(errors.New(result.Error), "forwarding change failed", "table", event.Table, "event", event.Event)
	}
}

// Test posts a test payload to the current webhook.
func (n *Notifier) Test(ctx context.Context) Result {
	now := n.now().UTC()
	return n.send(ctx, chat.ChangeEvent{
		Event: chat.ChangeInsert,
		Table: "test",
		Record: map[string]any{
			"id":        "test-id",
			"message":   "This is a test webhook from Auravox",
			"timestamp": now.Format(time.RFC3339Nano),
		},
		Timestamp: now,
	})
}

func (n *Notifier) send(ctx context.Context, event chat.ChangeEvent) Result {
	current, err := active(ctx, n.repo)
	if errors.Is(err, chat.ErrNoWebhook) {
		return Result{Message: "Webhook not configured or inactive"}
	}
	if err != nil {
		return Result{Message: "Failed to load webhook", Error: err.Error()}
	}

	body, err := n.client.Post(ctx, current.URL, event)
	if err != nil {
		return Result{Message: "Failed to send webhook", Error: err.Error()}
	}
	result := Result{Success: true, Message: "Webhook sent successfully"}
	if json.Valid(body) {
		result.Data = body
	}
	return result
}
