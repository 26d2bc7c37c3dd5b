package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"auravox/internal/chat"
)

// Repository persists webhooks and their assignment.
type Repository interface {
	CreateWebhook(ctx context.Context, name string, url string) (chat.Webhook, error)
	GetWebhook(ctx context.Context, id string) (chat.Webhook, error)
	ListWebhooks(ctx context.Context) ([]chat.Webhook, error)
	UpdateWebhook(ctx context.Context, w chat.Webhook) (chat.Webhook, error)
	DeleteWebhook(ctx context.Context, id string) error
	AssignWebhook(ctx context.Context, id string) error
	CurrentWebhook(ctx context.Context) (chat.Webhook, error)
}

// Manager validates and applies admin changes to webhooks.
type Manager struct {
	repo Repository
}

func NewManager(repo Repository) *Manager {
	return &Manager{repo: repo}
}

func (m *Manager) Add(ctx context.Context, name string, endpoint string) (chat.Webhook, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return chat.Webhook{}, fmt.Errorf("%w: webhook name is required", chat.ErrInvalidInput)
	}
	endpoint, err := validateURL(endpoint)
	if err != nil {
		return chat.Webhook{}, err
	}
	return m.repo.CreateWebhook(ctx, name, endpoint)
}

func (m *Manager) List(ctx context.Context) ([]chat.Webhook, error) {
	return m.repo.ListWebhooks(ctx)
}

// Update is a partial update. Nil fields keep their stored value.
type Update struct {
	Name     *string `json:"name"`
	URL      *string `json:"url"`
	IsActive *bool   `json:"is_active"`
}

func (m *Manager) Update(ctx context.Context, id string, update Update) (chat.Webhook, error) {
	current, err := m.repo.GetWebhook(ctx, id)
	if err != nil {
		return chat.Webhook{}, err
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return chat.Webhook{}, fmt.Errorf("%w: webhook name is required", chat.ErrInvalidInput)
		}
		current.Name = name
	}
	if update.URL != nil {
		endpoint, err := validateURL(*update.URL)
		if err != nil {
			return chat.Webhook{}, err
		}
		current.URL = endpoint
	}
	if update.IsActive != nil {
		current.IsActive = *update.IsActive
	}
	return m.repo.UpdateWebhook(ctx, current)
}

func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.repo.DeleteWebhook(ctx, id)
}

func (m *Manager) Assign(ctx context.Context, id string) (chat.Webhook, error) {
	if err := m.repo.AssignWebhook(ctx, id); err != nil {
		return chat.Webhook{}, err
	}
	return m.repo.CurrentWebhook(ctx)
}

func (m *Manager) Current(ctx context.Context) (chat.Webhook, error) {
	return m.repo.CurrentWebhook(ctx)
}

// active returns the current webhook when it can receive requests.
func active(ctx context.Context, repo Repository) (chat.Webhook, error) {
	current, err := repo.CurrentWebhook(ctx)
	if errors.Is(err, chat.ErrNotFound) {
		return chat.Webhook{}, chat.ErrNoWebhook
	}
	if err != nil {
		return chat.Webhook{}, err
	}
	if !current.IsActive || strings.TrimSpace(current.URL) == "" {
		return chat.Webhook{}, chat.ErrNoWebhook
	}
	return current, nil
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("%w: webhook url must be an absolute http(s) url", chat.ErrInvalidInput)
	}
	return raw, nil
}
