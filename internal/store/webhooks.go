package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"auravox/internal/chat"
)

const (
	tableWebhooks    = "webhooks"
	tableAssignments = "webhook_assignments"
)

const webhookColumns = `w.id, w.name, w.url, w.is_active, w.created_at, w.updated_at`

func scanWebhook(row rowScanner) (chat.Webhook, error) {
	var w chat.Webhook
	var active int
	var created, updated int64
	if err := row.Scan(&w.ID, &w.Name, &w.URL, &active, &created, &updated); err != nil {
		return chat.Webhook{}, err
	}
	w.IsActive = active != 0
	w.CreatedAt = fromMillis(created)
	w.UpdatedAt = fromMillis(updated)
	return w, nil
}

func (s *Store) CreateWebhook(ctx context.Context, name string, url string) (chat.Webhook, error) {
	now := s.timestamp()
	w := chat.Webhook{
		ID:        uuid.NewString(),
		Name:      name,
		URL:       url,
		IsActive:  true,
		CreatedAt: fromMillis(now),
		UpdatedAt: fromMillis(now),
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO webhooks (id, name, url, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), w.ID, w.Name, w.URL, 1, now, now); err != nil {
		return chat.Webhook{}, fmt.Errorf("insert webhook: %w", err)
	}
	s.emit(chat.ChangeInsert, tableWebhooks, w, nil, "")
	return w, nil
}

func (s *Store) GetWebhook(ctx context.Context, id string) (chat.Webhook, error) {
	w, err := scanWebhook(s.db.QueryRowContext(ctx, s.rebind(`SELECT `+webhookColumns+` FROM webhooks w WHERE w.id = ?`), id))
	if err != nil {
		return chat.Webhook{}, notFound(err, "webhook "+id)
	}
	return w, nil
}

func (s *Store) ListWebhooks(ctx context.Context) ([]chat.Webhook, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+webhookColumns+` FROM webhooks w ORDER BY w.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query webhooks: %w", err)
	}
	defer rows.Close()

	webhooks := []chat.Webhook{}
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

// UpdateWebhook replaces the editable fields of a webhook.
func (s *Store) UpdateWebhook(ctx context.Context, w chat.Webhook) (chat.Webhook, error) {
	var before chat.Webhook
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		before, err = scanWebhook(tx.QueryRowContext(ctx, s.rebind(`SELECT `+webhookColumns+` FROM webhooks w WHERE w.id = ?`), w.ID))
		if err != nil {
			return notFound(err, "webhook "+w.ID)
		}
		now := s.timestamp()
		if _, err := tx.ExecContext(ctx, s.rebind(`
			UPDATE webhooks SET name = ?, url = ?, is_active = ?, updated_at = ? WHERE id = ?
		`), w.Name, w.URL, boolToInt(w.IsActive), now, w.ID); err != nil {
			return fmt.Errorf("update webhook: %w", err)
		}
		w.CreatedAt = before.CreatedAt
		w.UpdatedAt = fromMillis(now)
		return nil
	})
	if err != nil {
		return chat.Webhook{}, err
	}
	s.emit(chat.ChangeUpdate, tableWebhooks, w, before, "")
	return w, nil
}

// DeleteWebhook removes a webhook together with its assignments.
func (s *Store) DeleteWebhook(ctx context.Context, id string) error {
	var removed chat.Webhook
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		removed, err = scanWebhook(tx.QueryRowContext(ctx, s.rebind(`SELECT `+webhookColumns+` FROM webhooks w WHERE w.id = ?`), id))
		if err != nil {
			return notFound(err, "webhook "+id)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM webhook_assignments WHERE webhook_id = ?`), id); err != nil {
			return fmt.Errorf("delete assignments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM webhooks WHERE id = ?`), id); err != nil {
			return fmt.Errorf("delete webhook: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(chat.ChangeDelete, tableWebhooks, nil, removed, "")
	return nil
}

type assignment struct {
	ID        string `json:"id"`
	WebhookID string `json:"webhook_id"`
	IsActive  bool   `json:"is_active"`
}

// AssignWebhook makes id the current webhook. Every earlier assignment is
// deactivated first so exactly one stays active.
func (s *Store) AssignWebhook(ctx context.Context, id string) error {
	created := assignment{ID: uuid.NewString(), WebhookID: id, IsActive: true}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM webhooks WHERE id = ?`), id).Scan(&exists); err != nil {
			return fmt.Errorf("query webhook: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("webhook %s: %w", id, chat.ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE webhook_assignments SET is_active = 0 WHERE is_active = 1`); err != nil {
			return fmt.Errorf("deactivate assignments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO webhook_assignments (id, webhook_id, is_active, created_at)
			VALUES (?, ?, 1, ?)
		`), created.ID, id, s.timestamp()); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(chat.ChangeInsert, tableAssignments, created, nil, "")
	return nil
}

// CurrentWebhook returns the webhook behind the active assignment, or
// chat.ErrNotFound when none is assigned.
func (s *Store) CurrentWebhook(ctx context.Context) (chat.Webhook, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+webhookColumns+`
		FROM webhook_assignments a
		JOIN webhooks w ON w.id = a.webhook_id
		WHERE a.is_active = 1
		ORDER BY a.created_at DESC
		LIMIT 1
	`)
	w, err := scanWebhook(row)
	if err != nil {
		return chat.Webhook{}, notFound(err, "current webhook")
	}
	return w, nil
}
