package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"auravox/internal/chat"
)

const (
	tableConversations = "conversations"
	tableMessages      = "messages"
)

const conversationColumns = `id, user_id, title, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (chat.Conversation, error) {
	var c chat.Conversation
	var created, updated int64
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &created, &updated); err != nil {
		return chat.Conversation{}, err
	}
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return c, nil
}

func (s *Store) CreateConversation(ctx context.Context, userID string, title string) (chat.Conversation, error) {
	now := s.timestamp()
	c := chat.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: fromMillis(now),
		UpdatedAt: fromMillis(now),
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO conversations (id, user_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`), c.ID, c.UserID, c.Title, now, now)
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("insert conversation: %w", err)
	}
	s.emit(chat.ChangeInsert, tableConversations, c, nil, userID)
	return c, nil
}

// GetConversation returns the conversation only when it belongs to userID.
func (s *Store) GetConversation(ctx context.Context, userID string, id string) (chat.Conversation, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+conversationColumns+` FROM conversations WHERE id = ? AND user_id = ?
	`), id, userID)
	c, err := scanConversation(row)
	if err != nil {
		return chat.Conversation{}, notFound(err, "conversation "+id)
	}
	return c, nil
}

// ListConversations returns the user's conversations, most recently updated first.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+conversationColumns+` FROM conversations
		WHERE user_id = ?
		ORDER BY updated_at DESC, created_at DESC
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	return collectConversations(rows)
}

// AllConversations returns every conversation for reporting.
func (s *Store) AllConversations(ctx context.Context) ([]chat.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+conversationColumns+` FROM conversations ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	return collectConversations(rows)
}

func collectConversations(rows *sql.Rows) ([]chat.Conversation, error) {
	defer rows.Close()
	conversations := []chat.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

func (s *Store) RenameConversation(ctx context.Context, userID string, id string, title string) (chat.Conversation, error) {
	var before, after chat.Conversation
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		before, err = scanConversation(tx.QueryRowContext(ctx, s.rebind(`
			SELECT `+conversationColumns+` FROM conversations WHERE id = ? AND user_id = ?
		`), id, userID))
		if err != nil {
			return notFound(err, "conversation "+id)
		}

		now := s.timestamp()
		if _, err := tx.ExecContext(ctx, s.rebind(`
			UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?
		`), title, now, id); err != nil {
			return fmt.Errorf("update conversation: %w", err)
		}
		after = before
		after.Title = title
		after.UpdatedAt = fromMillis(now)
		return nil
	})
	if err != nil {
		return chat.Conversation{}, err
	}
	s.emit(chat.ChangeUpdate, tableConversations, after, before, userID)
	return after, nil
}

// DeleteConversation removes the conversation and its messages.
func (s *Store) DeleteConversation(ctx context.Context, userID string, id string) error {
	var removed chat.Conversation
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		removed, err = scanConversation(tx.QueryRowContext(ctx, s.rebind(`
			SELECT `+conversationColumns+` FROM conversations WHERE id = ? AND user_id = ?
		`), id, userID))
		if err != nil {
			return notFound(err, "conversation "+id)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM messages WHERE conversation_id = ?`), id); err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM conversations WHERE id = ?`), id); err != nil {
			return fmt.Errorf("delete conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(chat.ChangeDelete, tableConversations, nil, removed, userID)
	return nil
}

const messageColumns = `id, conversation_id, user_id, role, content, created_at`

func scanMessage(row rowScanner) (chat.Message, error) {
	var m chat.Message
	var role string
	var created int64
	if err := row.Scan(&m.ID, &m.ConversationID, &m.UserID, &role, &m.Content, &created); err != nil {
		return chat.Message{}, err
	}
	m.Role = chat.Role(role)
	m.CreatedAt = fromMillis(created)
	return m, nil
}

// AddMessage appends a message and touches the conversation. Timestamps are
// kept strictly increasing within a conversation so ordering is stable.
func (s *Store) AddMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var latest int64
		if err := tx.QueryRowContext(ctx, s.rebind(`
			SELECT COALESCE(MAX(created_at), 0) FROM messages WHERE conversation_id = ?
		`), msg.ConversationID).Scan(&latest); err != nil {
			return fmt.Errorf("query latest message: %w", err)
		}

		now := s.timestamp()
		if now <= latest {
			now = latest + 1
		}
		msg.ID = uuid.NewString()
		msg.CreatedAt = fromMillis(now)

		if _, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO messages (id, conversation_id, user_id, role, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`), msg.ID, msg.ConversationID, msg.UserID, string(msg.Role), msg.Content, now); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		res, err := tx.ExecContext(ctx, s.rebind(`
			UPDATE conversations SET updated_at = ? WHERE id = ?
		`), now, msg.ConversationID)
		if err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("conversation %s: %w", msg.ConversationID, chat.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return chat.Message{}, err
	}
	s.emit(chat.ChangeInsert, tableMessages, msg, nil, msg.UserID)
	return msg, nil
}

// ListMessages returns a conversation's messages, oldest first.
func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC
	`), conversationID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	return collectMessages(rows)
}

func (s *Store) AllMessages(ctx context.Context) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+messageColumns+` FROM messages ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	return collectMessages(rows)
}

func collectMessages(rows *sql.Rows) ([]chat.Message, error) {
	defer rows.Close()
	messages := []chat.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
