package chat

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-logr/logr"
)

const (
	titleLength      = 50
	defaultTitle     = "New Chat"
	apologyReply     = "I'm sorry, I'm having trouble responding right now. Please check your internet connection or try again later."
	emptyReplyNotice = "I received your message but couldn't generate a proper response."
)

// Repository persists profiles, conversations and messages.
type Repository interface {
	CreateConversation(ctx context.Context, userID string, title string) (Conversation, error)
	GetConversation(ctx context.Context, userID string, id string) (Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]Conversation, error)
	RenameConversation(ctx context.Context, userID string, id string, title string) (Conversation, error)
	DeleteConversation(ctx context.Context, userID string, id string) error
	AddMessage(ctx context.Context, msg Message) (Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
	GetProfile(ctx context.Context, id string) (Profile, error)
	UpsertProfile(ctx context.Context, profile Profile) (Profile, error)
}

// Responder produces the assistant reply for a user message. It returns
// ErrNoWebhook when nothing is configured to answer.
type Responder interface {
	Reply(ctx context.Context, userID string, message string) (string, error)
}

// Exchange is the result of one SendMessage call.
type Exchange struct {
	ConversationID string  `json:"conversation_id"`
	User           Message `json:"user"`
	Assistant      Message `json:"assistant"`
}

type Service struct {
	repo      Repository
	responder Responder
	logger    logr.Logger
	pick      func(n int) int

	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewService(repo Repository, responder Responder, logger logr.Logger) *Service {
	return &Service{
		repo:      repo,
		responder: responder,
		logger:    logger.WithName("chat"),
		pick:      rand.IntN,
		profiles:  map[string]Profile{},
	}
}

// SendMessage stores the user's message, asks the responder for a reply and
// stores that too. A missing conversation id starts a new conversation titled
// from the message. Responder failures become an apology instead of an error.
func (s *Service) SendMessage(ctx context.Context, userID string, conversationID string, content string) (Exchange, error) {
	if strings.TrimSpace(userID) == "" {
		return Exchange{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(content) == "" {
		return Exchange{}, fmt.Errorf("%w: message content is empty", ErrInvalidInput)
	}

	var conversation Conversation
	var err error
	if conversationID == "" {
		conversation, err = s.repo.CreateConversation(ctx, userID, titleFrom(content))
	} else {
		conversation, err = s.repo.GetConversation(ctx, userID, conversationID)
	}
	if err != nil {
		return Exchange{}, err
	}

	userMsg, err := s.repo.AddMessage(ctx, Message{
		ConversationID: conversation.ID,
		UserID:         userID,
		Role:           RoleUser,
		Content:        content,
	})
	if err != nil {
		return Exchange{}, fmt.Errorf("save user message: %w", err)
	}

	reply := s.reply(ctx, userID, content)
	assistantMsg, err := s.repo.AddMessage(ctx, Message{
		ConversationID: conversation.ID,
		UserID:         userID,
		Role:           RoleAssistant,
		Content:        reply,
	})
	if err != nil {
		return Exchange{}, fmt.Errorf("save assistant message: %w", err)
	}
	assistantMsg.Content = CleanReply(assistantMsg.Content)

	return Exchange{ConversationID: conversation.ID, User: userMsg, Assistant: assistantMsg}, nil
}

func (s *Service) reply(ctx context.Context, userID string, content string) string {
	if s.responder == nil {
		return fallbackReply(content, s.pick)
	}
	text, err := s.responder.Reply(ctx, userID, content)
	switch {
	case errors.Is(err, ErrNoWebhook):
		s.logger.V(1).Info("no webhook configured, using fallback reply")
		return fallbackReply(content, s.pick)
	case err != nil:
		s.logger.Error(err, "responder failed")
		return apologyReply
	case strings.TrimSpace(text) == "":
		return emptyReplyNotice
	default:
		return text
	}
}

func (s *Service) Conversations(ctx context.Context, userID string) ([]Conversation, error) {
	return s.repo.ListConversations(ctx, userID)
}

func (s *Service) CreateConversation(ctx context.Context, userID string, title string) (Conversation, error) {
	if strings.TrimSpace(userID) == "" {
		return Conversation{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle
	}
	return s.repo.CreateConversation(ctx, userID, title)
}

func (s *Service) RenameConversation(ctx context.Context, userID string, id string, title string) (Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Conversation{}, fmt.Errorf("%w: title is empty", ErrInvalidInput)
	}
	return s.repo.RenameConversation(ctx, userID, id, title)
}

func (s *Service) DeleteConversation(ctx context.Context, userID string, id string) error {
	return s.repo.DeleteConversation(ctx, userID, id)
}

// Messages returns a conversation's messages oldest first, with assistant
// replies cleaned for display.
func (s *Service) Messages(ctx context.Context, userID string, conversationID string) ([]Message, error) {
	if _, err := s.repo.GetConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	messages, err := s.repo.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		if messages[i].Role == RoleAssistant {
			messages[i].Content = CleanReply(messages[i].Content)
		}
	}
	return messages, nil
}

// Profile returns a cached profile when one was loaded before.
func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	s.mu.RLock()
	cached, ok := s.profiles[userID]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	s.cacheProfile(profile)
	return profile, nil
}

func (s *Service) SaveProfile(ctx context.Context, profile Profile) (Profile, error) {
	if strings.TrimSpace(profile.ID) == "" {
		return Profile{}, fmt.Errorf("%w: profile id is required", ErrInvalidInput)
	}
	saved, err := s.repo.UpsertProfile(ctx, profile)
	if err != nil {
		return Profile{}, err
	}
	s.cacheProfile(saved)
	return saved, nil
}

// ForgetProfile drops one cached profile, or all of them for an empty id.
func (s *Service) ForgetProfile(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if userID == "" {
		s.profiles = map[string]Profile{}
		return
	}
	delete(s.profiles, userID)
}

func (s *Service) cacheProfile(profile Profile) {
	s.mu.Lock()
	s.profiles[profile.ID] = profile
	s.mu.Unlock()
}

func titleFrom(content string) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) > titleLength {
		content = string([]rune(content)[:titleLength])
	}
	return content + "..."
}
