package chat_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auravox/internal/chat"
	"auravox/internal/store"
)

type fakeResponder struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []string
}

func (f *fakeResponder) Reply(_ context.Context, userID string, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID+":"+message)
	return f.reply, f.err
}

func newService(t *testing.T, responder chat.Responder) (*chat.Service, *store.Store) {
	t.Helper()
	s, err := store.Open(context.Background(), store.DriverSQLite, ":memory:", logr.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return chat.NewService(s, responder, logr.Discard()), s
}

func TestSendMessageCreatesConversationFromContent(t *testing.T) {
	responder := &fakeResponder{reply: "Sure thing."}
	svc, _ := newService(t, responder)
	ctx := context.Background()

	content := strings.Repeat("a", 60)
	exchange, err := svc.SendMessage(ctx, "user-1", "", content)
	require.NoError(t, err)

	conversations, err := svc.Conversations(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Equal(t, strings.Repeat("a", 50)+"...", conversations[0].Title)
	assert.Equal(t, conversations[0].ID, exchange.ConversationID)

	assert.Equal(t, chat.RoleUser, exchange.User.Role)
	assert.Equal(t, "Sure thing.", exchange.Assistant.Content)
	assert.Equal(t, []string{"user-1:" + content}, responder.calls)

	again, err := svc.SendMessage(ctx, "user-1", exchange.ConversationID, "follow up")
	require.NoError(t, err)
	assert.Equal(t, exchange.ConversationID, again.ConversationID)

	messages, err := svc.Messages(ctx, "user-1", exchange.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 4)
	assert.Equal(t, "follow up", messages[2].Content)
}

func TestSendMessageShortTitleStillGetsEllipsis(t *testing.T) {
	svc, _ := newService(t, &fakeResponder{reply: "ok"})
	ctx := context.Background()

	exchange, err := svc.SendMessage(ctx, "user-1", "", "hello")
	require.NoError(t, err)

	conversations, err := svc.Conversations(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Equal(t, "hello...", conversations[0].Title)
	assert.Equal(t, conversations[0].ID, exchange.ConversationID)
}

func TestSendMessageResponderFailureStoresApology(t *testing.T) {
	svc, _ := newService(t, &fakeResponder{err: errors.New("webhook returned status 502")})
	ctx := context.Background()

	exchange, err := svc.SendMessage(ctx, "user-1", "", "hi")
	require.NoError(t, err)
	assert.Contains(t, exchange.Assistant.Content, "I'm sorry, I'm having trouble responding right now.")

	messages, err := svc.Messages(ctx, "user-1", exchange.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, exchange.Assistant.Content, messages[1].Content)
}

func TestSendMessageWithoutWebhookUsesFallback(t *testing.T) {
	svc, _ := newService(t, &fakeResponder{err: chat.ErrNoWebhook})

	exchange, err := svc.SendMessage(context.Background(), "user-1", "", "goroutines")
	require.NoError(t, err)
	assert.Contains(t, exchange.Assistant.Content, "goroutines")
	assert.Contains(t, exchange.Assistant.Content, "webhook")
}

func TestSendMessageEmptyReplyGetsNotice(t *testing.T) {
	svc, _ := newService(t, &fakeResponder{reply: "   "})

	exchange, err := svc.SendMessage(context.Background(), "user-1", "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "I received your message but couldn't generate a proper response.", exchange.Assistant.Content)
}

func TestSendMessageValidation(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, "", "", "hi")
	assert.ErrorIs(t, err, chat.ErrInvalidInput)
	_, err = svc.SendMessage(ctx, "user-1", "", "  ")
	assert.ErrorIs(t, err, chat.ErrInvalidInput)
	_, err = svc.SendMessage(ctx, "user-1", "missing", "hi")
	assert.ErrorIs(t, err, chat.ErrNotFound)
}

func TestMessagesCleanAssistantRepliesOnly(t *testing.T) {
	svc, _ := newService(t, &fakeResponder{reply: "```go\nfmt.Println(1)"})
	ctx := context.Background()

	exchange, err := svc.SendMessage(ctx, "user-1", "", "```unbalanced")
	require.NoError(t, err)
	assert.Equal(t, "```go\nfmt.Println(1)\n```", exchange.Assistant.Content)

	messages, err := svc.Messages(ctx, "user-1", exchange.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "```unbalanced", messages[0].Content)
	assert.Equal(t, "```go\nfmt.Println(1)\n```", messages[1].Content)

	_, err = svc.Messages(ctx, "user-2", exchange.ConversationID)
	assert.ErrorIs(t, err, chat.ErrNotFound)
}

func TestConversationManagement(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "user-1", "")
	require.NoError(t, err)
	assert.Equal(t, "New Chat", conv.Title)

	_, err = svc.RenameConversation(ctx, "user-1", conv.ID, " ")
	assert.ErrorIs(t, err, chat.ErrInvalidInput)

	renamed, err := svc.RenameConversation(ctx, "user-1", conv.ID, "Plans")
	require.NoError(t, err)
	assert.Equal(t, "Plans", renamed.Title)

	require.NoError(t, svc.DeleteConversation(ctx, "user-1", conv.ID))
	conversations, err := svc.Conversations(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, conversations)
}

func TestProfileCache(t *testing.T) {
	svc, s := newService(t, nil)
	ctx := context.Background()

	_, err := svc.Profile(ctx, "user-1")
	assert.ErrorIs(t, err, chat.ErrNotFound)

	_, err = svc.SaveProfile(ctx, chat.Profile{ID: "user-1", Email: "a@example.com"})
	require.NoError(t, err)

	// Written behind the service's back; the cache still answers.
	_, err = s.UpsertProfile(ctx, chat.Profile{ID: "user-1", Email: "b@example.com"})
	require.NoError(t, err)

	cached, err := svc.Profile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", cached.Email)

	svc.ForgetProfile("user-1")
	fresh, err := svc.Profile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", fresh.Email)

	_, err = svc.SaveProfile(ctx, chat.Profile{})
	assert.ErrorIs(t, err, chat.ErrInvalidInput)
}
