package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	messagesPath = "/api/messages"
	userHeader   = "X-User-ID"
)

// Sender posts voice transcripts to the chat API as user messages. The first
// reply's conversation id is reused so one desktop run stays in one thread.
type Sender struct {
	baseURL string
	userID  string
	http    *http.Client

	mu             sync.Mutex
	conversationID string
}

func NewSender(baseURL string, userID string, httpClient *http.Client) *Sender {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	return &Sender{baseURL: strings.TrimRight(baseURL, "/"), userID: userID, http: httpClient}
}

type sendRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Content        string `json:"content"`
}

type sendResponse struct {
	ConversationID string `json:"conversation_id"`
	Error          string `json:"error"`
}

func (s *Sender) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(s.userID) == "" {
		return errors.New("chat user id is not configured")
	}

	body, err := json.Marshal(sendRequest{ConversationID: s.Conversation(), Content: text})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build message request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(userHeader, s.userID)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()

	var decoded sendResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode message response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chat api returned %d: %s", resp.StatusCode, decoded.Error)
	}

	if decoded.ConversationID != "" {
		s.mu.Lock()
		s.conversationID = decoded.ConversationID
		s.mu.Unlock()
	}
	return nil
}

// Conversation returns the conversation new messages are appended to.
func (s *Sender) Conversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}
