package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "Auravox-Webhook/1.0"

// Client posts JSON payloads to webhook endpoints.
type Client struct {
	http *http.Client
	now  func() time.Time
}

func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{http: httpClient, now: time.Now}
}

type askPayload struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id"`
}

type askResponse struct {
	Output   string `json:"output"`
	Response string `json:"response"`
	Message  string `json:"message"`
}

// Ask sends a chat message and returns the reply text, taken from the first
// non-empty of output, response and message.
func (c *Client) Ask(ctx context.Context, url string, userID string, message string) (string, error) {
	if userID == "" {
		userID = "anonymous"
	}
	body, err := c.Post(ctx, url, askPayload{
		Message:   message,
		Timestamp: c.now().UTC().Format(time.RFC3339Nano),
		UserID:    userID,
	})
	if err != nil {
		return "", err
	}

	var reply askResponse
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", fmt.Errorf("decode webhook reply: %w", err)
	}
	for _, text := range []string{reply.Output, reply.Response, reply.Message} {
		if strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	return "", nil
}

// Post sends payload as JSON and returns the response body. Non-2xx statuses
// are errors.
func (c *Client) Post(ctx context.Context, url string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read webhook response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
