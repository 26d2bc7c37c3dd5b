package chatapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestSenderReusesConversation(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var requests []sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != messagesPath || r.Header.Get(userHeader) != "user-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"missing user"}`))
			return
		}
		var req sendRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"conversation_id":"conv-9"}`))
	}))
	defer srv.Close()

	sender := NewSender(srv.URL, "user-1", nil)
	if err := sender.Send(context.Background(), "first"); err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	if err := sender.Send(context.Background(), "second"); err != nil {
		t.Fatalf("second send failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(requests) != 2 {
		t.Fatalf("expected two requests, got %d", len(requests))
	}
	if requests[0].ConversationID != "" || requests[1].ConversationID != "conv-9" {
		t.Fatalf("unexpected conversation ids: %+v", requests)
	}
	if requests[1].Content != "second" {
		t.Fatalf("unexpected content: %q", requests[1].Content)
	}
}

func TestSenderReportsStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"boom"}`))
	}))
	defer srv.Close()

	if err := NewSender(srv.URL, "u", nil).Send(context.Background(), "x"); err == nil {
		t.Fatalf("expected error for 500")
	}
	if err := NewSender(srv.URL, "", nil).Send(context.Background(), "x"); err == nil {
		t.Fatalf("expected error without user id")
	}
}
