package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"auravox/internal/chat"
	"auravox/internal/transcribe"
	"auravox/internal/webhook"
)

type healthBody struct {
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment"`
	Database    string    `json:"database,omitempty"`
}

// handleHealth always answers 200 while the process serves requests. The
// store's reachability is reported in the body.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := healthBody{
		Status:      "ok",
		Message:     "Speech-to-text server is running",
		Timestamp:   s.now().UTC(),
		Environment: s.opts.Environment,
	}
	if s.deps.Ping != nil {
		body.Database = "ok"
		if err := s.deps.Ping(r.Context()); err != nil {
			s.logger.Error(err, "database ping failed")
			body.Database = "unavailable"
		}
	}
	writeJSON(w, http.StatusOK, body)
}

type transcribeBody struct {
	Success    bool   `json:"success"`
	Transcript string `json:"transcript"`
	Message    string `json:"message"`
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	file, header, err := r.FormFile("audio")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Audio file too large", "")
			return
		}
		writeError(w, http.StatusBadRequest, "No audio file provided", "")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".webm"
	}
	path, err := transcribe.Spool(s.uploadDir(), "audio-*"+ext, file)
	if err != nil {
		s.logger.Error(err, "spool upload failed")
		writeError(w, http.StatusInternalServerError, "Transcription failed", err.Error())
		return
	}
	defer os.Remove(path)

	s.logger.V(1).Info("received audio", "file", header.Filename, "bytes", header.Size, "backend", s.deps.Transcriber.Name())
	text, err := s.deps.Transcriber.Transcribe(r.Context(), path)
	if err != nil {
		s.logger.Error(err, "transcription failed", "backend", s.deps.Transcriber.Name())
		writeError(w, http.StatusInternalServerError, "Transcription failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, transcribeBody{
		Success:    true,
		Transcript: text,
		Message:    "Audio received and processed successfully",
	})
}

func (s *Server) uploadDir() string {
	if s.opts.UploadDir != "" {
		return s.opts.UploadDir
	}
	return filepath.Join(os.TempDir(), "auravox-uploads")
}

type titleRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := s.deps.Chat.Conversations(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if conversations == nil {
		conversations = []chat.Conversation{}
	}
	writeJSON(w, http.StatusOK, conversations)
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}
	conversation, err := s.deps.Chat.CreateConversation(r.Context(), userFrom(r.Context()), req.Title)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conversation)
}

func (s *Server) handleRenameConversation(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	conversation, err := s.deps.Chat.RenameConversation(r.Context(), userFrom(r.Context()), mux.Vars(r)["id"], req.Title)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversation)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Chat.DeleteConversation(r.Context(), userFrom(r.Context()), mux.Vars(r)["id"]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.deps.Chat.Messages(r.Context(), userFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

type sendRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	exchange, err := s.deps.Chat.SendMessage(r.Context(), userFrom(r.Context()), req.ConversationID, req.Content)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exchange)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.deps.Chat.Profile(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type profileRequest struct {
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

// handlePutProfile always writes the caller's own profile; an id in the body
// is ignored.
func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	profile, err := s.deps.Chat.SaveProfile(r.Context(), chat.Profile{
		ID:        userFrom(r.Context()),
		Email:     req.Email,
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Stats.Report(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListWebhooks(w http.ResponseWriter, r *http.Request) {
	hooks, err := s.deps.Webhooks.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if hooks == nil {
		hooks = []chat.Webhook{}
	}
	writeJSON(w, http.StatusOK, hooks)
}

type webhookRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *Server) handleAddWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	hook, err := s.deps.Webhooks.Add(r.Context(), req.Name, req.URL)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, hook)
}

type webhookPatch struct {
	Name     *string `json:"name"`
	URL      *string `json:"url"`
	IsActive *bool   `json:"is_active"`
}

func (s *Server) handleUpdateWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookPatch
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	hook, err := s.deps.Webhooks.Update(r.Context(), mux.Vars(r)["id"], webhook.Update{
		Name:     req.Name,
		URL:      req.URL,
		IsActive: req.IsActive,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hook)
}

func (s *Server) handleDeleteWebhook(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Webhooks.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssignWebhook(w http.ResponseWriter, r *http.Request) {
	hook, err := s.deps.Webhooks.Assign(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hook)
}

func (s *Server) handleCurrentWebhook(w http.ResponseWriter, r *http.Request) {
	hook, err := s.deps.Webhooks.Current(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hook)
}

func (s *Server) handleTestWebhook(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Notifier.Test(r.Context()))
}
