package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"

	"auravox/internal/admin"
	"auravox/internal/chat"
	"auravox/internal/transcribe"
	"auravox/internal/webhook"
)

// Deps are the services behind the HTTP API.
type Deps struct {
	Chat        *chat.Service
	Webhooks    *webhook.Manager
	Notifier    *webhook.Notifier
	Stats       *admin.Service
	Transcriber transcribe.Transcriber
	// Ping reports database health; nil skips the check.
	Ping func(ctx context.Context) error
}

type Options struct {
	Environment    string
	AdminToken     string
	UploadDir      string
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

type Server struct {
	deps   Deps
	opts   Options
	logger logr.Logger
	hub    *Hub
	router *mux.Router
	now    func() time.Time
}

func New(deps Deps, opts Options, logger logr.Logger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 25 << 20
	}
	if opts.Environment == "" {
		opts.Environment = "development"
	}

	s := &Server{
		deps:   deps,
		opts:   opts,
		logger: logger.WithName("http"),
		now:    time.Now,
	}
	s.hub = newHub(s.adminTokenMatches, s.logger)
	s.router = s.routes()
	return s
}

// Hub is the realtime change feed served on /api/realtime.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) Handler() http.Handler {
	return cors(s.router)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", "")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	})

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/transcribe", s.handleTranscribe).Methods(http.MethodPost)
	api.Handle("/realtime", s.hub).Methods(http.MethodGet)

	api.HandleFunc("/conversations", s.withUser(s.handleListConversations)).Methods(http.MethodGet)
	api.HandleFunc("/conversations", s.withUser(s.handleCreateConversation)).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}", s.withUser(s.handleRenameConversation)).Methods(http.MethodPatch)
	api.HandleFunc("/conversations/{id}", s.withUser(s.handleDeleteConversation)).Methods(http.MethodDelete)
	api.HandleFunc("/conversations/{id}/messages", s.withUser(s.handleListMessages)).Methods(http.MethodGet)
	api.HandleFunc("/messages", s.withUser(s.handleSendMessage)).Methods(http.MethodPost)
	api.HandleFunc("/profile", s.withUser(s.handleGetProfile)).Methods(http.MethodGet)
	api.HandleFunc("/profile", s.withUser(s.handlePutProfile)).Methods(http.MethodPut)

	adm := api.PathPrefix("/admin").Subrouter()
	adm.HandleFunc("/stats", s.withAdmin(s.handleStats)).Methods(http.MethodGet)
	adm.HandleFunc("/webhooks", s.withAdmin(s.handleListWebhooks)).Methods(http.MethodGet)
	adm.HandleFunc("/webhooks", s.withAdmin(s.handleAddWebhook)).Methods(http.MethodPost)
	adm.HandleFunc("/webhooks/current", s.withAdmin(s.handleCurrentWebhook)).Methods(http.MethodGet)
	adm.HandleFunc("/webhooks/test", s.withAdmin(s.handleTestWebhook)).Methods(http.MethodPost)
	adm.HandleFunc("/webhooks/{id}", s.withAdmin(s.handleUpdateWebhook)).Methods(http.MethodPatch)
	adm.HandleFunc("/webhooks/{id}", s.withAdmin(s.handleDeleteWebhook)).Methods(http.MethodDelete)
	adm.HandleFunc("/webhooks/{id}/assign", s.withAdmin(s.handleAssignWebhook)).Methods(http.MethodPost)

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
