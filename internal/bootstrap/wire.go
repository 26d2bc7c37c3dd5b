package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/logr"

	"auravox/internal/admin"
	"auravox/internal/audio"
	"auravox/internal/capability"
	"auravox/internal/chat"
	"auravox/internal/config"
	"auravox/internal/janitor"
	"auravox/internal/logging"
	"auravox/internal/ports"
	"auravox/internal/providers/chatapi"
	"auravox/internal/providers/deepgram"
	"auravox/internal/providers/upload"
	"auravox/internal/rules"
	"auravox/internal/server"
	"auravox/internal/store"
	"auravox/internal/transcribe"
	"auravox/internal/usecase"
	"auravox/internal/webhook"
)

// Voice is the assembled desktop recognition graph.
type Voice struct {
	Coordinator *usecase.Coordinator
	Config      config.Config
	Logger      logr.Logger
}

// BuildVoice loads configuration and wires the recognition coordinator for
// the current runtime.
func BuildVoice(eventSink ports.EventSink) (Voice, error) {
	cfg, err := config.Load()
	if err != nil {
		return Voice{}, err
	}
	logger := logging.New(cfg.Log, os.Stderr)

	coordinator, err := NewCoordinator(cfg, eventSink, logger)
	if err != nil {
		return Voice{}, err
	}
	return Voice{Coordinator: coordinator, Config: cfg, Logger: logger}, nil
}

// NewCoordinator wires a coordinator from an already loaded configuration.
func NewCoordinator(cfg config.Config, eventSink ports.EventSink, logger logr.Logger) (*usecase.Coordinator, error) {
	rulesEngine, err := rules.NewEngine(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		return nil, err
	}

	audioCfg := ports.AudioConfig{
		SampleRate:  cfg.Audio.SampleRate,
		Channels:    cfg.Audio.Channels,
		InputFormat: cfg.Audio.InputFormat,
		InputDevice: cfg.Audio.InputDevice,
	}
	microphone := audio.NewMicrophone(cfg.Audio.RecorderCommand, logger)
	engine := deepgram.NewEngine(deepgram.Config{
		APIKey:      cfg.Deepgram.APIKey,
		APIBaseURL:  cfg.Deepgram.APIBaseURL,
		Model:       cfg.Deepgram.Model,
		Language:    cfg.Deepgram.Language,
		SmartFormat: cfg.Deepgram.SmartFormat,
		ChunkSize:   cfg.Voice.ChunkSize,
	}, microphone, logger)

	httpClient := &http.Client{Timeout: 90 * time.Second}
	probe := capability.Probe{
		NativeConfigured: engine.Configured,
		MicrophoneFound:  microphone.Available,
		UploadURL:        cfg.Voice.ServerURL,
		Restricted:       cfg.Voice.Restricted,
	}

	return usecase.NewCoordinator(
		probe,
		engine,
		microphone,
		upload.NewClient(cfg.Voice.ServerURL, httpClient),
		rulesEngine,
		chatapi.NewSender(cfg.Voice.ServerURL, cfg.Voice.UserID, httpClient),
		eventSink,
		usecase.Config{
			Engine: ports.EngineConfig{
				Language:       cfg.Voice.Language,
				Continuous:     false,
				InterimResults: true,
				Audio:          audioCfg,
			},
			Audio:     audioCfg,
			ChunkSize: cfg.Voice.ChunkSize,
			StopGrace: cfg.Voice.StopGrace,
			Cooldown:  cfg.Voice.ToggleCooldown,
		},
		logger.WithName("voice"),
	), nil
}

// OpenStore connects to the configured database and applies migrations.
func OpenStore(ctx context.Context, cfg config.Config, logger logr.Logger) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// NewTranscriber returns the backend selected by configuration.
func NewTranscriber(cfg config.TranscriberConfig) (transcribe.Transcriber, error) {
	switch cfg.Backend {
	case config.TranscriberCanned, "":
		return transcribe.NewCanned(nil), nil
	case config.TranscriberWhisper:
		return transcribe.NewWhisper(cfg.OpenAIKey, cfg.Model, cfg.Language), nil
	default:
		return nil, fmt.Errorf("unsupported transcriber %q", cfg.Backend)
	}
}

// Backend is the assembled chat and transcription server.
type Backend struct {
	HTTP     *server.Server
	Store    *store.Store
	Notifier *webhook.Notifier
	Janitor  *janitor.Janitor
	Config   config.Config
	logger   logr.Logger
}

// BuildBackend wires the HTTP server and its collaborators. Store changes
// flow through the notifier to the realtime hub and, when enabled, to the
// current webhook.
func BuildBackend(ctx context.Context, cfg config.Config, logger logr.Logger) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	transcriber, err := NewTranscriber(cfg.Transcriber)
	if err != nil {
		return nil, err
	}
	sweeper, err := janitor.New(cfg.Server.UploadDir, cfg.Server.UploadRetention, cfg.Server.SweepSchedule, logger)
	if err != nil {
		return nil, err
	}

	st, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	client := webhook.NewClient(&http.Client{Timeout: cfg.Webhook.Timeout})
	notifier := webhook.NewNotifier(st, client, cfg.Webhook.ForwardChanges, logger)
	st.OnChange(notifier.Publish)

	srv := server.New(server.Deps{
		Chat:        chat.NewService(st, webhook.NewResponder(st, client), logger),
		Webhooks:    webhook.NewManager(st),
		Notifier:    notifier,
		Stats:       admin.NewService(st, nil),
		Transcriber: transcriber,
		Ping:        st.Ping,
	}, server.Options{
		Environment:    cfg.Environment,
		AdminToken:     cfg.Server.AdminToken,
		UploadDir:      cfg.Server.UploadDir,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
	}, logger)
	notifier.Subscribe(srv.Hub().Broadcast)

	return &Backend{
		HTTP:     srv,
		Store:    st,
		Notifier: notifier,
		Janitor:  sweeper,
		Config:   cfg,
		logger:   logger,
	}, nil
}

// Run serves until ctx is cancelled.
func (b *Backend) Run(ctx context.Context) error {
	defer b.Store.Close()

	if b.Config.Server.AdminToken == "" {
		b.logger.Info("AURAVOX_ADMIN_TOKEN is not set; admin routes and the admin realtime feed are disabled")
	}

	notifierCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Notifier.Run(notifierCtx)
	}()
	b.Janitor.Start()

	err := b.HTTP.Run(ctx, b.Config.Server.Addr)

	b.Janitor.Stop()
	cancel()
	<-done
	if dropped := b.Notifier.Dropped(); dropped > 0 {
		b.logger.Info("change events dropped while the notifier was busy", "count", dropped)
	}
	return err
}
