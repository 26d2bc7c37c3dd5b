package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration for the desktop shell and the server.
type Config struct {
	Environment string
	Log         LogConfig
	Server      ServerConfig
	Database    DatabaseConfig
	Transcriber TranscriberConfig
	Webhook     WebhookConfig
	Deepgram    DeepgramConfig
	Audio       AudioConfig
	Rules       RulesConfig
	Voice       VoiceConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	Addr            string
	AdminToken      string
	UploadDir       string
	UploadRetention time.Duration
	SweepSchedule   string
	MaxUploadBytes  int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

type DatabaseConfig struct {
	Driver string
	DSN    string
}

type TranscriberConfig struct {
	Backend   string
	OpenAIKey string
	Model     string
	Language  string
}

type WebhookConfig struct {
	Timeout        time.Duration
	ForwardChanges bool
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
}

type RulesConfig struct {
	Path           string
	IterationLimit int
}

// VoiceConfig drives the desktop recognition coordinator.
type VoiceConfig struct {
	ServerURL      string
	UserID         string
	Language       string
	ChunkSize      int
	StopGrace      time.Duration
	ToggleCooldown time.Duration
	Restricted     bool
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	TranscriberCanned  = "canned"
	TranscriberWhisper = "whisper"
)

// Load reads an optional .env file, then resolves configuration from the
// environment and defaults.
func Load() (Config, error) {
	envFile := firstNonEmpty(os.Getenv("AURAVOX_ENV_FILE"), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	rulesPath := strings.TrimSpace(os.Getenv("AURAVOX_RULES_FILE"))
	if rulesPath == "" {
		rulesPath = firstExisting(
			filepath.Join(home, ".config", "auravox", "substitutions.rules"),
			filepath.Join(home, ".auravox.rules"),
		)
	}

	cfg := Config{
		Environment: envOrDefault("AURAVOX_ENV", "development"),
		Log: LogConfig{
			Level:  strings.ToLower(envOrDefault("AURAVOX_LOG_LEVEL", "info")),
			Format: strings.ToLower(envOrDefault("AURAVOX_LOG_FORMAT", "text")),
		},
		Server: ServerConfig{
			Addr:            envOrDefault("AURAVOX_HTTP_ADDR", ":3001"),
			AdminToken:      strings.TrimSpace(os.Getenv("AURAVOX_ADMIN_TOKEN")),
			UploadDir:       envOrDefault("AURAVOX_UPLOAD_DIR", filepath.Join(os.TempDir(), "auravox-uploads")),
			UploadRetention: envOrDefaultDuration("AURAVOX_UPLOAD_RETENTION", time.Hour),
			SweepSchedule:   envOrDefault("AURAVOX_SWEEP_SCHEDULE", "@every 10m"),
			MaxUploadBytes:  int64(envOrDefaultInt("AURAVOX_MAX_UPLOAD_MB", 25)) << 20,
			ReadTimeout:     envOrDefaultDuration("AURAVOX_HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    envOrDefaultDuration("AURAVOX_HTTP_WRITE_TIMEOUT", 90*time.Second),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(envOrDefault("AURAVOX_DB_DRIVER", DriverSQLite)),
			DSN: firstNonEmpty(
				os.Getenv("AURAVOX_DB_DSN"),
				os.Getenv("DATABASE_URL"),
				filepath.Join(home, ".local", "share", "auravox", "auravox.db"),
			),
		},
		Transcriber: TranscriberConfig{
			Backend:   strings.ToLower(envOrDefault("AURAVOX_TRANSCRIBER", TranscriberCanned)),
			OpenAIKey: strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			Model:     envOrDefault("AURAVOX_WHISPER_MODEL", "whisper-1"),
			Language:  strings.TrimSpace(os.Getenv("AURAVOX_TRANSCRIBE_LANGUAGE")),
		},
		Webhook: WebhookConfig{
			Timeout:        envOrDefaultDuration("AURAVOX_WEBHOOK_TIMEOUT", 30*time.Second),
			ForwardChanges: envOrDefaultBool("AURAVOX_WEBHOOK_FORWARD_CHANGES", false),
		},
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:    strings.TrimSpace(os.Getenv("DEEPGRAM_LANGUAGE")),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("AURAVOX_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("AURAVOX_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     firstNonEmpty(os.Getenv("AURAVOX_AUDIO_INPUT_DEVICE"), os.Getenv("PULSE_SOURCE"), "default"),
			SampleRate:      envOrDefaultInt("AURAVOX_SAMPLE_RATE", 16000),
			Channels:        envOrDefaultInt("AURAVOX_CHANNELS", 1),
		},
		Rules: RulesConfig{
			Path:           rulesPath,
			IterationLimit: envOrDefaultInt("AURAVOX_RULE_ITERATION_LIMIT", 30),
		},
		Voice: VoiceConfig{
			ServerURL:      envOrDefault("AURAVOX_SERVER_URL", "http://127.0.0.1:3001"),
			UserID:         strings.TrimSpace(os.Getenv("AURAVOX_USER_ID")),
			Language:       envOrDefault("AURAVOX_LANGUAGE", "en-US"),
			ChunkSize:      envOrDefaultInt("AURAVOX_AUDIO_CHUNK_SIZE", 4096),
			StopGrace:      envOrDefaultDuration("AURAVOX_STOP_GRACE", 4*time.Second),
			ToggleCooldown: envOrDefaultDuration("AURAVOX_TOGGLE_COOLDOWN", 1500*time.Millisecond),
			Restricted:     envOrDefaultBool("AURAVOX_RESTRICTED_ENV", false),
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Rules.IterationLimit <= 0 {
		cfg.Rules.IterationLimit = 30
	}
	if cfg.Voice.ChunkSize < 256 {
		cfg.Voice.ChunkSize = 4096
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = 25 << 20
	}

	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database DSN is empty")
	}
	switch c.Transcriber.Backend {
	case TranscriberCanned:
	case TranscriberWhisper:
		if c.Transcriber.OpenAIKey == "" {
			return errors.New("OPENAI_API_KEY is required for the whisper transcriber")
		}
	default:
		return fmt.Errorf("unsupported transcriber %q", c.Transcriber.Backend)
	}
	return nil
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// envOrDefaultDuration accepts Go durations ("1.5s") or bare milliseconds.
func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	if ms, err := strconv.Atoi(value); err == nil {
		if ms < 0 {
			return fallback
		}
		return time.Duration(ms) * time.Millisecond
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
