// Package config provides application configuration management.
package config

import (
	"cmp"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-dictation/internal/audio"
	"github.com/oszuidwest/zwfm-dictation/internal/util"
)

// Configuration defaults are used when values are not specified.
const (
	DefaultWebPort          = 8080
	DefaultBindAddress      = "127.0.0.1"
	DefaultLogLevel         = "info"
	DefaultTitle            = "SPEECH ASSISTANT"
	DefaultBackend          = string(audio.BackendExec)
	DefaultProvider         = ProviderGoogle
	DefaultCalibrationMs    = 300
	DefaultTimeoutMs        = 3000
	DefaultPhraseLimitMs    = 4000
	DefaultPauseMs          = 600
	DefaultEnergyThreshold  = 300.0
	DefaultRecognizeTimeout = 15000
)

// Recognizer providers.
const (
	ProviderGoogle = "google"
	ProviderOpenAI = "openai"
	ProviderHTTP   = "http"
)

// redacted replaces secrets in config/get responses.
const redacted = "********"

// SystemConfig holds system-level settings that require restart.
type SystemConfig struct {
	FFmpegPath  string `json:"ffmpeg_path"`  // Path to FFmpeg binary (empty = use PATH)
	Port        int    `json:"port"`         // HTTP server port
	BindAddress string `json:"bind_address"` // HTTP listen address
	LogLevel    string `json:"log_level"`    // debug, info, warn or error
}

// WebConfig holds page settings.
type WebConfig struct {
	Title string `json:"title"` // Heading shown above the orb
}

// AudioConfig holds audio input device settings.
type AudioConfig struct {
	Input   string `json:"input"`   // Audio input device identifier
	Backend string `json:"backend"` // exec or malgo
}

// ListenConfig holds phrase capture settings.
type ListenConfig struct {
	CalibrationMs   int64   `json:"calibration_ms"`   // Ambient noise calibration window
	TimeoutMs       int64   `json:"timeout_ms"`       // Longest wait for speech to start
	PhraseLimitMs   int64   `json:"phrase_limit_ms"`  // Longest phrase
	PauseMs         int64   `json:"pause_ms"`         // Silence that ends a phrase
	EnergyThreshold float64 `json:"energy_threshold"` // Initial speech energy threshold
	DynamicEnergy   *bool   `json:"dynamic_energy"`   // Follow ambient noise (default true)
}

// GoogleConfig holds Google Cloud Speech-to-Text credentials.
type GoogleConfig struct {
	CredentialsFile string `json:"credentials_file"` // Service account JSON (empty = application default)
	APIKey          string `json:"api_key"`          // API key alternative to a service account
}

// OpenAIConfig holds OpenAI transcription settings.
type OpenAIConfig struct {
	APIKey  string `json:"api_key"`  // API key
	BaseURL string `json:"base_url"` // Compatible server URL (empty = api.openai.com)
	Model   string `json:"model"`    // Transcription model (empty = whisper-1)
}

// HTTPConfig holds settings for a self-hosted transcription endpoint.
type HTTPConfig struct {
	URL          string   `json:"url"`           // Endpoint receiving multipart WAV uploads
	BearerToken  string   `json:"bearer_token"`  // Static bearer token
	TokenURL     string   `json:"token_url"`     // OAuth2 token endpoint for client credentials
	ClientID     string   `json:"client_id"`     // OAuth2 client ID
	ClientSecret string   `json:"client_secret"` // OAuth2 client secret
	Scopes       []string `json:"scopes"`        // OAuth2 scopes
}

// RecognizerConfig holds speech recognition settings.
type RecognizerConfig struct {
	Provider  string       `json:"provider"`   // google, openai or http
	TimeoutMs int64        `json:"timeout_ms"` // Request timeout
	Google    GoogleConfig `json:"google"`
	OpenAI    OpenAIConfig `json:"openai"`
	HTTP      HTTPConfig   `json:"http"`
}

// Sections is the serialized form of the configuration.
type Sections struct {
	System     SystemConfig     `json:"system"`
	Web        WebConfig        `json:"web"`
	Audio      AudioConfig      `json:"audio"`
	Listen     ListenConfig     `json:"listen"`
	Recognizer RecognizerConfig `json:"recognizer"`
}

// Config holds all application configuration. It is safe for concurrent use.
type Config struct {
	Sections

	mu       sync.RWMutex
	filePath string
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	c := &Config{filePath: filePath}
	c.applyDefaults()
	return c
}

// Load reads config from file, creating a default if none exists.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return c.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, &c.Sections); err != nil {
		return util.WrapError("parse config", err)
	}

	c.applyDefaults()

	return c.validate()
}

// validate checks all configuration fields for correctness.
func (c *Config) validate() error {
	if c.System.Port < 1 || c.System.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 1-65535", c.System.Port)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.System.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level %q: must be debug, info, warn or error", c.System.LogLevel)
	}
	if err := ValidateBackend(c.Audio.Backend); err != nil {
		return err
	}
	if c.Listen.EnergyThreshold <= 0 {
		return fmt.Errorf("invalid energy_threshold %v: must be positive", c.Listen.EnergyThreshold)
	}
	for name, ms := range map[string]int64{
		"calibration_ms":  c.Listen.CalibrationMs,
		"timeout_ms":      c.Listen.TimeoutMs,
		"phrase_limit_ms": c.Listen.PhraseLimitMs,
		"pause_ms":        c.Listen.PauseMs,
	} {
		if ms < 0 {
			return fmt.Errorf("invalid listen.%s %d: must not be negative", name, ms)
		}
	}

	rec := c.Recognizer
	switch rec.Provider {
	case ProviderGoogle:
	case ProviderOpenAI:
		if rec.OpenAI.APIKey == "" {
			return fmt.Errorf("recognizer.openai.api_key is required for the openai provider")
		}
		if rec.OpenAI.BaseURL != "" {
			if err := validateURL("recognizer.openai.base_url", rec.OpenAI.BaseURL); err != nil {
				return err
			}
		}
	case ProviderHTTP:
		if err := validateURL("recognizer.http.url", rec.HTTP.URL); err != nil {
			return err
		}
		if rec.HTTP.ClientID != "" {
			if err := validateURL("recognizer.http.token_url", rec.HTTP.TokenURL); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("invalid recognizer.provider %q: must be google, openai or http", rec.Provider)
	}
	return nil
}

// ValidateBackend checks that backend names a capture backend.
func ValidateBackend(backend string) error {
	if !slices.Contains([]string{string(audio.BackendExec), string(audio.BackendMalgo)}, backend) {
		return fmt.Errorf("invalid audio backend %q: must be exec or malgo", backend)
	}
	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q: must be an http(s) URL", field, raw)
	}
	return nil
}

// applyDefaults sets default values for zero-value fields.
func (c *Config) applyDefaults() {
	// System defaults
	c.System.Port = cmp.Or(c.System.Port, DefaultWebPort)
	c.System.BindAddress = cmp.Or(c.System.BindAddress, DefaultBindAddress)
	c.System.LogLevel = cmp.Or(c.System.LogLevel, DefaultLogLevel)
	// Web defaults
	c.Web.Title = cmp.Or(c.Web.Title, DefaultTitle)
	// Audio defaults
	c.Audio.Backend = cmp.Or(c.Audio.Backend, DefaultBackend)
	// Listen defaults
	c.Listen.CalibrationMs = cmp.Or(c.Listen.CalibrationMs, DefaultCalibrationMs)
	c.Listen.TimeoutMs = cmp.Or(c.Listen.TimeoutMs, DefaultTimeoutMs)
	c.Listen.PhraseLimitMs = cmp.Or(c.Listen.PhraseLimitMs, DefaultPhraseLimitMs)
	c.Listen.PauseMs = cmp.Or(c.Listen.PauseMs, DefaultPauseMs)
	c.Listen.EnergyThreshold = cmp.Or(c.Listen.EnergyThreshold, DefaultEnergyThreshold)
	if c.Listen.DynamicEnergy == nil {
		dynamic := true
		c.Listen.DynamicEnergy = &dynamic
	}
	// Recognizer defaults
	c.Recognizer.Provider = cmp.Or(c.Recognizer.Provider, DefaultProvider)
	c.Recognizer.TimeoutMs = cmp.Or(c.Recognizer.TimeoutMs, DefaultRecognizeTimeout)
}

// saveLocked persists configuration. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	data, err := json.MarshalIndent(&c.Sections, "", "  ")
	if err != nil {
		return util.WrapError("marshal config", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.WrapError("create config directory", err)
	}

	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return util.WrapError("write config", err)
	}

	return nil
}

// SetAudio updates the input device and capture backend and persists them.
func (c *Config) SetAudio(input, backend string) error {
	if err := ValidateBackend(backend); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Audio.Input = input
	c.Audio.Backend = backend
	return c.saveLocked()
}

// Redacted returns the configuration with secrets masked.
func (c *Config) Redacted() Sections {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.Sections
	s.Recognizer.HTTP.Scopes = slices.Clone(s.Recognizer.HTTP.Scopes)
	dynamic := *s.Listen.DynamicEnergy
	s.Listen.DynamicEnergy = &dynamic
	for _, secret := range []*string{
		&s.Recognizer.Google.APIKey,
		&s.Recognizer.OpenAI.APIKey,
		&s.Recognizer.HTTP.BearerToken,
		&s.Recognizer.HTTP.ClientSecret,
	} {
		if *secret != "" {
			*secret = redacted
		}
	}
	return s
}

// --- Snapshot for atomic reads ---

// Snapshot is a point-in-time copy of configuration values.
type Snapshot struct {
	// System
	WebPort     int
	BindAddress string
	FFmpegPath  string
	LogLevel    slog.Level

	// Web
	Title string

	// Audio
	AudioInput   string
	AudioBackend audio.Backend

	// Listen
	Phrase audio.PhraseConfig

	// Recognizer
	Provider         string
	RecognizeTimeout time.Duration
	Google           GoogleConfig
	OpenAI           OpenAIConfig
	HTTP             HTTPConfig
}

// Snapshot returns a point-in-time copy of all configuration values.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.System.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	phrase := audio.DefaultPhraseConfig()
	phrase.CalibrationDuration = time.Duration(c.Listen.CalibrationMs) * time.Millisecond
	phrase.Timeout = time.Duration(c.Listen.TimeoutMs) * time.Millisecond
	phrase.PhraseTimeLimit = time.Duration(c.Listen.PhraseLimitMs) * time.Millisecond
	phrase.PauseThreshold = time.Duration(c.Listen.PauseMs) * time.Millisecond
	phrase.EnergyThreshold = c.Listen.EnergyThreshold
	phrase.DynamicEnergy = c.Listen.DynamicEnergy == nil || *c.Listen.DynamicEnergy

	httpCfg := c.Recognizer.HTTP
	httpCfg.Scopes = slices.Clone(httpCfg.Scopes)

	return Snapshot{
		// System
		WebPort:     c.System.Port,
		BindAddress: c.System.BindAddress,
		FFmpegPath:  c.System.FFmpegPath,
		LogLevel:    level,

		// Web
		Title: c.Web.Title,

		// Audio
		AudioInput:   c.Audio.Input,
		AudioBackend: audio.Backend(c.Audio.Backend),

		// Listen
		Phrase: phrase,

		// Recognizer
		Provider:         c.Recognizer.Provider,
		RecognizeTimeout: time.Duration(c.Recognizer.TimeoutMs) * time.Millisecond,
		Google:           c.Recognizer.Google,
		OpenAI:           c.Recognizer.OpenAI,
		HTTP:             httpCfg,
	}
}

// Addr returns the HTTP listen address.
func (s *Snapshot) Addr() string {
	return fmt.Sprintf("%s:%d", s.BindAddress, s.WebPort)
}

// HasClientCredentials reports whether the http provider uses the OAuth2 client credentials grant.
func (s *Snapshot) HasClientCredentials() bool {
	return util.IsConfigured(s.HTTP.TokenURL, s.HTTP.ClientID, s.HTTP.ClientSecret)
}
