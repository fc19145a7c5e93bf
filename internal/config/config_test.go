package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oszuidwest/zwfm-dictation/internal/audio"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := New(path)
	require.NoError(t, cfg.Load())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var saved Sections
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, DefaultWebPort, saved.System.Port)
	assert.Equal(t, DefaultBindAddress, saved.System.BindAddress)
	assert.Equal(t, DefaultTitle, saved.Web.Title)
	assert.Equal(t, ProviderGoogle, saved.Recognizer.Provider)
	require.NotNil(t, saved.Listen.DynamicEnergy)
	assert.True(t, *saved.Listen.DynamicEnergy)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSnapshotDefaults(t *testing.T) {
	snap := New(filepath.Join(t.TempDir(), "config.json")).Snapshot()

	assert.Equal(t, "127.0.0.1:8080", snap.Addr())
	assert.Equal(t, slog.LevelInfo, snap.LogLevel)
	assert.Equal(t, audio.BackendExec, snap.AudioBackend)
	assert.Equal(t, audio.DefaultPhraseConfig(), snap.Phrase)
	assert.Equal(t, 15*time.Second, snap.RecognizeTimeout)
}

func TestLoadAppliesFileValues(t *testing.T) {
	path := writeConfig(t, `{
		"system": {"port": 9090, "log_level": "debug"},
		"audio": {"input": "hw:1", "backend": "malgo"},
		"listen": {"pause_ms": 800, "energy_threshold": 450, "dynamic_energy": false},
		"recognizer": {"provider": "openai", "timeout_ms": 5000, "openai": {"api_key": "sk-test"}}
	}`)
	cfg := New(path)
	require.NoError(t, cfg.Load())

	snap := cfg.Snapshot()
	assert.Equal(t, 9090, snap.WebPort)
	assert.Equal(t, slog.LevelDebug, snap.LogLevel)
	assert.Equal(t, "hw:1", snap.AudioInput)
	assert.Equal(t, audio.BackendMalgo, snap.AudioBackend)
	assert.Equal(t, 800*time.Millisecond, snap.Phrase.PauseThreshold)
	assert.Equal(t, 3*time.Second, snap.Phrase.Timeout)
	assert.InDelta(t, 450.0, snap.Phrase.EnergyThreshold, 1e-9)
	assert.False(t, snap.Phrase.DynamicEnergy)
	assert.Equal(t, ProviderOpenAI, snap.Provider)
	assert.Equal(t, 5*time.Second, snap.RecognizeTimeout)
	assert.Equal(t, "sk-test", snap.OpenAI.APIKey)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", `{"system":`, "parse config"},
		{"port out of range", `{"system": {"port": 70000}}`, "invalid port"},
		{"unknown log level", `{"system": {"log_level": "loud"}}`, "invalid log_level"},
		{"unknown backend", `{"audio": {"backend": "pulse"}}`, "invalid audio backend"},
		{"negative energy", `{"listen": {"energy_threshold": -1}}`, "invalid energy_threshold"},
		{"negative pause", `{"listen": {"pause_ms": -5}}`, "listen.pause_ms"},
		{"unknown provider", `{"recognizer": {"provider": "azure"}}`, "invalid recognizer.provider"},
		{"openai without key", `{"recognizer": {"provider": "openai"}}`, "api_key is required"},
		{"http without url", `{"recognizer": {"provider": "http"}}`, "recognizer.http.url"},
		{"http bad token url", `{"recognizer": {"provider": "http", "http": {"url": "http://stt.local/v1", "client_id": "id", "token_url": "ftp://x"}}}`, "recognizer.http.token_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(writeConfig(t, tt.body)).Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSetAudioPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := New(path)
	require.NoError(t, cfg.Load())

	require.NoError(t, cfg.SetAudio("plughw:2,0", "malgo"))
	assert.Equal(t, "plughw:2,0", cfg.Snapshot().AudioInput)

	reloaded := New(path)
	require.NoError(t, reloaded.Load())
	snap := reloaded.Snapshot()
	assert.Equal(t, "plughw:2,0", snap.AudioInput)
	assert.Equal(t, audio.BackendMalgo, snap.AudioBackend)
}

func TestSetAudioRejectsBackend(t *testing.T) {
	cfg := New(filepath.Join(t.TempDir(), "config.json"))
	require.Error(t, cfg.SetAudio("default", "portaudio"))
	assert.Equal(t, audio.BackendExec, cfg.Snapshot().AudioBackend)
}

func TestRedactedMasksSecrets(t *testing.T) {
	path := writeConfig(t, `{
		"recognizer": {
			"provider": "http",
			"google": {"api_key": "g-key"},
			"openai": {"api_key": "sk-secret"},
			"http": {"url": "https://stt.local/v1", "bearer_token": "tok", "token_url": "https://auth.local/token", "client_id": "id", "client_secret": "shh"}
		}
	}`)
	cfg := New(path)
	require.NoError(t, cfg.Load())

	red := cfg.Redacted()
	assert.Equal(t, redacted, red.Recognizer.Google.APIKey)
	assert.Equal(t, redacted, red.Recognizer.OpenAI.APIKey)
	assert.Equal(t, redacted, red.Recognizer.HTTP.BearerToken)
	assert.Equal(t, redacted, red.Recognizer.HTTP.ClientSecret)
	assert.Equal(t, "id", red.Recognizer.HTTP.ClientID)
	assert.Empty(t, red.Recognizer.Google.CredentialsFile)

	snap := cfg.Snapshot()
	assert.Equal(t, "sk-secret", snap.OpenAI.APIKey)
	assert.True(t, snap.HasClientCredentials())
}
