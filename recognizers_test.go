package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oszuidwest/zwfm-dictation/internal/config"
	"github.com/oszuidwest/zwfm-dictation/internal/recognizer/httpapi"
	"github.com/oszuidwest/zwfm-dictation/internal/recognizer/openai"
)

func TestNewRecognizerOpenAI(t *testing.T) {
	rec, closer, err := newRecognizer(context.Background(), config.Snapshot{
		Provider:         config.ProviderOpenAI,
		RecognizeTimeout: time.Second,
		OpenAI:           config.OpenAIConfig{APIKey: "sk-test", BaseURL: "http://127.0.0.1:1/v1/"},
	})
	require.NoError(t, err)
	assert.IsType(t, &openai.Provider{}, rec)
	assert.NoError(t, closer.Close())
}

func TestNewRecognizerHTTP(t *testing.T) {
	for _, hc := range []config.HTTPConfig{
		{URL: "http://127.0.0.1:1/transcribe"},
		{URL: "http://127.0.0.1:1/transcribe", BearerToken: "tok"},
		{URL: "http://127.0.0.1:1/transcribe", TokenURL: "http://127.0.0.1:1/token", ClientID: "id", ClientSecret: "secret"},
	} {
		rec, closer, err := newRecognizer(context.Background(), config.Snapshot{
			Provider:         config.ProviderHTTP,
			RecognizeTimeout: time.Second,
			HTTP:             hc,
		})
		require.NoError(t, err)
		assert.IsType(t, &httpapi.Provider{}, rec)
		assert.NoError(t, closer.Close())
	}
}

func TestNewRecognizerErrors(t *testing.T) {
	_, _, err := newRecognizer(context.Background(), config.Snapshot{Provider: "azure"})
	assert.ErrorContains(t, err, "unknown recognizer provider")

	_, _, err = newRecognizer(context.Background(), config.Snapshot{Provider: config.ProviderOpenAI})
	assert.Error(t, err)
}
