// Package openai provides a recognizer backed by the OpenAI transcription
// API or any server implementing it.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/oszuidwest/zwfm-dictation/internal/audio"
	"github.com/oszuidwest/zwfm-dictation/internal/recognizer"
)

// DefaultModel is the default transcription model.
const DefaultModel = oai.AudioModelWhisper1

// Ensure Provider implements the recognizer.Recognizer interface.
var _ recognizer.Recognizer = (*Provider)(nil)

// Provider uploads clips as WAV to the transcriptions endpoint.
type Provider struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New creates a Provider. model defaults to DefaultModel when empty.
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai transcription: API key is required")
	}
	if model == "" {
		model = string(DefaultModel)
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model}, nil
}

// Recognize implements recognizer.Recognizer.
func (p *Provider) Recognize(ctx context.Context, clip audio.Clip) (string, error) {
	wav, err := clip.WAV()
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		File:     oai.File(bytes.NewReader(wav), "phrase.wav", "audio/wav"),
		Model:    oai.AudioModel(p.model),
		Language: param.NewOpt(languageCode()),
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("openai transcription: %w", recognizer.ErrUnrecognized)
	}
	return text, nil
}

// languageCode converts the BCP-47 tag to the ISO-639-1 code the API expects.
func languageCode() string {
	lang, _, _ := strings.Cut(recognizer.Language, "-")
	return lang
}
