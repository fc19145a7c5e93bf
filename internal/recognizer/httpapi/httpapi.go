// Package httpapi provides a recognizer for self-hosted transcription
// endpoints that accept a multipart WAV upload and reply with JSON.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/oszuidwest/zwfm-dictation/internal/audio"
	"github.com/oszuidwest/zwfm-dictation/internal/recognizer"
	"github.com/oszuidwest/zwfm-dictation/internal/util"
)

// defaultTimeout bounds a request when no timeout is configured.
const defaultTimeout = 30 * time.Second

// maxErrorBody is how much of an error response is kept in the error message.
const maxErrorBody = 512

var _ recognizer.Recognizer = (*Provider)(nil)

// ClientCredentials configures the OAuth2 client credentials grant.
type ClientCredentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Provider posts clips to a transcription endpoint.
type Provider struct {
	endpoint   string
	httpClient *http.Client
}

type config struct {
	timeout     time.Duration
	bearerToken string
	credentials *ClientCredentials
	httpClient  *http.Client
}

// Option is a functional option for Provider.
type Option func(*config)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithBearerToken sends a static bearer token.
func WithBearerToken(token string) Option {
	return func(c *config) {
		c.bearerToken = token
	}
}

// WithClientCredentials fetches and refreshes tokens with the client credentials grant.
func WithClientCredentials(cc ClientCredentials) Option {
	return func(c *config) {
		c.credentials = &cc
	}
}

// WithHTTPClient sets the base HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.httpClient = hc
	}
}

// New creates a Provider posting to endpoint.
func New(endpoint string, opts ...Option) (*Provider, error) {
	if endpoint == "" {
		return nil, errors.New("http transcription: endpoint is required")
	}

	cfg := config{timeout: defaultTimeout}
	for _, o := range opts {
		o(&cfg)
	}

	baseClient := cfg.httpClient
	if baseClient == nil {
		baseClient = &http.Client{Timeout: cfg.timeout}
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, baseClient)

	httpClient := baseClient
	switch {
	case cfg.credentials != nil:
		conf := &clientcredentials.Config{
			ClientID:     cfg.credentials.ClientID,
			ClientSecret: cfg.credentials.ClientSecret,
			TokenURL:     cfg.credentials.TokenURL,
			Scopes:       cfg.credentials.Scopes,
		}
		httpClient = conf.Client(ctx)
	case cfg.bearerToken != "":
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.bearerToken,
			TokenType:   "Bearer",
		}))
	}

	return &Provider{endpoint: endpoint, httpClient: httpClient}, nil
}

// transcriptResponse is the expected reply body.
type transcriptResponse struct {
	Text string `json:"text"`
}

// Recognize implements recognizer.Recognizer.
func (p *Provider) Recognize(ctx context.Context, clip audio.Clip) (string, error) {
	body, contentType, err := buildBody(clip)
	if err != nil {
		return "", fmt.Errorf("http transcription: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("http transcription: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http transcription: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("http transcription: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("http transcription: %w", util.WrapError("decode response", err))
	}

	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", fmt.Errorf("http transcription: %w", recognizer.ErrUnrecognized)
	}
	return text, nil
}

// buildBody encodes the clip as a multipart form with a WAV file part.
func buildBody(clip audio.Clip) (*bytes.Buffer, string, error) {
	wav, err := clip.WAV()
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", "phrase.wav")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(wav); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("language", recognizer.Language); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
