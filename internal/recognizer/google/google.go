// Package google provides a recognizer backed by Google Cloud Speech-to-Text.
package google

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/oszuidwest/zwfm-dictation/internal/audio"
	"github.com/oszuidwest/zwfm-dictation/internal/recognizer"
)

var _ recognizer.Recognizer = (*Provider)(nil)

// Provider recognizes clips with the synchronous Recognize RPC.
type Provider struct {
	client *speech.Client
}

type config struct {
	credentialsFile string
	apiKey          string
	endpoint        string
}

// Option is a functional option for Provider.
type Option func(*config)

// WithCredentialsFile authenticates with a service account JSON file.
func WithCredentialsFile(path string) Option {
	return func(c *config) {
		c.credentialsFile = path
	}
}

// WithAPIKey authenticates with an API key.
func WithAPIKey(key string) Option {
	return func(c *config) {
		c.apiKey = key
	}
}

// WithEndpoint overrides the service endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *config) {
		c.endpoint = endpoint
	}
}

// New dials the Speech-to-Text service. Without credentials options the
// application default credentials are used.
func New(ctx context.Context, opts ...Option) (*Provider, error) {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}

	var clientOpts []option.ClientOption
	if cfg.credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.credentialsFile))
	}
	if cfg.apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.apiKey))
	}
	if cfg.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.endpoint))
	}

	client, err := speech.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("google speech: new client: %w", err)
	}
	return &Provider{client: client}, nil
}

// Recognize implements recognizer.Recognizer.
func (p *Provider) Recognize(ctx context.Context, clip audio.Clip) (string, error) {
	resp, err := p.client.Recognize(ctx, buildRequest(clip))
	if err != nil {
		return "", fmt.Errorf("google speech: recognize: %w", err)
	}
	return transcript(resp)
}

// Close releases the client connection.
func (p *Provider) Close() error {
	return p.client.Close()
}

func buildRequest(clip audio.Clip) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(clip.SampleRate), //nolint:gosec // sample rate fits
			AudioChannelCount:          audio.Channels,
			LanguageCode:               recognizer.Language,
			EnableAutomaticPunctuation: false,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{
				Content: clip.PCM,
			},
		},
	}
}

// transcript joins the top alternative of each result.
func transcript(resp *speechpb.RecognizeResponse) (string, error) {
	var parts []string
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if text := strings.TrimSpace(alts[0].GetTranscript()); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("google speech: %w", recognizer.ErrUnrecognized)
	}
	return strings.Join(parts, " "), nil
}
