package main

import (
	"context"
	"fmt"
	"io"

	"github.com/oszuidwest/zwfm-dictation/internal/config"
	"github.com/oszuidwest/zwfm-dictation/internal/recognizer"
	"github.com/oszuidwest/zwfm-dictation/internal/recognizer/google"
	"github.com/oszuidwest/zwfm-dictation/internal/recognizer/httpapi"
	"github.com/oszuidwest/zwfm-dictation/internal/recognizer/openai"
)

// nopCloser is returned for providers without resources to release.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newRecognizer builds the configured speech recognizer. The returned
// Closer releases its connections on shutdown.
//
//nolint:gocritic // hugeParam: called once at startup
func newRecognizer(ctx context.Context, cfg config.Snapshot) (recognizer.Recognizer, io.Closer, error) {
	switch cfg.Provider {
	case config.ProviderGoogle:
		var opts []google.Option
		if cfg.Google.CredentialsFile != "" {
			opts = append(opts, google.WithCredentialsFile(cfg.Google.CredentialsFile))
		}
		if cfg.Google.APIKey != "" {
			opts = append(opts, google.WithAPIKey(cfg.Google.APIKey))
		}
		p, err := google.New(ctx, opts...)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil

	case config.ProviderOpenAI:
		opts := []openai.Option{openai.WithTimeout(cfg.RecognizeTimeout)}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		p, err := openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, opts...)
		if err != nil {
			return nil, nil, err
		}
		return p, nopCloser{}, nil

	case config.ProviderHTTP:
		opts := []httpapi.Option{httpapi.WithTimeout(cfg.RecognizeTimeout)}
		switch {
		case cfg.HasClientCredentials():
			opts = append(opts, httpapi.WithClientCredentials(httpapi.ClientCredentials{
				TokenURL:     cfg.HTTP.TokenURL,
				ClientID:     cfg.HTTP.ClientID,
				ClientSecret: cfg.HTTP.ClientSecret,
				Scopes:       cfg.HTTP.Scopes,
			}))
		case cfg.HTTP.BearerToken != "":
			opts = append(opts, httpapi.WithBearerToken(cfg.HTTP.BearerToken))
		}
		p, err := httpapi.New(cfg.HTTP.URL, opts...)
		if err != nil {
			return nil, nil, err
		}
		return p, nopCloser{}, nil

	default:
		return nil, nil, fmt.Errorf("unknown recognizer provider %q", cfg.Provider)
	}
}
