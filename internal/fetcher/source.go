package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// SourceOptions parameterise the headline page fetcher.
type SourceOptions struct {
	Timeout   time.Duration
	UserAgent string
}

// Pages downloads news pages and feeds.
type Pages struct {
	client *resty.Client
	logger zerolog.Logger
}

// NewPages constructs a page fetcher.
func NewPages(opts SourceOptions, logger zerolog.Logger) *Pages {
	return &Pages{
		client: newClient(opts.Timeout, opts.UserAgent),
		logger: logger.With().Str("component", "source_fetcher").Logger(),
	}
}

// FetchSource issues one GET for the source and returns the body. It does not
// retry.
func (p *Pages) FetchSource(ctx context.Context, src Source) (string, error) {
	if src.URL == "" {
		return "", errors.New("source url not configured")
	}

	accept := "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"
	if src.Kind == KindRSS {
		accept = "application/rss+xml,application/atom+xml,application/xml;q=0.9,*/*;q=0.8"
	}

	started := time.Now()
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Accept", accept).
		Get(src.URL)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", src.Name, err)
	}
	if resp.IsError() || resp.StatusCode() >= 300 {
		return "", fmt.Errorf("fetch %s: %w", src.Name, httpError(resp))
	}

	p.logger.Debug().
		Str("source", src.Name).
		Int("bytes", len(resp.Body())).
		Dur("elapsed", time.Since(started)).
		Msg("source fetched")
	return resp.String(), nil
}

var _ SourceFetcher = (*Pages)(nil)
