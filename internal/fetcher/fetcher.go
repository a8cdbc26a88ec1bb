package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// ErrNoData signals that the price provider answered without any close rows
// (market closed, unknown symbol, empty history).
var ErrNoData = errors.New("fetcher: no price data")

// Source kinds.
const (
	KindHTML = "html"
	KindRSS  = "rss"
)

// DefaultUserAgent identifies requests as a browser; several news sites reject
// library user agents.
const DefaultUserAgent = "Mozilla/5.0"

// Source describes a single news endpoint.
type Source struct {
	Name     string
	URL      string
	Selector string
	Kind     string
}

// Quote is the latest close for a ticker.
type Quote struct {
	Ticker string
	Close  decimal.Decimal
	At     time.Time
}

// SourceFetcher retrieves raw markup for a news source.
type SourceFetcher interface {
	FetchSource(ctx context.Context, src Source) (string, error)
}

// PriceFetcher retrieves the latest close price for a ticker.
type PriceFetcher interface {
	FetchPrice(ctx context.Context, ticker string) (Quote, error)
}

// HTTPError reports a non-2xx response.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

const maxErrorBody = 256

func newClient(timeout time.Duration, userAgent string) *resty.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = DefaultUserAgent
	}
	return resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent)
}

func httpError(resp *resty.Response) error {
	return &HTTPError{
		URL:        resp.Request.URL,
		StatusCode: resp.StatusCode(),
		Body:       truncate(strings.TrimSpace(resp.String()), maxErrorBody),
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
