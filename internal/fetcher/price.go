package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const chartPath = "/v8/finance/chart/"

// PriceOptions parameterise the Yahoo chart fetcher.
type PriceOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Prices reads the most recent daily close from the Yahoo Finance chart API.
type Prices struct {
	client  *resty.Client
	baseURL string
	logger  zerolog.Logger
}

// NewPrices constructs a price fetcher.
func NewPrices(opts PriceOptions, logger zerolog.Logger) *Prices {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	return &Prices{
		client:  newClient(opts.Timeout, opts.UserAgent),
		baseURL: baseURL,
		logger:  logger.With().Str("component", "price_fetcher").Logger(),
	}
}

// FetchPrice requests one trading day of history and returns its latest close.
// An empty history yields ErrNoData.
func (p *Prices) FetchPrice(ctx context.Context, ticker string) (Quote, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return Quote{}, errors.New("ticker is required")
	}

	endpoint := p.baseURL + chartPath + url.PathEscape(ticker)
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"range":    "1d",
			"interval": "1d",
		}).
		Get(endpoint)
	if err != nil {
		return Quote{}, fmt.Errorf("chart %s: %w", ticker, err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return Quote{}, fmt.Errorf("chart %s: %w", ticker, ErrNoData)
	}
	if resp.IsError() {
		return Quote{}, fmt.Errorf("chart %s: %w", ticker, httpError(resp))
	}

	var payload chartResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return Quote{}, fmt.Errorf("parse chart %s: %w", ticker, err)
	}

	quote, err := payload.latestClose(ticker)
	if err != nil {
		return Quote{}, err
	}

	p.logger.Debug().Str("ticker", ticker).Str("close", quote.Close.String()).Msg("price fetched")
	return quote, nil
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Currency string `json:"currency"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (r chartResponse) latestClose(ticker string) (Quote, error) {
	if r.Chart.Error != nil {
		if strings.EqualFold(r.Chart.Error.Code, "Not Found") {
			return Quote{}, fmt.Errorf("chart %s: %w", ticker, ErrNoData)
		}
		return Quote{}, fmt.Errorf("chart %s: %s: %s", ticker, r.Chart.Error.Code, r.Chart.Error.Description)
	}
	if len(r.Chart.Result) == 0 {
		return Quote{}, fmt.Errorf("chart %s: %w", ticker, ErrNoData)
	}

	result := r.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return Quote{}, fmt.Errorf("chart %s: %w", ticker, ErrNoData)
	}

	closes := result.Indicators.Quote[0].Close
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] == nil {
			continue
		}
		quote := Quote{Ticker: ticker, Close: decimal.NewFromFloat(*closes[i])}
		if i < len(result.Timestamp) {
			quote.At = time.Unix(result.Timestamp[i], 0).UTC()
		}
		return quote, nil
	}
	return Quote{}, fmt.Errorf("chart %s: %w", ticker, ErrNoData)
}

var _ PriceFetcher = (*Prices)(nil)
