package storage

import (
	"context"
	"errors"
	"fmt"

	"sentiment-engine/internal/config"
)

var (
	// ErrNotConfigured indicates the store handle was not initialised.
	ErrNotConfigured = errors.New("storage: store not configured")
	// ErrNotInitialized reports that the series tables do not exist yet; no
	// pipeline run has written to this store.
	ErrNotInitialized = errors.New("storage: series tables not initialised")
	// ErrUnavailable wraps failures that leave the store unreachable.
	ErrUnavailable = errors.New("storage: store unavailable")
)

// SeriesWriter persists price and sentiment rows.
//
// UpsertPrices and UpsertSentiment replace every existing row that shares a
// key with the batch (ticker and UTC calendar day, plus source for
// sentiment) and then append the batch, in one transaction. Missing tables
// are created on first write.
type SeriesWriter interface {
	UpsertPrices(ctx context.Context, rows []PriceRecord) error
	UpsertSentiment(ctx context.Context, rows []SentimentRecord) error
	AppendSentiment(ctx context.Context, rows []SentimentRecord) error
	Persist(ctx context.Context, batch AssetBatch) error
}

// SeriesReader serves read-only consumers. Every method returns
// ErrNotInitialized while the price table is absent.
type SeriesReader interface {
	Tickers(ctx context.Context) ([]string, error)
	DailySeries(ctx context.Context, ticker string) ([]DailyPoint, error)
	RecentHeadlines(ctx context.Context, q HeadlineQuery) ([]SentimentRecord, error)
	PriceSeries(ctx context.Context, tickers []string) ([]PricePoint, error)
}

// Store is a series store handle scoped to one command invocation.
type Store interface {
	SeriesWriter
	SeriesReader
	Ping(ctx context.Context) error
	Close() error
}

// AdvisoryLocker exposes cross-process run locks.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Open connects the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		return OpenSQLite(ctx, cfg)
	case config.DriverPostgres:
		pool, err := NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store := NewPostgresStore(pool)
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", cfg.Driver)
	}
}

func sentimentUpsert(mode SentimentMode) bool {
	return mode == SentimentUpsert
}

func validatePrices(rows []PriceRecord) error {
	for i, r := range rows {
		if r.Ticker == "" {
			return fmt.Errorf("price row %d: ticker_symbol is required", i)
		}
		if r.PublishedAt.IsZero() {
			return fmt.Errorf("price row %d: published_date is required", i)
		}
	}
	return nil
}

func validateSentiment(rows []SentimentRecord) error {
	for i, r := range rows {
		if r.Ticker == "" {
			return fmt.Errorf("sentiment row %d: ticker_symbol is required", i)
		}
		if r.PublishedAt.IsZero() {
			return fmt.Errorf("sentiment row %d: published_date is required", i)
		}
	}
	return nil
}

func unavailable(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
