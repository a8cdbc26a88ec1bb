package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"sentiment-engine/internal/extractor"
	"sentiment-engine/internal/fetcher"
	"sentiment-engine/internal/sentiment"
	"sentiment-engine/internal/storage"
)

// DefaultConcurrency bounds outbound requests when Options leaves it unset.
const DefaultConcurrency = 4

// Status is the outcome for one asset.
type Status string

// Asset outcomes.
const (
	StatusPersisted Status = "persisted"
	StatusNoData    Status = "no_data"
	StatusFailed    Status = "failed"
)

// Store is the slice of the series store a run needs.
type Store interface {
	Persist(ctx context.Context, batch storage.AssetBatch) error
	Ping(ctx context.Context) error
}

// Options configure one pipeline.
type Options struct {
	Sources       []fetcher.Source
	Assets        []string
	Concurrency   int
	SentimentMode storage.SentimentMode
	LockKey       int64
}

// AssetResult records what happened to one asset during a run.
type AssetResult struct {
	Ticker    string
	Status    Status
	Close     decimal.Decimal
	Sentiment int
	Err       error
}

// Report summarises one run.
type Report struct {
	RunAt          time.Time
	Skipped        bool
	SourcesFetched []string
	SourcesFailed  []string
	Headlines      int
	Assets         []AssetResult
}

// Count returns how many assets ended with status.
func (r Report) Count(status Status) int {
	n := 0
	for _, a := range r.Assets {
		if a.Status == status {
			n++
		}
	}
	return n
}

// Pipeline runs fetch, extract, score, price and persist for a set of assets.
type Pipeline struct {
	opts      Options
	sources   fetcher.SourceFetcher
	prices    fetcher.PriceFetcher
	extractor *extractor.Extractor
	scorer    sentiment.Scorer
	store     Store
	locker    storage.AdvisoryLocker
	logger    zerolog.Logger
	now       func() time.Time
}

// New wires the pipeline collaborators.
func New(opts Options, sources fetcher.SourceFetcher, prices fetcher.PriceFetcher, ext *extractor.Extractor, scorer sentiment.Scorer, store Store, logger zerolog.Logger) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.SentimentMode == "" {
		opts.SentimentMode = storage.SentimentAppend
	}

	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Pipeline{
		opts:      opts,
		sources:   sources,
		prices:    prices,
		extractor: ext,
		scorer:    scorer,
		store:     store,
		locker:    locker,
		logger:    logger.With().Str("component", "pipeline").Logger(),
		now:       time.Now,
	}
}

type scoredHeadline struct {
	extractor.Headline
	score float64
	label sentiment.Label
}

type priceResult struct {
	quote fetcher.Quote
	err   error
}

// Run executes one refresh. A non-nil error means the run was aborted; assets
// persisted before the abort stay persisted and are listed in the report.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	runAt := p.now().UTC().Truncate(time.Second)
	report := Report{RunAt: runAt}

	if p.store == nil {
		return report, storage.ErrNotConfigured
	}
	if err := p.store.Ping(ctx); err != nil {
		return report, fmt.Errorf("store unreachable: %w", err)
	}

	unlock, proceed, err := p.acquireLock(ctx)
	if err != nil {
		return report, err
	}
	if !proceed {
		p.logger.Warn().Time("run_at", runAt).Msg("skip run because advisory lock held elsewhere")
		report.Skipped = true
		return report, nil
	}
	if unlock != nil {
		defer unlock()
	}

	p.logger.Info().Int("sources", len(p.opts.Sources)).Msg("STEP 1: fetching headlines")
	headlines := p.collect(ctx, runAt, &report)
	report.Headlines = len(headlines)

	p.logger.Info().Int("headlines", len(headlines)).Msg("STEP 2: scoring headlines")
	scored := p.score(headlines)

	p.logger.Info().Int("assets", len(p.opts.Assets)).Msg("STEP 3: fetching prices")
	quotes := p.fetchPrices(ctx)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	p.logger.Info().Msg("STEP 4: persisting series")
	for i, ticker := range p.opts.Assets {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, err := p.persistAsset(ctx, ticker, quotes[i], scored, runAt)
		report.Assets = append(report.Assets, result)
		if err != nil {
			return report, fmt.Errorf("persist %s: %w", ticker, err)
		}
	}

	p.logger.Info().
		Int("persisted", report.Count(StatusPersisted)).
		Int("no_data", report.Count(StatusNoData)).
		Int("failed", report.Count(StatusFailed)).
		Msg("PIPELINE SUCCESS")
	return report, nil
}

// collect fetches every source with bounded concurrency and returns the
// accepted headlines in source order.
func (p *Pipeline) collect(ctx context.Context, runAt time.Time, report *Report) []extractor.Headline {
	type fetched struct {
		markup string
		err    error
	}
	results := make([]fetched, len(p.opts.Sources))

	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i, src := range p.opts.Sources {
		g.Go(func() error {
			markup, err := p.sources.FetchSource(ctx, src)
			results[i] = fetched{markup: markup, err: err}
			return nil
		})
	}
	_ = g.Wait()

	headlines := make([]extractor.Headline, 0)
	for i, src := range p.opts.Sources {
		res := results[i]
		if res.err != nil {
			p.logger.Warn().Err(res.err).Str("source", src.Name).Msg("source fetch failed")
			report.SourcesFailed = append(report.SourcesFailed, src.Name)
			continue
		}

		seq, err := p.extractor.Extract(src, res.markup, runAt)
		if err != nil {
			p.logger.Warn().Err(err).Str("source", src.Name).Msg("source parse failed")
			report.SourcesFailed = append(report.SourcesFailed, src.Name)
			continue
		}

		before := len(headlines)
		for h := range seq {
			headlines = append(headlines, h)
		}
		report.SourcesFetched = append(report.SourcesFetched, src.Name)
		p.logger.Debug().Str("source", src.Name).Int("headlines", len(headlines)-before).Msg("source extracted")
	}
	return headlines
}

func (p *Pipeline) score(headlines []extractor.Headline) []scoredHeadline {
	out := make([]scoredHeadline, 0, len(headlines))
	for _, h := range headlines {
		s := p.scorer.Score(h.Text)
		out = append(out, scoredHeadline{Headline: h, score: s, label: sentiment.LabelFor(s)})
	}
	return out
}

// fetchPrices returns one result per configured asset, index-aligned.
func (p *Pipeline) fetchPrices(ctx context.Context) []priceResult {
	results := make([]priceResult, len(p.opts.Assets))

	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i, ticker := range p.opts.Assets {
		g.Go(func() error {
			quote, err := p.prices.FetchPrice(ctx, ticker)
			results[i] = priceResult{quote: quote, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// persistAsset returns an error only when the run must stop.
func (p *Pipeline) persistAsset(ctx context.Context, ticker string, price priceResult, scored []scoredHeadline, runAt time.Time) (AssetResult, error) {
	result := AssetResult{Ticker: ticker}
	logger := p.logger.With().Str("ticker", ticker).Logger()

	switch {
	case errors.Is(price.err, fetcher.ErrNoData):
		logger.Warn().Msg("no price data, skipping asset")
		result.Status = StatusNoData
		return result, nil
	case price.err != nil:
		logger.Error().Err(price.err).Msg("price fetch failed, skipping asset")
		result.Status = StatusFailed
		result.Err = price.err
		return result, nil
	}

	batch := storage.AssetBatch{
		Price: storage.PriceRecord{
			Ticker:      ticker,
			PublishedAt: runAt,
			Close:       price.quote.Close,
		},
		Sentiment:     make([]storage.SentimentRecord, 0, len(scored)),
		SentimentMode: p.opts.SentimentMode,
	}
	for _, h := range scored {
		batch.Sentiment = append(batch.Sentiment, storage.SentimentRecord{
			Ticker:      ticker,
			PublishedAt: runAt,
			RawText:     h.Text,
			Source:      h.Source,
			Score:       h.score,
			Label:       h.label,
		})
	}

	if err := p.store.Persist(ctx, batch); err != nil {
		result.Status = StatusFailed
		result.Err = err
		if errors.Is(err, storage.ErrUnavailable) || ctx.Err() != nil {
			return result, err
		}
		logger.Error().Err(err).Msg("persist failed, skipping asset")
		return result, nil
	}

	result.Status = StatusPersisted
	result.Close = price.quote.Close
	result.Sentiment = len(batch.Sentiment)
	logger.Info().
		Str("close", price.quote.Close.String()).
		Int("sentiment_rows", result.Sentiment).
		Msg("asset persisted")
	return result, nil
}

func (p *Pipeline) acquireLock(ctx context.Context) (func(), bool, error) {
	if p.opts.LockKey == 0 || p.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := p.locker.TryAdvisoryLock(ctx, p.opts.LockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
