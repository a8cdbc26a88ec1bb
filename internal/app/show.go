package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"sentiment-engine/internal/storage"
)

// ErrNoData is returned by read commands when nothing has been persisted yet.
var ErrNoData = errors.New("no data stored yet; run `sentimentengine run` first")

// Show prints tracked tickers with their latest close, or the recent
// headlines of one ticker when opts.Ticker is set.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if opts.Ticker == "" {
		err = a.showTickers(ctx, store)
	} else {
		err = a.showHeadlines(ctx, store, opts)
	}
	if errors.Is(err, storage.ErrNotInitialized) {
		return ErrNoData
	}
	return err
}

func (a *App) showTickers(ctx context.Context, store storage.SeriesReader) error {
	tickers, err := store.Tickers(ctx)
	if err != nil {
		return err
	}
	if len(tickers) == 0 {
		fmt.Fprintln(a.Out, "no tickers found")
		return nil
	}

	points, err := store.PriceSeries(ctx, tickers)
	if err != nil {
		return err
	}
	latest := make(map[string]storage.PricePoint, len(tickers))
	for _, p := range points {
		latest[p.Ticker] = p
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Ticker\tLatest close\tAs of (UTC)")
	for _, ticker := range tickers {
		p := latest[ticker]
		fmt.Fprintf(writer, "%s\t%.4f\t%s\n", ticker, p.Close, p.PublishedAt.UTC().Format(time.RFC3339))
	}
	return writer.Flush()
}

func (a *App) showHeadlines(ctx context.Context, store storage.SeriesReader, opts ShowOptions) error {
	rows, err := store.RecentHeadlines(ctx, storage.HeadlineQuery{
		Ticker: strings.ToUpper(opts.Ticker),
		Labels: opts.Labels,
		Limit:  opts.Limit,
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintf(a.Out, "no headlines found for %s\n", opts.Ticker)
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tSource\tLabel\tScore\tHeadline")
	for _, r := range rows {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%.4f\t%s\n",
			r.PublishedAt.UTC().Format(time.RFC3339),
			r.Source,
			r.Label,
			r.Score,
			sanitizeInline(r.RawText),
		)
	}
	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	return cleaned
}
