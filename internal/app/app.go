package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"sentiment-engine/internal/alerting"
	"sentiment-engine/internal/config"
	"sentiment-engine/internal/extractor"
	"sentiment-engine/internal/fetcher"
	"sentiment-engine/internal/pipeline"
	"sentiment-engine/internal/scheduler"
	"sentiment-engine/internal/sentiment"
	"sentiment-engine/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	ctx := logger.With().Str("component", "app")
	if cfg.App.Name != "" {
		ctx = ctx.Str("app", cfg.App.Name)
	}
	if cfg.App.Environment != "" {
		ctx = ctx.Str("env", cfg.App.Environment)
	}
	return &App{Config: cfg, Logger: ctx.Logger(), Out: os.Stdout}
}

func (a *App) openStore(ctx context.Context) (storage.Store, func(), error) {
	store, err := storage.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := store.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("close store")
		}
	}
	return store, closer, nil
}

func (a *App) sources() []fetcher.Source {
	out := make([]fetcher.Source, 0, len(a.Config.Sources))
	for _, src := range a.Config.Sources {
		out = append(out, fetcher.Source{Name: src.Name, URL: src.URL, Selector: src.Selector, Kind: src.Kind})
	}
	return out
}

func (a *App) newPipeline(store pipeline.Store) (*pipeline.Pipeline, error) {
	scorer, err := sentiment.NewScorer(a.Config.Sentiment.Analyzer, a.Config.Sentiment.Lexicon)
	if err != nil {
		return nil, err
	}

	pages := fetcher.NewPages(fetcher.SourceOptions{
		Timeout:   a.Config.Fetch.Timeout,
		UserAgent: a.Config.Fetch.UserAgent,
	}, a.Logger)
	prices := fetcher.NewPrices(fetcher.PriceOptions{
		BaseURL:   a.Config.Prices.BaseURL,
		Timeout:   a.Config.Prices.Timeout,
		UserAgent: a.Config.Prices.UserAgent,
	}, a.Logger)
	ext := extractor.New(extractor.Options{
		MinLength:   a.Config.Filter.MinLength,
		Boilerplate: a.Config.Filter.Boilerplate,
	})

	return pipeline.New(pipeline.Options{
		Sources:       a.sources(),
		Assets:        a.Config.Assets,
		Concurrency:   a.Config.Fetch.Concurrency,
		SentimentMode: storage.SentimentMode(a.Config.Sentiment.WriteMode),
		LockKey:       a.Config.Database.AdvisoryLockKey,
	}, pages, prices, ext, scorer, store, a.Logger), nil
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled || !a.Config.Alerting.Telegram.Enabled {
		return nil
	}
	cfg := a.Config.Alerting.Telegram
	return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger)
}

// refresh runs the pipeline once against a freshly opened store.
func (a *App) refresh(ctx context.Context, notifier alerting.Notifier) (pipeline.Report, error) {
	report := pipeline.Report{}
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		err = fmt.Errorf("open store: %w", err)
		a.notify(ctx, notifier, report, err)
		return report, err
	}
	defer closeStore()

	p, err := a.newPipeline(store)
	if err != nil {
		a.notify(ctx, notifier, report, err)
		return report, err
	}
	report, err = p.Run(ctx)
	a.notify(ctx, notifier, report, err)
	return report, err
}

func (a *App) notify(ctx context.Context, notifier alerting.Notifier, report pipeline.Report, runErr error) {
	if notifier == nil || errors.Is(runErr, context.Canceled) {
		return
	}
	note := alerting.FromReport(report, runErr)
	if a.Config.Alerting.OnlyFailure && !note.Degraded() {
		return
	}
	if err := notifier.Notify(ctx, note); err != nil {
		a.Logger.Error().Err(err).Msg("failed to dispatch run report")
	}
}

// Run executes a single pipeline refresh and prints the per-asset outcome.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := a.refresh(ctx, a.newNotifier())
	if len(report.Assets) > 0 || report.Skipped {
		a.printReport(report)
	}
	if err != nil {
		a.Logger.Error().Err(err).Msg("PIPELINE FAILED")
		return fmt.Errorf("pipeline aborted: %w", err)
	}
	if !report.Skipped {
		fmt.Fprintln(a.Out, "PIPELINE SUCCESS")
	}
	return nil
}

// Watch refreshes on the configured schedule until interrupted.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched, err := scheduler.New(scheduler.Options{
		Interval:       a.Config.Scheduler.Interval,
		AlignToStart:   a.Config.Scheduler.AlignToStart,
		StartupDelay:   a.Config.Scheduler.StartupDelay,
		RunImmediately: a.Config.Scheduler.RunImmediately,
	}, a.Logger)
	if err != nil {
		return err
	}

	notifier := a.newNotifier()
	a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Msg("starting scheduled refreshes")
	err = sched.Run(ctx, func(ctx context.Context, _ time.Time) error {
		_, err := a.refresh(ctx, notifier)
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch stopped")
	return nil
}

func (a *App) printReport(report pipeline.Report) {
	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	defer writer.Flush()

	if report.Skipped {
		fmt.Fprintln(writer, "run skipped: another refresh holds the lock")
		return
	}

	fmt.Fprintf(writer, "Run %s UTC: %d headlines, %d sources ok, %d failed\n",
		report.RunAt.Format(time.RFC3339), report.Headlines, len(report.SourcesFetched), len(report.SourcesFailed))
	fmt.Fprintln(writer, "Ticker\tStatus\tClose\tSentiment rows\tError")
	for _, asset := range report.Assets {
		closeValue := "-"
		if asset.Status == pipeline.StatusPersisted {
			closeValue = formatDecimal(asset.Close, 4)
		}
		errMsg := ""
		if asset.Err != nil {
			errMsg = sanitizeInline(asset.Err.Error())
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%s\n", asset.Ticker, asset.Status, closeValue, asset.Sentiment, errMsg)
	}
}

// ExportOptions hold parameters for exporting a ticker's daily series.
type ExportOptions struct {
	Ticker         string
	Compare        []string
	PNGPath        string
	CSVPath        string
	ComparePNGPath string
	MaxPoints      int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Ticker string
	Labels []sentiment.Label
	Limit  int
}
