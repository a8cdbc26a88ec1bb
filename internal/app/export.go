package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"sentiment-engine/internal/storage"
)

// Export renders a ticker's daily price and sentiment series as CSV and/or
// PNG, plus a relative-performance chart when comparison tickers are given.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.Ticker == "" {
		return errors.New("--ticker is required")
	}
	if opts.CSVPath == "" && opts.PNGPath == "" && opts.ComparePNGPath == "" {
		return errors.New("at least one of --csv, --png or --compare-png must be provided")
	}
	opts.Ticker = strings.ToUpper(opts.Ticker)
	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)
	if len(opts.Compare) > 0 && opts.ComparePNGPath == "" && opts.PNGPath != "" {
		opts.ComparePNGPath = comparePath(opts.PNGPath)
	}
	if opts.ComparePNGPath != "" && len(opts.Compare) == 0 {
		opts.Compare = a.Config.Export.Benchmarks
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := a.exportDaily(ctx, store, opts); err != nil {
		if errors.Is(err, storage.ErrNotInitialized) {
			return ErrNoData
		}
		return err
	}
	if opts.ComparePNGPath == "" {
		return nil
	}
	return a.exportComparison(ctx, store, opts)
}

func (a *App) exportDaily(ctx context.Context, store storage.SeriesReader, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return nil
	}

	series, err := store.DailySeries(ctx, opts.Ticker)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		a.Logger.Info().Str("ticker", opts.Ticker).Msg("no daily points found for export")
		return nil
	}

	points := downsample(series, opts.MaxPoints)
	a.Logger.Info().Str("ticker", opts.Ticker).Int("total", len(series)).Int("exported", len(points)).Msg("exporting daily series")

	if opts.CSVPath != "" {
		if err := writeDailyCSV(opts.CSVPath, points); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		if err := writeDailyPNG(opts.PNGPath, opts.Ticker, points); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) exportComparison(ctx context.Context, store storage.SeriesReader, opts ExportOptions) error {
	tickers := append([]string{opts.Ticker}, opts.Compare...)
	points, err := store.PriceSeries(ctx, tickers)
	if err != nil {
		if errors.Is(err, storage.ErrNotInitialized) {
			return ErrNoData
		}
		return err
	}

	lines := indexedSeries(points, tickers)
	if len(lines) == 0 {
		a.Logger.Info().Strs("tickers", tickers).Msg("no prices found for comparison")
		return nil
	}
	for i := range lines {
		lines[i].points = downsample(lines[i].points, opts.MaxPoints)
	}
	a.Logger.Info().Strs("tickers", tickers).Str("path", opts.ComparePNGPath).Msg("exporting relative performance")
	return writeComparePNG(opts.ComparePNGPath, lines)
}

type indexedPoint struct {
	day   time.Time
	value float64
}

type indexedLine struct {
	ticker string
	points []indexedPoint
}

// indexedSeries reduces each ticker to its daily max close and rebases it so
// the latest day equals 100. Tickers without a positive latest close are dropped.
func indexedSeries(points []storage.PricePoint, tickers []string) []indexedLine {
	daily := make(map[string][]indexedPoint, len(tickers))
	for _, p := range points {
		day := storage.DayOf(p.PublishedAt)
		series := daily[p.Ticker]
		if n := len(series); n > 0 && series[n-1].day.Equal(day) {
			series[n-1].value = math.Max(series[n-1].value, p.Close)
			continue
		}
		daily[p.Ticker] = append(series, indexedPoint{day: day, value: p.Close})
	}

	lines := make([]indexedLine, 0, len(tickers))
	for _, ticker := range tickers {
		series := daily[ticker]
		if len(series) == 0 || series[len(series)-1].value <= 0 {
			continue
		}
		base := series[len(series)-1].value
		for i := range series {
			series[i].value = series[i].value * 100 / base
		}
		lines = append(lines, indexedLine{ticker: ticker, points: series})
	}
	return lines
}

func downsample[T any](points []T, max int) []T {
	if max <= 0 || len(points) <= max {
		return points
	}
	if max == 1 {
		return points[len(points)-1:]
	}

	result := make([]T, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

func writeDailyCSV(path string, points []storage.DailyPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{"day", "price", "avg_sentiment", "headlines"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, p := range points {
		record := []string{
			p.Day.Format(time.DateOnly),
			formatDecimal(decimal.NewFromFloat(p.Price), 4),
			strconv.FormatFloat(p.AvgSentiment, 'f', 4, 64),
			strconv.Itoa(p.Headlines),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeDailyPNG(path, ticker string, points []storage.DailyPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(points))
	price := make([]float64, len(points))
	mood := make([]float64, len(points))
	for i, p := range points {
		x[i] = p.Day
		price[i] = p.Price
		mood[i] = p.AvgSentiment
	}
	// go-chart needs at least two points to draw a line.
	if len(points) == 1 {
		x = append(x, x[0].Add(24*time.Hour))
		price = append(price, price[0])
		mood = append(mood, mood[0])
	}

	graph := chart.Chart{
		Title:  ticker + " price vs news sentiment",
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:  "Close",
			Range: flatRange(price),
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.2f")
			},
		},
		YAxisSecondary: chart.YAxis{
			Name:  "Avg sentiment",
			Range: &chart.ContinuousRange{Min: -1, Max: 1},
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.2f")
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    ticker,
				XValues: x,
				YValues: price,
			},
			chart.TimeSeries{
				Name:    "Sentiment",
				XValues: x,
				YValues: mood,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return renderPNG(path, graph)
}

func writeComparePNG(path string, lines []indexedLine) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	series := make([]chart.Series, 0, len(lines))
	var all []float64
	for _, line := range lines {
		x := make([]time.Time, 0, len(line.points)+1)
		y := make([]float64, 0, len(line.points)+1)
		for _, p := range line.points {
			x = append(x, p.day)
			y = append(y, p.value)
		}
		if len(x) == 1 {
			x = append(x, x[0].Add(24*time.Hour))
			y = append(y, y[0])
		}
		all = append(all, y...)
		series = append(series, chart.TimeSeries{Name: line.ticker, XValues: x, YValues: y})
	}

	graph := chart.Chart{
		Title:  "Relative performance (latest day = 100)",
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:  "Index",
			Range: flatRange(all),
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.1f")
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return renderPNG(path, graph)
}

// flatRange pads a series with no spread, which go-chart refuses to plot.
// It returns nil so the axis autoscales otherwise.
func flatRange(values []float64) chart.Range {
	if len(values) == 0 {
		return nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi > lo {
		return nil
	}
	pad := math.Abs(lo) * 0.01
	if pad == 0 {
		pad = 1
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func renderPNG(path string, graph chart.Chart) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := graph.Render(chart.PNG, file); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return nil
}

func comparePath(pngPath string) string {
	ext := filepath.Ext(pngPath)
	return strings.TrimSuffix(pngPath, ext) + "_compare" + ext
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
