package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sentiment-engine/internal/config"
	"sentiment-engine/internal/sentiment"
	"sentiment-engine/internal/storage"
)

const newsPage = `<html><body>
<h3>BBC is in multiple languages, read in yours</h3>
<h3>Chip stocks surge to record high on strong demand</h3>
<h3>Markets plunge as recession fears deepen</h3>
<h3>Menu</h3>
</body></html>`

func newsServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, newsPage)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func pricesServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ticker := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")
		w.Header().Set("Content-Type", "application/json")
		if ticker == "ZZZZ" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
			return
		}
		fmt.Fprintf(w, `{"chart":{"result":[{"meta":{"symbol":%q},"timestamp":[1760000000],
			"indicators":{"quote":[{"close":[101.25]}]}}],"error":null}}`, ticker)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	news := newsServer(t)
	prices := pricesServer(t)

	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "sentiment.db")},
		Assets:   []string{"NVDA", "ZZZZ", "GC=F"},
		Sources: []config.SourceConfig{
			{Name: "BBC", URL: news.URL + "/business", Selector: "h3", Kind: "html"},
			{Name: "Broken", URL: news.URL + "/down", Selector: "h3", Kind: "html"},
		},
		Fetch:     config.FetchConfig{Timeout: time.Second, Concurrency: 2},
		Filter:    config.FilterConfig{MinLength: 25, Boilerplate: []string{"BBC is in multiple languages"}},
		Prices:    config.PriceConfig{BaseURL: prices.URL, Timeout: time.Second},
		Sentiment: config.SentimentConfig{WriteMode: config.SentimentAppend},
		Scheduler: config.SchedulerConfig{Interval: time.Hour},
		Export:    config.ExportConfig{MaxDataPoints: 100, Benchmarks: []string{"GC=F"}},
	}

	out := &bytes.Buffer{}
	a := NewApp(cfg, zerolog.Nop())
	a.Out = out
	return a, out
}

func TestShowBeforeRun(t *testing.T) {
	a, _ := testApp(t)
	if err := a.Show(context.Background(), ShowOptions{}); !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestRunShowExport(t *testing.T) {
	a, out := testApp(t)
	ctx := context.Background()

	if err := a.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	report := out.String()
	for _, want := range []string{"PIPELINE SUCCESS", "NVDA", "persisted", "no_data", "1 failed"} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}

	out.Reset()
	if err := a.Show(ctx, ShowOptions{}); err != nil {
		t.Fatalf("show tickers: %v", err)
	}
	if !strings.Contains(out.String(), "GC=F") || strings.Contains(out.String(), "ZZZZ") {
		t.Fatalf("tickers output:\n%s", out.String())
	}

	out.Reset()
	err := a.Show(ctx, ShowOptions{Ticker: "nvda", Labels: []sentiment.Label{sentiment.Negative}, Limit: 10})
	if err != nil {
		t.Fatalf("show headlines: %v", err)
	}
	if !strings.Contains(out.String(), "Markets plunge") || strings.Contains(out.String(), "Chip stocks") {
		t.Fatalf("headline output:\n%s", out.String())
	}

	dir := t.TempDir()
	opts := ExportOptions{
		Ticker:  "NVDA",
		Compare: []string{"GC=F"},
		CSVPath: filepath.Join(dir, "nvda.csv"),
		PNGPath: filepath.Join(dir, "charts", "nvda.png"),
	}
	if err := a.Export(ctx, opts); err != nil {
		t.Fatalf("export: %v", err)
	}

	file, err := os.Open(opts.CSVPath)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 || records[1][1] != "101.2500" || records[1][3] != "2" {
		t.Fatalf("csv = %v", records)
	}

	for _, path := range []string{opts.PNGPath, filepath.Join(dir, "charts", "nvda_compare.png")} {
		if info, err := os.Stat(path); err != nil || info.Size() == 0 {
			t.Fatalf("png %s missing: %v", path, err)
		}
	}
}

func TestExportRequiresOutput(t *testing.T) {
	a, _ := testApp(t)
	if err := a.Export(context.Background(), ExportOptions{Ticker: "NVDA"}); err == nil {
		t.Fatal("expected error without output paths")
	}
}

func TestIndexedSeries(t *testing.T) {
	d1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	points := []storage.PricePoint{
		{Ticker: "GC=F", PublishedAt: d1, Close: 2000},
		{Ticker: "GC=F", PublishedAt: d2, Close: 2500},
		{Ticker: "NVDA", PublishedAt: d1, Close: 100},
		{Ticker: "NVDA", PublishedAt: d1.Add(time.Hour), Close: 110},
		{Ticker: "NVDA", PublishedAt: d2, Close: 88},
		{Ticker: "SI=F", PublishedAt: d1, Close: 30},
		{Ticker: "SI=F", PublishedAt: d2, Close: 0},
	}

	lines := indexedSeries(points, []string{"NVDA", "GC=F", "SI=F"})
	if len(lines) != 2 || lines[0].ticker != "NVDA" {
		t.Fatalf("lines = %+v", lines)
	}
	if lines[0].points[0].value != 125 || lines[0].points[1].value != 100 {
		t.Fatalf("NVDA = %+v", lines[0].points)
	}
	if lines[1].points[0].value != 80 || lines[1].points[1].value != 100 {
		t.Fatalf("GC=F = %+v", lines[1].points)
	}
}

func TestDownsampleKeepsEnds(t *testing.T) {
	in := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	got := downsample(in, 4)
	if len(got) != 4 || got[0] != 0 || got[3] != 9 {
		t.Fatalf("downsample = %v", got)
	}
	if len(downsample(in, 0)) != len(in) {
		t.Fatal("zero max must keep all points")
	}
}

func TestNewAppTagsLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{App: config.AppConfig{Name: "sentimentengine", Environment: "staging"}}
	a := NewApp(cfg, zerolog.New(&buf))
	a.Logger.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["app"] != "sentimentengine" || entry["env"] != "staging" || entry["component"] != "app" {
		t.Fatalf("log fields = %v", entry)
	}
}
