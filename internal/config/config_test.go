package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: test\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Database.Driver != DriverSQLite || cfg.Database.Path != "sentiment.db" {
		t.Fatalf("unexpected database defaults: %+v", cfg.Database)
	}
	if len(cfg.Assets) != 6 || cfg.Assets[3] != "BTC-USD" {
		t.Fatalf("unexpected default assets: %v", cfg.Assets)
	}
	if len(cfg.Sources) != 3 || cfg.Sources[1].Selector != "a" {
		t.Fatalf("unexpected default sources: %+v", cfg.Sources)
	}
	if cfg.Filter.MinLength != 25 {
		t.Fatalf("min length default = %d", cfg.Filter.MinLength)
	}
	if cfg.Sentiment.WriteMode != SentimentAppend {
		t.Fatalf("write mode default = %q", cfg.Sentiment.WriteMode)
	}
	if cfg.Sentiment.Analyzer != AnalyzerVader {
		t.Fatalf("analyzer default = %q", cfg.Sentiment.Analyzer)
	}
	if cfg.Fetch.Timeout != 30*time.Second {
		t.Fatalf("fetch timeout default = %s", cfg.Fetch.Timeout)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	body := `
assets: [nvda, " gc=f "]
sources:
  - name: Feed
    url: https://example.com/rss
    kind: RSS
  - name: Page
    url: https://example.com/
    selector: h2
sentiment:
  analyzer: Lexicon
  write_mode: Upsert
  lexicon:
    moonshot: 3
fetch:
  timeout: 5s
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.Assets; len(got) != 2 || got[0] != "NVDA" || got[1] != "GC=F" {
		t.Fatalf("assets not normalised: %v", got)
	}
	if cfg.Sources[0].Kind != "rss" || cfg.Sources[1].Kind != "html" {
		t.Fatalf("source kinds not normalised: %+v", cfg.Sources)
	}
	if cfg.Sentiment.WriteMode != SentimentUpsert {
		t.Fatalf("write mode = %q", cfg.Sentiment.WriteMode)
	}
	if cfg.Sentiment.Analyzer != AnalyzerLexicon || cfg.Sentiment.Lexicon["moonshot"] != 3 {
		t.Fatalf("sentiment = %+v", cfg.Sentiment)
	}
	if cfg.Fetch.Timeout != 5*time.Second {
		t.Fatalf("timeout = %s", cfg.Fetch.Timeout)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SENTIMENTENGINE_DATABASE_PATH", "/tmp/other.db")
	t.Setenv("SENTIMENTENGINE_ASSETS", "AAPL,TSLA")

	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Path != "/tmp/other.db" {
		t.Fatalf("env path not applied: %q", cfg.Database.Path)
	}
	if len(cfg.Assets) != 2 || cfg.Assets[1] != "TSLA" {
		t.Fatalf("env assets not applied: %v", cfg.Assets)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"unknown driver":   "database:\n  driver: mysql\n",
		"postgres no dsn":  "database:\n  driver: postgres\n",
		"bad write mode":   "sentiment:\n  write_mode: merge\n",
		"bad analyzer":     "sentiment:\n  analyzer: bert\n",
		"html no selector": "sources:\n  - name: X\n    url: https://x\n",
		"bad kind":         "sources:\n  - name: X\n    url: https://x\n    kind: json\n",
		"zero concurrency": "fetch:\n  concurrency: 0\n",
		"telegram no chat": "alerting:\n  telegram:\n    enabled: true\n    bot_token: t\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxDataPoints: 10}}
	if cfg.ResolveMaxPoints(0) != 10 || cfg.ResolveMaxPoints(3) != 3 {
		t.Fatal("override should win only when positive")
	}
}
