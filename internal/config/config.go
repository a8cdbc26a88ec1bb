package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"sentiment-engine/internal/logging"
)

// Sentiment analysers.
const (
	AnalyzerVader   = "vader"
	AnalyzerLexicon = "lexicon"
)

// Sentiment write modes.
const (
	SentimentAppend = "append"
	SentimentUpsert = "upsert"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Assets    []string        `mapstructure:"assets"`
	Sources   []SourceConfig  `mapstructure:"sources"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Filter    FilterConfig    `mapstructure:"filter"`
	Prices    PriceConfig     `mapstructure:"prices"`
	Sentiment SentimentConfig `mapstructure:"sentiment"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig selects and tunes the series store.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// SourceConfig describes one news endpoint.
type SourceConfig struct {
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"`
	Selector string `mapstructure:"selector"`
	Kind     string `mapstructure:"kind"`
}

// FetchConfig governs the headline transport.
type FetchConfig struct {
	UserAgent   string        `mapstructure:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
}

// FilterConfig drops low-signal fragments.
type FilterConfig struct {
	MinLength   int      `mapstructure:"min_length"`
	Boilerplate []string `mapstructure:"boilerplate"`
}

// PriceConfig covers the market-data provider.
type PriceConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// SentimentConfig picks the analyser and decides how sentiment rows are written.
type SentimentConfig struct {
	Analyzer  string             `mapstructure:"analyzer"`
	Lexicon   map[string]float64 `mapstructure:"lexicon"`
	WriteMode string             `mapstructure:"write_mode"`
}

// SchedulerConfig governs the watch cadence.
type SchedulerConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	AlignToStart   bool          `mapstructure:"align_to_start"`
	StartupDelay   time.Duration `mapstructure:"startup_delay"`
	RunImmediately bool          `mapstructure:"run_immediately"`
}

// AlertingConfig routes run reports to operators.
type AlertingConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	OnlyFailure bool           `mapstructure:"only_failure"`
	Telegram    TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram bot channel.
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int      `mapstructure:"max_data_points"`
	Benchmarks    []string `mapstructure:"benchmarks"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SENTIMENTENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// DefaultSources mirrors the headline pages the engine was first tuned on.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{Name: "BBC Business", URL: "https://www.bbc.com/news/business", Selector: "h3", Kind: "html"},
		{Name: "CNBC Markets", URL: "https://www.cnbc.com/markets/", Selector: "a", Kind: "html"},
		{Name: "Yahoo Finance", URL: "https://finance.yahoo.com/news/", Selector: "h3", Kind: "html"},
	}
}

// DefaultAssets lists equities, a crypto pair and two metal futures.
func DefaultAssets() []string {
	return []string{"NVDA", "AAPL", "TSLA", "BTC-USD", "GC=F", "SI=F"}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "sentimentengine")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "sentiment.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.advisory_lock_key", int64(0x53454e54))

	v.SetDefault("assets", DefaultAssets())
	sources := make([]map[string]any, 0, 3)
	for _, src := range DefaultSources() {
		sources = append(sources, map[string]any{
			"name":     src.Name,
			"url":      src.URL,
			"selector": src.Selector,
			"kind":     src.Kind,
		})
	}
	v.SetDefault("sources", sources)

	v.SetDefault("fetch.user_agent", "Mozilla/5.0")
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.concurrency", 4)

	v.SetDefault("filter.min_length", 25)
	v.SetDefault("filter.boilerplate", []string{"BBC is in multiple languages"})

	v.SetDefault("prices.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("prices.timeout", "30s")
	v.SetDefault("prices.user_agent", "Mozilla/5.0")

	v.SetDefault("sentiment.analyzer", AnalyzerVader)
	v.SetDefault("sentiment.write_mode", SentimentAppend)

	v.SetDefault("scheduler.interval", "6h")
	v.SetDefault("scheduler.align_to_start", true)
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.run_immediately", true)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.only_failure", false)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")

	v.SetDefault("export.max_data_points", 365)
	v.SetDefault("export.benchmarks", []string{"GC=F", "SI=F"})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Sentiment.WriteMode = strings.ToLower(strings.TrimSpace(c.Sentiment.WriteMode))
	c.Sentiment.Analyzer = strings.ToLower(strings.TrimSpace(c.Sentiment.Analyzer))

	assets := c.Assets[:0]
	for _, a := range c.Assets {
		if a = strings.ToUpper(strings.TrimSpace(a)); a != "" {
			assets = append(assets, a)
		}
	}
	c.Assets = assets

	for i := range c.Sources {
		c.Sources[i].Kind = strings.ToLower(strings.TrimSpace(c.Sources[i].Kind))
		if c.Sources[i].Kind == "" {
			c.Sources[i].Kind = "html"
		}
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if len(c.Assets) == 0 {
		return fmt.Errorf("assets must list at least one ticker")
	}
	for i, src := range c.Sources {
		if src.Name == "" || src.URL == "" {
			return fmt.Errorf("sources[%d] needs both name and url", i)
		}
		switch src.Kind {
		case "html":
			if src.Selector == "" {
				return fmt.Errorf("sources[%d] (%s) needs a selector", i, src.Name)
			}
		case "rss":
		default:
			return fmt.Errorf("sources[%d] (%s) has unknown kind %q", i, src.Name, src.Kind)
		}
	}
	if c.Fetch.Concurrency <= 0 {
		return fmt.Errorf("fetch.concurrency must be greater than zero")
	}
	if c.Filter.MinLength < 0 {
		return fmt.Errorf("filter.min_length cannot be negative")
	}
	switch c.Sentiment.Analyzer {
	case AnalyzerVader, AnalyzerLexicon:
	default:
		return fmt.Errorf("sentiment.analyzer must be %q or %q", AnalyzerVader, AnalyzerLexicon)
	}
	switch c.Sentiment.WriteMode {
	case SentimentAppend, SentimentUpsert:
	default:
		return fmt.Errorf("sentiment.write_mode must be %q or %q", SentimentAppend, SentimentUpsert)
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
