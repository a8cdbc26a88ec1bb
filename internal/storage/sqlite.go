package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"sentiment-engine/internal/config"
	"sentiment-engine/internal/sentiment"
)

const insertBatchSize = 200

type priceRow struct {
	PublishedDate time.Time `gorm:"column:published_date;not null;index:idx_stock_trends_ticker_date,priority:2"`
	ClosePrice    float64   `gorm:"column:close_price"`
	TickerSymbol  string    `gorm:"column:ticker_symbol;not null;index:idx_stock_trends_ticker_date,priority:1"`
}

func (priceRow) TableName() string { return PriceTable }

type sentimentRow struct {
	PublishedDate  time.Time `gorm:"column:published_date;not null;index:idx_market_sentiment_ticker_date,priority:2"`
	SentimentScore float64   `gorm:"column:sentiment_score"`
	SourceName     string    `gorm:"column:source_name"`
	RawText        string    `gorm:"column:raw_text"`
	SentimentLabel string    `gorm:"column:sentiment_label"`
	TickerSymbol   string    `gorm:"column:ticker_symbol;not null;index:idx_market_sentiment_ticker_date,priority:1"`
}

func (sentimentRow) TableName() string { return SentimentTable }

// SQLiteStore keeps both series tables in a local database file.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) the database file at cfg.Path.
func OpenSQLite(ctx context.Context, cfg config.DatabaseConfig) (*SQLiteStore, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("database.path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, unavailable(fmt.Errorf("open sqlite %s: %w", path, err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, unavailable(err)
	}
	// One connection serialises writers on the file.
	sqlDB.SetMaxOpenConns(1)
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	store := &SQLiteStore{db: db}
	if err := store.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) handle(ctx context.Context) (*gorm.DB, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	return s.db.WithContext(ctx), nil
}

// Ping checks that the database file is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return unavailable(err)
	}
	return unavailable(sqlDB.PingContext(ctx))
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertPrices replaces same-day price rows per ticker.
func (s *SQLiteStore) UpsertPrices(ctx context.Context, rows []PriceRecord) error {
	if len(rows) == 0 {
		return nil
	}
	if err := validatePrices(rows); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB) error {
		return writePrices(tx, rows)
	})
}

// UpsertSentiment replaces same-day sentiment rows per ticker and source.
func (s *SQLiteStore) UpsertSentiment(ctx context.Context, rows []SentimentRecord) error {
	return s.sentiment(ctx, rows, SentimentUpsert)
}

// AppendSentiment appends sentiment rows without touching existing ones.
func (s *SQLiteStore) AppendSentiment(ctx context.Context, rows []SentimentRecord) error {
	return s.sentiment(ctx, rows, SentimentAppend)
}

func (s *SQLiteStore) sentiment(ctx context.Context, rows []SentimentRecord, mode SentimentMode) error {
	if len(rows) == 0 {
		return nil
	}
	if err := validateSentiment(rows); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB) error {
		return writeSentiment(tx, rows, mode)
	})
}

// Persist writes one asset's price and sentiment rows in a single transaction.
func (s *SQLiteStore) Persist(ctx context.Context, batch AssetBatch) error {
	prices := []PriceRecord{batch.Price}
	if err := validatePrices(prices); err != nil {
		return err
	}
	if err := validateSentiment(batch.Sentiment); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB) error {
		if err := writePrices(tx, prices); err != nil {
			return err
		}
		if len(batch.Sentiment) == 0 {
			return nil
		}
		return writeSentiment(tx, batch.Sentiment, batch.SentimentMode)
	})
}

func (s *SQLiteStore) write(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	if err := db.Transaction(fn); err != nil {
		if ctx.Err() == nil && s.Ping(ctx) != nil {
			return unavailable(err)
		}
		return err
	}
	return nil
}

func writePrices(tx *gorm.DB, rows []PriceRecord) error {
	out := make([]priceRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, priceRow{
			PublishedDate: normalizeTime(r.PublishedAt),
			ClosePrice:    r.Close.InexactFloat64(),
			TickerSymbol:  r.Ticker,
		})
	}
	return saveRows(tx, PriceTable, out, priceKeys(rows), false)
}

func writeSentiment(tx *gorm.DB, rows []SentimentRecord, mode SentimentMode) error {
	out := make([]sentimentRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, sentimentRow{
			PublishedDate:  normalizeTime(r.PublishedAt),
			SentimentScore: r.Score,
			SourceName:     r.Source,
			RawText:        r.RawText,
			SentimentLabel: string(r.Label),
			TickerSymbol:   r.Ticker,
		})
	}
	var keys []seriesKey
	if sentimentUpsert(mode) {
		keys = sentimentKeys(rows)
	}
	return saveRows(tx, SentimentTable, out, keys, true)
}

// saveRows is the delete-then-append step shared by both tables. A missing
// table is created and the delete phase skipped; otherwise one DELETE
// statement clears every key in keys before the rows are inserted.
func saveRows[T any](tx *gorm.DB, table string, rows []T, keys []seriesKey, bySource bool) error {
	migrator := tx.Migrator()
	if !migrator.HasTable(table) {
		if err := migrator.CreateTable(new(T)); err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}
	} else if len(keys) > 0 {
		stmt, args := deleteStatement(table, keys, bySource)
		if err := tx.Exec(stmt, args...).Error; err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}

	if err := tx.CreateInBatches(&rows, insertBatchSize).Error; err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func deleteStatement(table string, keys []seriesKey, bySource bool) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(keys)*4)

	b.WriteString("DELETE FROM ")
	b.WriteString(table)
	b.WriteString(" WHERE ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(" OR ")
		}
		b.WriteString("(ticker_symbol = ? AND published_date >= ? AND published_date < ?")
		args = append(args, k.ticker, k.dayStart(), k.dayEnd())
		if bySource {
			b.WriteString(" AND source_name = ?")
			args = append(args, k.source)
		}
		b.WriteString(")")
	}
	return b.String(), args
}

// Tickers lists tickers with at least one stored price.
func (s *SQLiteStore) Tickers(ctx context.Context) ([]string, error) {
	db, err := s.initialized(ctx)
	if err != nil {
		return nil, err
	}
	var tickers []string
	if err := db.Model(&priceRow{}).Distinct().Order("ticker_symbol").Pluck("ticker_symbol", &tickers).Error; err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	return tickers, nil
}

// DailySeries returns per-day max close and mean sentiment for ticker.
func (s *SQLiteStore) DailySeries(ctx context.Context, ticker string) ([]DailyPoint, error) {
	db, err := s.initialized(ctx)
	if err != nil {
		return nil, err
	}

	var prices []priceRow
	if err := db.Where("ticker_symbol = ?", ticker).Order("published_date").Find(&prices).Error; err != nil {
		return nil, fmt.Errorf("daily prices %s: %w", ticker, err)
	}

	var scores []scorePoint
	if db.Migrator().HasTable(SentimentTable) {
		var rows []sentimentRow
		err := db.Select("published_date", "sentiment_score").
			Where("ticker_symbol = ?", ticker).
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("daily sentiment %s: %w", ticker, err)
		}
		scores = make([]scorePoint, 0, len(rows))
		for _, r := range rows {
			scores = append(scores, scorePoint{PublishedAt: r.PublishedDate, Score: r.SentimentScore})
		}
	}

	points := make([]PricePoint, 0, len(prices))
	for _, p := range prices {
		points = append(points, p.point())
	}
	return dailySeries(points, scores), nil
}

// RecentHeadlines returns the newest sentiment rows for a ticker.
func (s *SQLiteStore) RecentHeadlines(ctx context.Context, q HeadlineQuery) ([]SentimentRecord, error) {
	db, err := s.initialized(ctx)
	if err != nil {
		return nil, err
	}
	if !db.Migrator().HasTable(SentimentTable) {
		return nil, nil
	}

	query := db.Where("ticker_symbol = ?", q.Ticker)
	if len(q.Labels) > 0 {
		query = query.Where("sentiment_label IN ?", labelStrings(q.Labels))
	}

	var rows []sentimentRow
	if err := query.Order("published_date DESC").Limit(headlineLimit(q.Limit)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("recent headlines %s: %w", q.Ticker, err)
	}

	out := make([]SentimentRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, SentimentRecord{
			Ticker:      r.TickerSymbol,
			PublishedAt: r.PublishedDate,
			RawText:     r.RawText,
			Source:      r.SourceName,
			Score:       r.SentimentScore,
			Label:       sentiment.Label(r.SentimentLabel),
		})
	}
	return out, nil
}

// PriceSeries returns stored prices for the given tickers ordered by ticker and time.
func (s *SQLiteStore) PriceSeries(ctx context.Context, tickers []string) ([]PricePoint, error) {
	db, err := s.initialized(ctx)
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, nil
	}

	var rows []priceRow
	err = db.Where("ticker_symbol IN ?", tickers).
		Order("ticker_symbol").
		Order("published_date").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("price series: %w", err)
	}

	out := make([]PricePoint, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.point())
	}
	return out, nil
}

func (s *SQLiteStore) initialized(ctx context.Context) (*gorm.DB, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	if !db.Migrator().HasTable(PriceTable) {
		return nil, ErrNotInitialized
	}
	return db, nil
}

func (r priceRow) point() PricePoint {
	return PricePoint{Ticker: r.TickerSymbol, PublishedAt: r.PublishedDate, Close: r.ClosePrice}
}

func labelStrings(labels []sentiment.Label) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		out = append(out, string(l))
	}
	return out
}

func headlineLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

var _ Store = (*SQLiteStore)(nil)
