package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sentiment-engine/internal/config"
	"sentiment-engine/internal/sentiment"
)

const (
	tableExistsSQL = `SELECT to_regclass($1) IS NOT NULL;`

	createPriceTableSQL = `CREATE TABLE IF NOT EXISTS stock_trends (
        published_date TIMESTAMPTZ NOT NULL,
        close_price    DOUBLE PRECISION,
        ticker_symbol  TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_stock_trends_ticker_date
        ON stock_trends (ticker_symbol, published_date);`

	createSentimentTableSQL = `CREATE TABLE IF NOT EXISTS market_sentiment (
        published_date  TIMESTAMPTZ NOT NULL,
        sentiment_score DOUBLE PRECISION,
        source_name     TEXT,
        raw_text        TEXT,
        sentiment_label TEXT,
        ticker_symbol   TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_market_sentiment_ticker_date
        ON market_sentiment (ticker_symbol, published_date);`

	deletePricesSQL = `DELETE FROM stock_trends t
    USING unnest($1::text[], $2::timestamptz[]) AS k(ticker, day_start)
    WHERE t.ticker_symbol = k.ticker
      AND t.published_date >= k.day_start
      AND t.published_date < k.day_start + interval '1 day';`

	deleteSentimentSQL = `DELETE FROM market_sentiment t
    USING unnest($1::text[], $2::timestamptz[], $3::text[]) AS k(ticker, day_start, source)
    WHERE t.ticker_symbol = k.ticker
      AND t.source_name = k.source
      AND t.published_date >= k.day_start
      AND t.published_date < k.day_start + interval '1 day';`

	listTickersSQL = `SELECT DISTINCT ticker_symbol FROM stock_trends ORDER BY ticker_symbol;`

	listPricesSQL = `SELECT ticker_symbol, published_date, close_price
    FROM stock_trends
    WHERE ticker_symbol = ANY($1)
    ORDER BY ticker_symbol, published_date;`

	listScoresSQL = `SELECT published_date, sentiment_score
    FROM market_sentiment
    WHERE ticker_symbol = $1;`

	listHeadlinesSQL = `SELECT ticker_symbol, published_date, raw_text, source_name, sentiment_score, sentiment_label
    FROM market_sentiment
    WHERE ticker_symbol = $1
      AND (cardinality($2::text[]) = 0 OR sentiment_label = ANY($2))
    ORDER BY published_date DESC
    LIMIT $3;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

var (
	priceColumns     = []string{"published_date", "close_price", "ticker_symbol"}
	sentimentColumns = []string{"published_date", "sentiment_score", "source_name", "raw_text", "sentiment_label", "ticker_symbol"}
)

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, unavailable(fmt.Errorf("create pgx pool: %w", err))
	}
	return pool, nil
}

// PostgresStore keeps both series tables in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wires a pgx pool into a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// Ping verifies the server is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	return unavailable(pool.Ping(ctx))
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// UpsertPrices replaces same-day price rows per ticker.
func (s *PostgresStore) UpsertPrices(ctx context.Context, rows []PriceRecord) error {
	if len(rows) == 0 {
		return nil
	}
	if err := validatePrices(rows); err != nil {
		return err
	}
	return s.write(ctx, func(tx pgx.Tx) error {
		return savePrices(ctx, tx, rows)
	})
}

// UpsertSentiment replaces same-day sentiment rows per ticker and source.
func (s *PostgresStore) UpsertSentiment(ctx context.Context, rows []SentimentRecord) error {
	return s.sentiment(ctx, rows, SentimentUpsert)
}

// AppendSentiment appends sentiment rows without touching existing ones.
func (s *PostgresStore) AppendSentiment(ctx context.Context, rows []SentimentRecord) error {
	return s.sentiment(ctx, rows, SentimentAppend)
}

func (s *PostgresStore) sentiment(ctx context.Context, rows []SentimentRecord, mode SentimentMode) error {
	if len(rows) == 0 {
		return nil
	}
	if err := validateSentiment(rows); err != nil {
		return err
	}
	return s.write(ctx, func(tx pgx.Tx) error {
		return saveSentiment(ctx, tx, rows, mode)
	})
}

// Persist writes one asset's price and sentiment rows in a single transaction.
func (s *PostgresStore) Persist(ctx context.Context, batch AssetBatch) error {
	prices := []PriceRecord{batch.Price}
	if err := validatePrices(prices); err != nil {
		return err
	}
	if err := validateSentiment(batch.Sentiment); err != nil {
		return err
	}
	return s.write(ctx, func(tx pgx.Tx) error {
		if err := savePrices(ctx, tx, prices); err != nil {
			return err
		}
		if len(batch.Sentiment) == 0 {
			return nil
		}
		return saveSentiment(ctx, tx, batch.Sentiment, batch.SentimentMode)
	})
}

func (s *PostgresStore) write(ctx context.Context, fn func(tx pgx.Tx) error) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if err := pgx.BeginFunc(ctx, pool, fn); err != nil {
		if ctx.Err() == nil && s.Ping(ctx) != nil {
			return unavailable(err)
		}
		return err
	}
	return nil
}

func savePrices(ctx context.Context, tx pgx.Tx, rows []PriceRecord) error {
	keys := priceKeys(rows)
	tickers := make([]string, 0, len(keys))
	days := make([]time.Time, 0, len(keys))
	for _, k := range keys {
		tickers = append(tickers, k.ticker)
		days = append(days, k.dayStart())
	}

	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{normalizeTime(r.PublishedAt), r.Close.InexactFloat64(), r.Ticker})
	}

	return copyRows(ctx, tx, PriceTable, createPriceTableSQL, priceColumns, out,
		deletePricesSQL, tickers, days)
}

func saveSentiment(ctx context.Context, tx pgx.Tx, rows []SentimentRecord, mode SentimentMode) error {
	var deleteArgs []any
	if sentimentUpsert(mode) {
		keys := sentimentKeys(rows)
		tickers := make([]string, 0, len(keys))
		days := make([]time.Time, 0, len(keys))
		sources := make([]string, 0, len(keys))
		for _, k := range keys {
			tickers = append(tickers, k.ticker)
			days = append(days, k.dayStart())
			sources = append(sources, k.source)
		}
		deleteArgs = []any{tickers, days, sources}
	}

	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{
			normalizeTime(r.PublishedAt),
			r.Score,
			r.Source,
			r.RawText,
			string(r.Label),
			r.Ticker,
		})
	}

	return copyRows(ctx, tx, SentimentTable, createSentimentTableSQL, sentimentColumns, out,
		deleteSentimentSQL, deleteArgs...)
}

// copyRows creates a missing table or, when deleteArgs is non-empty, clears the
// keyed rows with one DELETE, then bulk-inserts rows.
func copyRows(ctx context.Context, tx pgx.Tx, table, createSQL string, columns []string, rows [][]any, deleteSQL string, deleteArgs ...any) error {
	var exists bool
	if err := tx.QueryRow(ctx, tableExistsSQL, table).Scan(&exists); err != nil {
		return fmt.Errorf("check %s: %w", table, err)
	}

	if !exists {
		if _, err := tx.Exec(ctx, createSQL); err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}
	} else if len(deleteArgs) > 0 {
		if _, err := tx.Exec(ctx, deleteSQL, deleteArgs...); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (s *PostgresStore) tableExists(ctx context.Context, pool *pgxpool.Pool, table string) (bool, error) {
	var exists bool
	if err := pool.QueryRow(ctx, tableExistsSQL, table).Scan(&exists); err != nil {
		return false, fmt.Errorf("check %s: %w", table, err)
	}
	return exists, nil
}

func (s *PostgresStore) initialized(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	exists, err := s.tableExists(ctx, pool, PriceTable)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotInitialized
	}
	return pool, nil
}

// Tickers lists tickers with at least one stored price.
func (s *PostgresStore) Tickers(ctx context.Context) ([]string, error) {
	pool, err := s.initialized(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, listTickersSQL)
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// PriceSeries returns stored prices for the given tickers ordered by ticker and time.
func (s *PostgresStore) PriceSeries(ctx context.Context, tickers []string) ([]PricePoint, error) {
	pool, err := s.initialized(ctx)
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, nil
	}
	return s.prices(ctx, pool, tickers)
}

func (s *PostgresStore) prices(ctx context.Context, pool *pgxpool.Pool, tickers []string) ([]PricePoint, error) {
	rows, err := pool.Query(ctx, listPricesSQL, tickers)
	if err != nil {
		return nil, fmt.Errorf("price series: %w", err)
	}
	defer rows.Close()

	points := make([]PricePoint, 0)
	for rows.Next() {
		var p PricePoint
		if err := rows.Scan(&p.Ticker, &p.PublishedAt, &p.Close); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		points = append(points, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return points, nil
}

// DailySeries returns per-day max close and mean sentiment for ticker.
func (s *PostgresStore) DailySeries(ctx context.Context, ticker string) ([]DailyPoint, error) {
	pool, err := s.initialized(ctx)
	if err != nil {
		return nil, err
	}
	prices, err := s.prices(ctx, pool, []string{ticker})
	if err != nil {
		return nil, err
	}

	exists, err := s.tableExists(ctx, pool, SentimentTable)
	if err != nil {
		return nil, err
	}
	var scores []scorePoint
	if exists {
		rows, err := pool.Query(ctx, listScoresSQL, ticker)
		if err != nil {
			return nil, fmt.Errorf("daily sentiment %s: %w", ticker, err)
		}
		scores, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (scorePoint, error) {
			var p scorePoint
			err := row.Scan(&p.PublishedAt, &p.Score)
			return p, err
		})
		if err != nil {
			return nil, fmt.Errorf("scan sentiment: %w", err)
		}
	}
	return dailySeries(prices, scores), nil
}

// RecentHeadlines returns the newest sentiment rows for a ticker.
func (s *PostgresStore) RecentHeadlines(ctx context.Context, q HeadlineQuery) ([]SentimentRecord, error) {
	pool, err := s.initialized(ctx)
	if err != nil {
		return nil, err
	}
	exists, err := s.tableExists(ctx, pool, SentimentTable)
	if err != nil || !exists {
		return nil, err
	}

	rows, err := pool.Query(ctx, listHeadlinesSQL, q.Ticker, labelStrings(q.Labels), headlineLimit(q.Limit))
	if err != nil {
		return nil, fmt.Errorf("recent headlines %s: %w", q.Ticker, err)
	}
	defer rows.Close()

	out := make([]SentimentRecord, 0)
	for rows.Next() {
		var (
			r     SentimentRecord
			label string
		)
		if err := rows.Scan(&r.Ticker, &r.PublishedAt, &r.RawText, &r.Source, &r.Score, &label); err != nil {
			return nil, fmt.Errorf("scan headline: %w", err)
		}
		r.Label = sentiment.Label(label)
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *PostgresStore) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, unavailable(fmt.Errorf("acquire connection: %w", err))
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

var (
	_ Store          = (*PostgresStore)(nil)
	_ AdvisoryLocker = (*PostgresStore)(nil)
)
