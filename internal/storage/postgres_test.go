package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"sentiment-engine/internal/config"
)

// Runs against a disposable database named by SENTIMENTENGINE_TEST_DSN.
func openPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("SENTIMENTENGINE_TEST_DSN")
	if dsn == "" {
		t.Skip("SENTIMENTENGINE_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, config.DatabaseConfig{Driver: config.DriverPostgres, DSN: dsn})
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	for _, table := range []string{PriceTable, SentimentTable} {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			t.Fatalf("drop %s: %v", table, err)
		}
	}
	store := NewPostgresStore(pool)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgresPersistIdempotent(t *testing.T) {
	store := openPostgres(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for i, value := range []string{"100", "105"} {
		batch := AssetBatch{
			Price: price("NVDA", at.Add(time.Duration(i)*time.Hour), value),
			Sentiment: []SentimentRecord{
				headline("NVDA", "BBC", "Chip stocks rally on strong demand", at, 0.6),
			},
			SentimentMode: SentimentUpsert,
		}
		if err := store.Persist(ctx, batch); err != nil {
			t.Fatalf("persist %d: %v", i, err)
		}
	}

	series, err := store.DailySeries(ctx, "NVDA")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if len(series) != 1 || series[0].Price != 105 || series[0].Headlines != 1 {
		t.Fatalf("series = %+v", series)
	}
}

func TestPostgresAdvisoryLock(t *testing.T) {
	store := openPostgres(t)
	ctx := context.Background()

	unlock, ok, err := store.TryAdvisoryLock(ctx, 42)
	if err != nil || !ok {
		t.Fatalf("first lock: %v %v", ok, err)
	}
	defer unlock()

	_, ok, err = store.TryAdvisoryLock(ctx, 42)
	if err != nil {
		t.Fatalf("second lock: %v", err)
	}
	if ok {
		t.Fatal("second session should not acquire the held lock")
	}
}
