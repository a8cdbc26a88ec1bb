package storage

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"sentiment-engine/internal/sentiment"
)

// Table names, created on first write.
const (
	PriceTable     = "stock_trends"
	SentimentTable = "market_sentiment"
)

// SentimentMode controls how sentiment rows are written.
type SentimentMode string

// Sentiment write modes.
const (
	// SentimentAppend keeps every run's rows as a historical log.
	SentimentAppend SentimentMode = "append"
	// SentimentUpsert replaces rows per (ticker, day, source).
	SentimentUpsert SentimentMode = "upsert"
)

// PriceRecord is one close price for a ticker at the run timestamp.
type PriceRecord struct {
	Ticker      string
	PublishedAt time.Time
	Close       decimal.Decimal
}

// SentimentRecord is one headline paired with a ticker.
type SentimentRecord struct {
	Ticker      string
	PublishedAt time.Time
	RawText     string
	Source      string
	Score       float64
	Label       sentiment.Label
}

// AssetBatch is everything one asset contributes to a run.
type AssetBatch struct {
	Price         PriceRecord
	Sentiment     []SentimentRecord
	SentimentMode SentimentMode
}

// DailyPoint joins a ticker's daily max close with its daily mean sentiment.
type DailyPoint struct {
	Day          time.Time
	Price        float64
	AvgSentiment float64
	Headlines    int
}

// PricePoint is a stored close price.
type PricePoint struct {
	Ticker      string
	PublishedAt time.Time
	Close       float64
}

// HeadlineQuery filters RecentHeadlines.
type HeadlineQuery struct {
	Ticker string
	Labels []sentiment.Label
	Limit  int
}

// seriesKey identifies the rows a save replaces. Day is the Unix second of the
// UTC midnight starting the calendar day.
type seriesKey struct {
	ticker string
	day    int64
	source string
}

func (k seriesKey) dayStart() time.Time {
	return time.Unix(k.day, 0).UTC()
}

func (k seriesKey) dayEnd() time.Time {
	return k.dayStart().Add(24 * time.Hour)
}

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// normalizeTime is applied to every stored timestamp so both backends compare
// identical UTC values.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func newKey(ticker string, at time.Time, source string) seriesKey {
	return seriesKey{ticker: ticker, day: DayOf(at).Unix(), source: source}
}

func priceKeys(rows []PriceRecord) []seriesKey {
	keys := make([]seriesKey, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, newKey(r.Ticker, r.PublishedAt, ""))
	}
	return distinct(keys)
}

func sentimentKeys(rows []SentimentRecord) []seriesKey {
	keys := make([]seriesKey, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, newKey(r.Ticker, r.PublishedAt, r.Source))
	}
	return distinct(keys)
}

func distinct(keys []seriesKey) []seriesKey {
	seen := make(map[seriesKey]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

type scorePoint struct {
	PublishedAt time.Time
	Score       float64
}

// dailySeries groups prices and scores by UTC day. Only days with a price row
// appear; their sentiment mean is zero with Headlines == 0 when nothing was
// scored that day.
func dailySeries(prices []PricePoint, scores []scorePoint) []DailyPoint {
	type acc struct {
		price float64
		sum   float64
		n     int
	}
	days := make(map[int64]*acc)
	order := make([]int64, 0)
	for _, p := range prices {
		day := DayOf(p.PublishedAt).Unix()
		a, ok := days[day]
		if !ok {
			a = &acc{price: p.Close}
			days[day] = a
			order = append(order, day)
		}
		if p.Close > a.price {
			a.price = p.Close
		}
	}
	for _, s := range scores {
		if a, ok := days[DayOf(s.PublishedAt).Unix()]; ok {
			a.sum += s.Score
			a.n++
		}
	}

	slices.Sort(order)
	points := make([]DailyPoint, 0, len(order))
	for _, day := range order {
		a := days[day]
		point := DailyPoint{Day: time.Unix(day, 0).UTC(), Price: a.price, Headlines: a.n}
		if a.n > 0 {
			point.AvgSentiment = a.sum / float64(a.n)
		}
		points = append(points, point)
	}
	return points
}
