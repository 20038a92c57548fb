// Package series loads the three historical record sets (candles, quotes,
// order book depth rows) from delimited sources. Candle and quote sets come
// out deduplicated by timestamp (first occurrence wins) and sorted ascending;
// depth rows keep every row and only get a stable sort so rows sharing a
// timestamp stay in input order for snapshot grouping at merge time.
package series

import (
	"time"

	"github.com/moznion/go-optional"
)

// CandleRecord is one loaded candle row. The instrument identifier stays raw;
// asset resolution happens at event construction during replay.
type CandleRecord struct {
	Time   time.Time
	Ticker string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// QuoteRecord is one loaded top-of-book row.
type QuoteRecord struct {
	Time       time.Time
	Ticker     string
	Bid        float64
	Ask        float64
	Last       float64
	LastChange float64
}

// DepthRecord is one loaded depth row: a single price level. All rows sharing
// a timestamp form one snapshot.
type DepthRecord struct {
	Time      time.Time
	Ticker    string
	Price     float64
	BidVolume optional.Option[float64]
	AskVolume optional.Option[float64]
}

// Set holds the three loaded record sets for one replay run. It is created
// once per run and read-only thereafter.
type Set struct {
	Candles []CandleRecord
	Quotes  []QuoteRecord
	Depth   []DepthRecord
}

// Normalize applies the set invariants in place: candles and quotes are
// deduplicated by timestamp (first occurrence wins) and sorted ascending,
// depth rows are stable-sorted ascending with input order kept within a
// timestamp. Safe to call on an already-normalized set.
func (s *Set) Normalize() {
	s.Candles = dedupFirstWins(s.Candles, func(c CandleRecord) time.Time { return c.Time })
	sortByTime(s.Candles, func(c CandleRecord) time.Time { return c.Time })

	s.Quotes = dedupFirstWins(s.Quotes, func(q QuoteRecord) time.Time { return q.Time })
	sortByTime(s.Quotes, func(q QuoteRecord) time.Time { return q.Time })

	sortByTime(s.Depth, func(d DepthRecord) time.Time { return d.Time })
}

// Window returns a copy of the set restricted to records inside the inclusive
// [start, end] bounds. An unset bound leaves that side open.
func (s *Set) Window(start, end optional.Option[time.Time]) *Set {
	inside := func(t time.Time) bool {
		if start.IsSome() && t.Before(start.Unwrap()) {
			return false
		}
		if end.IsSome() && t.After(end.Unwrap()) {
			return false
		}

		return true
	}

	windowed := &Set{}
	for _, candle := range s.Candles {
		if inside(candle.Time) {
			windowed.Candles = append(windowed.Candles, candle)
		}
	}

	for _, quote := range s.Quotes {
		if inside(quote.Time) {
			windowed.Quotes = append(windowed.Quotes, quote)
		}
	}

	for _, depth := range s.Depth {
		if inside(depth.Time) {
			windowed.Depth = append(windowed.Depth, depth)
		}
	}

	return windowed
}

// SourceConfig names the three delimited sources of a replay run.
type SourceConfig struct {
	CandlesPath string `yaml:"candles_path" json:"candles_path" validate:"required"`
	QuotesPath  string `yaml:"quotes_path" json:"quotes_path" validate:"required"`
	DepthPath   string `yaml:"depth_path" json:"depth_path" validate:"required"`
}
