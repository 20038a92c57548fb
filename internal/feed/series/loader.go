package series

import (
	encodingcsv "encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/tickflow/internal/logger"
	"github.com/rxtech-lab/tickflow/pkg/errors"
)

// Source names used in load error reports.
const (
	SourceCandles = "candles"
	SourceQuotes  = "quotes"
	SourceDepth   = "level2"
)

// timeLayouts are tried in order when parsing row timestamps.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339,
	"2006-01-02",
}

// candleRow mirrors the candle source column order:
// datetime, ticker, open, high, low, close, volume.
type candleRow struct {
	Datetime string  `csv:"datetime"`
	Ticker   string  `csv:"ticker"`
	Open     float64 `csv:"open"`
	High     float64 `csv:"high"`
	Low      float64 `csv:"low"`
	Close    float64 `csv:"close"`
	Volume   float64 `csv:"volume"`
}

// quoteRow mirrors the quote source column order:
// datetime, ticker, bid, ask, last, last_change.
type quoteRow struct {
	Datetime   string  `csv:"datetime"`
	Ticker     string  `csv:"ticker"`
	Bid        float64 `csv:"bid"`
	Ask        float64 `csv:"ask"`
	Last       float64 `csv:"last"`
	LastChange float64 `csv:"last_change"`
}

// depthRow mirrors the depth source column order:
// datetime, ticker, price, bid_vol, ask_vol. Volumes stay raw strings so that
// blank cells survive decoding.
type depthRow struct {
	Datetime string  `csv:"datetime"`
	Ticker   string  `csv:"ticker"`
	Price    float64 `csv:"price"`
	BidVol   string  `csv:"bid_vol"`
	AskVol   string  `csv:"ask_vol"`
}

// ParseTimestamp parses one row timestamp, trying each known layout in order.
// Failures are load-fatal and name the source and 1-based row.
func ParseTimestamp(source string, row int, value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts, nil
		}
	}

	return time.Time{}, errors.Wrap(errors.ErrCodeBadTimestamp, "unparseable timestamp",
		errors.NewRowErrorf(source, row, nil, "unparseable timestamp %q", value))
}

// parseVolume maps a raw volume cell to an optional value. Blank and zero both
// mean "no liquidity at this level" and come out as None.
func parseVolume(source string, row int, value string) (optional.Option[float64], error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return optional.None[float64](), nil
	}

	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return optional.None[float64](), errors.Wrap(errors.ErrCodeMalformedRow, "bad volume",
			errors.NewRowErrorf(source, row, err, "bad volume %q", value))
	}

	if parsed == 0 {
		return optional.None[float64](), nil
	}

	return optional.Some(parsed), nil
}

// decodeError normalizes a gocsv failure into a load error, keeping the csv
// line number when the reader reports one. An empty source is not an error;
// it loads as an empty set.
func decodeError(source string, err error) error {
	if errors.Is(err, gocsv.ErrEmptyCSVFile) {
		return nil
	}

	var parseErr *encodingcsv.ParseError
	if errors.As(err, &parseErr) {
		return errors.Wrap(errors.ErrCodeMalformedRow, "malformed row",
			errors.NewRowError(source, parseErr.Line, "malformed row", err))
	}

	return errors.Wrapf(errors.ErrCodeMalformedRow, err, "malformed %s source", source)
}

// LoadCandles reads, deduplicates and sorts the candle set. Any malformed row
// or unparseable timestamp fails the whole load.
func LoadCandles(r io.Reader) ([]CandleRecord, error) {
	var rows []candleRow
	if err := gocsv.UnmarshalWithoutHeaders(r, &rows); err != nil {
		return nil, decodeError(SourceCandles, err)
	}

	records := make([]CandleRecord, 0, len(rows))

	for i, row := range rows {
		ts, err := ParseTimestamp(SourceCandles, i+1, row.Datetime)
		if err != nil {
			return nil, err
		}

		records = append(records, CandleRecord{
			Time:   ts,
			Ticker: row.Ticker,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}

	records = dedupFirstWins(records, func(c CandleRecord) time.Time { return c.Time })
	sortByTime(records, func(c CandleRecord) time.Time { return c.Time })

	return records, nil
}

// LoadQuotes reads, deduplicates and sorts the quote set.
func LoadQuotes(r io.Reader) ([]QuoteRecord, error) {
	var rows []quoteRow
	if err := gocsv.UnmarshalWithoutHeaders(r, &rows); err != nil {
		return nil, decodeError(SourceQuotes, err)
	}

	records := make([]QuoteRecord, 0, len(rows))

	for i, row := range rows {
		ts, err := ParseTimestamp(SourceQuotes, i+1, row.Datetime)
		if err != nil {
			return nil, err
		}

		records = append(records, QuoteRecord{
			Time:       ts,
			Ticker:     row.Ticker,
			Bid:        row.Bid,
			Ask:        row.Ask,
			Last:       row.Last,
			LastChange: row.LastChange,
		})
	}

	records = dedupFirstWins(records, func(q QuoteRecord) time.Time { return q.Time })
	sortByTime(records, func(q QuoteRecord) time.Time { return q.Time })

	return records, nil
}

// LoadDepth reads the depth set. Depth rows are never deduplicated: one row
// per price level, many rows per timestamp. The stable sort keeps input order
// within a timestamp.
func LoadDepth(r io.Reader) ([]DepthRecord, error) {
	var rows []depthRow
	if err := gocsv.UnmarshalWithoutHeaders(r, &rows); err != nil {
		return nil, decodeError(SourceDepth, err)
	}

	records := make([]DepthRecord, 0, len(rows))

	for i, row := range rows {
		ts, err := ParseTimestamp(SourceDepth, i+1, row.Datetime)
		if err != nil {
			return nil, err
		}

		bidVol, err := parseVolume(SourceDepth, i+1, row.BidVol)
		if err != nil {
			return nil, err
		}

		askVol, err := parseVolume(SourceDepth, i+1, row.AskVol)
		if err != nil {
			return nil, err
		}

		records = append(records, DepthRecord{
			Time:      ts,
			Ticker:    row.Ticker,
			Price:     row.Price,
			BidVolume: bidVol,
			AskVolume: askVol,
		})
	}

	sortByTime(records, func(d DepthRecord) time.Time { return d.Time })

	return records, nil
}

// Load opens the three configured sources and loads them into a Set.
func Load(cfg SourceConfig, log *logger.Logger) (*Set, error) {
	set := &Set{}

	load := func(path, source string, into func(io.Reader) error) error {
		log.Info("loading series", zap.String("source", source), zap.String("path", path))

		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeLoadFailed, err, "failed to open %s source %s", source, path)
		}
		defer f.Close()

		if err := into(f); err != nil {
			return errors.Wrapf(errors.ErrCodeLoadFailed, err, "failed to load %s source %s", source, path)
		}

		return nil
	}

	if err := load(cfg.CandlesPath, SourceCandles, func(r io.Reader) error {
		var err error
		set.Candles, err = LoadCandles(r)

		return err
	}); err != nil {
		return nil, err
	}

	if err := load(cfg.QuotesPath, SourceQuotes, func(r io.Reader) error {
		var err error
		set.Quotes, err = LoadQuotes(r)

		return err
	}); err != nil {
		return nil, err
	}

	if err := load(cfg.DepthPath, SourceDepth, func(r io.Reader) error {
		var err error
		set.Depth, err = LoadDepth(r)

		return err
	}); err != nil {
		return nil, err
	}

	log.Info("series loaded",
		zap.Int("candles", len(set.Candles)),
		zap.Int("quotes", len(set.Quotes)),
		zap.Int("depth_rows", len(set.Depth)),
	)

	return set, nil
}

// dedupFirstWins drops rows whose timestamp was already seen, keeping the
// first occurrence in input order. The policy lives here, in plain Go, so it
// never depends on a storage engine's collation.
func dedupFirstWins[T any](records []T, timeOf func(T) time.Time) []T {
	seen := make(map[int64]struct{}, len(records))
	kept := records[:0]

	for _, record := range records {
		key := timeOf(record).UnixNano()
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		kept = append(kept, record)
	}

	return kept
}

// sortByTime sorts ascending by timestamp. The sort is stable so equal
// timestamps keep input order.
func sortByTime[T any](records []T, timeOf func(T) time.Time) {
	sort.SliceStable(records, func(i, j int) bool {
		return timeOf(records[i]).Before(timeOf(records[j]))
	})
}
