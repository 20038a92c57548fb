// Package duckdb loads the three historical series through DuckDB's csv
// reader instead of decoding in-process. Useful for large source files: the
// database does the scanning, while deduplication and ordering stay in Go so
// both loaders obey the same determinism rules.
package duckdb

import (
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/tickflow/internal/feed/series"
	"github.com/rxtech-lab/tickflow/internal/logger"
	"github.com/rxtech-lab/tickflow/pkg/errors"
)

// Source reads the series sources through a DuckDB connection.
type Source struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewSource creates a DuckDB-backed series source.
func NewSource(log *logger.Logger) (*Source, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLoadFailed, "failed to open database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeLoadFailed, "failed to connect to database", err)
	}

	return &Source{
		db:     db,
		logger: log,
	}, nil
}

// Close closes the database connection.
func (s *Source) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

const (
	candleColumns = `{'datetime': 'VARCHAR', 'ticker': 'VARCHAR', 'open': 'DOUBLE', 'high': 'DOUBLE', 'low': 'DOUBLE', 'close': 'DOUBLE', 'volume': 'DOUBLE'}`
	quoteColumns  = `{'datetime': 'VARCHAR', 'ticker': 'VARCHAR', 'bid': 'DOUBLE', 'ask': 'DOUBLE', 'last': 'DOUBLE', 'last_change': 'DOUBLE'}`
	depthColumns  = `{'datetime': 'VARCHAR', 'ticker': 'VARCHAR', 'price': 'DOUBLE', 'bid_vol': 'DOUBLE', 'ask_vol': 'DOUBLE'}`
)

// Load reads the three configured sources and returns a normalized Set.
func (s *Source) Load(cfg series.SourceConfig) (*series.Set, error) {
	set := &series.Set{}

	candles, err := s.loadCandles(cfg.CandlesPath)
	if err != nil {
		return nil, err
	}

	quotes, err := s.loadQuotes(cfg.QuotesPath)
	if err != nil {
		return nil, err
	}

	depth, err := s.loadDepth(cfg.DepthPath)
	if err != nil {
		return nil, err
	}

	set.Candles = candles
	set.Quotes = quotes
	set.Depth = depth
	set.Normalize()

	s.logger.Info("series loaded",
		zap.Int("candles", len(set.Candles)),
		zap.Int("quotes", len(set.Quotes)),
		zap.Int("depth_rows", len(set.Depth)),
	)

	return set, nil
}

func (s *Source) loadCandles(path string) ([]series.CandleRecord, error) {
	s.logger.Info("loading series", zap.String("source", series.SourceCandles), zap.String("path", path))

	rows, err := s.scan(path, candleColumns)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeLoadFailed, err, "failed to load %s source %s", series.SourceCandles, path)
	}
	defer rows.Close()

	var records []series.CandleRecord

	rowNum := 0

	for rows.Next() {
		rowNum++

		var (
			datetime, ticker               string
			open, high, low, close, volume float64
		)

		if err := rows.Scan(&datetime, &ticker, &open, &high, &low, &close, &volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeMalformedRow, "malformed row",
				errors.NewRowError(series.SourceCandles, rowNum, "malformed row", err))
		}

		ts, err := series.ParseTimestamp(series.SourceCandles, rowNum, datetime)
		if err != nil {
			return nil, err
		}

		records = append(records, series.CandleRecord{
			Time:   ts,
			Ticker: ticker,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeLoadFailed, err, "failed to read %s source %s", series.SourceCandles, path)
	}

	return records, nil
}

func (s *Source) loadQuotes(path string) ([]series.QuoteRecord, error) {
	s.logger.Info("loading series", zap.String("source", series.SourceQuotes), zap.String("path", path))

	rows, err := s.scan(path, quoteColumns)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeLoadFailed, err, "failed to load %s source %s", series.SourceQuotes, path)
	}
	defer rows.Close()

	var records []series.QuoteRecord

	rowNum := 0

	for rows.Next() {
		rowNum++

		var (
			datetime, ticker           string
			bid, ask, last, lastChange float64
		)

		if err := rows.Scan(&datetime, &ticker, &bid, &ask, &last, &lastChange); err != nil {
			return nil, errors.Wrap(errors.ErrCodeMalformedRow, "malformed row",
				errors.NewRowError(series.SourceQuotes, rowNum, "malformed row", err))
		}

		ts, err := series.ParseTimestamp(series.SourceQuotes, rowNum, datetime)
		if err != nil {
			return nil, err
		}

		records = append(records, series.QuoteRecord{
			Time:       ts,
			Ticker:     ticker,
			Bid:        bid,
			Ask:        ask,
			Last:       last,
			LastChange: lastChange,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeLoadFailed, err, "failed to read %s source %s", series.SourceQuotes, path)
	}

	return records, nil
}

func (s *Source) loadDepth(path string) ([]series.DepthRecord, error) {
	s.logger.Info("loading series", zap.String("source", series.SourceDepth), zap.String("path", path))

	rows, err := s.scan(path, depthColumns)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeLoadFailed, err, "failed to load %s source %s", series.SourceDepth, path)
	}
	defer rows.Close()

	var records []series.DepthRecord

	rowNum := 0

	for rows.Next() {
		rowNum++

		var (
			datetime, ticker string
			price            float64
			bidVol, askVol   sql.NullFloat64
		)

		if err := rows.Scan(&datetime, &ticker, &price, &bidVol, &askVol); err != nil {
			return nil, errors.Wrap(errors.ErrCodeMalformedRow, "malformed row",
				errors.NewRowError(series.SourceDepth, rowNum, "malformed row", err))
		}

		ts, err := series.ParseTimestamp(series.SourceDepth, rowNum, datetime)
		if err != nil {
			return nil, err
		}

		records = append(records, series.DepthRecord{
			Time:      ts,
			Ticker:    ticker,
			Price:     price,
			BidVolume: volumeOf(bidVol),
			AskVolume: volumeOf(askVol),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeLoadFailed, err, "failed to read %s source %s", series.SourceDepth, path)
	}

	return records, nil
}

// scan streams one source file in its on-disk row order.
func (s *Source) scan(path, columns string) (*sql.Rows, error) {
	query := fmt.Sprintf(`SELECT * FROM read_csv('%s', header=false, columns=%s)`, path, columns)

	return s.db.Query(query)
}

// volumeOf maps a nullable volume to the optional representation. NULL and
// zero both mean "no liquidity at this level".
func volumeOf(value sql.NullFloat64) optional.Option[float64] {
	if !value.Valid || value.Float64 == 0 {
		return optional.None[float64]()
	}

	return optional.Some(value.Float64)
}
