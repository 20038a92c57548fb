// Package recorder persists dispatched feed events into an in-memory DuckDB
// database and can export them as Parquet files. It is a plain feed
// subscriber: registered against the wildcard key it captures a full replay.
package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/rxtech-lab/tickflow/internal/logger"
	"github.com/rxtech-lab/tickflow/internal/types"
)

// Recorder records candles, quotes and depth snapshots in DuckDB.
type Recorder struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewRecorder creates a new in-memory recorder.
func NewRecorder(log *logger.Logger) (*Recorder, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		log.Error("Failed to open database", zap.Error(err))

		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		db.Close()

		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	recorder := &Recorder{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := recorder.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return recorder, nil
}

// OnCandle implements pubsub.FeedSubscriber.
func (r *Recorder) OnCandle(candle types.Candle) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("recorder or database is nil")
	}

	insertQuery := r.sq.
		Insert("candles").
		Columns("time", "class", "symbol", "open", "high", "low", "close", "volume").
		Values(candle.Time, candle.Asset.Class, candle.Asset.Symbol,
			candle.Open, candle.High, candle.Low, candle.Close, candle.Volume).
		RunWith(r.db)

	if _, err := insertQuery.Exec(); err != nil {
		return fmt.Errorf("failed to insert candle: %w", err)
	}

	return nil
}

// OnQuote implements pubsub.FeedSubscriber.
func (r *Recorder) OnQuote(quote types.Quote) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("recorder or database is nil")
	}

	insertQuery := r.sq.
		Insert("quotes").
		Columns("time", "class", "symbol", "bid", "ask", "last", "last_change").
		Values(quote.Time, quote.Asset.Class, quote.Asset.Symbol,
			quote.Bid, quote.Ask, quote.Last, quote.LastChange).
		RunWith(r.db)

	if _, err := insertQuery.Exec(); err != nil {
		return fmt.Errorf("failed to insert quote: %w", err)
	}

	return nil
}

// OnLevel2 implements pubsub.FeedSubscriber. Each snapshot gets one id from
// the snapshot sequence; its levels share the id and keep their index order.
func (r *Recorder) OnLevel2(snapshot types.DepthSnapshot) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("recorder or database is nil")
	}

	var snapshotID int
	if err := r.db.QueryRow("SELECT nextval('snapshot_id_seq')").Scan(&snapshotID); err != nil {
		return fmt.Errorf("failed to get next snapshot id: %w", err)
	}

	for idx, level := range snapshot.Levels {
		var bidVol, askVol any

		if level.BidVolume.IsSome() {
			bidVol = level.BidVolume.Unwrap()
		}

		if level.AskVolume.IsSome() {
			askVol = level.AskVolume.Unwrap()
		}

		insertQuery := r.sq.
			Insert("depth_levels").
			Columns("snapshot_id", "level_idx", "time", "class", "symbol", "price", "bid_volume", "ask_volume").
			Values(snapshotID, idx, snapshot.Time, snapshot.Asset.Class, snapshot.Asset.Symbol,
				level.Price, bidVol, askVol).
			RunWith(r.db)

		if _, err := insertQuery.Exec(); err != nil {
			return fmt.Errorf("failed to insert depth level: %w", err)
		}
	}

	return nil
}

// Counts returns how many candles, quotes and snapshots have been recorded.
func (r *Recorder) Counts() (candles, quotes, snapshots int, err error) {
	if r == nil || r.db == nil {
		return 0, 0, 0, fmt.Errorf("recorder or database is nil")
	}

	if err = r.db.QueryRow("SELECT COUNT(*) FROM candles").Scan(&candles); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count candles: %w", err)
	}

	if err = r.db.QueryRow("SELECT COUNT(*) FROM quotes").Scan(&quotes); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count quotes: %w", err)
	}

	if err = r.db.QueryRow("SELECT COUNT(DISTINCT snapshot_id) FROM depth_levels").Scan(&snapshots); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count snapshots: %w", err)
	}

	return candles, quotes, snapshots, nil
}

// Write exports the recorded tables as Parquet files in the given directory.
func (r *Recorder) Write(path string) error {
	if r == nil || r.db == nil || r.logger == nil {
		return fmt.Errorf("recorder, database, or logger is nil")
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	for _, table := range []string{"candles", "quotes", "depth_levels"} {
		target := filepath.Join(path, table+".parquet")

		_, err := r.db.Exec(fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table, target))
		if err != nil {
			return fmt.Errorf("failed to export %s to Parquet: %w", table, err)
		}

		r.logger.Info("Successfully exported table to Parquet file",
			zap.String("table", table),
			zap.String("path", target),
		)
	}

	return nil
}

// Cleanup resets the database state.
func (r *Recorder) Cleanup() error {
	if r == nil || r.db == nil {
		return fmt.Errorf("recorder or database is nil")
	}

	_, err := r.db.Exec(`
		DROP TABLE IF EXISTS candles;
		DROP TABLE IF EXISTS quotes;
		DROP TABLE IF EXISTS depth_levels;
		DROP SEQUENCE IF EXISTS snapshot_id_seq;
	`)
	if err != nil {
		return fmt.Errorf("failed to cleanup recorder tables: %w", err)
	}

	return r.initialize()
}

// Close closes the database connection.
func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}

	return r.db.Close()
}

// initialize creates the tables for storing feed events.
func (r *Recorder) initialize() error {
	if r == nil || r.db == nil {
		return fmt.Errorf("recorder or database is nil")
	}

	_, err := r.db.Exec(`CREATE SEQUENCE IF NOT EXISTS snapshot_id_seq`)
	if err != nil {
		return fmt.Errorf("failed to create sequence: %w", err)
	}

	_, err = r.db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			time TIMESTAMP,
			class TEXT,
			symbol TEXT,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		);
		CREATE TABLE IF NOT EXISTS quotes (
			time TIMESTAMP,
			class TEXT,
			symbol TEXT,
			bid DOUBLE,
			ask DOUBLE,
			last DOUBLE,
			last_change DOUBLE
		);
		CREATE TABLE IF NOT EXISTS depth_levels (
			snapshot_id INTEGER,
			level_idx INTEGER,
			time TIMESTAMP,
			class TEXT,
			symbol TEXT,
			price DOUBLE,
			bid_volume DOUBLE,
			ask_volume DOUBLE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create recorder tables: %w", err)
	}

	return nil
}
