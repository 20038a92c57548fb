// Package feed merges the loaded candle, quote and depth series into one
// ascending timeline of ticks and replays it through the subscription
// registry. Replay is deterministic: the same series always produce the same
// event sequence.
package feed

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/tickflow/internal/feed/series"
	"github.com/rxtech-lab/tickflow/internal/logger"
	"github.com/rxtech-lab/tickflow/internal/pubsub"
	"github.com/rxtech-lab/tickflow/internal/types"
)

// Feed owns one replay run: the loaded series, the registry events dispatch
// through, and the run counters.
type Feed struct {
	set      *series.Set
	registry *pubsub.FeedRegistry
	log      *logger.Logger

	// skipped counts rows dropped during the current iteration because their
	// instrument identifier resolved to no valid asset.
	skipped int
}

// ReplayStats summarizes one replay run.
type ReplayStats struct {
	Ticks            int
	Quotes           int
	Candles          int
	Snapshots        int
	SkippedRows      int
	SubscriberErrors int
}

// New creates a feed over a loaded series set. The registry is injected so
// subscriptions are owned by the session, not by a process-wide table.
func New(set *series.Set, registry *pubsub.FeedRegistry, log *logger.Logger) *Feed {
	return &Feed{
		set:      set,
		registry: registry,
		log:      log,
	}
}

// Subscribe registers a subscriber for the given asset, or for every asset
// when the key is types.AnyAsset(). Registration should complete before Run.
func (f *Feed) Subscribe(asset types.Asset, subscriber pubsub.FeedSubscriber) {
	f.registry.Subscribe(asset, subscriber)
}

// Ticks returns the sorted union of distinct timestamps across the three
// series: a three-way merge of already-ascending sequences.
func (f *Feed) Ticks() []time.Time {
	var (
		ticks      []time.Time
		ci, qi, di int
	)

	candles, quotes, depth := f.set.Candles, f.set.Quotes, f.set.Depth

	for ci < len(candles) || qi < len(quotes) || di < len(depth) {
		var tick time.Time

		first := true

		consider := func(t time.Time) {
			if first || t.Before(tick) {
				tick = t
				first = false
			}
		}

		if ci < len(candles) {
			consider(candles[ci].Time)
		}

		if qi < len(quotes) {
			consider(quotes[qi].Time)
		}

		if di < len(depth) {
			consider(depth[di].Time)
		}

		ticks = append(ticks, tick)

		for ci < len(candles) && candles[ci].Time.Equal(tick) {
			ci++
		}

		for qi < len(quotes) && quotes[qi].Time.Equal(tick) {
			qi++
		}

		for di < len(depth) && depth[di].Time.Equal(tick) {
			di++
		}
	}

	return ticks
}

// Events returns a lazy iterator over the merged event stream. For each tick
// it emits, in this order: the quote at that timestamp if any, the candle if
// any, and one snapshot grouping all depth rows sharing the timestamp.
// Timestamps are non-decreasing across the run. Rows whose instrument
// identifier does not resolve are skipped and logged; the run continues.
func (f *Feed) Events() func(yield func(types.FeedEvent) bool) {
	return func(yield func(types.FeedEvent) bool) {
		var ci, qi, di int

		f.skipped = 0

		candles, quotes, depth := f.set.Candles, f.set.Quotes, f.set.Depth

		for _, tick := range f.Ticks() {
			if qi < len(quotes) && quotes[qi].Time.Equal(tick) {
				if quote, ok := f.quoteOf(quotes[qi]); ok {
					if !yield(types.NewQuoteEvent(quote)) {
						return
					}
				}

				qi++
			}

			if ci < len(candles) && candles[ci].Time.Equal(tick) {
				if candle, ok := f.candleOf(candles[ci]); ok {
					if !yield(types.NewCandleEvent(candle)) {
						return
					}
				}

				ci++
			}

			start := di
			for di < len(depth) && depth[di].Time.Equal(tick) {
				di++
			}

			if di > start {
				if snapshot, ok := f.snapshotOf(depth[start:di]); ok {
					if !yield(types.NewDepthEvent(snapshot)) {
						return
					}
				}
			}
		}
	}
}

// Run replays the whole event stream through the registry. Cancellation is
// cooperative at tick boundaries; a cancelled context stops the run before
// the next tick's events are dispatched. Subscriber failures are counted and
// logged but never stop the run.
func (f *Feed) Run(ctx context.Context) (ReplayStats, error) {
	var (
		stats    ReplayStats
		lastTick time.Time
		haveTick bool
		runErr   error
	)

	f.log.Info("starting replay",
		zap.Int("candles", len(f.set.Candles)),
		zap.Int("quotes", len(f.set.Quotes)),
		zap.Int("depth_rows", len(f.set.Depth)),
	)

	for event := range f.Events() {
		if !haveTick || !event.Time.Equal(lastTick) {
			if err := ctx.Err(); err != nil {
				runErr = err

				break
			}

			lastTick = event.Time
			haveTick = true
			stats.Ticks++
		}

		switch event.Kind {
		case types.FeedEventQuote:
			stats.Quotes++
		case types.FeedEventCandle:
			stats.Candles++
		case types.FeedEventDepth:
			stats.Snapshots++
		}

		if err := f.registry.Publish(event); err != nil {
			stats.SubscriberErrors++
		}
	}

	stats.SkippedRows = f.skipped

	f.log.Info("replay finished",
		zap.Int("ticks", stats.Ticks),
		zap.Int("quotes", stats.Quotes),
		zap.Int("candles", stats.Candles),
		zap.Int("snapshots", stats.Snapshots),
		zap.Int("skipped_rows", stats.SkippedRows),
		zap.Int("subscriber_errors", stats.SubscriberErrors),
	)

	return stats, runErr
}

func (f *Feed) quoteOf(record series.QuoteRecord) (types.Quote, bool) {
	asset, err := types.AssetOf(record.Ticker)
	if err != nil {
		f.logSkip(series.SourceQuotes, record.Ticker, record.Time, err)

		return types.Quote{}, false
	}

	return types.Quote{
		Time:       record.Time,
		Asset:      asset,
		Bid:        record.Bid,
		Ask:        record.Ask,
		Last:       record.Last,
		LastChange: record.LastChange,
	}, true
}

func (f *Feed) candleOf(record series.CandleRecord) (types.Candle, bool) {
	asset, err := types.AssetOf(record.Ticker)
	if err != nil {
		f.logSkip(series.SourceCandles, record.Ticker, record.Time, err)

		return types.Candle{}, false
	}

	return types.Candle{
		Time:   record.Time,
		Asset:  asset,
		Open:   record.Open,
		High:   record.High,
		Low:    record.Low,
		Close:  record.Close,
		Volume: record.Volume,
	}, true
}

// snapshotOf groups one tick's depth rows into a snapshot. The asset comes
// from the first row; levels keep source row order.
func (f *Feed) snapshotOf(records []series.DepthRecord) (types.DepthSnapshot, bool) {
	asset, err := types.AssetOf(records[0].Ticker)
	if err != nil {
		f.logSkip(series.SourceDepth, records[0].Ticker, records[0].Time, err)

		return types.DepthSnapshot{}, false
	}

	levels := make([]types.DepthLevel, 0, len(records))
	for _, record := range records {
		levels = append(levels, types.DepthLevel{
			Price:     record.Price,
			BidVolume: record.BidVolume,
			AskVolume: record.AskVolume,
		})
	}

	return types.DepthSnapshot{
		Time:   records[0].Time,
		Asset:  asset,
		Levels: levels,
	}, true
}

func (f *Feed) logSkip(source, ticker string, ts time.Time, err error) {
	f.skipped++
	f.log.Warn("skipping row with unresolvable instrument",
		zap.String("source", source),
		zap.String("ticker", ticker),
		zap.Time("time", ts),
		zap.Error(err),
	)
}
