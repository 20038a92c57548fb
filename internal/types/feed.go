package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// Candle is one OHLCV bar. Instances are treated as immutable once built.
type Candle struct {
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Asset  Asset     `yaml:"asset" json:"asset" csv:"-"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// Quote is one top-of-book update.
type Quote struct {
	Time       time.Time `yaml:"time" json:"time" csv:"time"`
	Asset      Asset     `yaml:"asset" json:"asset" csv:"-"`
	Bid        float64   `yaml:"bid" json:"bid" csv:"bid"`
	Ask        float64   `yaml:"ask" json:"ask" csv:"ask"`
	Last       float64   `yaml:"last" json:"last" csv:"last"`
	LastChange float64   `yaml:"last_change" json:"last_change" csv:"last_change"`
}

// DepthLevel is one price level of an order book snapshot. A side with no
// liquidity carries None, never zero.
type DepthLevel struct {
	Price     float64                  `yaml:"price" json:"price"`
	BidVolume optional.Option[float64] `yaml:"bid_volume" json:"bid_volume"`
	AskVolume optional.Option[float64] `yaml:"ask_volume" json:"ask_volume"`
}

// DepthSnapshot is a point-in-time view of order book levels. Levels keep
// source row order; no price ordering is guaranteed.
type DepthSnapshot struct {
	Time   time.Time    `yaml:"time" json:"time"`
	Asset  Asset        `yaml:"asset" json:"asset"`
	Levels []DepthLevel `yaml:"levels" json:"levels"`
}

// FeedEventKind discriminates the payload carried by a FeedEvent.
type FeedEventKind string

const (
	FeedEventQuote  FeedEventKind = "QUOTE"
	FeedEventCandle FeedEventKind = "CANDLE"
	FeedEventDepth  FeedEventKind = "LEVEL2"
)

// FeedEvent is one element of the merged, time-ordered replay stream. Exactly
// one of Quote, Candle or Depth is set, matching Kind.
type FeedEvent struct {
	Kind   FeedEventKind
	Time   time.Time
	Asset  Asset
	Quote  optional.Option[Quote]
	Candle optional.Option[Candle]
	Depth  optional.Option[DepthSnapshot]
}

// NewQuoteEvent wraps a quote into a feed event.
func NewQuoteEvent(q Quote) FeedEvent {
	return FeedEvent{
		Kind:  FeedEventQuote,
		Time:  q.Time,
		Asset: q.Asset,
		Quote: optional.Some(q),
	}
}

// NewCandleEvent wraps a candle into a feed event.
func NewCandleEvent(c Candle) FeedEvent {
	return FeedEvent{
		Kind:   FeedEventCandle,
		Time:   c.Time,
		Asset:  c.Asset,
		Candle: optional.Some(c),
	}
}

// NewDepthEvent wraps a depth snapshot into a feed event.
func NewDepthEvent(d DepthSnapshot) FeedEvent {
	return FeedEvent{
		Kind:  FeedEventDepth,
		Time:  d.Time,
		Asset: d.Asset,
		Depth: optional.Some(d),
	}
}
