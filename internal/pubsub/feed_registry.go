package pubsub

import (
	"sync"

	"github.com/rxtech-lab/tickflow/internal/logger"
	"github.com/rxtech-lab/tickflow/internal/types"
)

// FeedSubscriber receives market data events during replay.
type FeedSubscriber interface {
	OnCandle(candle types.Candle) error
	OnQuote(quote types.Quote) error
	OnLevel2(snapshot types.DepthSnapshot) error
}

// FeedRegistry maps an asset (or the wildcard key) to an ordered list of feed
// subscribers. Registration is append-only; fan-out order is registration
// order, asset-specific subscribers first, wildcard subscribers after.
type FeedRegistry struct {
	mu          sync.RWMutex
	subscribers map[types.Asset][]FeedSubscriber
	log         *logger.Logger
}

// NewFeedRegistry creates an empty feed registry owned by the caller. There is
// no process-wide instance; the registry is injected into whatever dispatches
// through it.
func NewFeedRegistry(log *logger.Logger) *FeedRegistry {
	return &FeedRegistry{
		subscribers: make(map[types.Asset][]FeedSubscriber),
		log:         log,
	}
}

// Subscribe registers a subscriber for the given asset, or for every asset
// when the key is types.AnyAsset().
func (r *FeedRegistry) Subscribe(asset types.Asset, subscriber FeedSubscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subscribers[asset] = append(r.subscribers[asset], subscriber)
}

// snapshot returns the asset-specific subscribers followed by the wildcard
// subscribers, copied so in-flight dispatch never observes a mutation.
func (r *FeedRegistry) snapshot(asset types.Asset) []FeedSubscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keyed := r.subscribers[asset]
	wildcard := r.subscribers[types.AnyAsset()]

	targets := make([]FeedSubscriber, 0, len(keyed)+len(wildcard))
	targets = append(targets, keyed...)
	targets = append(targets, wildcard...)

	return targets
}

// PublishCandle fans a candle out to the asset's subscribers and the wildcard
// subscribers. A failing subscriber does not stop the fan-out; failures are
// logged and returned joined once every subscriber has been invoked.
func (r *FeedRegistry) PublishCandle(candle types.Candle) error {
	return fanOut(r.log, r.snapshot(candle.Asset), func(s FeedSubscriber) error {
		return s.OnCandle(candle)
	})
}

// PublishQuote fans a quote out. Same delivery rules as PublishCandle.
func (r *FeedRegistry) PublishQuote(quote types.Quote) error {
	return fanOut(r.log, r.snapshot(quote.Asset), func(s FeedSubscriber) error {
		return s.OnQuote(quote)
	})
}

// PublishDepth fans a depth snapshot out. Same delivery rules as PublishCandle.
func (r *FeedRegistry) PublishDepth(snapshot types.DepthSnapshot) error {
	return fanOut(r.log, r.snapshot(snapshot.Asset), func(s FeedSubscriber) error {
		return s.OnLevel2(snapshot)
	})
}

// Publish dispatches a feed event to the matching callback by kind.
func (r *FeedRegistry) Publish(event types.FeedEvent) error {
	switch event.Kind {
	case types.FeedEventQuote:
		return r.PublishQuote(event.Quote.Unwrap())
	case types.FeedEventCandle:
		return r.PublishCandle(event.Candle.Unwrap())
	case types.FeedEventDepth:
		return r.PublishDepth(event.Depth.Unwrap())
	default:
		return nil
	}
}
