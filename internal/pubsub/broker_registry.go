package pubsub

import (
	"sync"

	"github.com/rxtech-lab/tickflow/internal/logger"
	"github.com/rxtech-lab/tickflow/internal/types"
)

// BrokerSubscriber receives trading-session events: order and trade updates,
// account and limit info, replies to sent requests, and heartbeats.
type BrokerSubscriber interface {
	OnOrder(order types.OrderUpdate) error
	OnTrade(trade types.TradeExecution) error
	OnTradeAccounts(account types.TradeAccount) error
	OnTradesFX(trade types.TradeExecution) error
	OnMoneyLimits(limit types.MoneyLimit) error
	OnStockLimits(limit types.StockLimit) error
	OnLimits(limit types.LimitUpdate) error
	OnLimitReceived(limit types.LimitUpdate) error
	OnReply(reply types.Reply) error
	OnHeartbeat() error
}

// NopBrokerSubscriber implements BrokerSubscriber with no-ops. Embed it to
// implement only the callbacks a subscriber cares about.
type NopBrokerSubscriber struct{}

func (NopBrokerSubscriber) OnOrder(types.OrderUpdate) error          { return nil }
func (NopBrokerSubscriber) OnTrade(types.TradeExecution) error       { return nil }
func (NopBrokerSubscriber) OnTradeAccounts(types.TradeAccount) error { return nil }
func (NopBrokerSubscriber) OnTradesFX(types.TradeExecution) error    { return nil }
func (NopBrokerSubscriber) OnMoneyLimits(types.MoneyLimit) error     { return nil }
func (NopBrokerSubscriber) OnStockLimits(types.StockLimit) error     { return nil }
func (NopBrokerSubscriber) OnLimits(types.LimitUpdate) error         { return nil }
func (NopBrokerSubscriber) OnLimitReceived(types.LimitUpdate) error  { return nil }
func (NopBrokerSubscriber) OnReply(types.Reply) error                { return nil }
func (NopBrokerSubscriber) OnHeartbeat() error                       { return nil }

// BrokerRegistry is the unkeyed variant of the fan-out primitive: an ordered,
// append-only list of broker subscribers, every one of which receives every
// published event.
type BrokerRegistry struct {
	mu          sync.RWMutex
	subscribers []BrokerSubscriber
	log         *logger.Logger
}

// NewBrokerRegistry creates an empty broker registry.
func NewBrokerRegistry(log *logger.Logger) *BrokerRegistry {
	return &BrokerRegistry{
		log: log,
	}
}

// Subscribe registers a subscriber for all broker events.
func (r *BrokerRegistry) Subscribe(subscriber BrokerSubscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subscribers = append(r.subscribers, subscriber)
}

func (r *BrokerRegistry) snapshot() []BrokerSubscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	targets := make([]BrokerSubscriber, len(r.subscribers))
	copy(targets, r.subscribers)

	return targets
}

// PublishOrder fans an order update out to every subscriber in registration
// order. Failures are isolated, logged, and returned joined after the fan-out.
func (r *BrokerRegistry) PublishOrder(order types.OrderUpdate) error {
	return fanOut(r.log, r.snapshot(), func(s BrokerSubscriber) error {
		return s.OnOrder(order)
	})
}

// PublishTrade fans a trade execution out.
func (r *BrokerRegistry) PublishTrade(trade types.TradeExecution) error {
	return fanOut(r.log, r.snapshot(), func(s BrokerSubscriber) error {
		return s.OnTrade(trade)
	})
}

// PublishTradeAccounts fans account info out.
func (r *BrokerRegistry) PublishTradeAccounts(account types.TradeAccount) error {
	return fanOut(r.log, r.snapshot(), func(s BrokerSubscriber) error {
		return s.OnTradeAccounts(account)
	})
}

// PublishTradesFX fans an FX trade execution out.
func (r *BrokerRegistry) PublishTradesFX(trade types.TradeExecution) error {
	return fanOut(r.log, r.snapshot(), func(s BrokerSubscriber) error {
		return s.OnTradesFX(trade)
	})
}

// PublishMoneyLimits fans a money limit update out.
func (r *BrokerRegistry) PublishMoneyLimits(limit types.MoneyLimit) error {
	return fanOut(r.log, r.snapshot(), func(s BrokerSubscriber) error {
		return s.OnMoneyLimits(limit)
	})
}

// PublishStockLimits fans a stock limit update out.
func (r *BrokerRegistry) PublishStockLimits(limit types.StockLimit) error {
	return fanOut(r.log, r.snapshot(), func(s BrokerSubscriber) error {
		return s.OnStockLimits(limit)
	})
}

// PublishLimits fans a generic limit update out.
func (r *BrokerRegistry) PublishLimits(limit types.LimitUpdate) error {
	return fanOut(r.log, r.snapshot(), func(s BrokerSubscriber) error {
		return s.OnLimits(limit)
	})
}

// PublishLimitReceived fans a limit-received notification out.
func (r *BrokerRegistry) PublishLimitReceived(limit types.LimitUpdate) error {
	return fanOut(r.log, r.snapshot(), func(s BrokerSubscriber) error {
		return s.OnLimitReceived(limit)
	})
}

// PublishReply fans a request reply out.
func (r *BrokerRegistry) PublishReply(reply types.Reply) error {
	return fanOut(r.log, r.snapshot(), func(s BrokerSubscriber) error {
		return s.OnReply(reply)
	})
}

// PublishHeartbeat fans a heartbeat out.
func (r *BrokerRegistry) PublishHeartbeat() error {
	return fanOut(r.log, r.snapshot(), func(s BrokerSubscriber) error {
		return s.OnHeartbeat()
	})
}
