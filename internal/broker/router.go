// Package broker implements the trading-session side: a protocol message
// router that dispatches typed incoming messages to per-tag handlers and fans
// decoded records out to broker subscribers, and a broker facade that builds
// and sends buy/sell instructions through an injected transport.
package broker

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/rxtech-lab/tickflow/internal/logger"
	"github.com/rxtech-lab/tickflow/internal/pubsub"
	"github.com/rxtech-lab/tickflow/internal/types"
	"github.com/rxtech-lab/tickflow/pkg/errors"
)

type handlerFunc func(raw json.RawMessage) error

// Router maps protocol message type tags to handlers. The table is closed:
// it is built once at construction and unknown tags fall through to a
// log-and-drop default.
type Router struct {
	handlers map[MsgID]handlerFunc
	registry *pubsub.BrokerRegistry
	log      *logger.Logger
}

// NewRouter creates a router publishing decoded records to the given registry.
func NewRouter(registry *pubsub.BrokerRegistry, log *logger.Logger) *Router {
	r := &Router{
		registry: registry,
		log:      log,
	}

	r.handlers = map[MsgID]handlerFunc{
		MsgOrders:        r.onOrders,
		MsgTrades:        r.onTrades,
		MsgTradeAccounts: r.onTradeAccounts,
		MsgTradesFX:      r.onTradesFX,
		MsgMoneyLimits:   r.onMoneyLimits,
		MsgStockLimits:   r.onStockLimits,
		MsgLimits:        r.onLimits,
		MsgLimitReceived: r.onLimitReceived,
		MsgHeartbeat:     r.onHeartbeat,

		MsgServerMsg:                 r.onReply,
		MsgTransReply:                r.onReply,
		MsgOrderReply:                r.onReply,
		MsgStopOrderReply:            r.onReply,
		MsgRemoveOrderReply:          r.onReply,
		MsgRemoveStopOrderReply:      r.onReply,
		MsgLinkedStopOrderReply:      r.onReply,
		MsgFXOrderReply:              r.onReply,
		MsgConditionalStopOrderReply: r.onReply,
	}

	return r
}

// Route dispatches one raw decoded message to its handler. A message with an
// unknown type tag is logged and dropped without error; a message that cannot
// be decoded at all is a malformed-message error. Handler results, including
// joined subscriber failures, are returned to the caller after the handler's
// fan-out completes.
func (r *Router) Route(raw []byte) error {
	var envelope struct {
		ID *MsgID `json:"msgid"`
	}

	if err := json.Unmarshal(raw, &envelope); err != nil {
		return errors.Wrap(errors.ErrCodeMalformedMessage, "undecodable protocol message", err)
	}

	if envelope.ID == nil {
		return errors.New(errors.ErrCodeMalformedMessage, "protocol message without type tag")
	}

	handler, ok := r.handlers[*envelope.ID]
	if !ok {
		r.log.Warn("dropping message with unknown type tag", zap.Int("msgid", int(*envelope.ID)))

		return nil
	}

	return handler(raw)
}

func decode[T any](raw json.RawMessage, tag MsgID) (T, error) {
	var payload T
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, errors.Wrapf(errors.ErrCodeMalformedMessage, err, "bad payload for msgid %d", tag)
	}

	return payload, nil
}

func (r *Router) onOrders(raw json.RawMessage) error {
	order, err := decode[types.OrderUpdate](raw, MsgOrders)
	if err != nil {
		return err
	}

	r.log.Debug("order update", zap.Uint64("transid", order.TransID), zap.Uint64("ordernum", order.OrderNum))

	return r.registry.PublishOrder(order)
}

func (r *Router) onTrades(raw json.RawMessage) error {
	trade, err := decode[types.TradeExecution](raw, MsgTrades)
	if err != nil {
		return err
	}

	r.log.Debug("trade execution", zap.Uint64("tradenum", trade.TradeNum))

	return r.registry.PublishTrade(trade)
}

func (r *Router) onTradeAccounts(raw json.RawMessage) error {
	account, err := decode[types.TradeAccount](raw, MsgTradeAccounts)
	if err != nil {
		return err
	}

	r.log.Debug("trade account", zap.String("account", account.Account))

	return r.registry.PublishTradeAccounts(account)
}

func (r *Router) onTradesFX(raw json.RawMessage) error {
	trade, err := decode[types.TradeExecution](raw, MsgTradesFX)
	if err != nil {
		return err
	}

	r.log.Debug("fx trade execution", zap.Uint64("tradenum", trade.TradeNum))

	return r.registry.PublishTradesFX(trade)
}

func (r *Router) onMoneyLimits(raw json.RawMessage) error {
	limit, err := decode[types.MoneyLimit](raw, MsgMoneyLimits)
	if err != nil {
		return err
	}

	r.log.Debug("money limit", zap.String("account", limit.Account), zap.String("currency", limit.Currency))

	return r.registry.PublishMoneyLimits(limit)
}

func (r *Router) onStockLimits(raw json.RawMessage) error {
	limit, err := decode[types.StockLimit](raw, MsgStockLimits)
	if err != nil {
		return err
	}

	r.log.Debug("stock limit", zap.String("asset", limit.Asset().String()))

	return r.registry.PublishStockLimits(limit)
}

func (r *Router) onLimits(raw json.RawMessage) error {
	limit, err := decode[types.LimitUpdate](raw, MsgLimits)
	if err != nil {
		return err
	}

	r.log.Debug("limit update", zap.String("account", limit.Account))

	return r.registry.PublishLimits(limit)
}

func (r *Router) onLimitReceived(raw json.RawMessage) error {
	limit, err := decode[types.LimitUpdate](raw, MsgLimitReceived)
	if err != nil {
		return err
	}

	r.log.Debug("limit received", zap.String("account", limit.Account))

	return r.registry.PublishLimitReceived(limit)
}

func (r *Router) onReply(raw json.RawMessage) error {
	reply, err := decode[types.Reply](raw, MsgTransReply)
	if err != nil {
		return err
	}

	r.log.Debug("reply", zap.Uint64("transid", reply.TransID), zap.Int("status", reply.Status))

	return r.registry.PublishReply(reply)
}

func (r *Router) onHeartbeat(json.RawMessage) error {
	return r.registry.PublishHeartbeat()
}
