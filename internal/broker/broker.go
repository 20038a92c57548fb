package broker

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rxtech-lab/tickflow/internal/logger"
	"github.com/rxtech-lab/tickflow/internal/pubsub"
	"github.com/rxtech-lab/tickflow/internal/types"
	"github.com/rxtech-lab/tickflow/internal/version"
	"github.com/rxtech-lab/tickflow/pkg/errors"
)

// Transport delivers serialized protocol messages to the trading system. The
// wire protocol itself is outside this package; incoming raw messages are fed
// back through Router.Route by whoever owns the connection.
type Transport interface {
	Send(msg []byte) error
}

// Config holds the session identity for outbound orders.
type Config struct {
	ClientCode   string        `yaml:"client_code" json:"client_code" validate:"required"`
	TradeAccount string        `yaml:"trade_account" json:"trade_account" validate:"required"`
	ReplyTTL     time.Duration `yaml:"reply_ttl" json:"reply_ttl"`
}

// UnmarshalYAML implements custom unmarshaling for Config so reply_ttl
// accepts duration strings like "30s".
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type config struct {
		ClientCode   string `yaml:"client_code"`
		TradeAccount string `yaml:"trade_account"`
		ReplyTTL     string `yaml:"reply_ttl"`
	}

	var raw config
	if err := unmarshal(&raw); err != nil {
		return err
	}

	c.ClientCode = raw.ClientCode
	c.TradeAccount = raw.TradeAccount

	if raw.ReplyTTL == "" {
		c.ReplyTTL = DefaultReplyTTL

		return nil
	}

	ttl, err := time.ParseDuration(raw.ReplyTTL)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "bad reply_ttl", err)
	}

	c.ReplyTTL = ttl

	return nil
}

// DefaultReplyTTL bounds how long an unanswered order stays correlatable.
const DefaultReplyTTL = 5 * time.Minute

// Broker is the session facade: it can make simple buy and sell orders and
// routes incoming session messages to subscribers. Sending never blocks on a
// reply; replies surface asynchronously through the router as reply events.
type Broker struct {
	clientCode   string
	tradeAccount string
	transport    Transport
	registry     *pubsub.BrokerRegistry
	router       *Router
	pending      *PendingRequests
	log          *logger.Logger
}

// replyCorrelator resolves reply events against the pending-request map. It
// is registered first, before any user subscriber.
type replyCorrelator struct {
	pubsub.NopBrokerSubscriber

	pending *PendingRequests
	log     *logger.Logger
}

func (c *replyCorrelator) OnReply(reply types.Reply) error {
	if request, ok := c.pending.Resolve(reply); ok {
		c.log.Info("order reply correlated",
			zap.Uint64("transid", reply.TransID),
			zap.String("order_id", request.ID),
			zap.Int("status", reply.Status),
			zap.String("text", reply.Text),
		)

		return nil
	}

	c.log.Debug("uncorrelated reply", zap.Uint64("transid", reply.TransID))

	return nil
}

// New creates a broker session. The registry is owned by the caller so feed
// and broker sides can share subscriber wiring patterns without sharing state.
func New(cfg Config, transport Transport, registry *pubsub.BrokerRegistry, log *logger.Logger) *Broker {
	ttl := cfg.ReplyTTL
	if ttl <= 0 {
		ttl = DefaultReplyTTL
	}

	b := &Broker{
		clientCode:   cfg.ClientCode,
		tradeAccount: cfg.TradeAccount,
		transport:    transport,
		registry:     registry,
		router:       NewRouter(registry, log),
		pending:      NewPendingRequests(ttl),
		log:          log,
	}

	registry.Subscribe(&replyCorrelator{
		pending: b.pending,
		log:     log,
	})

	return b
}

// Router returns the session's message router. The transport owner feeds
// incoming raw messages through it.
func (b *Broker) Router() *Router {
	return b.router
}

// Subscribe registers a subscriber for broker events: orders, trades,
// accounts, limits, replies, heartbeats.
func (b *Broker) Subscribe(subscriber pubsub.BrokerSubscriber) {
	b.registry.Subscribe(subscriber)
}

// Buy sends a buy order for the given asset.
func (b *Broker) Buy(asset types.Asset, price float64, quantity int64) (types.OrderRequest, error) {
	return b.sendOrder(asset, types.SideOf(true), price, quantity)
}

// Sell sends a sell order for the given asset.
func (b *Broker) Sell(asset types.Asset, price float64, quantity int64) (types.OrderRequest, error) {
	return b.sendOrder(asset, types.SideOf(false), price, quantity)
}

// VerifyServerVersion checks the trading server's announced protocol version
// against this client build. A mismatch means reply and order payloads may not
// line up, so callers should tear the session down.
func (b *Broker) VerifyServerVersion(serverVersion string) error {
	if err := version.CheckProtocolCompatibility(version.GetVersion(), serverVersion); err != nil {
		return errors.Wrap(errors.ErrCodeVersionMismatch, "incompatible trading server", err)
	}

	return nil
}

// KillAllOrders is not supported by this session core.
func (b *Broker) KillAllOrders() error {
	return errors.New(errors.ErrCodeNotImplemented, "kill all orders is not supported")
}

// SendRaw hands an already-serialized message to the transport.
func (b *Broker) SendRaw(msg []byte) error {
	b.log.Debug("sending raw message", zap.ByteString("msg", msg))

	if err := b.transport.Send(msg); err != nil {
		return errors.Wrap(errors.ErrCodeTransportSend, "failed to send raw message", err)
	}

	return nil
}

func (b *Broker) sendOrder(asset types.Asset, side types.Side, price float64, quantity int64) (types.OrderRequest, error) {
	request := types.OrderRequest{
		ID:         uuid.NewString(),
		TransID:    newTransID(),
		Asset:      asset,
		Side:       side,
		Price:      price,
		Quantity:   quantity,
		ClientCode: b.clientCode,
		Account:    b.tradeAccount,
	}

	if err := request.Validate(); err != nil {
		return types.OrderRequest{}, err
	}

	msg, err := BuildOrderMsg(request)
	if err != nil {
		return types.OrderRequest{}, err
	}

	b.log.Info("sending order",
		zap.String("side", string(side)),
		zap.String("asset", asset.String()),
		zap.Float64("price", price),
		zap.Int64("quantity", quantity),
		zap.Uint64("transid", request.TransID),
	)

	if err := b.transport.Send(msg); err != nil {
		return types.OrderRequest{}, errors.Wrap(errors.ErrCodeTransportSend, "failed to send order", err)
	}

	b.pending.Sweep(time.Now())
	b.pending.Track(request)

	return request, nil
}

// orderMsg is the outbound order wire shape.
type orderMsg struct {
	TransID    uint64      `json:"transid"`
	MsgID      MsgID       `json:"msgid"`
	ClassCode  string      `json:"ccode"`
	SecCode    string      `json:"scode"`
	Sell       int         `json:"sell"`
	Quantity   int64       `json:"quantity"`
	ClientCode string      `json:"clientcode"`
	Account    string      `json:"account"`
	Price      json.Number `json:"price"`
}

// BuildOrderMsg serializes an order request into the outbound message payload.
// The price goes through decimal so the wire value never carries float
// formatting drift.
func BuildOrderMsg(request types.OrderRequest) ([]byte, error) {
	msg := orderMsg{
		TransID:    request.TransID,
		MsgID:      MsgOrder,
		ClassCode:  request.Asset.Class,
		SecCode:    request.Asset.Symbol,
		Sell:       request.Side.SellFlag(),
		Quantity:   request.Quantity,
		ClientCode: request.ClientCode,
		Account:    request.Account,
		Price:      json.Number(decimal.NewFromFloat(request.Price).String()),
	}

	encoded, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidOrder, "failed to serialize order message", err)
	}

	return encoded, nil
}

// newTransID returns a fresh, caller-unpredictable transaction id. The top
// bit is cleared so the value survives systems that treat it as a signed
// 64-bit integer.
func newTransID() uint64 {
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			id := uuid.New()
			copy(buf[:], id[:8])
		}

		transID := binary.BigEndian.Uint64(buf[:]) >> 1
		if transID != 0 {
			return transID
		}
	}
}
