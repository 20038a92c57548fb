package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/tickflow/pkg/errors"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// SideOf maps the buy flag to an explicit side value.
func SideOf(isBuy bool) Side {
	if isBuy {
		return SideBuy
	}

	return SideSell
}

// SellFlag returns the wire encoding of the side: 0 for buy, 1 for sell.
func (s Side) SellFlag() int {
	if s == SideBuy {
		return 0
	}

	return 1
}

// OrderRequest describes one outbound buy or sell instruction. It is built on
// demand by the broker and handed to the transport; nothing here persists it.
type OrderRequest struct {
	// ID is a caller-generated client order id, unique per request.
	ID string `yaml:"id" json:"id" validate:"required,uuid"`
	// TransID correlates the eventual reply back to this request.
	TransID    uint64  `yaml:"transid" json:"transid" validate:"required"`
	Asset      Asset   `yaml:"asset" json:"asset" validate:"required"`
	Side       Side    `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Price      float64 `yaml:"price" json:"price" validate:"required,gt=0"`
	Quantity   int64   `yaml:"quantity" json:"quantity" validate:"required,gt=0"`
	ClientCode string  `yaml:"client_code" json:"client_code" validate:"required"`
	Account    string  `yaml:"account" json:"account" validate:"required"`
}

// Validate validates the OrderRequest struct.
func (o *OrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order request", err)
	}

	return nil
}

// OrderUpdate is the state of one of the session's orders as reported by the
// trading system.
type OrderUpdate struct {
	TransID   uint64  `json:"transid"`
	OrderNum  uint64  `json:"ordernum"`
	ClassCode string  `json:"ccode"`
	SecCode   string  `json:"scode"`
	Sell      int     `json:"sell"`
	Price     float64 `json:"price"`
	Quantity  int64   `json:"qty"`
	Balance   int64   `json:"balance"`
	Status    int     `json:"status"`
}

// Asset returns the instrument the order refers to.
func (o OrderUpdate) Asset() Asset {
	return NewAsset(o.ClassCode, o.SecCode)
}

// Side returns the explicit side of the order.
func (o OrderUpdate) Side() Side {
	return SideOf(o.Sell == 0)
}

// TradeExecution reports one fill.
type TradeExecution struct {
	TradeNum  uint64  `json:"tradenum"`
	OrderNum  uint64  `json:"ordernum"`
	ClassCode string  `json:"ccode"`
	SecCode   string  `json:"scode"`
	Sell      int     `json:"sell"`
	Price     float64 `json:"price"`
	Quantity  int64   `json:"qty"`
	Timestamp string  `json:"datetime"`
}

// Asset returns the instrument the trade refers to.
func (t TradeExecution) Asset() Asset {
	return NewAsset(t.ClassCode, t.SecCode)
}

// Side returns the explicit side of the trade.
func (t TradeExecution) Side() Side {
	return SideOf(t.Sell == 0)
}

// TradeAccount is information about one of the session's accounts. Usually
// separate accounts exist for securities, futures and forex.
type TradeAccount struct {
	Account    string   `json:"trdacc"`
	FirmID     string   `json:"firmid"`
	ClassList  []string `json:"classList"`
	LimitKinds []string `json:"limitKinds"`
}

// MoneyLimit is a money position/limit update for an account.
type MoneyLimit struct {
	Account   string  `json:"trdacc"`
	FirmID    string  `json:"firmid"`
	Currency  string  `json:"currcode"`
	Balance   float64 `json:"bal"`
	Available float64 `json:"avail"`
}

// StockLimit is a security position/limit update for an account.
type StockLimit struct {
	Account   string `json:"trdacc"`
	ClassCode string `json:"ccode"`
	SecCode   string `json:"scode"`
	Balance   int64  `json:"bal"`
	Available int64  `json:"avail"`
}

// Asset returns the instrument the limit refers to.
func (s StockLimit) Asset() Asset {
	return NewAsset(s.ClassCode, s.SecCode)
}

// LimitUpdate is a generic limit notification that does not fit the money or
// stock shapes.
type LimitUpdate struct {
	Account   string  `json:"trdacc"`
	LimitKind int     `json:"limit_kind"`
	Amount    float64 `json:"amount"`
}

// Reply is the trading system's response to a previously sent request,
// correlated by transaction id.
type Reply struct {
	TransID   uint64 `json:"request"`
	Status    int    `json:"status"`
	OrderNum  uint64 `json:"ordernum"`
	Timestamp string `json:"datetime"`
	Text      string `json:"text"`
}
