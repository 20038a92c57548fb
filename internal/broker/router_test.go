package broker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/tickflow/internal/logger"
	"github.com/rxtech-lab/tickflow/internal/pubsub"
	"github.com/rxtech-lab/tickflow/internal/types"
	"github.com/rxtech-lab/tickflow/pkg/errors"
)

// eventLog records which callbacks fired and with what payloads.
type eventLog struct {
	pubsub.NopBrokerSubscriber

	orders        []types.OrderUpdate
	trades        []types.TradeExecution
	tradesFX      []types.TradeExecution
	accounts      []types.TradeAccount
	moneyLimits   []types.MoneyLimit
	stockLimits   []types.StockLimit
	limits        []types.LimitUpdate
	limitReceived []types.LimitUpdate
	replies       []types.Reply
	heartbeats    int
}

func (s *eventLog) OnOrder(order types.OrderUpdate) error {
	s.orders = append(s.orders, order)

	return nil
}

func (s *eventLog) OnTrade(trade types.TradeExecution) error {
	s.trades = append(s.trades, trade)

	return nil
}

func (s *eventLog) OnTradesFX(trade types.TradeExecution) error {
	s.tradesFX = append(s.tradesFX, trade)

	return nil
}

func (s *eventLog) OnTradeAccounts(account types.TradeAccount) error {
	s.accounts = append(s.accounts, account)

	return nil
}

func (s *eventLog) OnMoneyLimits(limit types.MoneyLimit) error {
	s.moneyLimits = append(s.moneyLimits, limit)

	return nil
}

func (s *eventLog) OnStockLimits(limit types.StockLimit) error {
	s.stockLimits = append(s.stockLimits, limit)

	return nil
}

func (s *eventLog) OnLimits(limit types.LimitUpdate) error {
	s.limits = append(s.limits, limit)

	return nil
}

func (s *eventLog) OnLimitReceived(limit types.LimitUpdate) error {
	s.limitReceived = append(s.limitReceived, limit)

	return nil
}

func (s *eventLog) OnReply(reply types.Reply) error {
	s.replies = append(s.replies, reply)

	return nil
}

func (s *eventLog) OnHeartbeat() error {
	s.heartbeats++

	return nil
}

type RouterTestSuite struct {
	suite.Suite

	router *Router
	events *eventLog
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (suite *RouterTestSuite) SetupTest() {
	log := logger.NewTestLogger()
	registry := pubsub.NewBrokerRegistry(log)

	suite.events = &eventLog{}
	registry.Subscribe(suite.events)

	suite.router = NewRouter(registry, log)
}

func (suite *RouterTestSuite) TestRouteOrder() {
	raw := `{"msgid":21001,"transid":7,"ordernum":123456,"ccode":"TQBR","scode":"SBER","sell":0,"price":250.5,"qty":10,"balance":10,"status":1}`

	suite.Require().NoError(suite.router.Route([]byte(raw)))
	suite.Require().Len(suite.events.orders, 1)

	order := suite.events.orders[0]
	suite.Equal(uint64(7), order.TransID)
	suite.Equal(types.NewAsset("TQBR", "SBER"), order.Asset())
	suite.Equal(types.SideBuy, order.Side())
}

func (suite *RouterTestSuite) TestRouteTrade() {
	raw := `{"msgid":21003,"tradenum":999,"ordernum":123456,"ccode":"TQBR","scode":"SBER","sell":1,"price":250.5,"qty":10}`

	suite.Require().NoError(suite.router.Route([]byte(raw)))
	suite.Require().Len(suite.events.trades, 1)
	suite.Equal(uint64(999), suite.events.trades[0].TradeNum)
	suite.Equal(types.SideSell, suite.events.trades[0].Side())
}

func (suite *RouterTestSuite) TestRouteTradesFX() {
	raw := `{"msgid":21006,"tradenum":1000,"ccode":"CETS","scode":"USD000UTSTOM","sell":0,"price":66.25,"qty":1}`

	suite.Require().NoError(suite.router.Route([]byte(raw)))
	suite.Require().Len(suite.events.tradesFX, 1)
	suite.Empty(suite.events.trades)
}

func (suite *RouterTestSuite) TestRouteTradeAccounts() {
	raw := `{"msgid":21022,"trdacc":"L01-00000F00","firmid":"MC0000000000","classList":["TQBR"],"limitKinds":["T0","T2"]}`

	suite.Require().NoError(suite.router.Route([]byte(raw)))
	suite.Require().Len(suite.events.accounts, 1)
	suite.Equal("L01-00000F00", suite.events.accounts[0].Account)
	suite.Equal([]string{"TQBR"}, suite.events.accounts[0].ClassList)
}

func (suite *RouterTestSuite) TestRouteMoneyLimits() {
	raw := `{"msgid":21004,"trdacc":"L01-00000F00","firmid":"MC0000000000","currcode":"SUR","bal":100000.0,"avail":95000.0}`

	suite.Require().NoError(suite.router.Route([]byte(raw)))
	suite.Require().Len(suite.events.moneyLimits, 1)
	suite.Equal("SUR", suite.events.moneyLimits[0].Currency)
	suite.Equal(95000.0, suite.events.moneyLimits[0].Available)
}

func (suite *RouterTestSuite) TestRouteStockLimits() {
	raw := `{"msgid":21005,"trdacc":"L01-00000F00","ccode":"TQBR","scode":"SBER","bal":100,"avail":90}`

	suite.Require().NoError(suite.router.Route([]byte(raw)))
	suite.Require().Len(suite.events.stockLimits, 1)
	suite.Equal(types.NewAsset("TQBR", "SBER"), suite.events.stockLimits[0].Asset())
}

func (suite *RouterTestSuite) TestRouteLimits() {
	suite.Require().NoError(suite.router.Route([]byte(`{"msgid":21007,"trdacc":"L01-00000F00","limit_kind":2}`)))
	suite.Require().NoError(suite.router.Route([]byte(`{"msgid":21008,"trdacc":"L01-00000F00","limit_kind":0}`)))

	suite.Len(suite.events.limits, 1)
	suite.Len(suite.events.limitReceived, 1)
}

func (suite *RouterTestSuite) TestRouteHeartbeat() {
	suite.Require().NoError(suite.router.Route([]byte(`{"msgid":10000}`)))

	suite.Equal(1, suite.events.heartbeats)
}

func (suite *RouterTestSuite) TestEveryReplyTagRoutesToOnReply() {
	replyTags := []MsgID{
		MsgServerMsg,
		MsgTransReply,
		MsgOrderReply,
		MsgStopOrderReply,
		MsgRemoveOrderReply,
		MsgRemoveStopOrderReply,
		MsgLinkedStopOrderReply,
		MsgFXOrderReply,
		MsgConditionalStopOrderReply,
	}

	for i, tag := range replyTags {
		raw := fmt.Sprintf(`{"msgid":%d,"request":%d,"status":3,"text":"ok"}`, tag, i+1)
		suite.Require().NoError(suite.router.Route([]byte(raw)))
	}

	suite.Require().Len(suite.events.replies, len(replyTags))

	for i, reply := range suite.events.replies {
		suite.Equal(uint64(i+1), reply.TransID)
		suite.Equal(3, reply.Status)
	}
}

func (suite *RouterTestSuite) TestUnknownTagIsDroppedWithoutError() {
	err := suite.router.Route([]byte(`{"msgid":99999,"payload":"whatever"}`))

	suite.NoError(err)
	suite.Empty(suite.events.orders)
	suite.Empty(suite.events.replies)
	suite.Equal(0, suite.events.heartbeats)
}

func (suite *RouterTestSuite) TestUndecodableMessageIsAnError() {
	err := suite.router.Route([]byte(`{not json`))

	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedMessage))
}

func (suite *RouterTestSuite) TestMessageWithoutTagIsAnError() {
	err := suite.router.Route([]byte(`{"transid":7}`))

	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedMessage))
}

func (suite *RouterTestSuite) TestSubscriberFailureSurfacesAfterFanOut() {
	failing := &failingReplySubscriber{}
	suite.router.registry.Subscribe(failing)

	err := suite.router.Route([]byte(`{"msgid":21009,"request":42,"status":3}`))

	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSubscriberFailed))
	// The earlier subscriber still received the reply.
	suite.Len(suite.events.replies, 1)
}

type failingReplySubscriber struct {
	pubsub.NopBrokerSubscriber
}

func (failingReplySubscriber) OnReply(types.Reply) error {
	return errors.New(errors.ErrCodeInternal, "subscriber broke")
}
