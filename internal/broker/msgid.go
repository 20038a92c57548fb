package broker

// MsgID is the type tag of a trading-session protocol message. Values are
// protocol-defined constants.
type MsgID int

const (
	// Session messages.
	MsgHeartbeat MsgID = 10000
	MsgServerMsg MsgID = 11016

	// Outbound commands.
	MsgOrder MsgID = 12000

	// Data messages.
	MsgOrders        MsgID = 21001
	MsgTrades        MsgID = 21003
	MsgMoneyLimits   MsgID = 21004
	MsgStockLimits   MsgID = 21005
	MsgTradesFX      MsgID = 21006
	MsgLimits        MsgID = 21007
	MsgLimitReceived MsgID = 21008
	MsgTradeAccounts MsgID = 21022

	// Reply messages. All of them route to the generic reply handler.
	MsgTransReply                MsgID = 21009
	MsgOrderReply                MsgID = 21010
	MsgStopOrderReply            MsgID = 21013
	MsgRemoveOrderReply          MsgID = 21014
	MsgRemoveStopOrderReply      MsgID = 21015
	MsgLinkedStopOrderReply      MsgID = 21016
	MsgFXOrderReply              MsgID = 21017
	MsgConditionalStopOrderReply MsgID = 21018
)
