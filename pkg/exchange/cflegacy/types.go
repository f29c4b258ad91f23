package cflegacy

import (
	"github.com/cockroachdb/apd/v3"

	"cfkit/pkg/core"
)

// Contract is a futures contract as listed by the legacy contracts endpoint.
type Contract struct {
	Unit                  string
	Tradeable             string
	LastTradingDayAndTime string
	ContractSize          apd.Decimal
	TickSize              apd.Decimal
	Suspended             bool
}

// Quote is the best bid and ask of a tradeable.
type Quote struct {
	Bid apd.Decimal
	Ask apd.Decimal
}

// CumulativeBook holds cumulated book levels. Bids are sorted by descending
// price; asks keep the order the server sent.
type CumulativeBook struct {
	Bids []core.BookLevel
	Asks []core.BookLevel
}

// Order is a limit order to place through the legacy API.
type Order struct {
	Tradeable string
	Unit      string
	Side      core.OrderSide
	Qty       apd.Decimal
	Price     apd.Decimal
}

// OrderInfo is an open order.
type OrderInfo struct {
	UID       string
	Timestamp string
	Unit      string
	Tradeable string
	Side      core.OrderSide
	Qty       apd.Decimal
	Filled    apd.Decimal
	Type      string
	Limit     apd.Decimal
}

// TradeInfo is an execution of one of the caller's orders.
type TradeInfo struct {
	UID       string
	Timestamp string
	Unit      string
	Tradeable string
	Side      core.OrderSide
	Qty       apd.Decimal
	Price     apd.Decimal
}
