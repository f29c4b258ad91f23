package cryptofacilities

import (
	"time"

	"github.com/cockroachdb/apd/v3"

	"cfkit/pkg/core"
)

// Instrument is a futures contract or index listed by the exchange.
type Instrument struct {
	Symbol          string
	Type            core.MarketType
	Tradeable       bool
	Underlying      string
	LastTradingTime time.Time
	TickSize        apd.Decimal
	ContractSize    apd.Decimal
}

// Ticker is the market summary of one instrument.
type Ticker struct {
	Symbol    string
	Suspended bool
	Last      apd.Decimal
	LastTime  time.Time
	LastSize  apd.Decimal
	Open24h   apd.Decimal
	High24h   apd.Decimal
	Low24h    apd.Decimal
	Vol24h    apd.Decimal
	Bid       apd.Decimal
	BidSize   apd.Decimal
	Ask       apd.Decimal
	AskSize   apd.Decimal
	MarkPrice apd.Decimal
}

// OrderBook holds both sides of a contract's book. Bids are best first.
type OrderBook struct {
	Bids []core.BookLevel
	Asks []core.BookLevel
}

// HistoryEntry is one public trade.
type HistoryEntry struct {
	Time    time.Time
	TradeID int64
	Price   apd.Decimal
	Size    apd.Decimal
}

// Auxiliary carries the account summary figures.
type Auxiliary struct {
	AvailableFunds apd.Decimal
	PnL            apd.Decimal
	PortfolioValue apd.Decimal
	USD            apd.Decimal
}

// Margins is the set of margin thresholds reported for an account. It is
// used for both the current requirements and the trigger estimates.
type Margins struct {
	InitialMargin        apd.Decimal
	MaintenanceMargin    apd.Decimal
	LiquidationThreshold apd.Decimal
	TerminationThreshold apd.Decimal
}

// Account is the cash and margin account of the caller.
type Account struct {
	Balances           map[string]*apd.Decimal
	Auxiliary          Auxiliary
	MarginRequirements Margins
	TriggerEstimates   Margins
}

// SendStatus is the acknowledgement of a sendorder call.
type SendStatus struct {
	ReceivedTime time.Time
	Status       string
	OrderID      string
}

// CancelStatus is the acknowledgement of a cancelorder call.
type CancelStatus struct {
	ReceivedTime time.Time
	Status       string
}

// Order is an open order.
type Order struct {
	ReceivedTime time.Time
	Status       string
	OrderID      string
	Type         core.OrderType
	Symbol       string
	Side         core.OrderSide
	UnfilledSize apd.Decimal
	FilledSize   apd.Decimal
	LimitPrice   apd.Decimal
	StopPrice    *apd.Decimal
}

// Fill is an execution against one of the caller's orders.
type Fill struct {
	FillTime time.Time
	OrderID  string
	FillID   string
	Symbol   string
	Side     core.OrderSide
	Size     apd.Decimal
	Price    apd.Decimal
}

// Position is an open position. Side is "long" or "short".
type Position struct {
	FillTime time.Time
	Symbol   string
	Side     string
	Size     apd.Decimal
	Price    apd.Decimal
}

// Withdrawal is the acknowledgement of a withdrawal request.
type Withdrawal struct {
	ReceivedTime time.Time
	Status       string
	TransferID   string
}

// Transfer is a deposit or withdrawal. CompletedTime is zero while the
// transfer is pending.
type Transfer struct {
	ReceivedTime  time.Time
	CompletedTime time.Time
	Status        string
	TransferID    string
	TransactionID string
	TargetAddress string
	TransferType  string
	Amount        apd.Decimal
}
