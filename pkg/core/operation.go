package core

// Operation identifies one REST endpoint of the exchange.
type Operation int

// Operation constants cover both API generations. The Legacy operations
// belong to the original /api/ surface.
const (
	// OpInstruments lists futures contracts and indices.
	OpInstruments Operation = iota
	// OpTickers returns market data for all instruments.
	OpTickers
	// OpOrderBook returns the full order book of one contract.
	OpOrderBook
	// OpHistory returns trade or index history.
	OpHistory
	// OpAccount returns balances, margin requirements and trigger estimates.
	OpAccount
	// OpSendOrder places a limit or stop order.
	OpSendOrder
	// OpCancelOrder cancels an open order.
	OpCancelOrder
	// OpOpenOrders lists open orders.
	OpOpenOrders
	// OpFills lists filled orders.
	OpFills
	// OpOpenPositions lists open positions.
	OpOpenPositions
	// OpWithdrawal requests a withdrawal.
	OpWithdrawal
	// OpTransfers lists deposits and withdrawals.
	OpTransfers

	OpLegacyContracts
	OpLegacyTicker
	OpLegacyCumulativeBidAsk
	OpLegacyCFBPI
	OpLegacyVolatility
	OpLegacyBalance
	OpLegacyPlaceOrder
	OpLegacyCancelOrder
	OpLegacyOpenOrders
	OpLegacyTrades
)

type endpoint struct {
	name string
	path string
	auth bool
}

var endpoints = [...]endpoint{
	OpInstruments:   {"INSTRUMENTS", "/api/v2/instruments", false},
	OpTickers:       {"TICKERS", "/api/v2/tickers", false},
	OpOrderBook:     {"ORDER_BOOK", "/api/v2/orderbook", false},
	OpHistory:       {"HISTORY", "/api/v2/history", false},
	OpAccount:       {"ACCOUNT", "/api/v2/account", true},
	OpSendOrder:     {"SEND_ORDER", "/api/v2/sendorder", true},
	OpCancelOrder:   {"CANCEL_ORDER", "/api/v2/cancelorder", true},
	OpOpenOrders:    {"OPEN_ORDERS", "/api/v2/openorders", true},
	OpFills:         {"FILLS", "/api/v2/fills", true},
	OpOpenPositions: {"OPEN_POSITIONS", "/api/v2/openpositions", true},
	OpWithdrawal:    {"WITHDRAWAL", "/api/v2/withdrawal", true},
	OpTransfers:     {"TRANSFERS", "/api/v2/transfers", true},

	OpLegacyContracts:        {"LEGACY_CONTRACTS", "/api/contracts", false},
	OpLegacyTicker:           {"LEGACY_TICKER", "/api/ticker", false},
	OpLegacyCumulativeBidAsk: {"LEGACY_CUMULATIVE_BID_ASK", "/api/cumulativebidask", false},
	OpLegacyCFBPI:            {"LEGACY_CFBPI", "/api/cfbpi", false},
	OpLegacyVolatility:       {"LEGACY_VOLATILITY", "/api/volatility", false},
	OpLegacyBalance:          {"LEGACY_BALANCE", "/api/balance", true},
	OpLegacyPlaceOrder:       {"LEGACY_PLACE_ORDER", "/api/placeOrder", true},
	OpLegacyCancelOrder:      {"LEGACY_CANCEL_ORDER", "/api/cancelOrder", true},
	OpLegacyOpenOrders:       {"LEGACY_OPEN_ORDERS", "/api/openOrders", true},
	OpLegacyTrades:           {"LEGACY_TRADES", "/api/trades", true},
}

// Operations returns every known operation in declaration order.
func Operations() []Operation {
	ops := make([]Operation, len(endpoints))
	for i := range endpoints {
		ops[i] = Operation(i)
	}
	return ops
}

// String returns the string representation of the operation.
func (o Operation) String() string {
	return endpoints[o].name
}

// Path returns the endpoint path, which is also the path used in the signature.
func (o Operation) Path() string {
	return endpoints[o].path
}

// RequiresAuth reports whether calls must carry the signed headers.
func (o Operation) RequiresAuth() bool {
	return endpoints[o].auth
}

// Request returns an empty request for the operation.
func (o Operation) Request() *Request {
	return NewRequest(o.Path()).SetRequireAuth(o.RequiresAuth())
}
