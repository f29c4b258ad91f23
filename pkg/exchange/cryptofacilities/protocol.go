package cryptofacilities

import (
	"encoding/json"
	"time"

	"cfkit/pkg/core"
	"cfkit/pkg/exchange"
)

// Wire shapes of the v2 responses. Numbers stay json.Number until the
// normalizer converts them so no precision is lost on the way.

type cfInstrument struct {
	Symbol          string      `json:"symbol"`
	Type            string      `json:"type"`
	Tradeable       bool        `json:"tradeable"`
	Underlying      string      `json:"underlying"`
	LastTradingTime string      `json:"lastTradingTime"`
	TickSize        json.Number `json:"tickSize"`
	ContractSize    json.Number `json:"contractSize"`
}

type cfTicker struct {
	Symbol    string      `json:"symbol"`
	Suspended bool        `json:"suspended"`
	Last      json.Number `json:"last"`
	LastTime  string      `json:"lastTime"`
	LastSize  json.Number `json:"lastSize"`
	Open24h   json.Number `json:"open24h"`
	High24h   json.Number `json:"high24h"`
	Low24h    json.Number `json:"low24h"`
	Vol24h    json.Number `json:"vol24h"`
	Bid       json.Number `json:"bid"`
	BidSize   json.Number `json:"bidSize"`
	Ask       json.Number `json:"ask"`
	AskSize   json.Number `json:"askSize"`
	MarkPrice json.Number `json:"markPrice"`
}

type cfOrderBook struct {
	Bids [][]json.Number `json:"bids"`
	Asks [][]json.Number `json:"asks"`
}

type cfHistory struct {
	Time    string      `json:"time"`
	TradeID json.Number `json:"trade_id"`
	Price   json.Number `json:"price"`
	Size    json.Number `json:"size"`
}

type cfAuxiliary struct {
	AvailableFunds json.Number `json:"af"`
	PnL            json.Number `json:"pnl"`
	PortfolioValue json.Number `json:"pv"`
	USD            json.Number `json:"usd"`
}

type cfMargins struct {
	InitialMargin        json.Number `json:"im"`
	MaintenanceMargin    json.Number `json:"mm"`
	LiquidationThreshold json.Number `json:"lt"`
	TerminationThreshold json.Number `json:"tt"`
}

type cfAccount struct {
	Balances           map[string]json.RawMessage `json:"balances"`
	Auxiliary          cfAuxiliary                `json:"auxiliary"`
	MarginRequirements cfMargins                  `json:"marginRequirements"`
	TriggerEstimates   cfMargins                  `json:"triggerEstimates"`
}

type cfSendStatus struct {
	ReceivedTime string `json:"receivedTime"`
	Status       string `json:"status"`
	OrderID      string `json:"order_id"`
}

type cfCancelStatus struct {
	ReceivedTime string `json:"receivedTime"`
	Status       string `json:"status"`
}

type cfOrder struct {
	ReceivedTime string      `json:"receivedTime"`
	Status       string      `json:"status"`
	OrderID      string      `json:"order_id"`
	OrderType    string      `json:"orderType"`
	Symbol       string      `json:"symbol"`
	Side         string      `json:"side"`
	UnfilledSize json.Number `json:"unfilledSize"`
	FilledSize   json.Number `json:"filledSize"`
	LimitPrice   json.Number `json:"limitPrice"`
	StopPrice    json.Number `json:"stopPrice"`
}

type cfFill struct {
	FillTime string      `json:"fillTime"`
	OrderID  string      `json:"order_id"`
	FillID   string      `json:"fill_id"`
	Symbol   string      `json:"symbol"`
	Side     string      `json:"side"`
	Size     json.Number `json:"size"`
	Price    json.Number `json:"price"`
}

type cfPosition struct {
	FillTime string      `json:"fillTime"`
	Symbol   string      `json:"symbol"`
	Side     string      `json:"side"`
	Size     json.Number `json:"size"`
	Price    json.Number `json:"price"`
}

type cfWithdrawal struct {
	ReceivedTime string `json:"receivedTime"`
	Status       string `json:"status"`
	TransferID   string `json:"transfer_id"`
}

type cfTransfer struct {
	ReceivedTime  string      `json:"receivedTime"`
	CompletedTime string      `json:"completedTime"`
	Status        string      `json:"status"`
	TransferID    string      `json:"transfer_id"`
	TransactionID string      `json:"transaction_id"`
	TargetAddress string      `json:"targetAddress"`
	TransferType  string      `json:"transferType"`
	Amount        json.Number `json:"amount"`
}

type instrumentsResponse struct {
	Instruments []cfInstrument `json:"instruments"`
}

type tickersResponse struct {
	Tickers []cfTicker `json:"tickers"`
}

type orderBookResponse struct {
	OrderBook cfOrderBook `json:"orderBook"`
}

type historyResponse struct {
	History []cfHistory `json:"history"`
}

type accountResponse struct {
	Account cfAccount `json:"account"`
}

type sendOrderResponse struct {
	SendStatus cfSendStatus `json:"sendStatus"`
}

type cancelOrderResponse struct {
	CancelStatus cfCancelStatus `json:"cancelStatus"`
}

type openOrdersResponse struct {
	OpenOrders []cfOrder `json:"openOrders"`
}

type fillsResponse struct {
	Fills []cfFill `json:"fills"`
}

type openPositionsResponse struct {
	OpenPositions []cfPosition `json:"openPositions"`
}

type withdrawalResponse struct {
	Withdrawal cfWithdrawal `json:"withdrawal"`
}

type transfersResponse struct {
	Transfers []cfTransfer `json:"transfers"`
}

func orderBookParams(symbol string) core.Params {
	return core.NewParams(1).Add("symbol", symbol)
}

func historyParams(symbol string, opts *exchange.Options) core.Params {
	params := core.NewParams(2).Add("symbol", symbol)
	return addTimeParam(params, "lastTime", opts.LastTime)
}

func sendOrderParams(req *exchange.OrderRequest) core.Params {
	params := core.NewParams(6).
		Add("orderType", req.Type.String()).
		Add("symbol", req.Symbol).
		Add("side", req.Side.String()).
		Add("size", req.Size.Text('f')).
		Add("limitPrice", req.LimitPrice.Text('f'))
	if req.StopPrice != nil {
		params = params.Add("stopPrice", req.StopPrice.Text('f'))
	}
	return params
}

func cancelOrderParams(orderID string) core.Params {
	return core.NewParams(1).Add("order_id", orderID)
}

func fillsParams(opts *exchange.Options) core.Params {
	return addTimeParam(core.NewParams(1), "lastFillTime", opts.LastTime)
}

func withdrawalParams(targetAddress, currency, amount string) core.Params {
	return core.NewParams(3).
		Add("targetAddress", targetAddress).
		Add("currency", currency).
		Add("amount", amount)
}

func transfersParams(opts *exchange.Options) core.Params {
	return addTimeParam(core.NewParams(1), "lastTransferTime", opts.LastTime)
}

// addTimeParam appends key only when t is set.
func addTimeParam(params core.Params, key string, t time.Time) core.Params {
	if t.IsZero() {
		return params
	}
	return params.Add(key, core.FormatTime(t))
}
