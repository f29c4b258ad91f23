package cflegacy

import (
	"encoding/json"
	"strconv"

	"cfkit/pkg/core"
)

// DefaultTradesNumber is the number of trades requested when none is given.
const DefaultTradesNumber = 100

// legacyOrderType is the only order type the legacy placeOrder accepts.
const legacyOrderType = "LMT"

type cfContract struct {
	Unit                  string      `json:"unit"`
	Tradeable             string      `json:"tradeable"`
	LastTradingDayAndTime string      `json:"lastTradingDayAndTime"`
	ContractSize          json.Number `json:"contractSize"`
	TickSize              json.Number `json:"tickSize"`
	Suspended             bool        `json:"suspended"`
}

type cfOrderInfo struct {
	UID       string      `json:"uid"`
	Timestamp string      `json:"timestamp"`
	Unit      string      `json:"unit"`
	Tradeable string      `json:"tradeable"`
	Dir       string      `json:"dir"`
	Qty       json.Number `json:"qty"`
	Filled    json.Number `json:"filled"`
	Type      string      `json:"type"`
	Lmt       json.Number `json:"lmt"`
}

type cfTradeInfo struct {
	UID       string      `json:"uid"`
	Timestamp string      `json:"timestamp"`
	Unit      string      `json:"unit"`
	Tradeable string      `json:"tradeable"`
	Dir       string      `json:"dir"`
	Qty       json.Number `json:"qty"`
	Price     json.Number `json:"price"`
}

type contractsResponse struct {
	Contracts []cfContract `json:"contracts"`
}

type tickerResponse struct {
	Bid json.Number `json:"bid"`
	Ask json.Number `json:"ask"`
}

// cumulativeResponse keeps both sides raw: the server sends each as a JSON
// array encoded inside a string.
type cumulativeResponse struct {
	CumulatedBids json.RawMessage `json:"cumulatedBids"`
	CumulatedAsks json.RawMessage `json:"cumulatedAsks"`
}

type cfbpiResponse struct {
	Value json.Number `json:"cf-bpi"`
}

type volatilityResponse struct {
	Value json.Number `json:"volatility"`
}

type placeOrderResponse struct {
	OrderID string `json:"orderId"`
}

type openOrdersResponse struct {
	Orders json.RawMessage `json:"orders"`
}

type tradesResponse struct {
	Trades []cfTradeInfo `json:"trades"`
}

func instrumentParams(tradeable, unit string) core.Params {
	return core.NewParams(2).
		Add("tradeable", tradeable).
		Add("unit", unit)
}

func placeOrderParams(o *Order) core.Params {
	return core.NewParams(6).
		Add("type", legacyOrderType).
		Add("tradeable", o.Tradeable).
		Add("unit", o.Unit).
		Add("dir", o.Side.Title()).
		Add("qty", o.Qty.Text('f')).
		Add("price", o.Price.Text('f'))
}

func cancelOrderParams(uid, tradeable, unit string) core.Params {
	return core.NewParams(3).
		Add("uid", uid).
		Add("tradeable", tradeable).
		Add("unit", unit)
}

func tradesParams(number int) core.Params {
	if number <= 0 {
		number = DefaultTradesNumber
	}
	return core.NewParams(1).Add("number", strconv.Itoa(number))
}
