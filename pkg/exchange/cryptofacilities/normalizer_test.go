package cryptofacilities

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cfkit/pkg/core"
)

func TestNewNormalizer(t *testing.T) {
	n := NewNormalizer()
	assert.NotNil(t, n)
}

func TestNormalizeInstrument(t *testing.T) {
	n := NewNormalizer()

	inst, err := n.NormalizeInstrument(&cfInstrument{
		Symbol:          "fi_xbtusd_180615",
		Type:            "futures",
		Tradeable:       true,
		Underlying:      "cf-bpi_xbtusd",
		LastTradingTime: "2018-06-15T16:00:00.000Z",
		TickSize:        "0.01",
		ContractSize:    "1",
	})
	require.NoError(t, err)

	assert.Equal(t, "fi_xbtusd_180615", inst.Symbol)
	assert.Equal(t, core.MarketTypeFutures, inst.Type)
	assert.True(t, inst.Tradeable)
	assert.Equal(t, "cf-bpi_xbtusd", inst.Underlying)
	assert.Equal(t, time.Date(2018, 6, 15, 16, 0, 0, 0, time.UTC), inst.LastTradingTime)
	assert.Equal(t, "0.01", inst.TickSize.String())
	assert.Equal(t, "1", inst.ContractSize.String())
}

func TestNormalizeInstrument_Index(t *testing.T) {
	n := NewNormalizer()

	inst, err := n.NormalizeInstrument(&cfInstrument{Symbol: "cf-bpi_xbtusd", Type: "spot index"})
	require.NoError(t, err)

	assert.Equal(t, core.MarketTypeSpotIndex, inst.Type)
	assert.True(t, inst.LastTradingTime.IsZero())
	assert.True(t, inst.TickSize.IsZero())
}

func TestNormalizeTicker(t *testing.T) {
	n := NewNormalizer()

	ticker, err := n.NormalizeTicker(&cfTicker{
		Symbol:    "fi_xbtusd_180615",
		Last:      "9392.5",
		LastTime:  "2018-05-17T15:53:47.000Z",
		LastSize:  "5",
		Open24h:   "9000",
		High24h:   "9500.25",
		Low24h:    "8900",
		Vol24h:    "125000",
		Bid:       "9391",
		BidSize:   "10",
		Ask:       "9394",
		AskSize:   "3",
		MarkPrice: "9392.75",
	})
	require.NoError(t, err)

	assert.Equal(t, "9392.5", ticker.Last.String())
	assert.Equal(t, "9500.25", ticker.High24h.String())
	assert.Equal(t, "9391", ticker.Bid.String())
	assert.Equal(t, "9394", ticker.Ask.String())
	assert.Equal(t, "9392.75", ticker.MarkPrice.String())
	assert.False(t, ticker.Suspended)
	assert.Equal(t, 2018, ticker.LastTime.Year())
}

func TestNormalizeTicker_BadNumber(t *testing.T) {
	n := NewNormalizer()

	_, err := n.NormalizeTicker(&cfTicker{Symbol: "x", Last: json.Number("abc")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "last")
}

func TestNormalizeOrderBook(t *testing.T) {
	n := NewNormalizer()

	book, err := n.NormalizeOrderBook(&cfOrderBook{
		Bids: [][]json.Number{{"9391", "10"}, {"9390.5", "2"}},
		Asks: [][]json.Number{{"9394", "3"}},
	})
	require.NoError(t, err)

	require.Len(t, book.Bids, 2)
	assert.Equal(t, "9391", book.Bids[0].Price.String())
	assert.Equal(t, "2", book.Bids[1].Size.String())
	require.Len(t, book.Asks, 1)
	assert.Equal(t, "9394", book.Asks[0].Price.String())
}

func TestNormalizeOrderBook_ShortLevel(t *testing.T) {
	n := NewNormalizer()

	_, err := n.NormalizeOrderBook(&cfOrderBook{Bids: [][]json.Number{{"9391"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bids")
}

func TestNormalizeOrder(t *testing.T) {
	n := NewNormalizer()

	order, err := n.NormalizeOrder(&cfOrder{
		ReceivedTime: "2018-05-17T15:53:47.123Z",
		Status:       "untouched",
		OrderID:      "c18f0c17-9971-40e6-8e5b-10df05d422f0",
		OrderType:    "lmt",
		Symbol:       "fi_xbtusd_180615",
		Side:         "buy",
		UnfilledSize: "1",
		FilledSize:   "0",
		LimitPrice:   "9400",
	})
	require.NoError(t, err)

	assert.Equal(t, core.TypeLimit, order.Type)
	assert.Equal(t, core.SideBuy, order.Side)
	assert.Equal(t, "9400", order.LimitPrice.String())
	assert.Nil(t, order.StopPrice)
	assert.Equal(t, 123*time.Millisecond, time.Duration(order.ReceivedTime.Nanosecond()))

	stop, err := n.NormalizeOrder(&cfOrder{OrderType: "stp", Side: "sell", StopPrice: "9350"})
	require.NoError(t, err)
	require.NotNil(t, stop.StopPrice)
	assert.Equal(t, "9350", stop.StopPrice.String())

	_, err = n.NormalizeOrder(&cfOrder{OrderType: "lmt", Side: "sideways"})
	assert.Error(t, err)
}

func TestNormalizeFillAndPosition(t *testing.T) {
	n := NewNormalizer()

	fill, err := n.NormalizeFill(&cfFill{
		FillTime: "2016-02-25T09:47:01.000Z",
		OrderID:  "c18f0c17-9971-40e6-8e5b-10df05d422f0",
		FillID:   "522d4e08-96e7-4b44-9694-bfaea8fe215e",
		Symbol:   "fi_xbtusd_180615",
		Side:     "buy",
		Size:     "1",
		Price:    "4225",
	})
	require.NoError(t, err)
	assert.Equal(t, core.SideBuy, fill.Side)
	assert.Equal(t, "4225", fill.Price.String())

	pos, err := n.NormalizePosition(&cfPosition{
		FillTime: "2016-02-25T09:47:01.000Z",
		Symbol:   "fi_xbtusd_180615",
		Side:     "long",
		Size:     "3",
		Price:    "4225.5",
	})
	require.NoError(t, err)
	assert.Equal(t, "long", pos.Side)
	assert.Equal(t, "4225.5", pos.Price.String())
}

func TestNormalizeAccount(t *testing.T) {
	n := NewNormalizer()

	acct, err := n.NormalizeAccount("/api/v2/account", &cfAccount{
		Balances: map[string]json.RawMessage{
			"fi_xbtusd_180615": json.RawMessage(`5`),
			"xbt":              json.RawMessage(`"1.25"`),
		},
		Auxiliary:          cfAuxiliary{AvailableFunds: "4.5", PnL: "0.1", PortfolioValue: "5.2", USD: "0"},
		MarginRequirements: cfMargins{InitialMargin: "0.1", MaintenanceMargin: "0.05", LiquidationThreshold: "0.04", TerminationThreshold: "0.03"},
		TriggerEstimates:   cfMargins{InitialMargin: "0.2"},
	})
	require.NoError(t, err)

	require.Len(t, acct.Balances, 2)
	assert.Equal(t, "5", acct.Balances["fi_xbtusd_180615"].String())
	assert.Equal(t, "1.25", acct.Balances["xbt"].String())
	assert.Equal(t, "4.5", acct.Auxiliary.AvailableFunds.String())
	assert.Equal(t, "0.05", acct.MarginRequirements.MaintenanceMargin.String())
	assert.Equal(t, "0.2", acct.TriggerEstimates.InitialMargin.String())
	assert.True(t, acct.TriggerEstimates.TerminationThreshold.IsZero())
}

func TestNormalizeAccount_BadBalance(t *testing.T) {
	n := NewNormalizer()

	_, err := n.NormalizeAccount("/api/v2/account", &cfAccount{
		Balances: map[string]json.RawMessage{"xbt": json.RawMessage(`"lots"`)},
	})
	require.Error(t, err)
	assert.True(t, core.IsDecodeError(err))
}

func TestNormalizeTransfer(t *testing.T) {
	n := NewNormalizer()

	tr, err := n.NormalizeTransfer(&cfTransfer{
		ReceivedTime:  "2016-02-25T09:47:01.000Z",
		Status:        "pending",
		TransferID:    "b243cf7a-657e-47f3-8f5c-3a7e1b4d0f15",
		TargetAddress: "3AMVN8PdrWkB8CBs3zYYSXVF4v5b7iSYGr",
		TransferType:  "withdrawal",
		Amount:        "0.5",
	})
	require.NoError(t, err)

	assert.True(t, tr.CompletedTime.IsZero())
	assert.Equal(t, "0.5", tr.Amount.String())
	assert.Equal(t, "withdrawal", tr.TransferType)
}
