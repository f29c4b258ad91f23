package cryptofacilities

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"cfkit/pkg/core"
)

// Normalizer converts v2 wire shapes to the package's public types.
type Normalizer struct{}

// NewNormalizer creates a new v2 normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeInstrument converts a listed instrument.
func (n *Normalizer) NormalizeInstrument(data *cfInstrument) (*Instrument, error) {
	inst := &Instrument{
		Symbol:     data.Symbol,
		Type:       core.ParseMarketType(data.Type),
		Tradeable:  data.Tradeable,
		Underlying: data.Underlying,
	}

	var err error
	if inst.LastTradingTime, err = core.ParseTime(data.LastTradingTime); err != nil {
		return nil, fmt.Errorf("instrument %s: %w", data.Symbol, err)
	}
	if err := decimals(
		field{&inst.TickSize, data.TickSize, "tickSize"},
		field{&inst.ContractSize, data.ContractSize, "contractSize"},
	); err != nil {
		return nil, fmt.Errorf("instrument %s: %w", data.Symbol, err)
	}
	return inst, nil
}

// NormalizeTicker converts a ticker entry.
func (n *Normalizer) NormalizeTicker(data *cfTicker) (*Ticker, error) {
	ticker := &Ticker{
		Symbol:    data.Symbol,
		Suspended: data.Suspended,
	}

	var err error
	if ticker.LastTime, err = core.ParseTime(data.LastTime); err != nil {
		return nil, fmt.Errorf("ticker %s: %w", data.Symbol, err)
	}
	if err := decimals(
		field{&ticker.Last, data.Last, "last"},
		field{&ticker.LastSize, data.LastSize, "lastSize"},
		field{&ticker.Open24h, data.Open24h, "open24h"},
		field{&ticker.High24h, data.High24h, "high24h"},
		field{&ticker.Low24h, data.Low24h, "low24h"},
		field{&ticker.Vol24h, data.Vol24h, "vol24h"},
		field{&ticker.Bid, data.Bid, "bid"},
		field{&ticker.BidSize, data.BidSize, "bidSize"},
		field{&ticker.Ask, data.Ask, "ask"},
		field{&ticker.AskSize, data.AskSize, "askSize"},
		field{&ticker.MarkPrice, data.MarkPrice, "markPrice"},
	); err != nil {
		return nil, fmt.Errorf("ticker %s: %w", data.Symbol, err)
	}
	return ticker, nil
}

// NormalizeOrderBook converts [price, size] pairs to book levels, keeping
// the server's order on both sides.
func (n *Normalizer) NormalizeOrderBook(data *cfOrderBook) (*OrderBook, error) {
	bids, err := bookLevels(data.Bids)
	if err != nil {
		return nil, fmt.Errorf("bids: %w", err)
	}
	asks, err := bookLevels(data.Asks)
	if err != nil {
		return nil, fmt.Errorf("asks: %w", err)
	}
	return &OrderBook{Bids: bids, Asks: asks}, nil
}

// NormalizeHistory converts a public trade.
func (n *Normalizer) NormalizeHistory(data *cfHistory) (*HistoryEntry, error) {
	entry := &HistoryEntry{}

	var err error
	if entry.Time, err = core.ParseTime(data.Time); err != nil {
		return nil, err
	}
	if data.TradeID != "" {
		if entry.TradeID, err = data.TradeID.Int64(); err != nil {
			return nil, fmt.Errorf("trade_id: %w", err)
		}
	}
	if err := decimals(
		field{&entry.Price, data.Price, "price"},
		field{&entry.Size, data.Size, "size"},
	); err != nil {
		return nil, err
	}
	return entry, nil
}

// NormalizeAccount converts the account block. Every key of the balances
// object becomes a currency balance.
func (n *Normalizer) NormalizeAccount(op string, data *cfAccount) (*Account, error) {
	balances, err := core.ProjectBalances(op, data.Balances)
	if err != nil {
		return nil, err
	}

	acct := &Account{Balances: balances}
	aux := &data.Auxiliary
	if err := decimals(
		field{&acct.Auxiliary.AvailableFunds, aux.AvailableFunds, "af"},
		field{&acct.Auxiliary.PnL, aux.PnL, "pnl"},
		field{&acct.Auxiliary.PortfolioValue, aux.PortfolioValue, "pv"},
		field{&acct.Auxiliary.USD, aux.USD, "usd"},
	); err != nil {
		return nil, fmt.Errorf("auxiliary: %w", err)
	}
	if err := normalizeMargins(&acct.MarginRequirements, &data.MarginRequirements); err != nil {
		return nil, fmt.Errorf("marginRequirements: %w", err)
	}
	if err := normalizeMargins(&acct.TriggerEstimates, &data.TriggerEstimates); err != nil {
		return nil, fmt.Errorf("triggerEstimates: %w", err)
	}
	return acct, nil
}

// NormalizeSendStatus converts a sendorder acknowledgement.
func (n *Normalizer) NormalizeSendStatus(data *cfSendStatus) (*SendStatus, error) {
	received, err := core.ParseTime(data.ReceivedTime)
	if err != nil {
		return nil, err
	}
	return &SendStatus{ReceivedTime: received, Status: data.Status, OrderID: data.OrderID}, nil
}

// NormalizeCancelStatus converts a cancelorder acknowledgement.
func (n *Normalizer) NormalizeCancelStatus(data *cfCancelStatus) (*CancelStatus, error) {
	received, err := core.ParseTime(data.ReceivedTime)
	if err != nil {
		return nil, err
	}
	return &CancelStatus{ReceivedTime: received, Status: data.Status}, nil
}

// NormalizeOrder converts an open order. A missing stop price leaves
// StopPrice nil.
func (n *Normalizer) NormalizeOrder(data *cfOrder) (*Order, error) {
	order := &Order{
		Status:  data.Status,
		OrderID: data.OrderID,
		Symbol:  data.Symbol,
	}

	var err error
	if order.ReceivedTime, err = core.ParseTime(data.ReceivedTime); err != nil {
		return nil, fmt.Errorf("order %s: %w", data.OrderID, err)
	}
	if order.Type, err = core.ParseOrderType(data.OrderType); err != nil {
		return nil, fmt.Errorf("order %s: %w", data.OrderID, err)
	}
	if order.Side, err = core.ParseOrderSide(data.Side); err != nil {
		return nil, fmt.Errorf("order %s: %w", data.OrderID, err)
	}
	if err := decimals(
		field{&order.UnfilledSize, data.UnfilledSize, "unfilledSize"},
		field{&order.FilledSize, data.FilledSize, "filledSize"},
		field{&order.LimitPrice, data.LimitPrice, "limitPrice"},
	); err != nil {
		return nil, fmt.Errorf("order %s: %w", data.OrderID, err)
	}
	if data.StopPrice != "" {
		order.StopPrice = new(apd.Decimal)
		if err := core.ParseDecimal(order.StopPrice, data.StopPrice.String()); err != nil {
			return nil, fmt.Errorf("order %s: stopPrice: %w", data.OrderID, err)
		}
	}
	return order, nil
}

// NormalizeFill converts a fill.
func (n *Normalizer) NormalizeFill(data *cfFill) (*Fill, error) {
	fill := &Fill{
		OrderID: data.OrderID,
		FillID:  data.FillID,
		Symbol:  data.Symbol,
	}

	var err error
	if fill.FillTime, err = core.ParseTime(data.FillTime); err != nil {
		return nil, fmt.Errorf("fill %s: %w", data.FillID, err)
	}
	if fill.Side, err = core.ParseOrderSide(data.Side); err != nil {
		return nil, fmt.Errorf("fill %s: %w", data.FillID, err)
	}
	if err := decimals(
		field{&fill.Size, data.Size, "size"},
		field{&fill.Price, data.Price, "price"},
	); err != nil {
		return nil, fmt.Errorf("fill %s: %w", data.FillID, err)
	}
	return fill, nil
}

// NormalizePosition converts an open position.
func (n *Normalizer) NormalizePosition(data *cfPosition) (*Position, error) {
	pos := &Position{
		Symbol: data.Symbol,
		Side:   data.Side,
	}

	var err error
	if pos.FillTime, err = core.ParseTime(data.FillTime); err != nil {
		return nil, fmt.Errorf("position %s: %w", data.Symbol, err)
	}
	if err := decimals(
		field{&pos.Size, data.Size, "size"},
		field{&pos.Price, data.Price, "price"},
	); err != nil {
		return nil, fmt.Errorf("position %s: %w", data.Symbol, err)
	}
	return pos, nil
}

// NormalizeWithdrawal converts a withdrawal acknowledgement.
func (n *Normalizer) NormalizeWithdrawal(data *cfWithdrawal) (*Withdrawal, error) {
	received, err := core.ParseTime(data.ReceivedTime)
	if err != nil {
		return nil, err
	}
	return &Withdrawal{ReceivedTime: received, Status: data.Status, TransferID: data.TransferID}, nil
}

// NormalizeTransfer converts a transfer record.
func (n *Normalizer) NormalizeTransfer(data *cfTransfer) (*Transfer, error) {
	tr := &Transfer{
		Status:        data.Status,
		TransferID:    data.TransferID,
		TransactionID: data.TransactionID,
		TargetAddress: data.TargetAddress,
		TransferType:  data.TransferType,
	}

	var err error
	if tr.ReceivedTime, err = core.ParseTime(data.ReceivedTime); err != nil {
		return nil, fmt.Errorf("transfer %s: %w", data.TransferID, err)
	}
	if tr.CompletedTime, err = core.ParseTime(data.CompletedTime); err != nil {
		return nil, fmt.Errorf("transfer %s: %w", data.TransferID, err)
	}
	if err := core.ParseDecimal(&tr.Amount, data.Amount.String()); err != nil {
		return nil, fmt.Errorf("transfer %s: amount: %w", data.TransferID, err)
	}
	return tr, nil
}

func normalizeMargins(dest *Margins, data *cfMargins) error {
	return decimals(
		field{&dest.InitialMargin, data.InitialMargin, "im"},
		field{&dest.MaintenanceMargin, data.MaintenanceMargin, "mm"},
		field{&dest.LiquidationThreshold, data.LiquidationThreshold, "lt"},
		field{&dest.TerminationThreshold, data.TerminationThreshold, "tt"},
	)
}

func bookLevels(rows [][]json.Number) ([]core.BookLevel, error) {
	levels := make([]core.BookLevel, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("level %d: want [price, size], got %d values", i, len(row))
		}
		if err := core.RequireDecimal(&levels[i].Price, row[0].String()); err != nil {
			return nil, fmt.Errorf("level %d price: %w", i, err)
		}
		if err := core.RequireDecimal(&levels[i].Size, row[1].String()); err != nil {
			return nil, fmt.Errorf("level %d size: %w", i, err)
		}
	}
	return levels, nil
}

type field struct {
	dest *apd.Decimal
	raw  json.Number
	name string
}

func decimals(fields ...field) error {
	for _, f := range fields {
		if err := core.ParseDecimal(f.dest, f.raw.String()); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return nil
}
