package cflegacy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"

	"cfkit/pkg/core"
)

// Normalizer converts legacy wire shapes to the package's public types.
type Normalizer struct{}

// NewNormalizer creates a new legacy normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeContract converts a listed contract.
func (n *Normalizer) NormalizeContract(data *cfContract) (*Contract, error) {
	c := &Contract{
		Unit:                  data.Unit,
		Tradeable:             data.Tradeable,
		LastTradingDayAndTime: data.LastTradingDayAndTime,
		Suspended:             data.Suspended,
	}
	if err := core.ParseDecimal(&c.ContractSize, data.ContractSize.String()); err != nil {
		return nil, fmt.Errorf("contract %s: contractSize: %w", data.Tradeable, err)
	}
	if err := core.ParseDecimal(&c.TickSize, data.TickSize.String()); err != nil {
		return nil, fmt.Errorf("contract %s: tickSize: %w", data.Tradeable, err)
	}
	return c, nil
}

// NormalizeCumulativeBook decodes both sides and sorts the bids by
// descending price. The sort is stable so equal prices keep server order.
// Asks are left exactly as received.
func (n *Normalizer) NormalizeCumulativeBook(op string, data *cumulativeResponse) (*CumulativeBook, error) {
	bids, err := nestedLevels(op, data.CumulatedBids)
	if err != nil {
		return nil, fmt.Errorf("cumulatedBids: %w", err)
	}
	asks, err := nestedLevels(op, data.CumulatedAsks)
	if err != nil {
		return nil, fmt.Errorf("cumulatedAsks: %w", err)
	}

	slices.SortStableFunc(bids, func(a, b core.BookLevel) int {
		return b.Price.Cmp(&a.Price)
	})

	return &CumulativeBook{Bids: bids, Asks: asks}, nil
}

// NormalizeOrderInfo converts an open order.
func (n *Normalizer) NormalizeOrderInfo(data *cfOrderInfo) (*OrderInfo, error) {
	side, err := core.ParseOrderSide(data.Dir)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", data.UID, err)
	}

	o := &OrderInfo{
		UID:       data.UID,
		Timestamp: data.Timestamp,
		Unit:      data.Unit,
		Tradeable: data.Tradeable,
		Side:      side,
		Type:      data.Type,
	}
	for _, f := range []struct {
		dest *apd.Decimal
		raw  json.Number
		name string
	}{
		{&o.Qty, data.Qty, "qty"},
		{&o.Filled, data.Filled, "filled"},
		{&o.Limit, data.Lmt, "lmt"},
	} {
		if err := core.ParseDecimal(f.dest, f.raw.String()); err != nil {
			return nil, fmt.Errorf("order %s: %s: %w", data.UID, f.name, err)
		}
	}
	return o, nil
}

// NormalizeTradeInfo converts a trade.
func (n *Normalizer) NormalizeTradeInfo(data *cfTradeInfo) (*TradeInfo, error) {
	side, err := core.ParseOrderSide(data.Dir)
	if err != nil {
		return nil, fmt.Errorf("trade %s: %w", data.UID, err)
	}

	t := &TradeInfo{
		UID:       data.UID,
		Timestamp: data.Timestamp,
		Unit:      data.Unit,
		Tradeable: data.Tradeable,
		Side:      side,
	}
	if err := core.ParseDecimal(&t.Qty, data.Qty.String()); err != nil {
		return nil, fmt.Errorf("trade %s: qty: %w", data.UID, err)
	}
	if err := core.ParseDecimal(&t.Price, data.Price.String()); err != nil {
		return nil, fmt.Errorf("trade %s: price: %w", data.UID, err)
	}
	return t, nil
}

// nestedLevels accepts the side either as a string holding a JSON array or
// as a plain array.
func nestedLevels(op string, raw json.RawMessage) ([]core.BookLevel, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []core.BookLevel{}, nil
	}

	var rows [][]json.Number
	if raw[0] == '"' {
		var encoded string
		if err := sonic.Unmarshal(raw, &encoded); err != nil {
			return nil, err
		}
		if err := core.DecodeNested(op, encoded, &rows); err != nil {
			return nil, err
		}
	} else if err := sonic.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}

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
