package cflegacy

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"
	"github.com/rs/zerolog"

	"cfkit/pkg/core"
	"cfkit/pkg/exchange"
)

// Client exposes the legacy endpoints on top of an exchange.Querier.
type Client struct {
	q          exchange.Querier
	normalizer *Normalizer
	logger     zerolog.Logger
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a legacy client on top of q.
func New(q exchange.Querier, opts ...Option) *Client {
	c := &Client{
		q:          q,
		normalizer: NewNormalizer(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("api", "v1").Logger()
	return c
}

func (c *Client) call(ctx context.Context, op core.Operation, params core.Params, v any) error {
	body, err := c.q.Query(ctx, op.Path(), params, op.RequiresAuth())
	if err != nil {
		return err
	}
	return core.DecodeEnvelope(op.Path(), body, v)
}

// Contracts lists the tradeable futures contracts.
func (c *Client) Contracts(ctx context.Context) ([]Contract, error) {
	op := core.OpLegacyContracts
	var resp contractsResponse
	if err := c.call(ctx, op, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]Contract, 0, len(resp.Contracts))
	for i := range resp.Contracts {
		ct, err := c.normalizer.NormalizeContract(&resp.Contracts[i])
		if err != nil {
			return nil, core.NewDecodeError(op.Path(), err)
		}
		out = append(out, *ct)
	}
	return out, nil
}

// Ticker returns the best bid and ask of tradeable in unit.
func (c *Client) Ticker(ctx context.Context, tradeable, unit string) (*Quote, error) {
	op := core.OpLegacyTicker
	var resp tickerResponse
	if err := c.call(ctx, op, instrumentParams(tradeable, unit), &resp); err != nil {
		return nil, err
	}

	q := &Quote{}
	if err := core.ParseDecimal(&q.Bid, resp.Bid.String()); err != nil {
		return nil, core.NewDecodeError(op.Path(), err)
	}
	if err := core.ParseDecimal(&q.Ask, resp.Ask.String()); err != nil {
		return nil, core.NewDecodeError(op.Path(), err)
	}
	return q, nil
}

// CumulativeBidAsk returns the cumulated book of tradeable in unit.
func (c *Client) CumulativeBidAsk(ctx context.Context, tradeable, unit string) (*CumulativeBook, error) {
	op := core.OpLegacyCumulativeBidAsk
	var resp cumulativeResponse
	if err := c.call(ctx, op, instrumentParams(tradeable, unit), &resp); err != nil {
		return nil, err
	}

	book, err := c.normalizer.NormalizeCumulativeBook(op.Path(), &resp)
	if err != nil {
		if core.IsDecodeError(err) {
			return nil, err
		}
		return nil, core.NewDecodeError(op.Path(), err)
	}
	return book, nil
}

// CFBPI returns the current value of the CF Bitcoin-Dollar Price Index.
func (c *Client) CFBPI(ctx context.Context) (*apd.Decimal, error) {
	op := core.OpLegacyCFBPI
	var resp cfbpiResponse
	if err := c.call(ctx, op, nil, &resp); err != nil {
		return nil, err
	}
	return requireValue(op, resp.Value)
}

// Volatility returns the current value of the volatility index.
func (c *Client) Volatility(ctx context.Context) (*apd.Decimal, error) {
	op := core.OpLegacyVolatility
	var resp volatilityResponse
	if err := c.call(ctx, op, nil, &resp); err != nil {
		return nil, err
	}
	return requireValue(op, resp.Value)
}

// Balance returns every balance of the account keyed by currency or
// contract. All top-level fields other than the envelope are balances.
func (c *Client) Balance(ctx context.Context) (map[string]*apd.Decimal, error) {
	op := core.OpLegacyBalance
	var fields map[string]json.RawMessage
	if err := c.call(ctx, op, nil, &fields); err != nil {
		return nil, err
	}
	return core.ProjectBalances(op.Path(), fields)
}

// PlaceOrder places a limit order and returns its id.
func (c *Client) PlaceOrder(ctx context.Context, order *Order) (string, error) {
	if order.Tradeable == "" || order.Unit == "" {
		return "", core.NewConfigurationError("placeOrder", "tradeable and unit are required", nil)
	}
	if order.Qty.Sign() <= 0 || order.Price.Sign() <= 0 {
		return "", core.NewConfigurationError("placeOrder", "qty and price must be positive", nil)
	}

	op := core.OpLegacyPlaceOrder
	var resp placeOrderResponse
	if err := c.call(ctx, op, placeOrderParams(order), &resp); err != nil {
		return "", err
	}
	c.logger.Debug().Str("tradeable", order.Tradeable).Str("order_id", resp.OrderID).Msg("order placed")
	return resp.OrderID, nil
}

// CancelOrder cancels the order uid on tradeable in unit. It reports true
// when the server accepted the cancellation. A rejection is returned as a
// domain error along with false.
func (c *Client) CancelOrder(ctx context.Context, uid, tradeable, unit string) (bool, error) {
	op := core.OpLegacyCancelOrder
	if err := c.call(ctx, op, cancelOrderParams(uid, tradeable, unit), nil); err != nil {
		return false, err
	}
	return true, nil
}

// OpenOrders lists the caller's open orders. A missing, null or malformed
// orders field yields an empty list. Only a failed call or a non-success
// envelope is an error.
func (c *Client) OpenOrders(ctx context.Context) ([]OrderInfo, error) {
	op := core.OpLegacyOpenOrders
	var resp openOrdersResponse
	if err := c.call(ctx, op, nil, &resp); err != nil {
		return nil, err
	}

	orders := []OrderInfo{}
	raw := bytes.TrimSpace(resp.Orders)
	if len(raw) == 0 {
		return orders, nil
	}

	var rows []cfOrderInfo
	if err := sonic.Unmarshal(raw, &rows); err != nil {
		c.logger.Debug().Err(err).Msg("open orders unreadable, returning none")
		return orders, nil
	}
	for i := range rows {
		o, err := c.normalizer.NormalizeOrderInfo(&rows[i])
		if err != nil {
			c.logger.Debug().Err(err).Msg("open orders unreadable, returning none")
			return []OrderInfo{}, nil
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

// Trades returns the most recent trades of the account. WithNumber sets how
// many; the default is DefaultTradesNumber.
func (c *Client) Trades(ctx context.Context, opts ...exchange.Option) ([]TradeInfo, error) {
	op := core.OpLegacyTrades
	o := exchange.ApplyOptions(opts...)

	var resp tradesResponse
	if err := c.call(ctx, op, tradesParams(o.Number), &resp); err != nil {
		return nil, err
	}

	out := make([]TradeInfo, 0, len(resp.Trades))
	for i := range resp.Trades {
		t, err := c.normalizer.NormalizeTradeInfo(&resp.Trades[i])
		if err != nil {
			return nil, core.NewDecodeError(op.Path(), err)
		}
		out = append(out, *t)
	}
	return out, nil
}

func requireValue(op core.Operation, n json.Number) (*apd.Decimal, error) {
	d := new(apd.Decimal)
	if err := core.RequireDecimal(d, n.String()); err != nil {
		return nil, core.NewDecodeError(op.Path(), err)
	}
	return d, nil
}
