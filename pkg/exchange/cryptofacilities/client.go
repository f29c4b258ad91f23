package cryptofacilities

import (
	"context"
	"errors"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/rs/zerolog"

	"cfkit/pkg/core"
	"cfkit/pkg/exchange"
)

// Client exposes the v2 endpoints. It holds no connection state of its own;
// rate limiting, signing and transport belong to the Querier.
type Client struct {
	q          exchange.Querier
	normalizer *Normalizer
	logger     zerolog.Logger
}

// Option is a functional option for configuring the Client.
type Option func(*Options)

// Options holds configuration options for the Client.
type Options struct {
	Logger zerolog.Logger
}

// WithLogger returns an option that sets the logger for the client.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// New creates a v2 client on top of q, usually a *session.Session.
func New(q exchange.Querier, opts ...Option) *Client {
	options := &Options{
		Logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Client{
		q:          q,
		normalizer: NewNormalizer(),
		logger:     options.Logger.With().Str("api", "v2").Logger(),
	}
}

// call runs op and decodes the response into v after checking the envelope.
func (c *Client) call(ctx context.Context, op core.Operation, params core.Params, v any) error {
	body, err := c.q.Query(ctx, op.Path(), params, op.RequiresAuth())
	if err != nil {
		return err
	}
	return core.DecodeEnvelope(op.Path(), body, v)
}

// ServerTime returns the exchange clock as reported with the instrument list.
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	op := core.OpInstruments
	body, err := c.q.Query(ctx, op.Path(), nil, op.RequiresAuth())
	if err != nil {
		return time.Time{}, err
	}
	env, err := core.CheckEnvelope(op.Path(), body)
	if err != nil {
		return time.Time{}, err
	}
	if env.ServerTime == "" {
		return time.Time{}, core.NewDecodeError(op.Path(), errors.New("serverTime missing"))
	}
	ts, err := core.ParseTime(env.ServerTime)
	if err != nil {
		return time.Time{}, core.NewDecodeError(op.Path(), err)
	}
	return ts, nil
}

// Instruments lists all futures contracts and indices.
func (c *Client) Instruments(ctx context.Context) ([]Instrument, error) {
	op := core.OpInstruments
	var resp instrumentsResponse
	if err := c.call(ctx, op, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]Instrument, 0, len(resp.Instruments))
	for i := range resp.Instruments {
		inst, err := c.normalizer.NormalizeInstrument(&resp.Instruments[i])
		if err != nil {
			return nil, core.NewDecodeError(op.Path(), err)
		}
		out = append(out, *inst)
	}
	return out, nil
}

// Tickers returns market data for every instrument.
func (c *Client) Tickers(ctx context.Context) ([]Ticker, error) {
	op := core.OpTickers
	var resp tickersResponse
	if err := c.call(ctx, op, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]Ticker, 0, len(resp.Tickers))
	for i := range resp.Tickers {
		t, err := c.normalizer.NormalizeTicker(&resp.Tickers[i])
		if err != nil {
			return nil, core.NewDecodeError(op.Path(), err)
		}
		out = append(out, *t)
	}
	return out, nil
}

// OrderBook returns the full book of a futures contract.
func (c *Client) OrderBook(ctx context.Context, symbol string) (*OrderBook, error) {
	op := core.OpOrderBook
	var resp orderBookResponse
	if err := c.call(ctx, op, orderBookParams(symbol), &resp); err != nil {
		return nil, err
	}

	book, err := c.normalizer.NormalizeOrderBook(&resp.OrderBook)
	if err != nil {
		return nil, core.NewDecodeError(op.Path(), err)
	}
	return book, nil
}

// History returns recent trades of symbol. WithLastTime limits the result
// to trades after the given instant.
func (c *Client) History(ctx context.Context, symbol string, opts ...exchange.Option) ([]HistoryEntry, error) {
	op := core.OpHistory
	var resp historyResponse
	if err := c.call(ctx, op, historyParams(symbol, exchange.ApplyOptions(opts...)), &resp); err != nil {
		return nil, err
	}

	out := make([]HistoryEntry, 0, len(resp.History))
	for i := range resp.History {
		h, err := c.normalizer.NormalizeHistory(&resp.History[i])
		if err != nil {
			return nil, core.NewDecodeError(op.Path(), err)
		}
		out = append(out, *h)
	}
	return out, nil
}

// Account returns balances and margin figures.
func (c *Client) Account(ctx context.Context) (*Account, error) {
	op := core.OpAccount
	var resp accountResponse
	if err := c.call(ctx, op, nil, &resp); err != nil {
		return nil, err
	}

	acct, err := c.normalizer.NormalizeAccount(op.Path(), &resp.Account)
	if err != nil {
		if core.IsDecodeError(err) {
			return nil, err
		}
		return nil, core.NewDecodeError(op.Path(), err)
	}
	return acct, nil
}

// SendOrder validates req and places it. A rejected order still returns a
// SendStatus; its Status field carries the reason.
func (c *Client) SendOrder(ctx context.Context, req *exchange.OrderRequest) (*SendStatus, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	op := core.OpSendOrder
	var resp sendOrderResponse
	if err := c.call(ctx, op, sendOrderParams(req), &resp); err != nil {
		return nil, err
	}

	status, err := c.normalizer.NormalizeSendStatus(&resp.SendStatus)
	if err != nil {
		return nil, core.NewDecodeError(op.Path(), err)
	}
	c.logger.Debug().Str("symbol", req.Symbol).Str("order_id", status.OrderID).Str("status", status.Status).Msg("order sent")
	return status, nil
}

// CancelOrder cancels the order with the given id.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (*CancelStatus, error) {
	if orderID == "" {
		return nil, core.NewConfigurationError("cancelorder", "order id is required", nil)
	}

	op := core.OpCancelOrder
	var resp cancelOrderResponse
	if err := c.call(ctx, op, cancelOrderParams(orderID), &resp); err != nil {
		return nil, err
	}

	status, err := c.normalizer.NormalizeCancelStatus(&resp.CancelStatus)
	if err != nil {
		return nil, core.NewDecodeError(op.Path(), err)
	}
	return status, nil
}

// OpenOrders lists the caller's open orders on all contracts.
func (c *Client) OpenOrders(ctx context.Context) ([]Order, error) {
	op := core.OpOpenOrders
	var resp openOrdersResponse
	if err := c.call(ctx, op, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]Order, 0, len(resp.OpenOrders))
	for i := range resp.OpenOrders {
		o, err := c.normalizer.NormalizeOrder(&resp.OpenOrders[i])
		if err != nil {
			return nil, core.NewDecodeError(op.Path(), err)
		}
		out = append(out, *o)
	}
	return out, nil
}

// Fills lists recent fills. WithLastTime limits the result to fills after
// the given instant.
func (c *Client) Fills(ctx context.Context, opts ...exchange.Option) ([]Fill, error) {
	op := core.OpFills
	var resp fillsResponse
	if err := c.call(ctx, op, fillsParams(exchange.ApplyOptions(opts...)), &resp); err != nil {
		return nil, err
	}

	out := make([]Fill, 0, len(resp.Fills))
	for i := range resp.Fills {
		f, err := c.normalizer.NormalizeFill(&resp.Fills[i])
		if err != nil {
			return nil, core.NewDecodeError(op.Path(), err)
		}
		out = append(out, *f)
	}
	return out, nil
}

// OpenPositions lists the caller's open positions.
func (c *Client) OpenPositions(ctx context.Context) ([]Position, error) {
	op := core.OpOpenPositions
	var resp openPositionsResponse
	if err := c.call(ctx, op, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]Position, 0, len(resp.OpenPositions))
	for i := range resp.OpenPositions {
		p, err := c.normalizer.NormalizePosition(&resp.OpenPositions[i])
		if err != nil {
			return nil, core.NewDecodeError(op.Path(), err)
		}
		out = append(out, *p)
	}
	return out, nil
}

// Withdraw requests a transfer of amount units of currency to targetAddress.
func (c *Client) Withdraw(ctx context.Context, targetAddress, currency string, amount apd.Decimal) (*Withdrawal, error) {
	if targetAddress == "" || currency == "" {
		return nil, core.NewConfigurationError("withdrawal", "target address and currency are required", nil)
	}
	if amount.Sign() <= 0 {
		return nil, core.NewConfigurationError("withdrawal", "amount must be positive, got "+amount.String(), nil)
	}

	op := core.OpWithdrawal
	var resp withdrawalResponse
	if err := c.call(ctx, op, withdrawalParams(targetAddress, currency, amount.Text('f')), &resp); err != nil {
		return nil, err
	}

	w, err := c.normalizer.NormalizeWithdrawal(&resp.Withdrawal)
	if err != nil {
		return nil, core.NewDecodeError(op.Path(), err)
	}
	return w, nil
}

// Transfers lists deposits and withdrawals. WithLastTime limits the result
// to transfers after the given instant.
func (c *Client) Transfers(ctx context.Context, opts ...exchange.Option) ([]Transfer, error) {
	op := core.OpTransfers
	var resp transfersResponse
	if err := c.call(ctx, op, transfersParams(exchange.ApplyOptions(opts...)), &resp); err != nil {
		return nil, err
	}

	out := make([]Transfer, 0, len(resp.Transfers))
	for i := range resp.Transfers {
		tr, err := c.normalizer.NormalizeTransfer(&resp.Transfers[i])
		if err != nil {
			return nil, core.NewDecodeError(op.Path(), err)
		}
		out = append(out, *tr)
	}
	return out, nil
}
