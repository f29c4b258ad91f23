package ordermanager

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"cfkit/pkg/core"
	"cfkit/pkg/exchange"
)

// OrderBuilder provides a fluent interface for constructing order requests.
// The first parse error is kept and reported on Build.
//
// Example:
//
//	req, err := ordermanager.NewOrderBuilder("fi_xbtusd_180615").
//	    Buy().
//	    Limit().
//	    Price("9400").
//	    Size("1").
//	    Build()
type OrderBuilder struct {
	req *exchange.OrderRequest
	err error
}

// NewOrderBuilder creates a limit buy builder for symbol.
func NewOrderBuilder(symbol string) *OrderBuilder {
	return &OrderBuilder{
		req: &exchange.OrderRequest{
			Symbol: symbol,
			Side:   core.SideBuy,
			Type:   core.TypeLimit,
		},
	}
}

// Side sets the order side.
func (b *OrderBuilder) Side(side core.OrderSide) *OrderBuilder {
	if b.err != nil {
		return b
	}
	b.req.Side = side
	return b
}

func (b *OrderBuilder) Buy() *OrderBuilder {
	return b.Side(core.SideBuy)
}

func (b *OrderBuilder) Sell() *OrderBuilder {
	return b.Side(core.SideSell)
}

// Type sets the order type.
func (b *OrderBuilder) Type(orderType core.OrderType) *OrderBuilder {
	if b.err != nil {
		return b
	}
	b.req.Type = orderType
	return b
}

func (b *OrderBuilder) Limit() *OrderBuilder {
	return b.Type(core.TypeLimit)
}

// Stop makes a stop order triggered at stopPrice.
func (b *OrderBuilder) Stop(stopPrice string) *OrderBuilder {
	b.Type(core.TypeStop)
	if b.err != nil {
		return b
	}
	var stop apd.Decimal
	if err := parse(&stop, stopPrice); err != nil {
		b.err = fmt.Errorf("parse stop price: %w", err)
		return b
	}
	b.req.StopPrice = &stop
	return b
}

// Price sets the limit price from a string representation.
func (b *OrderBuilder) Price(price string) *OrderBuilder {
	if b.err != nil {
		return b
	}
	if err := parse(&b.req.LimitPrice, price); err != nil {
		b.err = fmt.Errorf("parse price: %w", err)
	}
	return b
}

// PriceDecimal sets the limit price from an apd.Decimal value.
func (b *OrderBuilder) PriceDecimal(price apd.Decimal) *OrderBuilder {
	if b.err != nil {
		return b
	}
	b.req.LimitPrice.Set(&price)
	return b
}

// Size sets the number of contracts from a string representation.
func (b *OrderBuilder) Size(size string) *OrderBuilder {
	if b.err != nil {
		return b
	}
	if err := parse(&b.req.Size, size); err != nil {
		b.err = fmt.Errorf("parse size: %w", err)
	}
	return b
}

// SizeDecimal sets the number of contracts from an apd.Decimal value.
func (b *OrderBuilder) SizeDecimal(size apd.Decimal) *OrderBuilder {
	if b.err != nil {
		return b
	}
	b.req.Size.Set(&size)
	return b
}

// Build validates and returns the request.
func (b *OrderBuilder) Build() (*exchange.OrderRequest, error) {
	if b.err != nil {
		return nil, core.NewConfigurationError("order", b.err.Error(), b.err)
	}
	if err := b.req.Validate(); err != nil {
		return nil, err
	}
	return b.req, nil
}

func parse(dest *apd.Decimal, s string) error {
	_, _, err := apd.BaseContext.SetString(dest, s)
	return err
}
