// Package exchange holds the contract shared by the endpoint adapters.
package exchange

import (
	"context"
	"fmt"

	"github.com/cockroachdb/apd/v3"
	"github.com/go-playground/validator/v10"

	"cfkit/pkg/core"
)

// Querier is the request pipeline the adapters call. session.Session
// implements it.
type Querier interface {
	Query(ctx context.Context, path string, params core.Params, requireAuth bool) ([]byte, error)
}

// QuerierFunc adapts a function to Querier.
type QuerierFunc func(ctx context.Context, path string, params core.Params, requireAuth bool) ([]byte, error)

// Query calls f.
func (f QuerierFunc) Query(ctx context.Context, path string, params core.Params, requireAuth bool) ([]byte, error) {
	return f(ctx, path, params, requireAuth)
}

// OrderRequest contains the parameters required to place a new order.
type OrderRequest struct {
	Symbol     string `validate:"required"`
	Side       core.OrderSide
	Type       core.OrderType
	Size       apd.Decimal
	LimitPrice apd.Decimal
	// StopPrice is required for stop orders and ignored otherwise.
	StopPrice *apd.Decimal
}

var validate = validator.New()

// Validate checks the request before anything is sent.
func (r *OrderRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return core.NewConfigurationError("order", err.Error(), err)
	}
	if r.Size.Sign() <= 0 {
		return core.NewConfigurationError("order", fmt.Sprintf("size must be positive, got %s", r.Size.String()), nil)
	}
	if r.LimitPrice.Sign() <= 0 {
		return core.NewConfigurationError("order", fmt.Sprintf("limit price must be positive, got %s", r.LimitPrice.String()), nil)
	}
	if r.Type == core.TypeStop && (r.StopPrice == nil || r.StopPrice.Sign() <= 0) {
		return core.NewConfigurationError("order", "stop orders need a positive stop price", nil)
	}
	return nil
}
