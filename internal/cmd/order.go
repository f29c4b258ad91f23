package cmd

import (
	"errors"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"cfkit/pkg/core"
	"cfkit/pkg/exchange"
	"cfkit/pkg/exchange/cryptofacilities"
	"cfkit/pkg/ordermanager"
)

func (a *app) orderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Place and cancel orders",
	}
	cmd.AddCommand(a.orderPlaceCmd(), a.orderCancelCmd(), a.orderCancelAllCmd())
	return cmd
}

// withManager hands fn an order manager synced with the account's open
// orders.
func (a *app) withManager(cmd *cobra.Command, fn func(m *ordermanager.Manager) error) error {
	return a.withQuerier(func(q exchange.Querier) error {
		m := ordermanager.NewManager(cryptofacilities.New(q, cryptofacilities.WithLogger(a.logger)), ordermanager.ManagerConfig{})
		m.SetLogger(a.logger)
		if err := m.Sync(cmd.Context()); err != nil {
			return err
		}
		return fn(m)
	})
}

func (a *app) orderPlaceCmd() *cobra.Command {
	var side, size, price, stop string

	cmd := &cobra.Command{
		Use:   "place <symbol>",
		Short: "Send a limit or stop order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderSide, err := core.ParseOrderSide(side)
			if err != nil {
				return core.NewConfigurationError("order", err.Error(), err)
			}
			b := ordermanager.NewOrderBuilder(args[0]).Side(orderSide).Price(price).Size(size)
			if stop != "" {
				b = b.Stop(stop)
			}
			req, err := b.Build()
			if err != nil {
				return err
			}

			return a.withQuerier(func(q exchange.Querier) error {
				m := ordermanager.NewManager(cryptofacilities.New(q, cryptofacilities.WithLogger(a.logger)), ordermanager.ManagerConfig{})
				m.SetLogger(a.logger)
				order, err := m.PlaceOrder(cmd.Context(), req)
				if err != nil {
					return err
				}
				return a.printOrders(cmd, []ordermanager.Order{order})
			})
		},
	}
	cmd.Flags().StringVar(&side, "side", "buy", "buy or sell")
	cmd.Flags().StringVar(&size, "size", "", "number of contracts")
	cmd.Flags().StringVar(&price, "price", "", "limit price")
	cmd.Flags().StringVar(&stop, "stop", "", "stop price; makes a stop order")
	return cmd
}

func (a *app) orderCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel one open order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(cmd, func(m *ordermanager.Manager) error {
				if err := m.CancelOrder(cmd.Context(), args[0]); err != nil {
					var kindErr *core.Error
					if errors.As(err, &kindErr) {
						return err
					}
					return core.NewConfigurationError("order", err.Error(), err)
				}
				order, _ := m.GetOrder(args[0])
				return a.printOrders(cmd, []ordermanager.Order{order})
			})
		},
	}
}

func (a *app) orderCancelAllCmd() *cobra.Command {
	var symbol string

	cmd := &cobra.Command{
		Use:   "cancel-all",
		Short: "Cancel every open order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(cmd, func(m *ordermanager.Manager) error {
				err := m.CancelAllOrders(cmd.Context(), symbol)
				if printErr := a.printOrders(cmd, m.GetOrders(ordermanager.OrderFilter{Symbol: symbol})); printErr != nil {
					return printErr
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "only orders for this symbol")
	return cmd
}

func (a *app) printOrders(cmd *cobra.Command, orders []ordermanager.Order) error {
	if a.asJSON {
		type row struct {
			ID       string `json:"order_id"`
			Symbol   string `json:"symbol"`
			Side     string `json:"side"`
			Status   string `json:"status"`
			Reason   string `json:"reason,omitempty"`
			Filled   string `json:"filled"`
			Unfilled string `json:"unfilled"`
		}
		rows := make([]row, 0, len(orders))
		for i := range orders {
			o := &orders[i]
			rows = append(rows, row{orderID(o), o.Request.Symbol, o.Request.Side.String(), o.Status.String(), o.Reason, num(&o.Filled), num(&o.Unfilled)})
		}
		return printJSON(cmd.OutOrStdout(), rows)
	}

	t := newTable(table.Row{"Order", "Symbol", "Side", "Limit", "Filled", "Unfilled", "Status"})
	for i := range orders {
		o := &orders[i]
		status := o.Status.String()
		if o.Reason != "" {
			status += " (" + o.Reason + ")"
		}
		t.AppendRow(table.Row{orderID(o), o.Request.Symbol, o.Request.Side.String(), num(&o.Request.LimitPrice), num(&o.Filled), num(&o.Unfilled), status})
	}
	return render(cmd.OutOrStdout(), t)
}

// orderID falls back to the local id for orders refused before the
// exchange assigned one.
func orderID(o *ordermanager.Order) string {
	if o.ID != "" {
		return o.ID
	}
	return o.LocalID
}
