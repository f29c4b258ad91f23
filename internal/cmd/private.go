package cmd

import (
	"slices"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"cfkit/pkg/exchange"
	"cfkit/pkg/exchange/cryptofacilities"
)

func (a *app) accountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show balances and margin figures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuerier(func(q exchange.Querier) error {
				acct, err := cryptofacilities.New(q, cryptofacilities.WithLogger(a.logger)).Account(cmd.Context())
				if err != nil {
					return err
				}
				if a.asJSON {
					return printJSON(cmd.OutOrStdout(), acct)
				}

				names := make([]string, 0, len(acct.Balances))
				for name := range acct.Balances {
					names = append(names, name)
				}
				slices.Sort(names)

				t := newTable(table.Row{"Balance", "Amount"})
				for _, name := range names {
					t.AppendRow(table.Row{name, num(acct.Balances[name])})
				}
				t.AppendSeparator()
				t.AppendRow(table.Row{"available funds", num(&acct.Auxiliary.AvailableFunds)})
				t.AppendRow(table.Row{"portfolio value", num(&acct.Auxiliary.PortfolioValue)})
				t.AppendRow(table.Row{"pnl", num(&acct.Auxiliary.PnL)})
				t.AppendSeparator()
				t.AppendRow(table.Row{"initial margin", num(&acct.MarginRequirements.InitialMargin)})
				t.AppendRow(table.Row{"maintenance margin", num(&acct.MarginRequirements.MaintenanceMargin)})
				return render(cmd.OutOrStdout(), t)
			})
		},
	}
}

func (a *app) openOrdersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "openorders",
		Short: "List open orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuerier(func(q exchange.Querier) error {
				orders, err := cryptofacilities.New(q, cryptofacilities.WithLogger(a.logger)).OpenOrders(cmd.Context())
				if err != nil {
					return err
				}
				if a.asJSON {
					return printJSON(cmd.OutOrStdout(), orders)
				}

				t := newTable(table.Row{"Order", "Symbol", "Side", "Type", "Limit", "Stop", "Filled", "Unfilled", "Status"})
				for i := range orders {
					o := &orders[i]
					t.AppendRow(table.Row{o.OrderID, o.Symbol, o.Side.String(), o.Type.String(), num(&o.LimitPrice), num(o.StopPrice), num(&o.FilledSize), num(&o.UnfilledSize), o.Status})
				}
				return render(cmd.OutOrStdout(), t)
			})
		},
	}
}

func (a *app) fillsCmd() *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "fills",
		Short: "List recent fills",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuerier(func(q exchange.Querier) error {
				fills, err := cryptofacilities.New(q, cryptofacilities.WithLogger(a.logger)).Fills(cmd.Context(), sinceOption(since)...)
				if err != nil {
					return err
				}
				if a.asJSON {
					return printJSON(cmd.OutOrStdout(), fills)
				}

				t := newTable(table.Row{"Time", "Fill", "Order", "Symbol", "Side", "Size", "Price"})
				for i := range fills {
					f := &fills[i]
					t.AppendRow(table.Row{ts(f.FillTime), f.FillID, f.OrderID, f.Symbol, f.Side.String(), num(&f.Size), num(&f.Price)})
				}
				return render(cmd.OutOrStdout(), t)
			})
		},
	}
	cmd.Flags().DurationVar(&since, "since", 0, "only fills newer than this, e.g. 24h")
	return cmd
}

func (a *app) positionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "List open positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuerier(func(q exchange.Querier) error {
				positions, err := cryptofacilities.New(q, cryptofacilities.WithLogger(a.logger)).OpenPositions(cmd.Context())
				if err != nil {
					return err
				}
				if a.asJSON {
					return printJSON(cmd.OutOrStdout(), positions)
				}

				t := newTable(table.Row{"Symbol", "Side", "Size", "Price", "Since"})
				for i := range positions {
					p := &positions[i]
					t.AppendRow(table.Row{p.Symbol, p.Side, num(&p.Size), num(&p.Price), ts(p.FillTime)})
				}
				return render(cmd.OutOrStdout(), t)
			})
		},
	}
}

func (a *app) transfersCmd() *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "transfers",
		Short: "List deposits and withdrawals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuerier(func(q exchange.Querier) error {
				transfers, err := cryptofacilities.New(q, cryptofacilities.WithLogger(a.logger)).Transfers(cmd.Context(), sinceOption(since)...)
				if err != nil {
					return err
				}
				if a.asJSON {
					return printJSON(cmd.OutOrStdout(), transfers)
				}

				t := newTable(table.Row{"Received", "Transfer", "Type", "Amount", "Status", "Completed"})
				for i := range transfers {
					tr := &transfers[i]
					t.AppendRow(table.Row{ts(tr.ReceivedTime), tr.TransferID, tr.TransferType, num(&tr.Amount), tr.Status, ts(tr.CompletedTime)})
				}
				return render(cmd.OutOrStdout(), t)
			})
		},
	}
	cmd.Flags().DurationVar(&since, "since", 0, "only transfers newer than this, e.g. 720h")
	return cmd
}

func sinceOption(since time.Duration) []exchange.Option {
	if since <= 0 {
		return nil
	}
	return []exchange.Option{exchange.WithLastTime(time.Now().Add(-since))}
}
