package cmd

import (
	"slices"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"cfkit/pkg/exchange"
	"cfkit/pkg/exchange/cryptofacilities"
)

func (a *app) instrumentsCmd() *cobra.Command {
	var tradeableOnly bool

	cmd := &cobra.Command{
		Use:   "instruments",
		Short: "List futures contracts and indices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuerier(func(q exchange.Querier) error {
				insts, err := cryptofacilities.New(q, cryptofacilities.WithLogger(a.logger)).Instruments(cmd.Context())
				if err != nil {
					return err
				}
				if tradeableOnly {
					insts = slices.DeleteFunc(insts, func(i cryptofacilities.Instrument) bool { return !i.Tradeable })
				}
				if a.asJSON {
					return printJSON(cmd.OutOrStdout(), insts)
				}

				t := newTable(table.Row{"Symbol", "Type", "Underlying", "Tick", "Size", "Last Trading"})
				for i := range insts {
					in := &insts[i]
					t.AppendRow(table.Row{in.Symbol, in.Type.String(), in.Underlying, num(&in.TickSize), num(&in.ContractSize), ts(in.LastTradingTime)})
				}
				return render(cmd.OutOrStdout(), t)
			})
		},
	}
	cmd.Flags().BoolVar(&tradeableOnly, "tradeable", false, "only list tradeable instruments")
	return cmd
}

func (a *app) tickersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tickers [symbol...]",
		Short: "Show market data, optionally filtered by symbol",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuerier(func(q exchange.Querier) error {
				tickers, err := cryptofacilities.New(q, cryptofacilities.WithLogger(a.logger)).Tickers(cmd.Context())
				if err != nil {
					return err
				}
				if len(args) > 0 {
					tickers = slices.DeleteFunc(tickers, func(tk cryptofacilities.Ticker) bool {
						return !slices.Contains(args, tk.Symbol)
					})
				}
				if a.asJSON {
					return printJSON(cmd.OutOrStdout(), tickers)
				}

				t := newTable(table.Row{"Symbol", "Bid", "Ask", "Last", "Mark", "Vol 24h", "Suspended"})
				for i := range tickers {
					tk := &tickers[i]
					t.AppendRow(table.Row{tk.Symbol, num(&tk.Bid), num(&tk.Ask), num(&tk.Last), num(&tk.MarkPrice), num(&tk.Vol24h), tk.Suspended})
				}
				return render(cmd.OutOrStdout(), t)
			})
		},
	}
}

func (a *app) orderBookCmd() *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "orderbook <symbol>",
		Short: "Show the order book of a contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuerier(func(q exchange.Querier) error {
				book, err := cryptofacilities.New(q, cryptofacilities.WithLogger(a.logger)).OrderBook(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if a.asJSON {
					return printJSON(cmd.OutOrStdout(), book)
				}

				t := newTable(table.Row{"Side", "Price", "Size"})
				bookRows(t, "ask", book.Asks, depth)
				t.AppendSeparator()
				bookRows(t, "bid", book.Bids, depth)
				return render(cmd.OutOrStdout(), t)
			})
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 10, "levels per side, 0 for all")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "history <symbol>",
		Short: "Show recent public trades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuerier(func(q exchange.Querier) error {
				history, err := cryptofacilities.New(q, cryptofacilities.WithLogger(a.logger)).History(cmd.Context(), args[0], sinceOption(since)...)
				if err != nil {
					return err
				}
				if a.asJSON {
					return printJSON(cmd.OutOrStdout(), history)
				}

				t := newTable(table.Row{"Time", "Trade", "Price", "Size"})
				for i := range history {
					h := &history[i]
					t.AppendRow(table.Row{ts(h.Time), h.TradeID, num(&h.Price), num(&h.Size)})
				}
				return render(cmd.OutOrStdout(), t)
			})
		},
	}
	cmd.Flags().DurationVar(&since, "since", 0, "only trades newer than this, e.g. 1h")
	return cmd
}
