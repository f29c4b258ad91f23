package cmd

import (
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"cfkit/pkg/aggregator"
	"cfkit/pkg/core"
)

func (a *app) portfolioCmd() *cobra.Command {
	var positions bool

	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Sum balances or net positions across all configured accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := a.openAccounts()
			if err != nil {
				return err
			}
			defer container.Close() // nolint:errcheck // best-effort cleanup

			creds, err := a.credentials()
			if err != nil {
				return err
			}
			if _, ok := creds[defaultAccount]; !ok {
				container.Unregister(defaultAccount)
			}
			if len(container.Names()) == 0 {
				return core.NewConfigurationError("portfolio", "no account has credentials", core.ErrNoCredentials)
			}

			agg := aggregator.NewAggregatorWithLogger(container, a.logger)
			if positions {
				return a.printNetPositions(cmd, agg)
			}
			return a.printTotals(cmd, agg)
		},
	}
	cmd.Flags().BoolVar(&positions, "positions", false, "net open positions instead of summing balances")
	return cmd
}

func (a *app) printTotals(cmd *cobra.Command, agg *aggregator.Aggregator) error {
	totals, err := agg.TotalBalances(cmd.Context())
	if err != nil {
		return err
	}
	for name, err := range totals.Failed {
		a.logger.Warn().Err(err).Str("account", name).Msg("account left out of totals")
	}
	if a.asJSON {
		return printJSON(cmd.OutOrStdout(), totals)
	}

	keys := make([]string, 0, len(totals.Balances))
	for key := range totals.Balances {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	t := newTable(table.Row{"Balance", "Total"})
	for _, key := range keys {
		t.AppendRow(table.Row{key, num(totals.Balances[key])})
	}
	t.AppendFooter(table.Row{"accounts", strings.Join(totals.Accounts, ", ")})
	return render(cmd.OutOrStdout(), t)
}

func (a *app) printNetPositions(cmd *cobra.Command, agg *aggregator.Aggregator) error {
	nets, err := agg.NetPositions(cmd.Context())
	if err != nil {
		return err
	}
	if a.asJSON {
		return printJSON(cmd.OutOrStdout(), nets)
	}

	t := newTable(table.Row{"Symbol", "Net Size", "Accounts"})
	for i := range nets {
		t.AppendRow(table.Row{nets[i].Symbol, num(&nets[i].Size), strings.Join(nets[i].Accounts, ", ")})
	}
	return render(cmd.OutOrStdout(), t)
}
