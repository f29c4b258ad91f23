package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"cfkit/internal/auth"
	"cfkit/pkg/core"
)

func (a *app) signCmd() *cobra.Command {
	var (
		params string
		nonce  int64
	)

	cmd := &cobra.Command{
		Use:   "sign <path>",
		Short: "Print the authentication headers for a request without sending it",
		Long: `Compute the APIKey, Nonce and Authent headers the client would send for
path and params. Useful to compare against another implementation. The
secret itself is never printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := a.credentials()
			if err != nil {
				return err
			}
			keys, ok := accounts[a.account]
			if !ok || len(keys.all()) == 0 {
				return core.NewConfigurationError("sign", fmt.Sprintf("account %q has no credentials", a.account), core.ErrNoCredentials)
			}
			creds := keys.all()[0]
			signer, err := auth.NewSigner(creds.APIKey, creds.APISecret)
			if err != nil {
				return err
			}

			if nonce == 0 {
				nonce = auth.NewClockNonce().Next()
			}
			encoded := core.ParseParams(params).Encode()
			signed := signer.Sign(args[0], encoded, nonce)

			if a.asJSON {
				headers := signed.Headers()
				headers[auth.HeaderAPIKey] = core.MaskKey(signed.APIKey)
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"path":    signed.Path,
					"body":    signed.Body,
					"headers": headers,
				})
			}

			t := newTable(table.Row{"Header", "Value"})
			t.AppendRow(table.Row{auth.HeaderAPIKey, core.MaskKey(signed.APIKey)})
			t.AppendRow(table.Row{auth.HeaderNonce, auth.FormatNonce(signed.Nonce)})
			t.AppendRow(table.Row{auth.HeaderAuthent, signed.Authent})
			return render(cmd.OutOrStdout(), t)
		},
	}
	cmd.Flags().StringVar(&params, "params", "", "encoded parameters exactly as they will be sent")
	cmd.Flags().Int64Var(&nonce, "nonce", 0, "nonce to sign with (default: current time in ms)")
	return cmd
}
