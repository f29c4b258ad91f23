package cmd

import (
	"fmt"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cfkit/pkg/core"
	"cfkit/pkg/exchange"
	"cfkit/pkg/session"
)

// defaultAccount is the account built from the top-level api_key and
// api_secret settings.
const defaultAccount = "default"

// baseConfig builds the shared session configuration from viper.
func (a *app) baseConfig() *core.Config {
	cfg := core.DefaultConfig()
	if u := a.v.GetString("base_url"); u != "" {
		cfg.BaseURL = u
	}
	if u := a.v.GetString("sandbox_url"); u != "" {
		cfg.SandboxURL = u
	}
	cfg.Sandbox = a.v.GetBool("sandbox")
	if a.v.IsSet("min_interval") {
		cfg.MinInterval = a.v.GetDuration("min_interval")
	}
	if a.v.IsSet("timeout") {
		cfg.Timeout = a.v.GetDuration("timeout")
	}
	if n := a.v.GetInt("budget.requests"); n > 0 {
		cfg.BudgetRequests = n
		cfg.BudgetPeriod = a.v.GetDuration("budget.period")
	}
	if a.v.GetBool("circuit_breaker.enabled") {
		cfg.WithCircuitBreaker(
			a.v.GetInt("circuit_breaker.fail_threshold"),
			a.v.GetInt("circuit_breaker.success_threshold"),
			a.v.GetDuration("circuit_breaker.timeout"),
		)
	}
	cfg.LogLevel = a.logger.GetLevel().String()
	return cfg
}

// accountKeys is the key material of one account: the primary pair from
// api_key and api_secret, further pairs from keys[] and how requests
// rotate across them.
type accountKeys struct {
	primary  *core.Credentials
	extra    []*core.Credentials
	rotation string
}

// all returns every configured pair, primary first.
func (k *accountKeys) all() []*core.Credentials {
	if k.primary == nil {
		return k.extra
	}
	return append([]*core.Credentials{k.primary}, k.extra...)
}

// configure applies the account keys to cfg.
func (k *accountKeys) configure(cfg *core.Config) *core.Config {
	cfg.WithCredentials(k.primary)
	if k.rotation != "" || len(k.extra) > 0 {
		rotation := k.rotation
		if rotation == "" {
			rotation = cfg.KeyRotation
		}
		cfg.WithKeys(rotation, k.extra...)
	}
	return cfg
}

type keyEntry struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

// readKeys reads api_key, api_secret, keys[] and rotation from v.
func readKeys(v *viper.Viper) (*accountKeys, error) {
	keys := &accountKeys{rotation: v.GetString("rotation")}
	if key := v.GetString("api_key"); key != "" {
		keys.primary = &core.Credentials{APIKey: key, APISecret: v.GetString("api_secret")}
	}

	var entries []keyEntry
	if err := v.UnmarshalKey("keys", &entries); err != nil {
		return nil, err
	}
	for _, e := range entries {
		keys.extra = append(keys.extra, &core.Credentials{APIKey: e.APIKey, APISecret: e.APISecret})
	}
	return keys, nil
}

// credentials returns the key material by account name. The default
// account comes from the top-level settings, named accounts from
// accounts.<name>. Accounts without any key pair are left out.
func (a *app) credentials() (map[string]*accountKeys, error) {
	creds := make(map[string]*accountKeys)
	keys, err := readKeys(a.v)
	if err != nil {
		return nil, core.NewConfigurationError("config", "read keys", err)
	}
	if len(keys.all()) > 0 {
		creds[defaultAccount] = keys
	}

	for name := range a.v.GetStringMap("accounts") {
		sub := a.v.Sub("accounts." + name)
		if sub == nil {
			continue
		}
		keys, err := readKeys(sub)
		if err != nil {
			return nil, core.NewConfigurationError("config", fmt.Sprintf("read keys of account %s", name), err)
		}
		creds[name] = keys
	}
	return creds, nil
}

// openAccounts builds one session per account and registers them in a
// container. The default account is always present so public endpoints
// work without credentials.
func (a *app) openAccounts() (*exchange.Container, error) {
	container := exchange.NewContainer()
	creds, err := a.credentials()
	if err != nil {
		return nil, err
	}
	if _, ok := creds[defaultAccount]; !ok {
		creds[defaultAccount] = &accountKeys{}
	}

	for name, keys := range creds {
		cfg := keys.configure(a.baseConfig())
		sess, err := session.New(cfg, session.WithLogger(a.logger.With().Str("account", name).Logger()))
		if err != nil {
			_ = container.Close()
			return nil, fmt.Errorf("account %s: %w", name, err)
		}
		container.Register(name, sess)
	}
	return container, nil
}

// withQuerier opens the accounts, hands the selected one to fn and closes
// everything afterwards.
func (a *app) withQuerier(fn func(q exchange.Querier) error) error {
	container, err := a.openAccounts()
	if err != nil {
		return err
	}
	defer container.Close() // nolint:errcheck // best-effort cleanup

	q, err := container.Get(a.account)
	if err != nil {
		return core.NewConfigurationError("account", err.Error(), err)
	}
	err = fn(q)
	if sess, ok := q.(*session.Session); ok {
		a.logStats(sess)
	}
	return err
}

// logStats writes the limiter, breaker and key counters of sess at debug
// level.
func (a *app) logStats(sess *session.Session) {
	limiter := sess.LimiterMetrics()
	breaker := sess.BreakerMetrics()
	disabled := 0
	for _, k := range sess.Keys() {
		if k.Disabled {
			disabled++
		}
	}
	a.logger.Debug().
		Str("account", a.account).
		Int64("dispatched", limiter.DispatchedRequests).
		Dur("waited", limiter.TotalWait).
		Str("breaker", breaker.CurrentState).
		Int64("breaker_rejected", breaker.RejectedRequests).
		Int("keys_disabled", disabled).
		Msg("session stats")
}

func (a *app) accountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List configured accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := a.credentials()
			if err != nil {
				return err
			}
			names := make([]string, 0, len(creds))
			for name := range creds {
				names = append(names, name)
			}
			slices.Sort(names)

			type row struct {
				Name     string `json:"name"`
				Key      string `json:"key"`
				Rotation string `json:"rotation,omitempty"`
			}
			rows := make([]row, 0, len(names))
			for _, name := range names {
				keys := creds[name]
				rotation := ""
				if len(keys.all()) > 1 {
					rotation = keys.rotation
					if rotation == "" {
						rotation = core.RotateOnRateLimit
					}
				}
				for _, c := range keys.all() {
					rows = append(rows, row{Name: name, Key: core.MaskKey(c.APIKey), Rotation: rotation})
				}
			}
			if a.asJSON {
				return printJSON(cmd.OutOrStdout(), rows)
			}

			t := newTable(table.Row{"Account", "API Key", "Rotation"})
			for _, r := range rows {
				t.AppendRow(table.Row{r.Name, r.Key, r.Rotation})
			}
			return render(cmd.OutOrStdout(), t)
		},
	}
}
