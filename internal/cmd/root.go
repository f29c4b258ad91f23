// Package cmd implements the cfkit command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cfkit/pkg/core"
)

// EnvPrefix is the prefix of every environment variable cfkit reads.
const EnvPrefix = "CFKIT"

// Exit codes returned by ExitCode.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
	ExitTransport     = 3
	ExitDomain        = 4
)

// Version info set by main package
var versionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// app carries what the subcommands share. Each root command owns its own
// viper instance so commands can be built repeatedly in tests.
type app struct {
	v      *viper.Viper
	logger zerolog.Logger

	cfgFile string
	verbose bool
	asJSON  bool
	account string
}

// Execute builds the root command and runs it with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd returns the cfkit command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "cfkit",
		Short: "Crypto Facilities derivatives REST client",
		Long: `cfkit queries the Crypto Facilities derivatives REST API.

Credentials and endpoints come from flags, an optional YAML config file and
CFKIT_* environment variables, in that order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./cfkit.yaml or $XDG_CONFIG_HOME/cfkit/cfkit.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	flags.BoolVar(&a.asJSON, "json", false, "print JSON instead of tables")
	flags.StringVarP(&a.account, "account", "a", defaultAccount, "named account from the config file")
	flags.String("base-url", core.ProductionURL, "API base URL")
	flags.Bool("sandbox", false, "use the sandbox environment")
	flags.Duration("min-interval", core.DefaultMinInterval, "minimum spacing between requests")
	flags.Duration("timeout", 10*time.Second, "timeout of one HTTP exchange")

	_ = a.v.BindPFlag("base_url", flags.Lookup("base-url"))
	_ = a.v.BindPFlag("sandbox", flags.Lookup("sandbox"))
	_ = a.v.BindPFlag("min_interval", flags.Lookup("min-interval"))
	_ = a.v.BindPFlag("timeout", flags.Lookup("timeout"))
	_ = a.v.BindPFlag("verbose", flags.Lookup("verbose"))

	rootCmd.AddCommand(
		a.instrumentsCmd(),
		a.tickersCmd(),
		a.orderBookCmd(),
		a.historyCmd(),
		a.accountCmd(),
		a.openOrdersCmd(),
		a.fillsCmd(),
		a.positionsCmd(),
		a.transfersCmd(),
		a.queryCmd(),
		a.signCmd(),
		a.endpointsCmd(),
		a.accountsCmd(),
		a.portfolioCmd(),
		a.orderCmd(),
		versionCmd(),
	)
	return rootCmd
}

// initConfig reads in config file and ENV variables if set.
func (a *app) initConfig(stderr io.Writer) error {
	level := zerolog.InfoLevel
	if a.verbose {
		level = zerolog.DebugLevel
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()

	a.v.SetEnvPrefix(EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("cfkit")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			a.v.AddConfigPath(filepath.Join(dir, "cfkit"))
		}
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return core.NewConfigurationError("config", fmt.Sprintf("read config: %v", err), err)
		}
		a.logger.Debug().Msg("no config file found, using flags and environment")
	} else {
		a.logger.Debug().Str("path", a.v.ConfigFileUsed()).Msg("using config file")
	}
	return nil
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case core.IsConfigurationError(err):
		return ExitConfiguration
	case core.IsTransportError(err):
		return ExitTransport
	case core.IsDomainError(err):
		return ExitDomain
	}
	return ExitFailure
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "cfkit %s (commit %s, built %s)\n",
				versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
			return err
		},
	}
}
