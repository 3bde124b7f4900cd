package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vitwit/walletkit"
	"github.com/vitwit/walletkit/logger"
	"github.com/vitwit/walletkit/utils"
)

const (
	configFlag   = "config"
	logLevelFlag = "log-level"
	outputFlag   = "output"
	timeoutFlag  = "timeout"
)

var (
	// Flags and WALLETKIT_* environment variables.
	settings = viper.New()

	log logger.Logger = logger.NoopLogger{}
)

var rootCmd = &cobra.Command{
	Use:   "walletkit",
	Short: "Inspect namespace negotiation and request routing of a wallet config",
	Long: `walletkit loads a wallet config and answers questions about it: which
chains and accounts it exposes, how a session proposal would be negotiated,
how a session request would be routed and which namespaces a wallet-originated
proposal would carry.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := settings.BindPFlags(cmd.Flags()); err != nil {
			return fmt.Errorf("failed to bind flags: %w", err)
		}
		log = logger.NewZapLogger(settings.GetString(logLevelFlag))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if s, ok := log.(interface{ Sync() error }); ok {
			_ = s.Sync()
		}
	},
}

func init() {
	settings.SetEnvPrefix("WALLETKIT")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	flags.String(configFlag, "walletkit.yaml", "wallet config file (YAML or JSON)")
	flags.String(logLevelFlag, "warn", "log level: debug, info, warn or error")
	flags.StringP(outputFlag, "o", "json", "output format: json or yaml")
	flags.Duration(timeoutFlag, 0, "timeout for inline request handling, overrides the config")

	rootCmd.AddCommand(
		newCatalogCmd(),
		newNegotiateCmd(),
		newDispatchCmd(),
		newRouteCmd(),
		newNamespacesCmd(),
		newVersionCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadWallet builds a Wallet from the configured file. The log level flag
// or variable, when set, replaces the file's.
func loadWallet() (*walletkit.Wallet, error) {
	path := settings.GetString(configFlag)
	cfg, err := utils.LoadWalletConfig(path)
	if err != nil {
		return nil, err
	}
	if settings.IsSet(logLevelFlag) {
		cfg.LogLevel = settings.GetString(logLevelFlag)
	}

	opts := []walletkit.Option{walletkit.WithLogger(log)}
	if d := settings.GetDuration(timeoutFlag); d > 0 {
		opts = append(opts, walletkit.WithTimeout(d))
	}

	w, err := walletkit.New(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	log.Debug("wallet loaded", map[string]any{"config": path, "chains": w.Catalog().Chains()})
	return w, nil
}

func render(out io.Writer, v any) error {
	switch format := settings.GetString(outputFlag); format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
