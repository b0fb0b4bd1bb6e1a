package main

import (
	"fmt"
	"waste-dispatch-service/internal/app"
	"waste-dispatch-service/internal/config"
	"waste-dispatch-service/internal/platform/obs"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "dbtool",
	Short:         "Schema, seed and scheduling operations against the dispatch ledger",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "optional YAML or JSON config file")
}

// withApp loads configuration, opens the ledger and runs fn with it.
func withApp(fn func(cmd *cobra.Command, cfg *config.Config, a *app.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		a, err := app.New(cfg, obs.NewLogger("dbtool"))
		if err != nil {
			return err
		}
		defer a.Close()

		return fn(cmd, cfg, a)
	}
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
