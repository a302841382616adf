// Command mpimeasure runs measured workloads on process groups and analyzes
// the resulting measurement logs.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"mpimeasure/pkg/config"
	"mpimeasure/pkg/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Default()
	var configPath string

	root := &cobra.Command{
		Use:           "mpimeasure",
		Short:         "Measure run times and synchronization skew across a process group",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configPath != "" {
				if err := cfg.Load(configPath, cmd.Flags()); err != nil {
					return err
				}
			}
			return cfg.ApplyLogLevel()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML file with run parameters; explicit flags take precedence.")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Set log level (trace, debug, info, error).")

	root.AddCommand(
		newSimulateCmd(cfg),
		newRankCmd(cfg),
		newReportCmd(),
		newRegionsCmd(),
		newCutsCmd(),
	)
	return root
}
