package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "flashtrade",
	Short: "A paper-trading simulator with a random-walk market",
	Long: `Flashtrade simulates a trading account against a small set of crypto assets.

It provides tools for:
  - Serving the simulator over HTTP and websocket
  - Placing and closing orders from the command line
  - Replaying the stored ledger into account statistics
  - Listing the learning modules`,
	SilenceUsage: true,
}

var configDir string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", "./configs", "directory holding config.yml")
}
