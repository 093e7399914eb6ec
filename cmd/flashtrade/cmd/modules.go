package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"flashtrade-sim/internal/config"
	"flashtrade-sim/internal/learning"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the learning modules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configDir)
		if err != nil {
			return err
		}
		modules, err := learning.LoadFile(cfg.Learning.ModulesFile)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tTITLE\tCONTENT")
		for _, m := range modules {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", m.ID, m.Kind, m.Title, m.Content)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}
