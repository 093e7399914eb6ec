package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flashtrade-sim/internal/trading"
)

var statsShowTrades bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Replay the stored ledger and print account statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVarP(&statsShowTrades, "trades", "t", false, "also list every trade")
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	state := a.store.State()
	st := trading.ComputeStats(state.Trades)
	if !st.Equal(state.Stats()) {
		a.log.Warn("Running aggregates disagree with a full rescan",
			zap.Int("rescan_trades", st.TotalTrades), zap.Int("running_trades", state.Stats().TotalTrades))
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Balance\t%s\n", state.User.VirtualBalance.StringFixed(2))
	fmt.Fprintf(w, "Initial balance\t%s\n", state.InitialBalance.StringFixed(2))
	fmt.Fprintf(w, "Total P&L\t%s\n", st.TotalPnL.StringFixed(2))
	fmt.Fprintf(w, "Win rate\t%.2f%%\n", st.WinRate)
	fmt.Fprintf(w, "Trades\t%d (%d closed, %d open)\n", st.TotalTrades, st.ClosedTrades, st.TotalTrades-st.ClosedTrades)
	fmt.Fprintf(w, "Winning / losing\t%d / %d\n", st.WinningTrades, st.LosingTrades)
	fmt.Fprintf(w, "Average win / loss\t%s / %s\n", st.AverageWin.StringFixed(2), st.AverageLoss.StringFixed(2))
	riskReward := "N/A"
	if st.RiskReward.Valid {
		riskReward = "1:" + st.RiskReward.Decimal.StringFixed(2)
	}
	fmt.Fprintf(w, "Risk/reward\t%s\n", riskReward)
	mostTraded := "-"
	if st.MostTradedSymbol != "" {
		mostTraded = st.MostTradedSymbol
	}
	fmt.Fprintf(w, "Most traded\t%s\n", mostTraded)

	maxQty := make([]string, 0, len(state.AssetOrder))
	for _, sym := range state.AssetOrder {
		maxQty = append(maxQty, sym+" "+state.MaxQuantity(sym).String())
	}
	fmt.Fprintf(w, "Max buy quantity\t%s\n", strings.Join(maxQty, ", "))

	if statsShowTrades && len(state.Trades) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "ID\tSIDE\tSYMBOL\tQTY\tENTRY\tEXIT\tP&L")
		for _, t := range state.Trades {
			exit := "-"
			if t.IsClosed() {
				exit = t.ExitPrice.Decimal.StringFixed(2)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				t.ID, t.Side, t.Symbol, t.Quantity, t.EntryPrice.StringFixed(2), exit, t.ProfitAndLoss.StringFixed(2))
		}
	}
	return w.Flush()
}
