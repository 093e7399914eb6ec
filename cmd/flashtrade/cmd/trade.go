package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"flashtrade-sim/internal/models"
	"flashtrade-sim/internal/trader"
)

var (
	tradeLimit    string
	tradeStrategy string
)

var tradeCmd = &cobra.Command{
	Use:   "trade <buy|sell> <symbol> <quantity>",
	Short: "Place a single order against the stored account",
	Long: `Place a single order at the current registry price, or at --limit.

Examples:
  flashtrade trade buy ETH 2
  flashtrade trade sell UNI 40 --limit 9.10`,
	Args: cobra.ExactArgs(3),
	RunE: runTrade,
}

var closeCmd = &cobra.Command{
	Use:   "close <trade-id>",
	Short: "Close an open position at the current registry price",
	Args:  cobra.ExactArgs(1),
	RunE:  runClose,
}

func init() {
	rootCmd.AddCommand(tradeCmd)
	rootCmd.AddCommand(closeCmd)

	tradeCmd.Flags().StringVar(&tradeLimit, "limit", "", "limit price; market order when empty")
	tradeCmd.Flags().StringVar(&tradeStrategy, "strategy", "", "strategy label (default trading.strategy)")
}

func runTrade(cmd *cobra.Command, args []string) error {
	qty, err := decimal.NewFromString(args[2])
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", args[2], err)
	}
	req := trader.OrderRequest{
		Side:      models.Side(strings.ToLower(args[0])),
		Symbol:    args[1],
		Quantity:  qty,
		OrderType: trader.OrderTypeMarket,
		Strategy:  tradeStrategy,
	}
	if tradeLimit != "" {
		limit, err := decimal.NewFromString(tradeLimit)
		if err != nil {
			return fmt.Errorf("invalid limit %q: %w", tradeLimit, err)
		}
		req.OrderType = trader.OrderTypeLimit
		req.LimitPrice = limit
	}

	ctx := context.Background()
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	defer a.mirror.Attach(a.store)()

	trade, err := a.engine().PlaceOrder(req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Filled %s %s %s @ %s (id %s)\n",
		trade.Side, trade.Quantity, trade.Symbol, trade.EntryPrice.StringFixed(2), trade.ID)
	fmt.Fprintf(out, "Balance: %s\n", a.store.State().User.VirtualBalance.StringFixed(2))
	return nil
}

func runClose(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	defer a.mirror.Attach(a.store)()

	trade, err := a.engine().ClosePosition(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Closed %s %s @ %s, P&L %s\n",
		trade.ID, trade.Symbol, trade.ExitPrice.Decimal.StringFixed(2), trade.ProfitAndLoss.StringFixed(2))
	fmt.Fprintf(out, "Balance: %s\n", a.store.State().User.VirtualBalance.StringFixed(2))
	return nil
}
