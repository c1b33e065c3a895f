package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/store"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/pkg/utils"
)

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show executed trade history",
		Long:  "Display executed trades from the state store, most recent first.",
		Example: `  aate history
  aate history --symbol BTCUSDT
  aate history --limit 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.load(cmd); err != nil {
				return err
			}
			output := NewOutput(cmd)
			symbol, _ := cmd.Flags().GetString("symbol")
			limit, _ := cmd.Flags().GetInt("limit")

			if !app.Config.StoreEnabled() {
				output.Warning("Persistence is disabled (store.path = \"off\"), no history available")
				return nil
			}

			st, err := store.NewSQLiteStore(app.Config.Store.Path)
			if err != nil {
				return fmt.Errorf("opening state store: %w", err)
			}
			defer st.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			trades, err := st.TradeHistory(ctx, symbol, limit)
			if err != nil {
				return fmt.Errorf("reading trade history: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}

			if len(trades) == 0 {
				output.Info("No trades recorded")
				return nil
			}

			output.Bold("Trade History")
			output.Println()

			table := NewTable(output, "Time", "Symbol", "Side", "Quantity", "Price", "Fees", "Realized P&L")
			for _, trade := range trades {
				side := string(trade.Side)
				if trade.Side == models.SideBuy {
					side = output.Green(side)
				} else if trade.Side == models.SideSell {
					side = output.Red(side)
				}

				table.AddRow(
					FormatDateTime(trade.Timestamp),
					trade.Symbol,
					side,
					utils.FormatQuantity(trade.Quantity),
					utils.FormatUSD(trade.Price),
					utils.FormatUSD(trade.Fees),
					output.FormatPnL(trade.RealizedPnL),
				)
			}
			table.Render()

			output.Println()
			output.Dim("%d trades shown", len(trades))
			return nil
		},
	}

	cmd.Flags().String("symbol", "", "filter by symbol")
	cmd.Flags().Int("limit", 20, "maximum number of trades to show")
	return cmd
}
