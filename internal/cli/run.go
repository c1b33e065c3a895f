package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/engine"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/notify"
)

func newRunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the trading engine",
		Long: `Run the autonomous trading engine.

The engine streams market data, derives observations, decides actions through
the learned policy, submits risk-approved orders, and retrains the policy in
the background from realized outcomes. It runs until interrupted or until the
optional duration elapses, then drains cleanly.`,
		Example: `  aate run
  aate run --duration 1h
  aate run --quiet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.load(cmd); err != nil {
				return err
			}
			output := NewOutput(cmd)
			duration, _ := cmd.Flags().GetDuration("duration")
			quiet, _ := cmd.Flags().GetBool("quiet")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			var notifier notify.Notifier = notify.NewNoOpNotifier()
			if !quiet && !output.IsJSON() {
				term := notify.NewTerminalNotifier(notify.TerminalConfig{})
				term.Start(ctx)
				defer term.Stop()
				notifier = term
			}

			eng, cleanup, err := engine.Build(ctx, app.Config, app.Logger, notifier)
			if err != nil {
				return err
			}
			defer cleanup()

			if !output.IsJSON() {
				printRunBanner(output, app, duration)
			}

			started := time.Now()
			if err := eng.Run(ctx); err != nil {
				return err
			}

			stats := eng.Stats()
			if output.IsJSON() {
				return output.JSON(stats)
			}

			output.Println()
			output.Bold("Session Summary")
			output.Printf("  Runtime:         %s\n", FormatDuration(time.Since(started)))
			output.Printf("  Bars ingested:   %d\n", stats.Bars)
			output.Printf("  Decision cycles: %d\n", stats.Cycles)
			output.Printf("  Holds:           %d\n", stats.Holds)
			output.Printf("  Orders:          %d\n", stats.Orders)
			output.Printf("  Trades:          %d\n", stats.Trades)
			output.Printf("  Risk rejections: %d\n", stats.Rejections)
			return nil
		},
	}

	cmd.Flags().Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().Bool("quiet", false, "suppress terminal event notifications")
	return cmd
}

func printRunBanner(output *Output, app *App, duration time.Duration) {
	cfg := app.Config

	output.Bold("AATE v%s", Version)
	output.Println()
	output.Printf("  Symbols:           %s\n", strings.Join(cfg.Trading.Symbols, ", "))
	output.Printf("  Feed:              %s\n", cfg.Feed.Source)
	output.Printf("  Policy mode:       %s\n", cfg.Policy.Mode)
	output.Printf("  Decision interval: %s\n", cfg.Trading.DecisionInterval)
	output.Printf("  Max position:      %.1f%% of equity\n", cfg.Trading.MaxPositionSize*100)
	output.Printf("  Daily loss limit:  %.1f%%\n", cfg.Trading.MaxDailyLoss*100)
	if cfg.StoreEnabled() {
		output.Printf("  Store:             %s\n", cfg.Store.Path)
	} else {
		output.Printf("  Store:             %s\n", output.Yellow("off (in-memory only)"))
	}
	output.Println()

	if duration > 0 {
		output.Dim("Running for %s, Ctrl-C stops earlier", FormatDuration(duration))
	} else {
		output.Dim("Press Ctrl-C to stop")
	}
	output.Println()
}
