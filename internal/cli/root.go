// Package cli provides the command-line interface for the trading engine.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/config"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/logging"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/pkg/utils"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-08-21"
)

// App holds the application dependencies resolved once per invocation.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// load resolves configuration and the logger on first use. Commands that can
// run without a valid config (version, config init) never call it.
func (a *App) load(cmd *cobra.Command) error {
	if a.Config != nil {
		return nil
	}

	configDir, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}

	logCfg := logging.DefaultLogConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.FilePath = cfg.Log.File
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logCfg.Level = "debug"
	}

	a.Config = cfg
	a.Logger = logging.NewLoggerWithConfig(logCfg)
	return nil
}

// Execute runs the root command. It is the entry point called from main.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{}

	rootCmd := &cobra.Command{
		Use:   "aate",
		Short: "AATE - autonomous adaptive trading engine",
		Long: `AATE is an autonomous trading decision engine.

It aggregates market data into observations, decides actions through a learned
policy, enforces risk limits before every order, and adapts the policy online
from realized trade outcomes.

Use 'aate config init' to create a configuration, then 'aate run' to start
the engine against the simulated feed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/aate)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("AATE v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.load(cmd); err != nil {
				return err
			}
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create configuration templates",
		Long:  "Create config.toml and credentials.toml templates in the config directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			configDir, _ := cmd.Flags().GetString("config")
			if configDir == "" {
				configDir = config.DefaultConfigDir()
			}

			_, err := config.Load(configDir)
			if err == nil {
				output.Info("Configuration already exists in %s", configDir)
				return nil
			}
			if errors.Is(err, config.ErrTemplateCreated) {
				output.Success("✓ Created configuration templates in %s", configDir)
				output.Dim("Edit config.toml, then start the engine with 'aate run'")
				return nil
			}
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Trading Configuration")
	output.Printf("  Symbols:           %v\n", cfg.Trading.Symbols)
	output.Printf("  Initial Cash:      %s\n", utils.FormatUSD(cfg.Trading.InitialCash))
	output.Printf("  Decision Interval: %s\n", cfg.Trading.DecisionInterval)
	output.Printf("  Lookback Period:   %d bars\n", cfg.Trading.LookbackPeriod)
	output.Printf("  Min Volume:        %.0f\n", cfg.Trading.MinVolumeThreshold)
	output.Printf("  Exchange Fee:      %.3f%%\n", cfg.Trading.ExchangeFee*100)
	output.Printf("  API Timeout:       %s\n", cfg.Trading.APITimeout)
	output.Println()

	output.Bold("Risk Limits")
	output.Printf("  Max Position:      %.1f%% of equity\n", cfg.Trading.MaxPositionSize*100)
	output.Printf("  Max Daily Loss:    %.1f%% of SOD equity\n", cfg.Trading.MaxDailyLoss*100)
	output.Printf("  Stop Loss:         %.1f%%\n", cfg.Trading.StopLossPct*100)
	output.Println()

	output.Bold("Policy")
	output.Printf("  Mode:              %s\n", cfg.Policy.Mode)
	output.Printf("  Epsilon:           %.2f\n", cfg.Policy.Epsilon)
	output.Printf("  Seed:              %d\n", cfg.Policy.Seed)
	output.Println()

	output.Bold("Learning")
	output.Printf("  Buffer Size:       %d\n", cfg.Learning.BufferSize)
	output.Printf("  Train Interval:    %d records\n", cfg.Learning.TrainInterval)
	output.Printf("  Batch Size:        %d\n", cfg.Learning.BatchSize)
	output.Printf("  Learning Rate:     %.4f\n", cfg.Learning.LearningRate)
	output.Println()

	output.Bold("Feed & Store")
	output.Printf("  Feed Source:       %s\n", cfg.Feed.Source)
	if cfg.Feed.Source == "websocket" {
		output.Printf("  Feed URL:          %s\n", cfg.Feed.URL)
	}
	if cfg.StoreEnabled() {
		output.Printf("  Store:             %s\n", cfg.Store.Path)
	} else {
		output.Printf("  Store:             %s\n", output.Yellow("off (in-memory only)"))
	}
}
