package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrTemplateCreated reports that a missing config file was replaced with a
// template the user should edit before the next start.
var ErrTemplateCreated = errors.New("created template")

const configTemplate = `# AATE Configuration

[trading]
# Symbols to trade
symbols = ["BTCUSDT", "ETHUSDT"]
# Starting cash for a fresh portfolio
initial_cash = 100000.0
# Cadence of simulated bars and the floor between decision cycles
decision_interval = "5s"
# Maximum position size as a fraction of equity
max_position_size = 0.10
# Maximum daily loss as a fraction of start-of-day equity
max_daily_loss = 0.02
# Stop-loss threshold as an adverse move fraction per position
stop_loss_pct = 0.02
# Number of bars retained per symbol for feature computation
lookback_period = 100
# Bars with volume below this are dropped
min_volume_threshold = 1000000.0
# Exchange fee as a fraction of notional per fill
exchange_fee = 0.001
# Budget for one order submission including retries
api_timeout = "30s"

[policy]
# Decision mode: "infer" always picks the highest-scoring action,
# "explore" occasionally picks a random one
mode = "explore"
# Exploration rate in explore mode (0.0 - 1.0)
epsilon = 0.1
# RNG seed for reproducible runs; 0 seeds from the clock
seed = 0

[learning]
# Capacity of the experience replay buffer
buffer_size = 10000
# New experience records between training runs
train_interval = 50
# Records sampled per training run
batch_size = 32
# SGD step size
learning_rate = 0.01
# Candidate checkpoints with any parameter beyond this bound are discarded
max_param = 100.0

[feed]
# Market data source: "sim" or "websocket"
source = "sim"
# Stream endpoint for the websocket source
url = "wss://stream.binance.com:9443/stream"

[store]
# SQLite database path; empty uses aate.db in the config directory,
# "off" disables persistence
path = ""

[log]
# Log level: trace, debug, info, warn, error
level = "info"
# Log file path; empty logs to console only
file = ""
`

const credentialsTemplate = `# AATE Exchange Credentials
# WARNING: Keep this file secure! Do not commit to version control.
#
# Environment variables of the form <EXCHANGE>_API_KEY, <EXCHANGE>_API_SECRET
# and <EXCHANGE>_API_PASSWORD take precedence over this file.
# Public market data and simulated trading need no credentials.

[exchanges.binance]
api_key = ""
api_secret = ""
api_password = ""
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return fmt.Errorf("config file not found, %w at %s", ErrTemplateCreated, path)
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Use restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	// A fresh credentials file is not an error, simulated and public feeds
	// work without keys.
	return nil
}
