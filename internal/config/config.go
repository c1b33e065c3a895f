// Package config provides configuration management for the trading engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Trading     TradingConfig  `mapstructure:"trading"`
	Policy      PolicyConfig   `mapstructure:"policy"`
	Learning    LearningConfig `mapstructure:"learning"`
	Feed        FeedConfig     `mapstructure:"feed"`
	Store       StoreConfig    `mapstructure:"store"`
	Log         LogConfig      `mapstructure:"log"`
	Credentials Credentials    `mapstructure:"-"` // Loaded separately
}

// TradingConfig holds trading and risk parameters.
type TradingConfig struct {
	Symbols            []string      `mapstructure:"symbols"`
	InitialCash        float64       `mapstructure:"initial_cash"`
	DecisionInterval   time.Duration `mapstructure:"decision_interval"`
	MaxPositionSize    float64       `mapstructure:"max_position_size"`    // fraction of equity per position
	MaxDailyLoss       float64       `mapstructure:"max_daily_loss"`       // fraction of start-of-day equity
	StopLossPct        float64       `mapstructure:"stop_loss_pct"`        // adverse move fraction per position
	LookbackPeriod     int           `mapstructure:"lookback_period"`      // bars retained per symbol
	MinVolumeThreshold float64       `mapstructure:"min_volume_threshold"` // bars below this are dropped
	ExchangeFee        float64       `mapstructure:"exchange_fee"`         // fee fraction per fill
	APITimeout         time.Duration `mapstructure:"api_timeout"`
}

// PolicyConfig holds decision policy configuration.
type PolicyConfig struct {
	Mode    string  `mapstructure:"mode"`    // "infer", "explore"
	Epsilon float64 `mapstructure:"epsilon"` // exploration rate in explore mode
	Seed    int64   `mapstructure:"seed"`    // 0 means time-seeded
}

// LearningConfig holds online adaptation configuration.
type LearningConfig struct {
	BufferSize    int     `mapstructure:"buffer_size"`
	TrainInterval int     `mapstructure:"train_interval"` // new records between training runs
	BatchSize     int     `mapstructure:"batch_size"`
	LearningRate  float64 `mapstructure:"learning_rate"`
	MaxParam      float64 `mapstructure:"max_param"` // sanity bound on checkpoint parameters
}

// FeedConfig holds market data feed configuration.
type FeedConfig struct {
	Source string `mapstructure:"source"` // "sim", "websocket"
	URL    string `mapstructure:"url"`
}

// StoreConfig holds state store configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"` // SQLite path; "off" disables persistence
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"` // empty logs to console only
}

// Credentials holds per-exchange API credentials.
type Credentials struct {
	Exchanges map[string]ExchangeCredentials `mapstructure:"exchanges"`
}

// ExchangeCredentials holds one exchange's API credentials.
type ExchangeCredentials struct {
	APIKey      string `mapstructure:"api_key"`
	APISecret   string `mapstructure:"api_secret"`
	APIPassword string `mapstructure:"api_password"`
}

// Empty reports whether no credential fields are set.
func (c ExchangeCredentials) Empty() bool {
	return c.APIKey == "" && c.APISecret == "" && c.APIPassword == ""
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/aate"
	}
	return filepath.Join(home, ".config", "aate")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	// Load main config
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Load credentials; a missing file is created as a template and is not
	// an error, the engine runs against public or simulated feeds without it.
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// The store path defaults next to the config so a fresh install persists
	// state without any editing. "off" disables persistence explicitly.
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(configDir, "aate.db")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template
			return createTemplateConfig(configDir, name)
		}
		return err
	}

	return v.Unmarshal(target)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("trading.symbols", []string{"BTCUSDT", "ETHUSDT"})
	v.SetDefault("trading.initial_cash", 100000.0)
	v.SetDefault("trading.decision_interval", "5s")
	v.SetDefault("trading.max_position_size", 0.10)
	v.SetDefault("trading.max_daily_loss", 0.02)
	v.SetDefault("trading.stop_loss_pct", 0.02)
	v.SetDefault("trading.lookback_period", 100)
	v.SetDefault("trading.min_volume_threshold", 1000000.0)
	v.SetDefault("trading.exchange_fee", 0.001)
	v.SetDefault("trading.api_timeout", "30s")

	v.SetDefault("policy.mode", "explore")
	v.SetDefault("policy.epsilon", 0.1)
	v.SetDefault("policy.seed", 0)

	v.SetDefault("learning.buffer_size", 10000)
	v.SetDefault("learning.train_interval", 50)
	v.SetDefault("learning.batch_size", 32)
	v.SetDefault("learning.learning_rate", 0.01)
	v.SetDefault("learning.max_param", 100.0)

	v.SetDefault("feed.source", "sim")
	v.SetDefault("feed.url", "wss://stream.binance.com:9443/stream")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AATE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("AATE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("AATE_FEED_SOURCE"); v != "" {
		cfg.Feed.Source = v
	}
	if v := os.Getenv("AATE_FEED_URL"); v != "" {
		cfg.Feed.URL = v
	}
	if v := os.Getenv("AATE_POLICY_MODE"); v != "" {
		cfg.Policy.Mode = v
	}
}

// ExchangeCredentialsFor returns credentials for the named exchange.
// Environment variables of the form <EXCHANGE>_API_KEY, <EXCHANGE>_API_SECRET
// and <EXCHANGE>_API_PASSWORD take precedence over the credentials file.
func (c *Config) ExchangeCredentialsFor(exchange string) ExchangeCredentials {
	creds := c.Credentials.Exchanges[strings.ToLower(exchange)]

	prefix := strings.ToUpper(exchange)
	if v := os.Getenv(prefix + "_API_KEY"); v != "" {
		creds.APIKey = v
	}
	if v := os.Getenv(prefix + "_API_SECRET"); v != "" {
		creds.APISecret = v
	}
	if v := os.Getenv(prefix + "_API_PASSWORD"); v != "" {
		creds.APIPassword = v
	}

	return creds
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Trading.Symbols) == 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "at least one trading symbol is required")
	}
	for _, s := range c.Trading.Symbols {
		if strings.TrimSpace(s) == "" {
			return apperrors.Wrap(apperrors.ErrConfigInvalid, "trading symbols must be non-empty")
		}
	}
	if c.Trading.InitialCash <= 0 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "initial_cash must be positive, got %v", c.Trading.InitialCash)
	}
	if c.Trading.DecisionInterval <= 0 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "decision_interval must be positive, got %v", c.Trading.DecisionInterval)
	}
	if c.Trading.MaxPositionSize <= 0 || c.Trading.MaxPositionSize > 1 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "max_position_size must be in (0, 1], got %v", c.Trading.MaxPositionSize)
	}
	if c.Trading.MaxDailyLoss <= 0 || c.Trading.MaxDailyLoss > 1 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "max_daily_loss must be in (0, 1], got %v", c.Trading.MaxDailyLoss)
	}
	if c.Trading.StopLossPct <= 0 || c.Trading.StopLossPct > 1 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "stop_loss_pct must be in (0, 1], got %v", c.Trading.StopLossPct)
	}
	if c.Trading.LookbackPeriod <= 0 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "lookback_period must be positive, got %v", c.Trading.LookbackPeriod)
	}
	if c.Trading.MinVolumeThreshold < 0 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "min_volume_threshold must be non-negative, got %v", c.Trading.MinVolumeThreshold)
	}
	if c.Trading.ExchangeFee < 0 || c.Trading.ExchangeFee >= 1 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "exchange_fee must be in [0, 1), got %v", c.Trading.ExchangeFee)
	}
	if c.Trading.APITimeout <= 0 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "api_timeout must be positive, got %v", c.Trading.APITimeout)
	}

	if c.Policy.Mode != "infer" && c.Policy.Mode != "explore" {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "policy mode must be 'infer' or 'explore', got %q", c.Policy.Mode)
	}
	if c.Policy.Epsilon < 0 || c.Policy.Epsilon > 1 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "epsilon must be in [0, 1], got %v", c.Policy.Epsilon)
	}

	if c.Learning.BufferSize <= 0 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "buffer_size must be positive, got %v", c.Learning.BufferSize)
	}
	if c.Learning.TrainInterval <= 0 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "train_interval must be positive, got %v", c.Learning.TrainInterval)
	}
	if c.Learning.BatchSize <= 0 || c.Learning.BatchSize > c.Learning.BufferSize {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "batch_size must be in [1, buffer_size], got %v", c.Learning.BatchSize)
	}
	if c.Learning.LearningRate <= 0 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "learning_rate must be positive, got %v", c.Learning.LearningRate)
	}
	if c.Learning.MaxParam <= 0 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "max_param must be positive, got %v", c.Learning.MaxParam)
	}

	if c.Feed.Source != "sim" && c.Feed.Source != "websocket" {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "feed source must be 'sim' or 'websocket', got %q", c.Feed.Source)
	}
	if c.Feed.Source == "websocket" && c.Feed.URL == "" {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "feed url is required for the websocket source")
	}

	return nil
}

// StoreEnabled reports whether state persistence is configured.
func (c *Config) StoreEnabled() bool {
	return c.Store.Path != "" && c.Store.Path != "off"
}
