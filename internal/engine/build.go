package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/config"
	apperrors "github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/errors"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/execution"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/feed"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/learning"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/market"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/notify"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/policy"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/portfolio"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/risk"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/store"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/stream"
)

// Paper venue characteristics of the built-in simulated endpoint.
const (
	simLatency   = 25 * time.Millisecond
	simFillDelay = 50 * time.Millisecond
	simSlices    = 2
	simSlippage  = 0.0005
)

// Build assembles a ready-to-run engine from application configuration. The
// returned cleanup releases the state store; call it after Run returns.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger, notifier notify.Notifier) (*Engine, func(), error) {
	st := openStore(cfg, logger)
	cleanup := func() {
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("Closing state store failed")
		}
	}

	ledger := restoreLedger(ctx, cfg, st, logger)

	agg, err := market.NewAggregator(market.AggregatorConfig{
		Lookback:  cfg.Trading.LookbackPeriod,
		MinVolume: cfg.Trading.MinVolumeThreshold,
		Logger:    logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	pol, err := policy.NewEngine(policy.EngineConfig{
		Mode:            policy.Mode(cfg.Policy.Mode),
		Epsilon:         cfg.Policy.Epsilon,
		Seed:            cfg.Policy.Seed,
		MaxPositionSize: cfg.Trading.MaxPositionSize,
		MaxParam:        cfg.Learning.MaxParam,
		Logger:          logger,
	}, policy.NewSeedCheckpoint(market.FeatureCount))
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	gate := risk.NewGate(risk.Limits{
		MaxPositionSize: cfg.Trading.MaxPositionSize,
		MaxDailyLoss:    cfg.Trading.MaxDailyLoss,
		StopLossPct:     cfg.Trading.StopLossPct,
	}, logger)

	endpoint := execution.NewSimEndpoint(execution.SimEndpointConfig{
		Latency:      simLatency,
		FillDelay:    simFillDelay,
		PartialFills: simSlices,
		Slippage:     simSlippage,
	})
	router := execution.NewRouter(execution.RouterConfig{
		ExchangeFee: cfg.Trading.ExchangeFee,
		APITimeout:  cfg.Trading.APITimeout,
		Logger:      logger,
	}, endpoint, ledger)

	learner := learning.NewLearner(learning.LearnerConfig{
		BufferSize:    cfg.Learning.BufferSize,
		TrainInterval: cfg.Learning.TrainInterval,
		BatchSize:     cfg.Learning.BatchSize,
		LearningRate:  cfg.Learning.LearningRate,
		MaxParam:      cfg.Learning.MaxParam,
		Seed:          cfg.Policy.Seed,
		Logger:        logger,
	}, pol)

	src, err := buildFeed(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	eng, err := New(EngineConfig{
		Symbols:          cfg.Trading.Symbols,
		DecisionInterval: cfg.Trading.DecisionInterval,
		Logger:           logger,
	}, Components{
		Feed:       src,
		Aggregator: agg,
		Policy:     pol,
		Gate:       gate,
		Router:     router,
		Ledger:     ledger,
		Learner:    learner,
		Store:      st,
		Hub:        stream.NewHub(stream.HubConfig{Logger: logger}),
		Notifier:   notifier,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return eng, cleanup, nil
}

// openStore never fails: a store that cannot open degrades to offline mode,
// the same way the original system ran without its document database.
func openStore(cfg *config.Config, logger zerolog.Logger) store.StateStore {
	if !cfg.StoreEnabled() {
		logger.Info().Msg("Persistence disabled, running in memory")
		return store.NewNopStore()
	}

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		logger.Warn().Err(err).
			Str("path", cfg.Store.Path).
			Msg("State store unavailable, continuing without persistence")
		return store.NewNopStore()
	}
	logger.Info().Str("path", cfg.Store.Path).Msg("State store opened")
	return st
}

// restoreLedger resumes from the most recent persisted snapshot when one
// exists, otherwise starts fresh from the configured cash.
func restoreLedger(ctx context.Context, cfg *config.Config, st store.StateStore, logger zerolog.Logger) *portfolio.Ledger {
	lcfg := portfolio.LedgerConfig{
		InitialCash: cfg.Trading.InitialCash,
		Logger:      logger,
	}

	state, found, err := st.LoadPortfolioSnapshot(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Loading portfolio snapshot failed, starting fresh")
		return portfolio.NewLedger(lcfg)
	}
	if !found {
		return portfolio.NewLedger(lcfg)
	}

	logger.Info().
		Float64("cash", state.Cash).
		Int("positions", len(state.Positions)).
		Time("as_of", state.AsOf).
		Msg("Portfolio restored from snapshot")
	return portfolio.NewLedgerFromState(lcfg, state)
}

func buildFeed(cfg *config.Config, logger zerolog.Logger) (feed.Feed, error) {
	switch cfg.Feed.Source {
	case "sim":
		return feed.NewSimFeed(feed.SimFeedConfig{
			Symbols:  cfg.Trading.Symbols,
			Interval: cfg.Trading.DecisionInterval,
			Seed:     cfg.Policy.Seed,
			Logger:   logger,
		}), nil
	case "websocket":
		return feed.NewBinanceFeed(feed.BinanceFeedConfig{
			URL:     cfg.Feed.URL,
			Symbols: cfg.Trading.Symbols,
			Logger:  logger,
		}), nil
	default:
		return nil, apperrors.Wrapf(apperrors.ErrConfigInvalid, "unknown feed source %q", cfg.Feed.Source)
	}
}
