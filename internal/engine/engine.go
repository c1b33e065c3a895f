// Package engine runs the closed decision loop: market data in, decisions
// through risk and execution, outcomes back into learning.
package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/errors"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/execution"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/feed"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/learning"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/logging"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/market"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/notify"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/policy"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/portfolio"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/risk"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/store"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/stream"
)

const (
	barBuffer        = 256
	experienceBuffer = 1024
	storeTimeout     = 5 * time.Second
)

// EngineConfig holds configuration for the run loop.
type EngineConfig struct {
	Symbols          []string
	DecisionInterval time.Duration // floor between decisions per symbol
	SnapshotInterval time.Duration // portfolio persistence cadence, default 1m
	Logger           zerolog.Logger
}

// Components are the collaborators the engine coordinates. All fields are
// required except Notifier, which defaults to a no-op.
type Components struct {
	Feed       feed.Feed
	Aggregator *market.Aggregator
	Policy     *policy.Engine
	Gate       *risk.Gate
	Router     *execution.Router
	Ledger     *portfolio.Ledger
	Learner    *learning.Learner
	Store      store.StateStore
	Hub        *stream.Hub
	Notifier   notify.Notifier
}

// Engine owns the two timelines of the system: per-symbol decision workers,
// each with at most one decision in flight, and a background trainer that
// consumes experience without ever blocking a decision.
type Engine struct {
	cfg    EngineConfig
	logger zerolog.Logger

	feed     feed.Feed
	agg      *market.Aggregator
	policy   *policy.Engine
	gate     *risk.Gate
	router   *execution.Router
	ledger   *portfolio.Ledger
	learner  *learning.Learner
	store    store.StateStore
	hub      *stream.Hub
	notifier notify.Notifier

	workers map[string]chan models.Observation
	expCh   chan models.ExperienceRecord

	bars       atomic.Uint64
	cycles     atomic.Uint64
	holds      atomic.Uint64
	orders     atomic.Uint64
	trades     atomic.Uint64
	rejections atomic.Uint64
	skipped    atomic.Uint64
	expDropped atomic.Uint64
}

// Stats are cumulative run counters.
type Stats struct {
	Bars       uint64 // bars ingested from the feed
	Cycles     uint64 // decision cycles run
	Holds      uint64 // cycles that resolved to hold
	Orders     uint64 // orders submitted to execution
	Trades     uint64 // confirmed fills applied
	Rejections uint64 // proposals the risk gate refused
	Skipped    uint64 // observations dropped while a decision was in flight
}

// New creates an engine from its collaborators.
func New(cfg EngineConfig, c Components) (*Engine, error) {
	if len(cfg.Symbols) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, "engine needs at least one symbol")
	}
	if cfg.DecisionInterval <= 0 {
		return nil, apperrors.Wrapf(apperrors.ErrConfigInvalid, "decision interval must be positive, got %v", cfg.DecisionInterval)
	}
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = time.Minute
	}
	if c.Feed == nil || c.Aggregator == nil || c.Policy == nil || c.Gate == nil ||
		c.Router == nil || c.Ledger == nil || c.Learner == nil || c.Store == nil || c.Hub == nil {
		return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, "engine component missing")
	}
	if c.Notifier == nil {
		c.Notifier = notify.NewNoOpNotifier()
	}

	workers := make(map[string]chan models.Observation, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		workers[s] = make(chan models.Observation)
	}

	return &Engine{
		cfg:      cfg,
		logger:   cfg.Logger,
		feed:     c.Feed,
		agg:      c.Aggregator,
		policy:   c.Policy,
		gate:     c.Gate,
		router:   c.Router,
		ledger:   c.Ledger,
		learner:  c.Learner,
		store:    c.Store,
		hub:      c.Hub,
		notifier: c.Notifier,
		workers:  workers,
		expCh:    make(chan models.ExperienceRecord, experienceBuffer),
	}, nil
}

// Run drives the loop until ctx ends or the feed fails permanently. A
// cancelled or expired context is a clean shutdown and returns nil.
func (e *Engine) Run(ctx context.Context) error {
	start := e.policy.Checkpoint()
	e.logger.Info().
		Strs("symbols", e.cfg.Symbols).
		Dur("decision_interval", e.cfg.DecisionInterval).
		Str("checkpoint", start.Version).
		Msg("Engine starting")
	e.notifier.Info("engine started")

	persistCh := e.hub.Subscribe("persister")
	notifyCh := e.hub.Subscribe("notifier")
	e.hub.Start(ctx)
	defer e.hub.Stop()

	group, ctx := errgroup.WithContext(ctx)

	bars := make(chan models.Bar, barBuffer)
	group.Go(func() error {
		return e.feed.Run(ctx, bars)
	})
	group.Go(func() error {
		return e.dispatch(ctx, bars)
	})
	for symbol, ch := range e.workers {
		group.Go(func() error {
			return e.worker(ctx, symbol, ch)
		})
	}
	group.Go(func() error {
		return e.train(ctx)
	})
	group.Go(func() error {
		return e.persistTrades(ctx, persistCh)
	})
	group.Go(func() error {
		return e.announceTrades(ctx, notifyCh)
	})
	group.Go(func() error {
		return e.snapshots(ctx)
	})

	err := group.Wait()

	// One last snapshot so a restart resumes from the drained state. The run
	// context is gone, so the write gets its own budget.
	saveCtx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if serr := e.store.SavePortfolioSnapshot(saveCtx, e.ledger.Snapshot()); serr != nil {
		e.logger.Warn().Err(serr).Msg("Final portfolio snapshot failed")
	}

	stats := e.Stats()
	e.logger.Info().
		Uint64("bars", stats.Bars).
		Uint64("cycles", stats.Cycles).
		Uint64("holds", stats.Holds).
		Uint64("orders", stats.Orders).
		Uint64("trades", stats.Trades).
		Uint64("rejections", stats.Rejections).
		Uint64("skipped", stats.Skipped).
		Msg("Engine drained")
	e.notifier.Info("engine drained")

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// Stats returns a snapshot of the run counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Bars:       e.bars.Load(),
		Cycles:     e.cycles.Load(),
		Holds:      e.holds.Load(),
		Orders:     e.orders.Load(),
		Trades:     e.trades.Load(),
		Rejections: e.rejections.Load(),
		Skipped:    e.skipped.Load(),
	}
}

// dispatch marks every bar into the ledger, folds it into the aggregator and
// hands ready observations to the symbol's worker. The handoff never blocks:
// a worker still deciding misses the cycle and catches the next one.
func (e *Engine) dispatch(ctx context.Context, bars <-chan models.Bar) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case bar := <-bars:
			e.bars.Add(1)
			e.ledger.MarkPrice(bar.Symbol, bar.Price)

			obs, outcome := e.agg.Ingest(bar)
			if outcome != market.OutcomeReady {
				continue
			}

			ch, ok := e.workers[bar.Symbol]
			if !ok {
				continue
			}
			select {
			case ch <- obs:
			default:
				e.skipped.Add(1)
				e.logger.Debug().
					Str("symbol", bar.Symbol).
					Msg("Decision still in flight, skipping cycle")
			}
		}
	}
}

// worker runs decision cycles for one symbol, one at a time. Experience from
// a cycle waits for the next observation to fill in its follow-up features;
// shutdown and halts close those records as terminal.
func (e *Engine) worker(ctx context.Context, symbol string, ch <-chan models.Observation) error {
	logger := logging.WithSymbol(e.logger, symbol)

	var pending []models.ExperienceRecord
	var nextAt time.Time

	for {
		select {
		case <-ctx.Done():
			e.flushTerminal(pending)
			return nil
		case obs := <-ch:
			if time.Now().Before(nextAt) {
				e.skipped.Add(1)
				continue
			}

			snap := e.ledger.Snapshot()
			if snap.IsHalted(symbol) {
				e.flushTerminal(pending)
				pending = nil
				logger.Debug().Msg("Symbol halted, skipping cycle")
				continue
			}

			for i := range pending {
				pending[i].NextFeatures = obs.Features
				e.recordExperience(pending[i])
			}

			nextAt = time.Now().Add(e.cfg.DecisionInterval)
			pending = e.runCycle(ctx, obs, snap)
		}
	}
}

func (e *Engine) flushTerminal(pending []models.ExperienceRecord) {
	for i := range pending {
		pending[i].Terminal = true
		e.recordExperience(pending[i])
	}
}

// runCycle executes one decision: decide, gate, submit, feed back. It returns
// the cycle's experience records, still missing their follow-up features.
func (e *Engine) runCycle(ctx context.Context, obs models.Observation, snap models.PortfolioState) []models.ExperienceRecord {
	cycleID := uuid.NewString()
	logger := logging.WithCycle(logging.WithSymbol(e.logger, obs.Symbol), cycleID)

	e.cycles.Add(1)
	proposal := e.policy.Decide(cycleID, obs, snap)
	logging.LogDecision(logger, obs.Symbol, string(proposal.Direction), proposal.Score, proposal.Checkpoint)

	if proposal.Hold() {
		e.holds.Add(1)
		return nil
	}

	order, verdict := e.gate.Review(proposal, snap)
	if !verdict.Approved {
		e.rejections.Add(1)
		logging.LogRejection(logger, obs.Symbol, string(verdict.Code), verdict.Reason)
		e.notifier.ProposalRejected(obs.Symbol, string(verdict.Code), verdict.Reason)
		return []models.ExperienceRecord{{
			Symbol:    obs.Symbol,
			Features:  obs.Features,
			Action:    models.ActionIndex(proposal.Direction),
			Reward:    learning.RejectionReward,
			Timestamp: obs.Timestamp,
		}}
	}

	e.orders.Add(1)
	result, err := e.router.Submit(ctx, order)
	if err != nil {
		// Partial outcomes still carry their applied fills; the error records
		// what did not finish.
		logger.Warn().Err(err).Str("order_id", order.OrderID).Msg("Order did not complete cleanly")
		e.notifier.EngineError("execution", err)
	}

	post := e.ledger.Snapshot()
	records := make([]models.ExperienceRecord, 0, len(result.Trades))
	for _, trade := range result.Trades {
		e.trades.Add(1)
		e.hub.Publish(trade)
		records = append(records, models.ExperienceRecord{
			Symbol:    trade.Symbol,
			Features:  obs.Features,
			Action:    models.ActionIndex(trade.Side),
			Reward:    learning.TradeReward(trade, post),
			Timestamp: trade.Timestamp,
		})
	}

	if !snap.IsHalted(obs.Symbol) && post.IsHalted(obs.Symbol) {
		logger.Error().Msg("Symbol halted while applying fills")
		e.notifier.SymbolHalted(obs.Symbol, "accounting invariant breached applying a confirmed fill")
	}

	return records
}

// recordExperience hands a record to the trainer. Never blocks: when the
// trainer is behind, the record is dropped and counted.
func (e *Engine) recordExperience(rec models.ExperienceRecord) {
	select {
	case e.expCh <- rec:
	default:
		e.expDropped.Add(1)
	}
}

// train is the background training timeline: it drains experience into the
// learner, which retrains and installs checkpoints on its own cadence.
func (e *Engine) train(ctx context.Context) error {
	lastVersion := e.policy.Checkpoint().Version
	for {
		select {
		case <-ctx.Done():
			return nil
		case rec := <-e.expCh:
			e.learner.Observe(rec)
			if cp := e.policy.Checkpoint(); cp.Version != lastVersion {
				lastVersion = cp.Version
				e.notifier.CheckpointInstalled(cp.Version, int(cp.Step), cp.TrainedOn)
			}
		}
	}
}

// persistTrades writes executed trades to the state store. Failures degrade
// to in-memory operation and never touch the decision path.
func (e *Engine) persistTrades(ctx context.Context, trades <-chan models.Trade) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case trade, ok := <-trades:
			if !ok {
				return nil
			}
			saveCtx, cancel := context.WithTimeout(ctx, storeTimeout)
			err := e.store.SaveTrade(saveCtx, trade)
			cancel()
			if err != nil {
				e.logger.Warn().Err(err).
					Str("trade_id", trade.ID).
					Msg("Trade persistence failed, continuing in memory")
			}
		}
	}
}

func (e *Engine) announceTrades(ctx context.Context, trades <-chan models.Trade) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case trade, ok := <-trades:
			if !ok {
				return nil
			}
			e.notifier.TradeExecuted(trade)
		}
	}
}

// snapshots persists the portfolio on a fixed cadence.
func (e *Engine) snapshots(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			saveCtx, cancel := context.WithTimeout(ctx, storeTimeout)
			err := e.store.SavePortfolioSnapshot(saveCtx, e.ledger.Snapshot())
			cancel()
			if err != nil {
				e.logger.Warn().Err(err).Msg("Portfolio snapshot failed, continuing in memory")
			}
		}
	}
}
