// Package policy turns observations into action proposals using the active
// learned checkpoint.
package policy

import (
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/errors"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

// Mode selects how the engine picks among scored actions.
type Mode string

const (
	// ModeInfer always takes the highest-scoring action.
	ModeInfer Mode = "infer"
	// ModeExplore takes a random action with probability epsilon.
	ModeExplore Mode = "explore"
)

// EngineConfig holds configuration for the policy engine.
type EngineConfig struct {
	Mode            Mode
	Epsilon         float64
	Seed            int64 // 0 seeds from the clock
	MaxPositionSize float64
	MaxParam        float64 // sanity bound enforced on install
	Logger          zerolog.Logger
}

// Engine scores observations with exactly one active checkpoint. Decide
// works against the checkpoint it loads at entry; Install publishes a new
// checkpoint atomically, so readers see either the old or the new one and
// never a mix.
type Engine struct {
	cfg    EngineConfig
	logger zerolog.Logger

	active atomic.Pointer[models.PolicyCheckpoint]

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewEngine creates a policy engine with the given starting checkpoint.
func NewEngine(cfg EngineConfig, start models.PolicyCheckpoint) (*Engine, error) {
	if cfg.Mode != ModeInfer && cfg.Mode != ModeExplore {
		return nil, apperrors.Wrapf(apperrors.ErrConfigInvalid, "unknown policy mode %q", cfg.Mode)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		cfg:    cfg,
		logger: cfg.Logger,
		rng:    rand.New(rand.NewSource(seed)),
	}
	if err := e.Install(start); err != nil {
		return nil, err
	}
	return e, nil
}

// Checkpoint returns a copy of the active checkpoint.
func (e *Engine) Checkpoint() models.PolicyCheckpoint {
	return e.active.Load().Clone()
}

// Install validates and atomically publishes a checkpoint. In-flight Decide
// calls finish against whichever checkpoint they loaded.
func (e *Engine) Install(cp models.PolicyCheckpoint) error {
	if !cp.Sound(e.cfg.MaxParam) {
		return apperrors.NewCheckpointError(cp.Version, cp.Step, "parameters out of bounds or malformed")
	}

	owned := cp.Clone()
	e.active.Store(&owned)

	e.logger.Info().
		Str("version", cp.Version).
		Uint64("step", cp.Step).
		Int("trained_on", cp.TrainedOn).
		Msg("Checkpoint installed")
	return nil
}

// Decide scores one observation against the active checkpoint and sizes the
// resulting proposal from the portfolio snapshot. It never mutates either.
func (e *Engine) Decide(cycleID string, obs models.Observation, snap models.PortfolioState) models.ActionProposal {
	cp := e.active.Load()

	proposal := models.ActionProposal{
		CycleID:    cycleID,
		Symbol:     obs.Symbol,
		Direction:  models.SideHold,
		Checkpoint: cp.Version,
		CreatedAt:  obs.Timestamp,
	}

	if len(obs.Features) != cp.FeatureDim {
		e.logger.Warn().
			Str("symbol", obs.Symbol).
			Int("got", len(obs.Features)).
			Int("want", cp.FeatureDim).
			Msg("Feature dimension mismatch, holding")
		return proposal
	}

	probs := models.Softmax(cp.Scores(obs.Features))
	choice := argmax(probs)

	if e.cfg.Mode == ModeExplore {
		e.rngMu.Lock()
		if e.rng.Float64() < e.cfg.Epsilon {
			choice = e.rng.Intn(len(models.Actions))
		}
		e.rngMu.Unlock()
	}

	proposal.Direction = models.Actions[choice]
	proposal.Score = probs[choice]

	if proposal.Direction == models.SideHold {
		return proposal
	}

	price := obs.LastPrice()
	if price <= 0 {
		proposal.Direction = models.SideHold
		proposal.Score = 0
		return proposal
	}

	// Confidence scales the target exposure, the configured cap bounds it
	fraction := e.cfg.MaxPositionSize * proposal.Score
	proposal.PriceHint = price
	proposal.Quantity = fraction * snap.Equity() / price

	if proposal.Quantity <= 0 || !isFinite(proposal.Quantity) {
		proposal.Direction = models.SideHold
		proposal.Quantity = 0
		proposal.PriceHint = 0
	}
	return proposal
}

// argmax breaks ties toward the lowest index, so a cold uniform checkpoint
// resolves to hold.
func argmax(xs []float64) int {
	best := 0
	for i, x := range xs {
		if x > xs[best] {
			best = i
		}
	}
	return best
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
