package policy

import (
	"math/rand"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

func randomCheckpoint(rng *rand.Rand) models.PolicyCheckpoint {
	cp := NewSeedCheckpoint(featureDim)
	for i := range cp.Weights {
		for j := range cp.Weights[i] {
			cp.Weights[i][j] = 10 * (rng.Float64()*2 - 1)
		}
		cp.Biases[i] = 10 * (rng.Float64()*2 - 1)
	}
	return cp
}

func randomObservation(rng *rand.Rand) models.Observation {
	price := 1 + 90000*rng.Float64()
	features := make([]float64, featureDim)
	for i := range features {
		features[i] = rng.Float64()*2 - 1
	}
	return models.Observation{
		Symbol:    "BTCUSDT",
		Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Prices:    []float64{price},
		Volumes:   []float64{2e6},
		Features:  features,
	}
}

// Property: Proposals are well-formed for any checkpoint and observation
//
// The score is a probability, the quantity is non-negative, and the requested
// notional never exceeds the configured fraction of equity.
func TestProperty_ProposalsWellFormed(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("score is a probability and notional respects the cap", prop.ForAll(
		func(seed int64, cash float64) bool {
			rng := rand.New(rand.NewSource(seed))

			cfg := EngineConfig{
				Mode:            ModeInfer,
				MaxPositionSize: 0.10,
				MaxParam:        100,
				Seed:            1,
				Logger:          zerolog.Nop(),
			}
			e, err := NewEngine(cfg, randomCheckpoint(rng))
			if err != nil {
				t.Logf("engine construction failed: %v", err)
				return false
			}

			snap := models.PortfolioState{Cash: cash, Positions: map[string]models.Position{}}
			p := e.Decide("c", randomObservation(rng), snap)

			if p.Score < 0 || p.Score > 1 {
				t.Logf("score out of range: %v", p.Score)
				return false
			}
			if p.Quantity < 0 {
				t.Logf("negative quantity: %v", p.Quantity)
				return false
			}
			if p.Direction == models.SideHold && p.Quantity != 0 {
				t.Logf("hold with quantity: %v", p.Quantity)
				return false
			}
			if p.Notional() > 0.10*snap.Equity()+1e-6 {
				t.Logf("notional %v exceeds cap of equity %v", p.Notional(), snap.Equity())
				return false
			}
			return true
		},
		gen.Int64Range(1, 1<<30),
		gen.Float64Range(1000, 1e7),
	))

	properties.TestingRun(t)
}

// Property: Inference is a pure function of checkpoint, observation and snapshot
func TestProperty_InferenceIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("independent engines with the same checkpoint agree", prop.ForAll(
		func(seed int64) bool {
			rng := rand.New(rand.NewSource(seed))
			cp := randomCheckpoint(rng)
			obs := randomObservation(rng)
			snap := models.PortfolioState{Cash: 100000, Positions: map[string]models.Position{}}

			cfg := EngineConfig{
				Mode:            ModeInfer,
				MaxPositionSize: 0.10,
				MaxParam:        100,
				Seed:            1,
				Logger:          zerolog.Nop(),
			}
			a, err := NewEngine(cfg, cp)
			if err != nil {
				return false
			}
			b, err := NewEngine(cfg, cp)
			if err != nil {
				return false
			}

			pa := a.Decide("c", obs, snap)
			pb := b.Decide("c", obs, snap)
			if pa != pb {
				t.Logf("divergent proposals: %+v vs %+v", pa, pb)
				return false
			}
			return true
		},
		gen.Int64Range(1, 1<<30),
	))

	properties.TestingRun(t)
}
