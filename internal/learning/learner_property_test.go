package learning

import (
	"math/rand"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/policy"
)

// Property: Training on bounded inputs yields sound candidates
//
// For any batch of records with features and rewards in [-1, 1] and a
// moderate learning rate, the candidate derived from a fresh checkpoint must
// pass the sanity check, advance the step counter by one, and leave the base
// checkpoint untouched.
func TestProperty_TrainingYieldsSoundCandidates(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("candidates are sound and bases untouched", prop.ForAll(
		func(seed int64, batchSize int, lr float64) bool {
			rng := rand.New(rand.NewSource(seed))
			base := policy.NewSeedCheckpoint(testFeatureDim)

			batch := make([]models.ExperienceRecord, batchSize)
			for i := range batch {
				features := make([]float64, testFeatureDim)
				for j := range features {
					features[j] = rng.Float64()*2 - 1
				}
				batch[i] = models.ExperienceRecord{
					Symbol:   "BTCUSDT",
					Features: features,
					Action:   rng.Intn(len(models.Actions)),
					Reward:   rng.Float64()*2 - 1,
				}
			}

			cp := train(base, batch, lr)

			if !cp.Sound(100) {
				t.Logf("unsound candidate from seed %d", seed)
				return false
			}
			if cp.Step != base.Step+1 {
				t.Logf("step not advanced: %d", cp.Step)
				return false
			}
			if cp.Version == base.Version {
				t.Logf("version not refreshed")
				return false
			}

			for _, w := range base.Weights {
				for _, v := range w {
					if v != 0 {
						t.Logf("base checkpoint mutated")
						return false
					}
				}
			}
			return true
		},
		gen.Int64Range(1, 1<<30),
		gen.IntRange(1, 50),
		gen.Float64Range(0.001, 0.5),
	))

	properties.TestingRun(t)
}
