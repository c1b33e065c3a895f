package policy

import (
	"time"

	"github.com/google/uuid"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

// NewSeedCheckpoint returns the cold-start checkpoint: zero weights and
// biases, so every action scores equally and argmax resolves to hold until
// training has shaped the parameters.
func NewSeedCheckpoint(featureDim int) models.PolicyCheckpoint {
	weights := make([][]float64, len(models.Actions))
	for i := range weights {
		weights[i] = make([]float64, featureDim)
	}
	return models.PolicyCheckpoint{
		Version:    uuid.NewString(),
		Step:       0,
		FeatureDim: featureDim,
		Weights:    weights,
		Biases:     make([]float64, len(models.Actions)),
		TrainedOn:  0,
		CreatedAt:  time.Now().UTC(),
	}
}
