package models

import (
	"math"
	"time"
)

// ExperienceRecord is one learning sample: the features the policy saw, the
// action it took, the reward realized, and the features of the following
// cycle. Accumulated in a bounded replay buffer with FIFO eviction.
type ExperienceRecord struct {
	Symbol       string
	Features     []float64
	Action       int // index into Actions
	Reward       float64
	NextFeatures []float64
	Terminal     bool
	Timestamp    time.Time
}

// Finite reports whether the reward and every feature are finite numbers.
func (r ExperienceRecord) Finite() bool {
	if math.IsNaN(r.Reward) || math.IsInf(r.Reward, 0) {
		return false
	}
	for _, f := range r.Features {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
