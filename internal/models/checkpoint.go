package models

import (
	"math"
	"time"
)

// Actions fixes the order of the policy's action heads. Checkpoint weights
// are indexed by this order.
var Actions = []Side{SideHold, SideBuy, SideSell}

// ActionIndex returns the head index for a side, or -1 if unknown.
func ActionIndex(s Side) int {
	for i, a := range Actions {
		if a == s {
			return i
		}
	}
	return -1
}

// PolicyCheckpoint is an immutable versioned snapshot of learned policy
// parameters. Checkpoints come from the trainer or the cold-start seed; the
// policy engine holds a reference to exactly one at a time.
type PolicyCheckpoint struct {
	Version    string // uuid
	Step       uint64 // training step counter
	FeatureDim int

	// Weights[a] is the weight vector of action head a over the feature
	// vector; Biases[a] its bias. len(Weights) == len(Actions).
	Weights [][]float64
	Biases  []float64

	TrainedOn int // experience records consumed up to this checkpoint
	CreatedAt time.Time
}

// Scores returns every action head's linear score over the feature vector.
// The caller guarantees len(features) == FeatureDim.
func (c PolicyCheckpoint) Scores(features []float64) []float64 {
	out := make([]float64, len(c.Weights))
	for i, w := range c.Weights {
		s := c.Biases[i]
		for j, f := range features {
			s += w[j] * f
		}
		out[i] = s
	}
	return out
}

// Softmax normalizes scores into a probability distribution.
func Softmax(xs []float64) []float64 {
	max := xs[0]
	for _, x := range xs[1:] {
		if x > max {
			max = x
		}
	}

	out := make([]float64, len(xs))
	var sum float64
	for i, x := range xs {
		out[i] = math.Exp(x - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Clone returns a deep copy, used when deriving a candidate from the active
// checkpoint so training never writes into parameters a Decide call may hold.
func (c PolicyCheckpoint) Clone() PolicyCheckpoint {
	out := c
	out.Weights = make([][]float64, len(c.Weights))
	for i, w := range c.Weights {
		out.Weights[i] = make([]float64, len(w))
		copy(out.Weights[i], w)
	}
	out.Biases = make([]float64, len(c.Biases))
	copy(out.Biases, c.Biases)
	return out
}

// Sound reports whether every parameter is finite and within maxParam in
// magnitude. Unsound candidates are discarded by the learner, never installed.
func (c PolicyCheckpoint) Sound(maxParam float64) bool {
	if c.FeatureDim <= 0 || len(c.Weights) != len(Actions) || len(c.Biases) != len(Actions) {
		return false
	}
	check := func(v float64) bool {
		return !math.IsNaN(v) && !math.IsInf(v, 0) && math.Abs(v) <= maxParam
	}
	for _, w := range c.Weights {
		if len(w) != c.FeatureDim {
			return false
		}
		for _, v := range w {
			if !check(v) {
				return false
			}
		}
	}
	for _, b := range c.Biases {
		if !check(b) {
			return false
		}
	}
	return true
}
