package learning

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/logging"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

// Installer is the slice of the policy engine the learner drives: read the
// active checkpoint to derive a candidate from, install the result.
type Installer interface {
	Checkpoint() models.PolicyCheckpoint
	Install(cp models.PolicyCheckpoint) error
}

// LearnerConfig holds configuration for the learner.
type LearnerConfig struct {
	BufferSize    int
	TrainInterval int // records between training steps
	BatchSize     int
	LearningRate  float64
	MaxParam      float64 // sanity bound on candidate parameters
	Seed          int64   // 0 seeds from the clock
	Logger        zerolog.Logger
}

// Learner accumulates experience and periodically trains a candidate
// checkpoint from the active one. Candidates that fail the sanity check are
// discarded with an error log; the live policy keeps running either way.
type Learner struct {
	cfg    LearnerConfig
	policy Installer
	buffer *ReplayBuffer
	logger zerolog.Logger

	mu         sync.Mutex
	rng        *rand.Rand
	sinceTrain int
}

// NewLearner creates a learner feeding the given policy installer.
func NewLearner(cfg LearnerConfig, policy Installer) *Learner {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 10000
	}
	if cfg.TrainInterval <= 0 {
		cfg.TrainInterval = 50
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.01
	}
	if cfg.MaxParam <= 0 {
		cfg.MaxParam = 100
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Learner{
		cfg:    cfg,
		policy: policy,
		buffer: NewReplayBuffer(cfg.BufferSize),
		logger: cfg.Logger,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// BufferLen returns the number of buffered experience records.
func (l *Learner) BufferLen() int {
	return l.buffer.Len()
}

// Observe records one experience and runs a training step once enough new
// records have accumulated since the last one. Non-finite records are dropped
// before they reach the buffer; one would poison every batch it lands in.
func (l *Learner) Observe(rec models.ExperienceRecord) {
	if !rec.Finite() {
		l.logger.Warn().
			Str("symbol", rec.Symbol).
			Msg("Dropping non-finite experience record")
		return
	}
	l.buffer.Add(rec)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sinceTrain++
	if l.sinceTrain < l.cfg.TrainInterval {
		return
	}
	l.sinceTrain = 0
	l.trainLocked()
}

func (l *Learner) trainLocked() {
	if l.buffer.Len() < l.cfg.BatchSize {
		return
	}

	batch := l.buffer.Sample(l.rng, l.cfg.BatchSize)
	candidate := train(l.policy.Checkpoint(), batch, l.cfg.LearningRate)

	if !candidate.Sound(l.cfg.MaxParam) {
		l.logger.Error().
			Str("version", candidate.Version).
			Uint64("step", candidate.Step).
			Msg("Discarding unsound candidate checkpoint")
		return
	}
	if err := l.policy.Install(candidate); err != nil {
		l.logger.Error().Err(err).Msg("Checkpoint install failed")
		return
	}

	logging.LogCheckpoint(l.logger, candidate.Version, candidate.Step, candidate.TrainedOn)
}

// train derives a candidate checkpoint by one SGD pass over the batch: for
// each record the taken action's logit is pushed in the direction of the
// reward and the others pulled the opposite way, through the softmax gradient.
func train(base models.PolicyCheckpoint, batch []models.ExperienceRecord, lr float64) models.PolicyCheckpoint {
	cp := base.Clone()

	trained := 0
	for _, rec := range batch {
		if rec.Action < 0 || rec.Action >= len(cp.Weights) || len(rec.Features) != cp.FeatureDim {
			continue
		}

		probs := models.Softmax(cp.Scores(rec.Features))
		for a := range cp.Weights {
			indicator := 0.0
			if a == rec.Action {
				indicator = 1
			}
			g := lr * rec.Reward * (indicator - probs[a])
			for j, f := range rec.Features {
				cp.Weights[a][j] += g * f
			}
			cp.Biases[a] += g
		}
		trained++
	}

	cp.Version = uuid.NewString()
	cp.Step++
	cp.TrainedOn = base.TrainedOn + trained
	cp.CreatedAt = time.Now().UTC()
	return cp
}
