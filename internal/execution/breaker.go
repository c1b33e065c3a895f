package execution

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/errors"
)

// BreakerState is the health posture of the execution endpoint.
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// BreakerConfig holds configuration for the endpoint circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failed submissions before suspending
	SuccessThreshold int           // successful probes before resuming
	Cooldown         time.Duration // suspension length before the first probe
	Logger           zerolog.Logger
}

// Breaker suspends order flow to an execution endpoint that keeps failing.
// Outcomes are counted per submission, never per placement attempt: an order
// that times out three times and then fills is one success. While suspended,
// submissions are refused without touching the endpoint; once the cooldown
// passes a probe submission is let through and its outcome decides whether
// flow resumes or the suspension extends.
type Breaker struct {
	cfg    BreakerConfig
	logger zerolog.Logger

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
}

// NewBreaker creates an endpoint circuit breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Breaker{cfg: cfg, logger: cfg.Logger, state: BreakerClosed}
}

// Allow reports whether a submission may proceed. While suspended it returns
// ErrEndpointSuspended; after the cooldown it lets a probe through.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen {
		if time.Since(b.openedAt) < b.cfg.Cooldown {
			return apperrors.ErrEndpointSuspended
		}
		b.transition(BreakerHalfOpen)
	}
	return nil
}

// Success records a submission the endpoint handled.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.transition(BreakerClosed)
		}
	}
}

// Failure records a submission the endpoint could not handle.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(BreakerOpen)
		}
	case BreakerHalfOpen:
		// A failed probe extends the suspension
		b.transition(BreakerOpen)
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) transition(next BreakerState) {
	b.state = next
	b.failures = 0
	b.successes = 0

	switch next {
	case BreakerOpen:
		b.openedAt = time.Now()
		b.logger.Warn().
			Dur("cooldown", b.cfg.Cooldown).
			Msg("Execution endpoint suspended after repeated failures")
	case BreakerHalfOpen:
		b.logger.Info().Msg("Cooldown elapsed, probing execution endpoint")
	case BreakerClosed:
		b.logger.Info().Msg("Execution endpoint resumed")
	}
}
