// Package market aggregates raw bars into per-symbol observations.
package market

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/errors"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

// MinLookback is the smallest rolling window that still supports every
// derived indicator.
const MinLookback = rsiPeriod + 2

// Outcome classifies what happened to an ingested bar.
type Outcome int

const (
	// OutcomeReady means a full observation was produced.
	OutcomeReady Outcome = iota
	// OutcomeWarmup means the window is not full yet.
	OutcomeWarmup
	// OutcomeDuplicate means the bar's timestamp was not newer than the last.
	OutcomeDuplicate
	// OutcomeIlliquid means rolling volume is below the configured threshold.
	OutcomeIlliquid
	// OutcomeMalformed means the bar failed validation and was dropped.
	OutcomeMalformed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReady:
		return "ready"
	case OutcomeWarmup:
		return "warmup"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeIlliquid:
		return "illiquid"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// AggregatorConfig holds configuration for the aggregator.
type AggregatorConfig struct {
	Lookback  int     // bars retained per symbol
	MinVolume float64 // rolling average volume threshold
	Logger    zerolog.Logger
}

// Aggregator maintains per-symbol rolling windows and derives observation
// feature vectors from them.
type Aggregator struct {
	cfg    AggregatorConfig
	logger zerolog.Logger

	mu    sync.Mutex
	books map[string]*symbolBook
}

type symbolBook struct {
	prices  []float64 // chronological, newest last
	volumes []float64
	lastTS  time.Time
}

// NewAggregator creates a new aggregator.
func NewAggregator(cfg AggregatorConfig) (*Aggregator, error) {
	if cfg.Lookback < MinLookback {
		return nil, apperrors.Wrapf(apperrors.ErrConfigInvalid,
			"lookback_period must be at least %d to support derived indicators, got %d", MinLookback, cfg.Lookback)
	}

	return &Aggregator{
		cfg:    cfg,
		logger: cfg.Logger,
		books:  make(map[string]*symbolBook),
	}, nil
}

// Ingest folds one bar into the symbol's window. When the window is full and
// liquid it returns a complete observation with OutcomeReady; every other
// outcome carries a zero observation.
func (a *Aggregator) Ingest(bar models.Bar) (models.Observation, Outcome) {
	if !validBar(bar) {
		a.logger.Debug().
			Str("symbol", bar.Symbol).
			Float64("price", bar.Price).
			Float64("volume", bar.Volume).
			Msg("Dropping malformed bar")
		return models.Observation{}, OutcomeMalformed
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	book, ok := a.books[bar.Symbol]
	if !ok {
		book = &symbolBook{
			prices:  make([]float64, 0, a.cfg.Lookback),
			volumes: make([]float64, 0, a.cfg.Lookback),
		}
		a.books[bar.Symbol] = book
	}

	// Replays and out-of-order bars are dropped so an observation is derived
	// at most once per timestamp
	if !bar.Timestamp.After(book.lastTS) {
		return models.Observation{}, OutcomeDuplicate
	}
	book.lastTS = bar.Timestamp

	book.prices = append(book.prices, bar.Price)
	book.volumes = append(book.volumes, bar.Volume)
	if len(book.prices) > a.cfg.Lookback {
		book.prices = book.prices[1:]
		book.volumes = book.volumes[1:]
	}

	if len(book.prices) < a.cfg.Lookback {
		return models.Observation{}, OutcomeWarmup
	}

	if mean(book.volumes) < a.cfg.MinVolume {
		return models.Observation{}, OutcomeIlliquid
	}

	obs := models.Observation{
		Symbol:    bar.Symbol,
		Timestamp: bar.Timestamp,
		Prices:    append([]float64(nil), book.prices...),
		Volumes:   append([]float64(nil), book.volumes...),
		Features:  computeFeatures(book.prices),
	}

	return obs, OutcomeReady
}

// Depth returns how many bars are buffered for a symbol.
func (a *Aggregator) Depth(symbol string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	book, ok := a.books[symbol]
	if !ok {
		return 0
	}
	return len(book.prices)
}

func validBar(bar models.Bar) bool {
	if bar.Symbol == "" || bar.Timestamp.IsZero() {
		return false
	}
	if bar.Price <= 0 || math.IsNaN(bar.Price) || math.IsInf(bar.Price, 0) {
		return false
	}
	if bar.Volume < 0 || math.IsNaN(bar.Volume) || math.IsInf(bar.Volume, 0) {
		return false
	}
	return true
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
