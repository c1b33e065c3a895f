// Package portfolio tracks cash, positions and realized results.
package portfolio

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/errors"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

// LedgerConfig holds configuration for the ledger.
type LedgerConfig struct {
	InitialCash float64
	Logger      zerolog.Logger
}

// Ledger is the single source of truth for portfolio state. Fills mutate it
// under an exclusive lock; readers work from immutable snapshots and never
// block writers.
type Ledger struct {
	logger zerolog.Logger

	mu    sync.RWMutex
	state models.PortfolioState
	day   time.Time // UTC day of the last applied fill, zero before the first
}

// NewLedger creates a ledger holding only cash.
func NewLedger(cfg LedgerConfig) *Ledger {
	return &Ledger{
		logger: cfg.Logger,
		state: models.PortfolioState{
			Cash:             cfg.InitialCash,
			Positions:        make(map[string]models.Position),
			Halted:           make(map[string]bool),
			StartOfDayEquity: cfg.InitialCash,
			PeakEquity:       cfg.InitialCash,
			AsOf:             time.Now().UTC(),
		},
	}
}

// NewLedgerFromState restores a ledger from a persisted snapshot.
func NewLedgerFromState(cfg LedgerConfig, state models.PortfolioState) *Ledger {
	if state.Positions == nil {
		state.Positions = make(map[string]models.Position)
	}
	if state.Halted == nil {
		state.Halted = make(map[string]bool)
	}

	return &Ledger{
		logger: cfg.Logger,
		state:  clone(state),
		day:    state.AsOf.UTC().Truncate(24 * time.Hour),
	}
}

// ApplyFill folds one executed fill into the portfolio and returns the trade
// stamped with its realized PnL. A fill that would breach the accounting
// invariant halts the symbol and leaves positions and cash unchanged.
func (l *Ledger) ApplyFill(trade models.Trade) (models.Trade, error) {
	if !trade.Side.Valid() || trade.Side == models.SideHold || trade.Quantity <= 0 || trade.Price <= 0 {
		return models.Trade{}, apperrors.NewValidationError("trade", trade.ID, "fill must have a direction, positive quantity and positive price")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.Halted[trade.Symbol] {
		return models.Trade{}, apperrors.Wrapf(apperrors.ErrSymbolHalted, "fill %s on %s", trade.ID, trade.Symbol)
	}

	// First fill of a new UTC day resets the daily loss basis
	day := trade.Timestamp.UTC().Truncate(24 * time.Hour)
	if day.After(l.day) {
		l.state.StartOfDayEquity = l.state.Equity()
		l.state.RealizedPnLToday = 0
		l.day = day
	}

	signed := trade.SignedQuantity()
	cash := l.state.Cash - signed*trade.Price - trade.Fees
	if cash < 0 {
		l.state.Halted[trade.Symbol] = true
		err := apperrors.NewInvariantError(trade.Symbol, "fill would drive cash negative", cash, l.state.Equity())
		l.logger.Error().Err(err).Str("trade_id", trade.ID).Msg("Halting symbol")
		return models.Trade{}, err
	}

	pos := l.state.Position(trade.Symbol)
	next, realizedGross := applyToPosition(pos, signed, trade.Price)
	realized := realizedGross - trade.Fees

	if !finite(cash) || !finite(next.AvgPrice) || !finite(realized) {
		l.state.Halted[trade.Symbol] = true
		err := apperrors.NewInvariantError(trade.Symbol, "fill produced a non-finite value", cash, l.state.Equity())
		l.logger.Error().Err(err).Str("trade_id", trade.ID).Msg("Halting symbol")
		return models.Trade{}, err
	}

	// Commit
	l.state.Cash = cash
	if next.Flat() {
		delete(l.state.Positions, trade.Symbol)
	} else {
		next.Symbol = trade.Symbol
		next.LastPrice = trade.Price
		l.state.Positions[trade.Symbol] = next
	}
	l.state.RealizedPnL += realized
	l.state.RealizedPnLToday += realized
	l.state.AsOf = trade.Timestamp

	if eq := l.state.Equity(); eq > l.state.PeakEquity {
		l.state.PeakEquity = eq
	}

	trade.RealizedPnL = realized
	return trade, nil
}

// MarkPrice revalues an open position at the latest observed price.
func (l *Ledger) MarkPrice(symbol string, price float64) {
	if price <= 0 || !finite(price) {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.state.Positions[symbol]
	if !ok {
		return
	}
	pos.LastPrice = price
	l.state.Positions[symbol] = pos

	if eq := l.state.Equity(); eq > l.state.PeakEquity {
		l.state.PeakEquity = eq
	}
}

// Snapshot returns an immutable copy of the current state.
func (l *Ledger) Snapshot() models.PortfolioState {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return clone(l.state)
}

// Halt stops fills and proposals for a symbol.
func (l *Ledger) Halt(symbol string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state.Halted[symbol] = true
}

// ResetHalt re-enables a halted symbol.
func (l *Ledger) ResetHalt(symbol string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.state.Halted, symbol)
}

// applyToPosition folds a signed fill quantity into a position and returns
// the next position along with the gross realized PnL of any closed part.
func applyToPosition(pos models.Position, signed, price float64) (models.Position, float64) {
	if pos.Quantity == 0 || sameSign(pos.Quantity, signed) {
		// Opening or adding: volume-weighted average entry
		total := math.Abs(pos.Quantity) + math.Abs(signed)
		avg := (math.Abs(pos.Quantity)*pos.AvgPrice + math.Abs(signed)*price) / total
		return models.Position{Quantity: pos.Quantity + signed, AvgPrice: avg}, 0
	}

	closed := math.Min(math.Abs(signed), math.Abs(pos.Quantity))
	direction := 1.0
	if pos.Quantity < 0 {
		direction = -1.0
	}
	realized := closed * (price - pos.AvgPrice) * direction

	remaining := pos.Quantity + signed
	switch {
	case remaining == 0:
		return models.Position{}, realized
	case sameSign(remaining, pos.Quantity):
		// Partial close keeps the original entry price
		return models.Position{Quantity: remaining, AvgPrice: pos.AvgPrice}, realized
	default:
		// Flipped through flat: the excess opens at the fill price
		return models.Position{Quantity: remaining, AvgPrice: price}, realized
	}
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clone(s models.PortfolioState) models.PortfolioState {
	out := s
	out.Positions = make(map[string]models.Position, len(s.Positions))
	for k, v := range s.Positions {
		out.Positions[k] = v
	}
	out.Halted = make(map[string]bool, len(s.Halted))
	for k, v := range s.Halted {
		out.Halted[k] = v
	}
	return out
}
