// Package risk enforces pre-trade limits between policy and execution.
package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/pkg/utils"
)

// Code identifies why a proposal was rejected.
type Code string

const (
	CodeBadProposal  Code = "BAD_PROPOSAL"
	CodeSymbolHalted Code = "SYMBOL_HALTED"
	CodePositionSize Code = "POSITION_SIZE"
	CodeDailyLoss    Code = "DAILY_LOSS"
	CodeStopLoss     Code = "STOP_LOSS"
)

// Verdict is the outcome of evaluating one proposal. A rejection is normal
// control flow, not an error.
type Verdict struct {
	Approved bool
	Quantity float64 // quantity the gate lets through, zero for holds
	Code     Code    // set when rejected
	Reason   string
}

func reject(code Code, format string, args ...interface{}) Verdict {
	return Verdict{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// Limits holds the risk parameters the gate enforces.
type Limits struct {
	MaxPositionSize float64 // fraction of equity per position
	MaxDailyLoss    float64 // fraction of start-of-day equity
	StopLossPct     float64 // adverse move fraction per position
}

// Evaluate runs the ordered pre-trade checks against an immutable portfolio
// snapshot. Checks short-circuit: the verdict carries the first failure.
func Evaluate(p models.ActionProposal, s models.PortfolioState, lim Limits) Verdict {
	if !p.Direction.Valid() {
		return reject(CodeBadProposal, "unknown direction %q", p.Direction)
	}
	if !p.Hold() && (p.Quantity <= 0 || math.IsNaN(p.Quantity) || math.IsInf(p.Quantity, 0)) {
		return reject(CodeBadProposal, "quantity must be positive, got %v", p.Quantity)
	}
	if !p.Hold() && p.PriceHint <= 0 {
		return reject(CodeBadProposal, "price hint must be positive, got %v", p.PriceHint)
	}

	// Halted symbols accept nothing, not even holds
	if s.IsHalted(p.Symbol) {
		return reject(CodeSymbolHalted, "symbol %s is halted", p.Symbol)
	}

	if p.Hold() {
		return Verdict{Approved: true, Quantity: 0}
	}

	// Position size: the resulting exposure must fit the per-symbol cap
	equity := s.Equity()
	maxNotional := lim.MaxPositionSize * equity
	pos := s.Position(p.Symbol)
	resulting := math.Abs((pos.Quantity + p.Direction.Sign()*p.Quantity) * p.PriceHint)
	if resulting > maxNotional {
		return reject(CodePositionSize,
			"resulting notional %.2f exceeds cap %.2f (%.0f%% of equity %.2f)",
			resulting, maxNotional, 100*lim.MaxPositionSize, equity)
	}

	// Daily loss: once breached the day is hold-only
	limit := lim.MaxDailyLoss * s.StartOfDayEquity
	if s.RealizedPnLToday <= -limit {
		return reject(CodeDailyLoss,
			"daily realized %.2f breaches limit -%.2f, hold-only until rollover",
			s.RealizedPnLToday, limit)
	}

	// Stop loss: positions past the threshold may only be reduced
	if pos.Quantity != 0 && pos.UnrealizedPnLPct() <= -lim.StopLossPct {
		increasing := p.Direction.Sign()*pos.Quantity > 0
		flipping := !increasing && p.Quantity > math.Abs(pos.Quantity)
		if increasing || flipping {
			return reject(CodeStopLoss,
				"position down %.2f%% past stop %.2f%%, only reducing orders allowed",
				-100*pos.UnrealizedPnLPct(), 100*lim.StopLossPct)
		}
	}

	return Verdict{Approved: true, Quantity: p.Quantity}
}

// Gate applies Evaluate and stamps approved proposals into orders.
type Gate struct {
	lim    Limits
	logger zerolog.Logger
}

// NewGate creates a new risk gate.
func NewGate(lim Limits, logger zerolog.Logger) *Gate {
	return &Gate{lim: lim, logger: logger}
}

// Review evaluates a proposal. Approved proposals come back as orders with a
// fresh ULID; the same verdict's order must be reused for any resubmission.
func (g *Gate) Review(p models.ActionProposal, s models.PortfolioState) (models.ApprovedOrder, Verdict) {
	verdict := Evaluate(p, s, g.lim)
	if !verdict.Approved {
		g.logger.Info().
			Str("symbol", p.Symbol).
			Str("direction", string(p.Direction)).
			Str("code", string(verdict.Code)).
			Str("reason", verdict.Reason).
			Msg("Proposal rejected")
		return models.ApprovedOrder{}, verdict
	}

	order := models.ApprovedOrder{
		OrderID:    utils.NewID(),
		Proposal:   p,
		Quantity:   verdict.Quantity,
		ApprovedAt: time.Now().UTC(),
	}
	return order, verdict
}
