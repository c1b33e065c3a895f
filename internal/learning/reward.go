// Package learning closes the feedback loop: trade outcomes become rewards,
// rewards become experience, and experience periodically becomes a new policy
// checkpoint.
package learning

import (
	"math"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

// Reward shaping weights. Exposure and drawdown are penalized so the policy
// does not learn to maximize raw PnL by pyramiding into oversized positions.
const (
	positionPenaltyWeight = 0.01
	drawdownPenaltyWeight = 0.05

	// RejectionReward is the signal fed back when the risk gate refuses a
	// proposal: a nudge away from actions the gate will never let through.
	RejectionReward = -0.02
)

// TradeReward computes the scalar learning signal for one applied fill given
// the portfolio state after it. Realized PnL is normalized by equity so the
// signal is scale-free, then discounted by the open exposure in the traded
// symbol and the current drawdown. The result is clamped to [-1, 1].
func TradeReward(trade models.Trade, snap models.PortfolioState) float64 {
	equity := snap.Equity()
	if equity <= 0 || math.IsNaN(equity) || math.IsInf(equity, 0) {
		return 0
	}

	r := trade.RealizedPnL / equity

	fraction := math.Abs(snap.Position(trade.Symbol).Notional()) / equity
	r -= positionPenaltyWeight * fraction
	r -= drawdownPenaltyWeight * snap.Drawdown()

	return clamp(r, -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
