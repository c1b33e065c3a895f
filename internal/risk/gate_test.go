package risk

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

var testLimits = Limits{
	MaxPositionSize: 0.10,
	MaxDailyLoss:    0.02,
	StopLossPct:     0.02,
}

func flatState(cash float64) models.PortfolioState {
	return models.PortfolioState{
		Cash:             cash,
		Positions:        map[string]models.Position{},
		Halted:           map[string]bool{},
		StartOfDayEquity: cash,
		PeakEquity:       cash,
		AsOf:             time.Now().UTC(),
	}
}

func proposal(symbol string, dir models.Side, qty, price float64) models.ActionProposal {
	return models.ActionProposal{
		CycleID:   "cycle-1",
		Symbol:    symbol,
		Direction: dir,
		Quantity:  qty,
		PriceHint: price,
		CreatedAt: time.Now().UTC(),
	}
}

func TestEvaluatePositionSizeCap(t *testing.T) {
	s := flatState(100000)

	// 0.3 BTC at 50k is 15k notional against a 10k cap
	v := Evaluate(proposal("BTCUSDT", models.SideBuy, 0.3, 50000), s, testLimits)
	require.False(t, v.Approved)
	assert.Equal(t, CodePositionSize, v.Code)
	assert.Contains(t, v.Reason, "15000.00")

	// 0.18 BTC at 50k is 9k notional, inside the cap
	v = Evaluate(proposal("BTCUSDT", models.SideBuy, 0.18, 50000), s, testLimits)
	require.True(t, v.Approved)
	assert.Equal(t, 0.18, v.Quantity)
	assert.Empty(t, v.Code)
}

func TestEvaluateCountsExistingExposure(t *testing.T) {
	s := flatState(100000)
	s.Positions["BTCUSDT"] = models.Position{
		Symbol: "BTCUSDT", Quantity: 0.1, AvgPrice: 50000, LastPrice: 50000,
	}
	s.Cash = 95000 // equity stays 100k

	// Existing 5k plus new 9k breaches the 10k cap
	v := Evaluate(proposal("BTCUSDT", models.SideBuy, 0.18, 50000), s, testLimits)
	require.False(t, v.Approved)
	assert.Equal(t, CodePositionSize, v.Code)

	// Reducing the position is fine even though the traded notional is large
	v = Evaluate(proposal("BTCUSDT", models.SideSell, 0.1, 50000), s, testLimits)
	assert.True(t, v.Approved)
}

func TestEvaluateDailyLossHoldOnly(t *testing.T) {
	s := flatState(100000)
	s.RealizedPnLToday = -2000 // exactly at the 2% limit

	v := Evaluate(proposal("BTCUSDT", models.SideBuy, 0.01, 50000), s, testLimits)
	require.False(t, v.Approved)
	assert.Equal(t, CodeDailyLoss, v.Code)

	v = Evaluate(proposal("BTCUSDT", models.SideSell, 0.01, 50000), s, testLimits)
	require.False(t, v.Approved)
	assert.Equal(t, CodeDailyLoss, v.Code)

	// Holds still pass with zero quantity
	v = Evaluate(proposal("BTCUSDT", models.SideHold, 0, 0), s, testLimits)
	require.True(t, v.Approved)
	assert.Equal(t, 0.0, v.Quantity)

	// One cent above the limit trades again
	s.RealizedPnLToday = -1999.99
	v = Evaluate(proposal("BTCUSDT", models.SideBuy, 0.01, 50000), s, testLimits)
	assert.True(t, v.Approved)
}

func TestEvaluateStopLossReducingOnly(t *testing.T) {
	s := flatState(100000)
	// Long 0.1 from 50k, now 48k: down 4%, past the 2% stop
	s.Positions["BTCUSDT"] = models.Position{
		Symbol: "BTCUSDT", Quantity: 0.1, AvgPrice: 50000, LastPrice: 48000,
	}
	s.Cash = 95000

	// Adding to the loser is rejected
	v := Evaluate(proposal("BTCUSDT", models.SideBuy, 0.01, 48000), s, testLimits)
	require.False(t, v.Approved)
	assert.Equal(t, CodeStopLoss, v.Code)

	// Reducing is allowed
	v = Evaluate(proposal("BTCUSDT", models.SideSell, 0.05, 48000), s, testLimits)
	assert.True(t, v.Approved)

	// Closing entirely is allowed
	v = Evaluate(proposal("BTCUSDT", models.SideSell, 0.1, 48000), s, testLimits)
	assert.True(t, v.Approved)

	// Flipping through flat is not a reduction
	v = Evaluate(proposal("BTCUSDT", models.SideSell, 0.2, 48000), s, testLimits)
	require.False(t, v.Approved)
	assert.Equal(t, CodeStopLoss, v.Code)

	// Other symbols are unaffected
	v = Evaluate(proposal("ETHUSDT", models.SideBuy, 0.1, 3000), s, testLimits)
	assert.True(t, v.Approved)
}

func TestEvaluateHaltedRejectsEverything(t *testing.T) {
	s := flatState(100000)
	s.Halted["BTCUSDT"] = true

	v := Evaluate(proposal("BTCUSDT", models.SideBuy, 0.01, 50000), s, testLimits)
	require.False(t, v.Approved)
	assert.Equal(t, CodeSymbolHalted, v.Code)

	// Even holds bounce off a halted symbol
	v = Evaluate(proposal("BTCUSDT", models.SideHold, 0, 0), s, testLimits)
	require.False(t, v.Approved)
	assert.Equal(t, CodeSymbolHalted, v.Code)
}

func TestEvaluateChecksShortCircuitInOrder(t *testing.T) {
	s := flatState(100000)
	s.RealizedPnLToday = -5000 // daily loss breached as well

	// Position size fires first
	v := Evaluate(proposal("BTCUSDT", models.SideBuy, 1, 50000), s, testLimits)
	require.False(t, v.Approved)
	assert.Equal(t, CodePositionSize, v.Code)

	// Malformed proposals never reach the limit checks
	v = Evaluate(proposal("BTCUSDT", "SIDEWAYS", 1, 50000), s, testLimits)
	assert.Equal(t, CodeBadProposal, v.Code)

	v = Evaluate(proposal("BTCUSDT", models.SideBuy, -1, 50000), s, testLimits)
	assert.Equal(t, CodeBadProposal, v.Code)

	v = Evaluate(proposal("BTCUSDT", models.SideBuy, 1, 0), s, testLimits)
	assert.Equal(t, CodeBadProposal, v.Code)
}

func TestGateReviewMintsOrders(t *testing.T) {
	g := NewGate(testLimits, zerolog.Nop())
	s := flatState(100000)

	p := proposal("BTCUSDT", models.SideBuy, 0.1, 50000)
	order, verdict := g.Review(p, s)
	require.True(t, verdict.Approved)
	assert.Len(t, order.OrderID, 26)
	assert.Equal(t, p.Symbol, order.Proposal.Symbol)
	assert.Equal(t, 0.1, order.Quantity)
	assert.False(t, order.ApprovedAt.IsZero())

	second, _ := g.Review(p, s)
	assert.NotEqual(t, order.OrderID, second.OrderID, "every approval is a distinct order")

	rejected, verdict := g.Review(proposal("BTCUSDT", models.SideBuy, 10, 50000), s)
	require.False(t, verdict.Approved)
	assert.Empty(t, rejected.OrderID)
}
