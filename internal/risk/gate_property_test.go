package risk

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

// Property: Verdicts are internally consistent
//
// An approved verdict carries no rejection code; a rejected one carries a
// code and a reason. Approved non-hold quantities pass through unchanged.
func TestProperty_VerdictConsistency(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	sides := []models.Side{models.SideBuy, models.SideSell, models.SideHold}

	properties.Property("approved and rejected verdicts never blur", prop.ForAll(
		func(sideIdx int, qty, price, cash, pnlToday float64, halted bool) bool {
			s := flatState(cash)
			s.RealizedPnLToday = pnlToday
			if halted {
				s.Halted["BTCUSDT"] = true
			}

			p := proposal("BTCUSDT", sides[sideIdx%len(sides)], qty, price)
			v := Evaluate(p, s, testLimits)

			if v.Approved {
				if v.Code != "" || v.Reason != "" {
					return false
				}
				if p.Hold() {
					return v.Quantity == 0
				}
				return v.Quantity == p.Quantity
			}
			return v.Code != "" && v.Reason != ""
		},
		gen.IntRange(0, 2),
		gen.Float64Range(0.0001, 10),
		gen.Float64Range(1, 100000),
		gen.Float64Range(1000, 1e6),
		gen.Float64Range(-5000, 5000),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// Property: Shrinking an approved order keeps it approved
//
// With no existing position, if a buy of quantity q clears the gate then any
// smaller quantity at the same price clears it too.
func TestProperty_SmallerOrdersDominate(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("approval is monotone in quantity from a flat book", prop.ForAll(
		func(qty, price, cash, shrink float64) bool {
			s := flatState(cash)

			full := Evaluate(proposal("BTCUSDT", models.SideBuy, qty, price), s, testLimits)
			if !full.Approved {
				return true // nothing to dominate
			}

			smaller := Evaluate(proposal("BTCUSDT", models.SideBuy, qty*shrink, price), s, testLimits)
			return smaller.Approved
		},
		gen.Float64Range(0.0001, 10),
		gen.Float64Range(1, 100000),
		gen.Float64Range(1000, 1e6),
		gen.Float64Range(0.01, 0.99),
	))

	properties.TestingRun(t)
}
