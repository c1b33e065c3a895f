package portfolio

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

// Property: Cash conservation under arbitrary fill sequences
//
// For any sequence of valid fills, the ledger's cash must equal the initial
// cash minus every signed notional and every fee, and the lifetime realized
// PnL must equal the sum of the per-trade realized PnL it stamped.
func TestProperty_CashConservation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	const initialCash = 1e9

	properties.Property("cash and realized PnL reconcile after any fill sequence", prop.ForAll(
		func(seed int64, n int) bool {
			rng := rand.New(rand.NewSource(seed))
			l := NewLedger(LedgerConfig{InitialCash: initialCash})

			expectedCash := initialCash
			sumRealized := 0.0
			ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

			for i := 0; i < n; i++ {
				side := models.SideBuy
				if rng.Intn(2) == 1 {
					side = models.SideSell
				}
				qty := 0.1 + 10*rng.Float64()
				price := 1 + 1000*rng.Float64()
				fees := 5 * rng.Float64()
				ts = ts.Add(time.Minute)

				enriched, err := l.ApplyFill(models.Trade{
					ID: fmt.Sprintf("p-%d-%d", seed, i), OrderID: "o", Symbol: "BTCUSDT",
					Side: side, Quantity: qty, Price: price, Fees: fees, Timestamp: ts,
				})
				if err != nil {
					t.Logf("unexpected fill error: %v", err)
					return false
				}

				expectedCash -= enriched.SignedQuantity()*price + fees
				sumRealized += enriched.RealizedPnL
			}

			s := l.Snapshot()
			if math.Abs(s.Cash-expectedCash) > 1e-3 {
				t.Logf("cash drift: got %v want %v", s.Cash, expectedCash)
				return false
			}
			if math.Abs(s.RealizedPnL-sumRealized) > 1e-3 {
				t.Logf("realized drift: got %v want %v", s.RealizedPnL, sumRealized)
				return false
			}
			return true
		},
		gen.Int64Range(1, 1<<30),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}

// Property: Round trips with zero fees realize exactly the price move
func TestProperty_RoundTripRealizesPriceMove(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("buy qty at p1, sell qty at p2 realizes qty*(p2-p1)", prop.ForAll(
		func(qty, p1, p2 float64) bool {
			l := NewLedger(LedgerConfig{InitialCash: 1e9})
			ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

			if _, err := l.ApplyFill(models.Trade{
				ID: "open", OrderID: "o1", Symbol: "ETHUSDT",
				Side: models.SideBuy, Quantity: qty, Price: p1, Timestamp: ts,
			}); err != nil {
				return false
			}

			enriched, err := l.ApplyFill(models.Trade{
				ID: "close", OrderID: "o2", Symbol: "ETHUSDT",
				Side: models.SideSell, Quantity: qty, Price: p2, Timestamp: ts.Add(time.Minute),
			})
			if err != nil {
				return false
			}

			want := qty * (p2 - p1)
			if math.Abs(enriched.RealizedPnL-want) > 1e-6*math.Max(1, math.Abs(want)) {
				t.Logf("realized %v want %v", enriched.RealizedPnL, want)
				return false
			}

			s := l.Snapshot()
			if len(s.Positions) != 0 {
				t.Logf("position not flat after round trip: %+v", s.Positions)
				return false
			}
			return math.Abs(s.Cash-(1e9+want)) < 1e-3
		},
		gen.Float64Range(0.001, 100),
		gen.Float64Range(1, 50000),
		gen.Float64Range(1, 50000),
	))

	properties.TestingRun(t)
}
