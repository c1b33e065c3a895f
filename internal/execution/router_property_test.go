package execution

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/portfolio"
)

// Property: Fill slicing conserves quantity, fees and cash
//
// However an order is sliced into partial fills, the recorded trades must sum
// to the ordered quantity, carry fees proportional to their notional, and
// leave the ledger's cash reconciled with the order's total cost.
func TestProperty_PartialFillConservation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 150
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	const initialCash = 1e9

	properties.Property("trades reconcile for any slice count", prop.ForAll(
		func(qty, price, fee float64, slices int) bool {
			sim := NewSimEndpoint(SimEndpointConfig{PartialFills: slices})
			ledger := portfolio.NewLedger(portfolio.LedgerConfig{InitialCash: initialCash})
			r := NewRouter(RouterConfig{
				ExchangeFee:  fee,
				APITimeout:   time.Second,
				PollInterval: time.Millisecond,
				Logger:       zerolog.Nop(),
			}, sim, ledger)

			res, err := r.Submit(context.Background(), approvedOrder("BTCUSDT", models.SideBuy, qty, price))
			if err != nil {
				t.Logf("unexpected submit error: %v", err)
				return false
			}
			if res.State != models.OrderFilled {
				t.Logf("unexpected state: %s", res.State)
				return false
			}
			if len(res.Trades) != slices {
				t.Logf("got %d trades, want %d", len(res.Trades), slices)
				return false
			}

			var totalQty, totalFees float64
			for _, trade := range res.Trades {
				if math.Abs(trade.Fees-fee*trade.Quantity*trade.Price) > 1e-9 {
					t.Logf("fee mismatch on trade %s", trade.ID)
					return false
				}
				totalQty += trade.Quantity
				totalFees += trade.Fees
			}
			if math.Abs(totalQty-qty) > 1e-9*math.Max(1, qty) {
				t.Logf("quantity drift: got %v want %v", totalQty, qty)
				return false
			}

			wantCash := initialCash - qty*price - totalFees
			if math.Abs(ledger.Snapshot().Cash-wantCash) > 1e-3 {
				t.Logf("cash drift: got %v want %v", ledger.Snapshot().Cash, wantCash)
				return false
			}
			return true
		},
		gen.Float64Range(0.01, 5),
		gen.Float64Range(1, 60000),
		gen.Float64Range(0, 0.005),
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}
