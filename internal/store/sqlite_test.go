package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestSaveTradeAndHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		trade := models.Trade{
			ID:        fmt.Sprintf("trade-%d", i),
			OrderID:   fmt.Sprintf("order-%d", i),
			Symbol:    "BTCUSDT",
			Side:      models.SideBuy,
			Quantity:  1.5,
			Price:     50000 + float64(i),
			Fees:      75.0,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.SaveTrade(ctx, trade))
	}
	require.NoError(t, s.SaveTrade(ctx, models.Trade{
		ID: "trade-eth", OrderID: "order-eth", Symbol: "ETHUSDT",
		Side: models.SideSell, Quantity: 10, Price: 3000, Fees: 30,
		RealizedPnL: 120.5, Timestamp: base.Add(time.Hour),
	}))

	// Most recent first, across all symbols
	all, err := s.TradeHistory(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, "trade-eth", all[0].ID)
	assert.Equal(t, "trade-4", all[1].ID)

	// Symbol filter and limit
	btc, err := s.TradeHistory(ctx, "BTCUSDT", 3)
	require.NoError(t, err)
	require.Len(t, btc, 3)
	for _, tr := range btc {
		assert.Equal(t, "BTCUSDT", tr.Symbol)
	}

	// Field round-trip
	eth := all[0]
	assert.Equal(t, models.SideSell, eth.Side)
	assert.Equal(t, 10.0, eth.Quantity)
	assert.Equal(t, 3000.0, eth.Price)
	assert.Equal(t, 120.5, eth.RealizedPnL)
	assert.True(t, eth.Timestamp.Equal(base.Add(time.Hour)))
}

func TestSaveTradeIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	trade := models.Trade{
		ID: "dup", OrderID: "order-1", Symbol: "BTCUSDT",
		Side: models.SideBuy, Quantity: 1, Price: 100, Fees: 0.1,
		Timestamp: time.Now().UTC(),
	}
	require.NoError(t, s.SaveTrade(ctx, trade))
	require.NoError(t, s.SaveTrade(ctx, trade))

	all, err := s.TradeHistory(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPortfolioSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, found, err := s.LoadPortfolioSnapshot(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	first := models.PortfolioState{
		Cash:             90000,
		RealizedPnL:      -500,
		RealizedPnLToday: -500,
		StartOfDayEquity: 100000,
		PeakEquity:       101000,
		Positions: map[string]models.Position{
			"BTCUSDT": {Symbol: "BTCUSDT", Quantity: 0.2, AvgPrice: 50000, LastPrice: 49000},
		},
		Halted: map[string]bool{"ETHUSDT": true},
		AsOf:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SavePortfolioSnapshot(ctx, first))

	second := first
	second.Cash = 95000
	second.AsOf = first.AsOf.Add(time.Minute)
	require.NoError(t, s.SavePortfolioSnapshot(ctx, second))

	loaded, found, err := s.LoadPortfolioSnapshot(ctx)
	require.NoError(t, err)
	require.True(t, found)

	// Latest snapshot wins
	assert.Equal(t, 95000.0, loaded.Cash)
	assert.Equal(t, -500.0, loaded.RealizedPnLToday)
	assert.Equal(t, 100000.0, loaded.StartOfDayEquity)
	assert.Equal(t, 101000.0, loaded.PeakEquity)
	require.Contains(t, loaded.Positions, "BTCUSDT")
	assert.Equal(t, 0.2, loaded.Positions["BTCUSDT"].Quantity)
	assert.Equal(t, 50000.0, loaded.Positions["BTCUSDT"].AvgPrice)
	assert.True(t, loaded.Halted["ETHUSDT"])
	assert.True(t, loaded.AsOf.Equal(second.AsOf))
}

// Property: For any valid trade, saving it and reading it back through the
// history query produces an equivalent record.
func TestProperty_TradeRoundTripConsistency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	symbols := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "XRPUSDT"}
	seq := 0

	properties.Property("trade round-trip: save then query produces equivalent data", prop.ForAll(
		func(symbolIdx int, sell bool, qty, price, fees, pnl float64) bool {
			seq++
			id := fmt.Sprintf("prop-trade-%d", seq)
			side := models.SideBuy
			if sell {
				side = models.SideSell
			}

			trade := models.Trade{
				ID:          id,
				OrderID:     fmt.Sprintf("prop-order-%d", seq),
				Symbol:      symbols[symbolIdx%len(symbols)],
				Side:        side,
				Quantity:    qty,
				Price:       price,
				Fees:        fees,
				RealizedPnL: pnl,
				Timestamp:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(seq) * time.Second),
			}

			if err := s.SaveTrade(ctx, trade); err != nil {
				t.Logf("Failed to save trade: %v", err)
				return false
			}

			got, err := s.TradeHistory(ctx, trade.Symbol, 1000)
			if err != nil {
				t.Logf("Failed to query trades: %v", err)
				return false
			}

			for _, g := range got {
				if g.ID == id {
					return g.OrderID == trade.OrderID &&
						g.Side == trade.Side &&
						g.Quantity == trade.Quantity &&
						g.Price == trade.Price &&
						g.Fees == trade.Fees &&
						g.RealizedPnL == trade.RealizedPnL &&
						g.Timestamp.Equal(trade.Timestamp)
				}
			}
			t.Logf("Trade %s not found after save", id)
			return false
		},
		gen.IntRange(0, 3),
		gen.Bool(),
		gen.Float64Range(0.0001, 1000),
		gen.Float64Range(0.01, 100000),
		gen.Float64Range(0, 500),
		gen.Float64Range(-10000, 10000),
	))

	properties.TestingRun(t)
}
