// Package store provides state persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

// StateStore persists executed trades and portfolio snapshots. All writes are
// best-effort from the engine's point of view: a failing store degrades to
// in-memory operation, it never stops trading.
type StateStore interface {
	// SaveTrade records an executed fill.
	SaveTrade(ctx context.Context, trade models.Trade) error

	// TradeHistory returns up to limit trades, most recent first.
	// An empty symbol matches all symbols.
	TradeHistory(ctx context.Context, symbol string, limit int) ([]models.Trade, error)

	// SavePortfolioSnapshot records the portfolio state as of a point in time.
	SavePortfolioSnapshot(ctx context.Context, state models.PortfolioState) error

	// LoadPortfolioSnapshot returns the most recent snapshot. The bool is
	// false when no snapshot has ever been written.
	LoadPortfolioSnapshot(ctx context.Context) (models.PortfolioState, bool, error)

	// Lifecycle
	Close() error
}

// NopStore discards all writes and loads nothing. It backs offline mode,
// where the engine runs purely in memory.
type NopStore struct{}

// NewNopStore creates a store that persists nothing.
func NewNopStore() *NopStore {
	return &NopStore{}
}

func (n *NopStore) SaveTrade(ctx context.Context, trade models.Trade) error { return nil }

func (n *NopStore) TradeHistory(ctx context.Context, symbol string, limit int) ([]models.Trade, error) {
	return nil, nil
}

func (n *NopStore) SavePortfolioSnapshot(ctx context.Context, state models.PortfolioState) error {
	return nil
}

func (n *NopStore) LoadPortfolioSnapshot(ctx context.Context) (models.PortfolioState, bool, error) {
	return models.PortfolioState{}, false, nil
}

func (n *NopStore) Close() error { return nil }
