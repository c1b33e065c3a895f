package models

import (
	"math"
	"time"
)

// Position is an open signed position in one symbol.
type Position struct {
	Symbol    string
	Quantity  float64 // signed: positive long, negative short
	AvgPrice  float64 // volume-weighted entry price of the open quantity
	LastPrice float64 // most recent mark used for valuation
}

// Notional returns the signed cash value of the position at the last mark.
func (p Position) Notional() float64 {
	return p.Quantity * p.LastPrice
}

// UnrealizedPnL returns the open profit or loss at the last mark.
func (p Position) UnrealizedPnL() float64 {
	return p.Quantity * (p.LastPrice - p.AvgPrice)
}

// UnrealizedPnLPct returns the unrealized move relative to the entry value.
// Zero when the position is flat or has no entry basis.
func (p Position) UnrealizedPnLPct() float64 {
	basis := math.Abs(p.Quantity) * p.AvgPrice
	if basis == 0 {
		return 0
	}
	return p.UnrealizedPnL() / basis
}

// Flat reports whether the position is effectively closed.
func (p Position) Flat() bool {
	return p.Quantity == 0
}

// PortfolioState is a point-in-time immutable copy of the ledger. Readers may
// hold it for as long as they like without blocking the ledger; they must not
// mutate the maps.
type PortfolioState struct {
	Cash             float64
	Positions        map[string]Position
	RealizedPnL      float64 // cumulative since start
	RealizedPnLToday float64 // realized PnL for the current UTC day
	StartOfDayEquity float64
	PeakEquity       float64
	Halted           map[string]bool
	AsOf             time.Time
}

// Equity returns free cash plus the signed notional of every position.
func (s PortfolioState) Equity() float64 {
	eq := s.Cash
	for _, p := range s.Positions {
		eq += p.Notional()
	}
	return eq
}

// Drawdown returns the fractional decline from the peak equity, in [0,1].
func (s PortfolioState) Drawdown() float64 {
	if s.PeakEquity <= 0 {
		return 0
	}
	dd := (s.PeakEquity - s.Equity()) / s.PeakEquity
	if dd < 0 {
		return 0
	}
	return dd
}

// Position returns the position for symbol; the zero Position when flat.
func (s PortfolioState) Position(symbol string) Position {
	if p, ok := s.Positions[symbol]; ok {
		return p
	}
	return Position{Symbol: symbol}
}

// IsHalted reports whether trading is halted for symbol.
func (s PortfolioState) IsHalted(symbol string) bool {
	return s.Halted[symbol]
}
