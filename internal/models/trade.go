package models

import (
	"time"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/errors"
)

// Trade represents one confirmed fill. Partial fills of an order each produce
// their own Trade with proportional quantity and fees. The ledger stamps
// RealizedPnL when the fill is applied; all other fields are immutable once
// created.
type Trade struct {
	ID          string
	OrderID     string
	Symbol      string
	Side        Side
	Quantity    float64
	Price       float64
	Fees        float64
	RealizedPnL float64 // realized PnL delta attributable to this fill
	Timestamp   time.Time
}

// NewTrade validates the required fields and returns the trade. The engine
// never constructs trades any other way, so a Trade in flight is always
// well-formed.
func NewTrade(id, orderID, symbol string, side Side, quantity, price, fees float64, ts time.Time) (Trade, error) {
	if id == "" {
		return Trade{}, errors.NewValidationError("id", id, "must not be empty")
	}
	if symbol == "" {
		return Trade{}, errors.NewValidationError("symbol", symbol, "must not be empty")
	}
	if side != SideBuy && side != SideSell {
		return Trade{}, errors.NewValidationError("side", side, "must be BUY or SELL")
	}
	if quantity <= 0 {
		return Trade{}, errors.NewValidationError("quantity", quantity, "must be positive")
	}
	if price <= 0 {
		return Trade{}, errors.NewValidationError("price", price, "must be positive")
	}
	if fees < 0 {
		return Trade{}, errors.NewValidationError("fees", fees, "must not be negative")
	}
	if ts.IsZero() {
		return Trade{}, errors.NewValidationError("timestamp", ts, "must be set")
	}
	return Trade{
		ID:        id,
		OrderID:   orderID,
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		Fees:      fees,
		Timestamp: ts,
	}, nil
}

// Notional returns the unsigned cash value of the fill.
func (t Trade) Notional() float64 {
	return t.Quantity * t.Price
}

// SignedQuantity returns the quantity with the side's sign applied.
func (t Trade) SignedQuantity() float64 {
	return t.Side.Sign() * t.Quantity
}
