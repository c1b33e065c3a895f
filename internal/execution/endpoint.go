// Package execution converts approved orders into confirmed fills and
// reconciles them into the portfolio ledger.
package execution

import (
	"context"
	"time"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

// PlaceRequest is the order instruction sent to the execution endpoint. The
// OrderID comes from the approved order and is the idempotency key: placing
// the same ID twice must not create a second order.
type PlaceRequest struct {
	OrderID   string
	Symbol    string
	Side      models.Side
	Quantity  float64
	PriceHint float64
}

// Fill is one confirmed execution slice of an order.
type Fill struct {
	Quantity  float64
	Price     float64
	Timestamp time.Time
}

// OrderStatus is the endpoint's view of an order. Fills is cumulative and
// append-only: earlier fills never change or disappear between polls.
type OrderStatus struct {
	OrderID string
	State   models.OrderState
	Fills   []Fill
	Reason  string // set when Rejected
}

// FilledQuantity returns the total quantity confirmed so far.
func (s OrderStatus) FilledQuantity() float64 {
	var q float64
	for _, f := range s.Fills {
		q += f.Quantity
	}
	return q
}

// Endpoint is the external execution venue. Place is idempotent on OrderID.
// A timed-out Place leaves the order in an unknown state; callers must
// reconcile via StatusOf before retrying.
type Endpoint interface {
	Place(ctx context.Context, req PlaceRequest) (OrderStatus, error)
	StatusOf(ctx context.Context, orderID string) (OrderStatus, error)
	Cancel(ctx context.Context, orderID string) error
}
