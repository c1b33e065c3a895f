package models

import "time"

// ActionProposal is the policy's intended action for one decision cycle.
// Ephemeral: exactly one per cycle, consumed by the risk gate.
type ActionProposal struct {
	CycleID    string
	Symbol     string
	Direction  Side
	Quantity   float64 // requested, base units
	PriceHint  float64
	Checkpoint string // version of the checkpoint that produced it
	Score      float64 // policy confidence in [0,1]
	CreatedAt  time.Time
}

// Hold reports whether the proposal requests no trade.
func (p ActionProposal) Hold() bool {
	return p.Direction == SideHold || p.Quantity == 0
}

// Notional returns the proposal's cash value at the price hint.
func (p ActionProposal) Notional() float64 {
	return p.Quantity * p.PriceHint
}

// ApprovedOrder is a risk-approved proposal bound to an idempotent order ID.
// The execution router owns it until the order reaches a terminal state.
type ApprovedOrder struct {
	OrderID    string // ULID; resubmission with the same ID never double-executes
	Proposal   ActionProposal
	Quantity   float64 // risk-adjusted, may be below Proposal.Quantity
	ApprovedAt time.Time
}

// Notional returns the approved cash value at the proposal's price hint.
func (o ApprovedOrder) Notional() float64 {
	return o.Quantity * o.Proposal.PriceHint
}
