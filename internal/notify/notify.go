// Package notify surfaces engine events to an operator.
package notify

import (
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

// Notifier receives the events worth an operator's attention. Implementations
// must never block the caller; the engine invokes these from its decision and
// training goroutines.
type Notifier interface {
	// TradeExecuted reports one confirmed fill.
	TradeExecuted(trade models.Trade)
	// ProposalRejected reports a proposal the risk gate refused.
	ProposalRejected(symbol, code, reason string)
	// SymbolHalted reports that trading in a symbol was suspended.
	SymbolHalted(symbol, reason string)
	// CheckpointInstalled reports a new policy checkpoint going live.
	CheckpointInstalled(version string, step, trainedOn int)
	// EngineError reports a failure the engine survived.
	EngineError(scope string, err error)
	// Info reports session-level events such as start and drain.
	Info(message string)
}

// NoOpNotifier discards every event.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a notifier that does nothing.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// TradeExecuted does nothing.
func (n *NoOpNotifier) TradeExecuted(models.Trade) {}

// ProposalRejected does nothing.
func (n *NoOpNotifier) ProposalRejected(string, string, string) {}

// SymbolHalted does nothing.
func (n *NoOpNotifier) SymbolHalted(string, string) {}

// CheckpointInstalled does nothing.
func (n *NoOpNotifier) CheckpointInstalled(string, int, int) {}

// EngineError does nothing.
func (n *NoOpNotifier) EngineError(string, error) {}

// Info does nothing.
func (n *NoOpNotifier) Info(string) {}

var _ Notifier = (*NoOpNotifier)(nil)
