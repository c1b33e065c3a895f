// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrInvariantViolation  = errors.New("accounting invariant violated")
	ErrSymbolHalted        = errors.New("trading halted for symbol")
	ErrInsufficientHistory = errors.New("insufficient price history")
	ErrOrderTimeout        = errors.New("order submission timed out")
	ErrOrderRejected       = errors.New("order rejected by endpoint")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderTerminal       = errors.New("order already in terminal state")
	ErrEndpointSuspended   = errors.New("execution endpoint suspended")
	ErrStoreUnavailable    = errors.New("state store unavailable")
	ErrCheckpointUnsound   = errors.New("checkpoint failed sanity check")
	ErrFeedClosed          = errors.New("market feed closed")
)

// OrderError represents an error in the order submission path.
type OrderError struct {
	OrderID string
	Symbol  string
	Stage   string // "submit", "poll", "cancel", "reconcile"
	Err     error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order error [%s] %s during %s: %v", e.OrderID, e.Symbol, e.Stage, e.Err)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// NewOrderError creates a new OrderError.
func NewOrderError(orderID, symbol, stage string, err error) *OrderError {
	return &OrderError{
		OrderID: orderID,
		Symbol:  symbol,
		Stage:   stage,
		Err:     err,
	}
}

// InvariantError reports a portfolio accounting breach. It is fatal for the
// affected symbol: the ledger refuses further fills until the halt is cleared.
type InvariantError struct {
	Symbol string
	Detail string
	Cash   float64
	Equity float64
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation [%s]: %s (cash: %.2f, equity: %.2f)",
		e.Symbol, e.Detail, e.Cash, e.Equity)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariantViolation
}

// NewInvariantError creates a new InvariantError.
func NewInvariantError(symbol, detail string, cash, equity float64) *InvariantError {
	return &InvariantError{
		Symbol: symbol,
		Detail: detail,
		Cash:   cash,
		Equity: equity,
	}
}

// ValidationError represents a record that failed validation at construction.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// CheckpointError carries the reason a candidate checkpoint was discarded.
type CheckpointError struct {
	Version string
	Step    uint64
	Reason  string
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s (step %d) rejected: %s", e.Version, e.Step, e.Reason)
}

func (e *CheckpointError) Unwrap() error {
	return ErrCheckpointUnsound
}

// NewCheckpointError creates a new CheckpointError.
func NewCheckpointError(version string, step uint64, reason string) *CheckpointError {
	return &CheckpointError{
		Version: version,
		Step:    step,
		Reason:  reason,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
