// Package feed provides market data sources.
package feed

import (
	"context"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

// Feed streams market bars for a set of symbols.
type Feed interface {
	// Run streams bars into out until ctx is cancelled or the feed fails
	// permanently. Run owns neither the channel nor its closure; callers
	// decide when to stop consuming.
	Run(ctx context.Context, out chan<- models.Bar) error
}
