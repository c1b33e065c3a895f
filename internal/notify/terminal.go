package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/pkg/utils"
)

type eventKind int

const (
	kindTrade eventKind = iota
	kindRejection
	kindHalt
	kindCheckpoint
	kindError
	kindInfo
)

type event struct {
	kind eventKind
	text string
	ts   time.Time
}

// TerminalConfig holds configuration for the terminal notifier.
type TerminalConfig struct {
	// BufferSize is how many events queue before the oldest is dropped.
	BufferSize int
	// Out defaults to color-capable stdout.
	Out io.Writer
}

// TerminalNotifier prints engine events to the terminal. Events queue through
// a buffered channel so callers never wait on terminal I/O; when the queue is
// full the oldest event is dropped to keep fresh ones flowing.
type TerminalNotifier struct {
	out    io.Writer
	events chan event

	mu      sync.Mutex
	started bool
	done    chan struct{}
	drained chan struct{}
}

// NewTerminalNotifier creates a terminal notifier.
func NewTerminalNotifier(cfg TerminalConfig) *TerminalNotifier {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	out := cfg.Out
	if out == nil {
		out = color.Output
	}
	return &TerminalNotifier{
		out:     out,
		events:  make(chan event, cfg.BufferSize),
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
}

// Start launches the printing loop. No-op when already running.
func (t *TerminalNotifier) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true
	go t.loop(ctx)
}

// Stop ends the printing loop after flushing queued events.
func (t *TerminalNotifier) Stop() {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return
	}
	t.started = false
	close(t.done)
	drained := t.drained
	t.mu.Unlock()

	<-drained
}

func (t *TerminalNotifier) loop(ctx context.Context) {
	defer close(t.drained)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			// Flush whatever is already queued, then exit.
			for {
				select {
				case e := <-t.events:
					t.print(e)
				default:
					return
				}
			}
		case e := <-t.events:
			t.print(e)
		}
	}
}

func (t *TerminalNotifier) enqueue(kind eventKind, format string, args ...interface{}) {
	e := event{kind: kind, text: fmt.Sprintf(format, args...), ts: time.Now()}
	select {
	case t.events <- e:
		return
	default:
	}
	// Full: shed the oldest and try once more, never block.
	select {
	case <-t.events:
	default:
	}
	select {
	case t.events <- e:
	default:
	}
}

func (t *TerminalNotifier) print(e event) {
	stamp := e.ts.Format("15:04:05")
	var c *color.Color
	switch e.kind {
	case kindTrade:
		c = color.New(color.FgGreen)
	case kindRejection:
		c = color.New(color.FgYellow)
	case kindHalt, kindError:
		c = color.New(color.FgRed)
	case kindCheckpoint:
		c = color.New(color.FgCyan)
	default:
		c = color.New(color.FgWhite)
	}
	c.Fprintf(t.out, "[%s] %s\n", stamp, e.text)
}

// TradeExecuted prints one confirmed fill.
func (t *TerminalNotifier) TradeExecuted(trade models.Trade) {
	t.enqueue(kindTrade, "✓ %s %s %s @ %s (fees %s, realized %s)",
		trade.Side, utils.FormatQuantity(trade.Quantity), trade.Symbol,
		utils.FormatUSD(trade.Price), utils.FormatUSD(trade.Fees),
		utils.FormatPnL(trade.RealizedPnL))
}

// ProposalRejected prints a risk gate refusal.
func (t *TerminalNotifier) ProposalRejected(symbol, code, reason string) {
	t.enqueue(kindRejection, "⚠ %s rejected [%s]: %s", symbol, code, reason)
}

// SymbolHalted prints a trading halt.
func (t *TerminalNotifier) SymbolHalted(symbol, reason string) {
	t.enqueue(kindHalt, "⛔ %s halted: %s", symbol, reason)
}

// CheckpointInstalled prints a policy checkpoint going live.
func (t *TerminalNotifier) CheckpointInstalled(version string, step, trainedOn int) {
	t.enqueue(kindCheckpoint, "policy checkpoint %s live (step %d, trained on %d)",
		version, step, trainedOn)
}

// EngineError prints a survived failure.
func (t *TerminalNotifier) EngineError(scope string, err error) {
	t.enqueue(kindError, "✗ %s: %v", scope, err)
}

// Info prints a session-level event.
func (t *TerminalNotifier) Info(message string) {
	t.enqueue(kindInfo, "%s", message)
}

var _ Notifier = (*TerminalNotifier)(nil)
