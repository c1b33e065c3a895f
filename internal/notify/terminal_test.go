package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

func TestTerminalNotifier_PrintsQueuedEvents(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tn := NewTerminalNotifier(TerminalConfig{Out: &buf})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tn.Start(ctx)

	trade, err := models.NewTrade("t1", "o1", "BTCUSDT", models.SideBuy, 0.5, 50000, 25, time.Now().UTC())
	require.NoError(t, err)
	trade.RealizedPnL = -25

	tn.TradeExecuted(trade)
	tn.ProposalRejected("ETHUSDT", "DAILY_LOSS", "daily realized -2100.00 breaches limit")
	tn.SymbolHalted("SOLUSDT", "repeated execution failures")
	tn.CheckpointInstalled("v-abc", 3, 96)
	tn.EngineError("store", errors.New("connection refused"))
	tn.Info("session started")

	// Stop flushes everything already queued before returning.
	tn.Stop()

	out := buf.String()
	assert.Contains(t, out, "BUY")
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "ETHUSDT rejected [DAILY_LOSS]")
	assert.Contains(t, out, "SOLUSDT halted: repeated execution failures")
	assert.Contains(t, out, "checkpoint v-abc live (step 3, trained on 96)")
	assert.Contains(t, out, "store: connection refused")
	assert.Contains(t, out, "session started")
}

func TestTerminalNotifier_NeverBlocksWhenFull(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	// Not started, so nothing drains while we overfill.
	tn := NewTerminalNotifier(TerminalConfig{Out: &buf, BufferSize: 2})

	done := make(chan struct{})
	go func() {
		defer close(done)
		tn.Info("first")
		tn.Info("second")
		tn.Info("third")
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier blocked on a full queue")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tn.Start(ctx)
	tn.Stop()

	out := buf.String()
	assert.NotContains(t, out, "first", "oldest event is shed when the queue overflows")
	assert.Contains(t, out, "second")
	assert.Contains(t, out, "third")
}

func TestNoOpNotifierDiscardsEverything(t *testing.T) {
	t.Parallel()

	n := NewNoOpNotifier()
	n.TradeExecuted(models.Trade{})
	n.ProposalRejected("BTCUSDT", "POSITION_SIZE", "over cap")
	n.SymbolHalted("BTCUSDT", "halted")
	n.CheckpointInstalled("v1", 1, 10)
	n.EngineError("feed", errors.New("boom"))
	n.Info("noop")
}
