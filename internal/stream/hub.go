// Package stream distributes executed trades to downstream consumers.
package stream

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

// HubConfig holds configuration for the trade hub.
type HubConfig struct {
	// BufferSize is the size of the internal trade channel buffer.
	BufferSize int
	// SubscriberBuffer is the size of each subscriber's channel buffer.
	SubscriberBuffer int
	// DropWarnEvery controls how often a slow subscriber is logged.
	DropWarnEvery int
	Logger        zerolog.Logger
}

// DefaultHubConfig returns the default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		BufferSize:       1000,
		SubscriberBuffer: 100,
		DropWarnEvery:    10,
	}
}

type subscriber struct {
	name    string
	ch      chan models.Trade
	dropped int
}

// Hub fans executed trades out to named subscribers (learner, persister,
// notifier). Sends never block the execution path: a subscriber that falls
// behind loses trades rather than stalling everyone else.
type Hub struct {
	cfg    HubConfig
	logger zerolog.Logger

	mu          sync.Mutex
	subscribers map[string]*subscriber
	started     bool
	done        chan struct{}

	in chan models.Trade

	statsMu   sync.Mutex
	published uint64
	delivered uint64
	dropped   uint64
}

// NewHub creates a trade hub.
func NewHub(cfg HubConfig) *Hub {
	def := DefaultHubConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = def.SubscriberBuffer
	}
	if cfg.DropWarnEvery <= 0 {
		cfg.DropWarnEvery = def.DropWarnEvery
	}
	return &Hub{
		cfg:         cfg,
		logger:      cfg.Logger,
		subscribers: make(map[string]*subscriber),
		done:        make(chan struct{}),
		in:          make(chan models.Trade, cfg.BufferSize),
	}
}

// Start launches the distribution loop. It is a no-op when already running.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return
	}
	h.started = true
	go h.loop(ctx)
}

// Stop ends distribution and closes every subscriber channel.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return
	}
	h.started = false
	close(h.done)

	for name, sub := range h.subscribers {
		close(sub.ch)
		delete(h.subscribers, name)
	}
}

// Subscribe registers a named consumer and returns its trade channel. A
// second subscriber with the same name replaces the first, whose channel is
// closed.
func (h *Hub) Subscribe(name string) <-chan models.Trade {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.subscribers[name]; ok {
		close(old.ch)
	}
	sub := &subscriber{name: name, ch: make(chan models.Trade, h.cfg.SubscriberBuffer)}
	h.subscribers[name] = sub
	return sub.ch
}

// Unsubscribe removes a named consumer and closes its channel.
func (h *Hub) Unsubscribe(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subscribers[name]; ok {
		close(sub.ch)
		delete(h.subscribers, name)
	}
}

// Publish hands a trade to the hub. Non-blocking: when the internal buffer is
// full the trade is dropped and counted rather than stalling the caller.
func (h *Hub) Publish(trade models.Trade) {
	select {
	case h.in <- trade:
		h.statsMu.Lock()
		h.published++
		h.statsMu.Unlock()
	default:
		h.statsMu.Lock()
		h.dropped++
		h.statsMu.Unlock()
		h.logger.Warn().Str("trade_id", trade.ID).Msg("Trade hub buffer full, trade dropped")
	}
}

func (h *Hub) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case trade := <-h.in:
			h.broadcast(trade)
		}
	}
}

func (h *Hub) broadcast(trade models.Trade) {
	// Sends are non-blocking, so holding the lock here is cheap and keeps
	// Unsubscribe from closing a channel mid-send.
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subscribers {
		select {
		case sub.ch <- trade:
			h.statsMu.Lock()
			h.delivered++
			h.statsMu.Unlock()
		default:
			h.statsMu.Lock()
			h.dropped++
			h.statsMu.Unlock()

			sub.dropped++
			if sub.dropped%h.cfg.DropWarnEvery == 0 {
				h.logger.Warn().
					Str("subscriber", sub.name).
					Int("dropped", sub.dropped).
					Msg("Slow trade subscriber dropping trades")
			}
		}
	}
}

// Stats is a snapshot of the hub's delivery counters.
type Stats struct {
	Published   uint64
	Delivered   uint64
	Dropped     uint64
	Subscribers int
}

// Stats returns current delivery counters.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	n := len(h.subscribers)
	h.mu.Unlock()

	h.statsMu.Lock()
	defer h.statsMu.Unlock()
	return Stats{
		Published:   h.published,
		Delivered:   h.delivered,
		Dropped:     h.dropped,
		Subscribers: n,
	}
}
