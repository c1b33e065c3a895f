package execution

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/errors"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

// SimEndpointConfig holds configuration for the simulated endpoint.
type SimEndpointConfig struct {
	Latency      time.Duration // processing delay per call
	FillDelay    time.Duration // delay before each successive fill slice confirms
	PartialFills int           // fill slices per order, default 1
	Slippage     float64       // fractional price move against the order

	// Failure injection
	FailPlaces         int  // first N Place calls time out
	FailStatuses       int  // first N StatusOf calls fail transiently
	LandDespiteTimeout bool // timed-out placements still land at the venue

	RejectSymbols map[string]string // symbol -> rejection reason
}

type simOrder struct {
	req         PlaceRequest
	created     time.Time
	cancelledAt time.Time // zero while active
}

// SimEndpoint simulates an execution venue for paper trading and tests.
// Orders fill on a schedule: slice i confirms FillDelay*(i+1) after placement,
// so a zero delay fills instantly and a positive one exercises the polling
// path. Placement is idempotent on the order ID.
type SimEndpoint struct {
	cfg SimEndpointConfig
	now func() time.Time

	mu           sync.Mutex
	orders       map[string]*simOrder
	placeCalls   int
	timeoutsLeft int
	outagesLeft  int
}

// NewSimEndpoint creates a simulated execution endpoint.
func NewSimEndpoint(cfg SimEndpointConfig) *SimEndpoint {
	if cfg.PartialFills <= 0 {
		cfg.PartialFills = 1
	}
	return &SimEndpoint{
		cfg:          cfg,
		now:          time.Now,
		orders:       make(map[string]*simOrder),
		timeoutsLeft: cfg.FailPlaces,
		outagesLeft:  cfg.FailStatuses,
	}
}

// Place registers an order. A duplicate order ID replays the existing order's
// status instead of creating a second one.
func (s *SimEndpoint) Place(ctx context.Context, req PlaceRequest) (OrderStatus, error) {
	if err := s.sleep(ctx, s.cfg.Latency); err != nil {
		return OrderStatus{}, err
	}

	s.mu.Lock()
	s.placeCalls++

	if o, ok := s.orders[req.OrderID]; ok {
		status := s.statusLocked(o)
		s.mu.Unlock()
		return status, nil
	}

	if reason, ok := s.cfg.RejectSymbols[req.Symbol]; ok {
		s.mu.Unlock()
		return OrderStatus{OrderID: req.OrderID, State: models.OrderRejected, Reason: reason}, nil
	}

	if s.timeoutsLeft > 0 {
		s.timeoutsLeft--
		if s.cfg.LandDespiteTimeout {
			s.orders[req.OrderID] = &simOrder{req: req, created: s.now()}
		}
		s.mu.Unlock()
		<-ctx.Done()
		return OrderStatus{}, ctx.Err()
	}

	o := &simOrder{req: req, created: s.now()}
	s.orders[req.OrderID] = o
	status := s.statusLocked(o)
	s.mu.Unlock()
	return status, nil
}

// StatusOf returns the order's current status.
func (s *SimEndpoint) StatusOf(ctx context.Context, orderID string) (OrderStatus, error) {
	if err := s.sleep(ctx, s.cfg.Latency); err != nil {
		return OrderStatus{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outagesLeft > 0 {
		s.outagesLeft--
		return OrderStatus{}, errors.New("status temporarily unavailable")
	}

	o, ok := s.orders[orderID]
	if !ok {
		return OrderStatus{}, apperrors.Wrapf(apperrors.ErrOrderNotFound, "order %s", orderID)
	}
	return s.statusLocked(o), nil
}

// Cancel stops an active order. Fills already confirmed stand; slices due
// after the cancel never confirm.
func (s *SimEndpoint) Cancel(ctx context.Context, orderID string) error {
	if err := s.sleep(ctx, s.cfg.Latency); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return apperrors.Wrapf(apperrors.ErrOrderNotFound, "order %s", orderID)
	}
	if st := s.statusLocked(o); st.State.Terminal() {
		return apperrors.Wrapf(apperrors.ErrOrderTerminal, "order %s is %s", orderID, st.State)
	}
	o.cancelledAt = s.now()
	return nil
}

// PlaceCalls returns how many Place calls the endpoint has seen.
func (s *SimEndpoint) PlaceCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placeCalls
}

// statusLocked computes the fills visible now from the order's schedule.
func (s *SimEndpoint) statusLocked(o *simOrder) OrderStatus {
	slices := s.cfg.PartialFills
	base := o.req.Quantity / float64(slices)
	price := o.req.PriceHint * (1 + s.cfg.Slippage*o.req.Side.Sign())

	cutoff := s.now()
	if !o.cancelledAt.IsZero() && o.cancelledAt.Before(cutoff) {
		cutoff = o.cancelledAt
	}

	var fills []Fill
	for i := 0; i < slices; i++ {
		at := o.created.Add(time.Duration(i+1) * s.cfg.FillDelay)
		if at.After(cutoff) {
			break
		}
		qty := base
		if i == slices-1 {
			qty = o.req.Quantity - base*float64(slices-1)
		}
		fills = append(fills, Fill{Quantity: qty, Price: price, Timestamp: at})
	}

	state := models.OrderSubmitted
	switch {
	case len(fills) == slices:
		state = models.OrderFilled
	case !o.cancelledAt.IsZero():
		state = models.OrderCancelled
	case len(fills) > 0:
		state = models.OrderPartiallyFilled
	}

	return OrderStatus{OrderID: o.req.OrderID, State: state, Fills: fills}
}

func (s *SimEndpoint) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ Endpoint = (*SimEndpoint)(nil)
