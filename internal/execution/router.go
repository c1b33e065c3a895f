package execution

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/errors"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/logging"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/pkg/utils"
)

// FillApplier is the slice of the portfolio ledger the router needs: apply
// one confirmed fill and get back the trade with its realized PnL stamped.
type FillApplier interface {
	ApplyFill(trade models.Trade) (models.Trade, error)
}

// Result is the terminal outcome of one order. Trades holds one ledger-applied
// trade per confirmed fill, in fill order.
type Result struct {
	OrderID string
	State   models.OrderState
	Trades  []models.Trade
	Reason  string
}

// RouterConfig holds configuration for the execution router.
type RouterConfig struct {
	ExchangeFee  float64       // fee rate applied to every fill's notional
	APITimeout   time.Duration // budget for placement retries and for fill confirmation
	PollInterval time.Duration
	MaxAttempts  int           // place attempts before the order is marked rejected
	Breaker      BreakerConfig // endpoint suspension thresholds
	Logger       zerolog.Logger
}

// Router submits approved orders to the execution endpoint, tracks them to a
// terminal state and reconciles every confirmed fill into the ledger.
//
// Orders for the same symbol are serialized; different symbols proceed in
// parallel. Terminal results are remembered by order ID, so resubmitting the
// same ApprovedOrder replays the outcome instead of executing twice.
type Router struct {
	cfg      RouterConfig
	endpoint Endpoint
	ledger   FillApplier
	breaker  *Breaker
	logger   zerolog.Logger

	mu      sync.Mutex
	symbols map[string]*sync.Mutex
	results map[string]Result
}

// NewRouter creates an execution router.
func NewRouter(cfg RouterConfig, endpoint Endpoint, ledger FillApplier) *Router {
	if cfg.APITimeout <= 0 {
		cfg.APITimeout = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	cfg.Breaker.Logger = cfg.Logger
	return &Router{
		cfg:      cfg,
		endpoint: endpoint,
		ledger:   ledger,
		breaker:  NewBreaker(cfg.Breaker),
		logger:   cfg.Logger,
		symbols:  make(map[string]*sync.Mutex),
		results:  make(map[string]Result),
	}
}

// Submit drives one approved order to a terminal state and returns the
// result. The returned error reports a degraded path (placement exhaustion,
// venue rejection, ledger refusal); the Result is valid either way and its
// Trades really happened. Submit never returns with the order in flight.
//
// While the endpoint breaker is open, Submit refuses immediately with
// ErrEndpointSuspended without touching the endpoint. Refusals are not
// remembered as terminal outcomes: resubmitting the same order after the
// cooldown gets a real attempt.
func (r *Router) Submit(ctx context.Context, order models.ApprovedOrder) (Result, error) {
	symbol := order.Proposal.Symbol
	if err := validateOrder(order); err != nil {
		return Result{}, apperrors.NewOrderError(order.OrderID, symbol, "submit", err)
	}

	lock := r.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	if res, ok := r.terminalResult(order.OrderID); ok {
		r.logger.Debug().
			Str("order_id", order.OrderID).
			Str("state", string(res.State)).
			Msg("Replaying remembered order result")
		return res, nil
	}

	if err := r.breaker.Allow(); err != nil {
		r.logger.Warn().
			Str("order_id", order.OrderID).
			Str("symbol", symbol).
			Msg("Submission refused while endpoint is suspended")
		res := Result{OrderID: order.OrderID, State: models.OrderRejected, Reason: "execution endpoint suspended"}
		return res, apperrors.NewOrderError(order.OrderID, symbol, "submit", err)
	}

	status, err := r.place(ctx, order)
	if err != nil {
		if ctx.Err() == nil { // caller quitting is not endpoint failure
			r.breaker.Failure()
		}
		res := r.remember(Result{OrderID: order.OrderID, State: models.OrderRejected, Reason: err.Error()})
		logging.LogOrder(r.logger, order.OrderID, symbol, string(order.Proposal.Direction), string(models.OrderRejected))
		return res, apperrors.NewOrderError(order.OrderID, symbol, "submit", err)
	}
	if status.State == models.OrderRejected {
		r.breaker.Success()
		res := r.remember(Result{OrderID: order.OrderID, State: models.OrderRejected, Reason: status.Reason})
		r.logger.Warn().
			Str("order_id", order.OrderID).
			Str("symbol", symbol).
			Str("reason", status.Reason).
			Msg("Order rejected by endpoint")
		return res, apperrors.NewOrderError(order.OrderID, symbol, "submit",
			apperrors.Wrap(apperrors.ErrOrderRejected, status.Reason))
	}

	res, err := r.track(ctx, order, status)

	// The endpoint answered unless confirmation timed out; a submission
	// abandoned because the caller quit counts as neither.
	if apperrors.Is(err, apperrors.ErrOrderTimeout) {
		if ctx.Err() == nil {
			r.breaker.Failure()
		}
	} else {
		r.breaker.Success()
	}
	return res, err
}

// Cancel asks the endpoint to stop an order. Fills confirmed before the
// cancel stand; Submit picks them up through its regular status polling.
func (r *Router) Cancel(ctx context.Context, orderID string) error {
	if err := r.endpoint.Cancel(ctx, orderID); err != nil {
		return apperrors.NewOrderError(orderID, "", "cancel", err)
	}
	r.logger.Info().Str("order_id", orderID).Msg("Order cancel requested")
	return nil
}

// place submits with bounded retries. A timed-out attempt leaves the order in
// an unknown state, so the order is looked up at the endpoint before the next
// attempt; retrying Place itself is safe because endpoints are idempotent on
// the order ID.
func (r *Router) place(ctx context.Context, order models.ApprovedOrder) (OrderStatus, error) {
	req := PlaceRequest{
		OrderID:   order.OrderID,
		Symbol:    order.Proposal.Symbol,
		Side:      order.Proposal.Direction,
		Quantity:  order.Quantity,
		PriceHint: order.Proposal.PriceHint,
	}

	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := utils.CalculateBackoff(attempt-1, 100*time.Millisecond, 2*time.Second, 2)
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return OrderStatus{}, ctx.Err()
			case <-timer.C:
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout())
		status, err := r.endpoint.Place(callCtx, req)
		cancel()
		if err == nil {
			return status, nil
		}
		lastErr = err

		r.logger.Warn().
			Str("order_id", order.OrderID).
			Str("symbol", req.Symbol).
			Int("attempt", attempt+1).
			Err(err).
			Msg("Order placement failed")

		if status, landed := r.lookup(order.OrderID); landed {
			r.logger.Info().
				Str("order_id", order.OrderID).
				Str("state", string(status.State)).
				Msg("Unacknowledged placement had landed, resuming tracking")
			return status, nil
		}

		if ctx.Err() != nil {
			return OrderStatus{}, ctx.Err()
		}
	}

	if errors.Is(lastErr, context.DeadlineExceeded) {
		return OrderStatus{}, apperrors.Wrapf(apperrors.ErrOrderTimeout,
			"no acknowledgment after %d attempts", r.cfg.MaxAttempts)
	}
	return OrderStatus{}, apperrors.Wrapf(lastErr, "giving up after %d place attempts", r.cfg.MaxAttempts)
}

// lookup resolves whether a placement with no acknowledgment actually landed.
// It runs on a fresh context: the question must be answered even when the
// caller has already given up.
func (r *Router) lookup(orderID string) (OrderStatus, bool) {
	callCtx, cancel := context.WithTimeout(context.Background(), r.attemptTimeout())
	defer cancel()

	status, err := r.endpoint.StatusOf(callCtx, orderID)
	if err == nil {
		return status, true
	}
	if !apperrors.Is(err, apperrors.ErrOrderNotFound) {
		r.logger.Warn().Str("order_id", orderID).Err(err).Msg("Order reconciliation query failed")
	}
	return OrderStatus{}, false
}

// track polls the endpoint until the order is terminal, reconciling every new
// fill into the ledger as it confirms. If the order outlives its confirmation
// budget it is cancelled at the endpoint rather than silently forgotten.
func (r *Router) track(ctx context.Context, order models.ApprovedOrder, status OrderStatus) (Result, error) {
	symbol := order.Proposal.Symbol
	res := Result{OrderID: order.OrderID}
	deadline := time.Now().Add(r.cfg.APITimeout)

	var applied int
	var applyErr error

	for {
		var err error
		applied, err = r.applyNewFills(order, status, applied, &res)
		if err != nil && applyErr == nil {
			applyErr = err
		}
		res.State = status.State
		res.Reason = status.Reason

		if status.State.Terminal() {
			break
		}

		if ctx.Err() != nil || time.Now().After(deadline) {
			status = r.abandon(order)
			applied, err = r.applyNewFills(order, status, applied, &res)
			if err != nil && applyErr == nil {
				applyErr = err
			}
			res.State = status.State
			res.Reason = status.Reason
			if !res.State.Terminal() {
				res.State = models.OrderCancelled
				res.Reason = "fill confirmation budget exhausted"
			}
			res = r.remember(res)
			return res, apperrors.NewOrderError(order.OrderID, symbol, "poll",
				apperrors.Wrap(apperrors.ErrOrderTimeout, "order did not reach a terminal state in time"))
		}

		timer := time.NewTimer(r.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}

		callCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout())
		next, err := r.endpoint.StatusOf(callCtx, order.OrderID)
		cancel()
		if err != nil {
			r.logger.Warn().Str("order_id", order.OrderID).Err(err).Msg("Order status poll failed")
			continue
		}
		status = next
	}

	res = r.remember(res)
	logging.LogOrder(r.logger, order.OrderID, symbol, string(order.Proposal.Direction), string(res.State))

	if applyErr != nil {
		return res, apperrors.NewOrderError(order.OrderID, symbol, "reconcile", applyErr)
	}
	return res, nil
}

// applyNewFills turns fills beyond index from into trades and applies them to
// the ledger. Returns the new high-water index and the first apply failure.
func (r *Router) applyNewFills(order models.ApprovedOrder, status OrderStatus, from int, res *Result) (int, error) {
	symbol := order.Proposal.Symbol
	var firstErr error

	for _, f := range status.Fills[from:] {
		fees := r.cfg.ExchangeFee * f.Quantity * f.Price
		trade, err := models.NewTrade(utils.NewID(), order.OrderID, symbol, order.Proposal.Direction,
			f.Quantity, f.Price, fees, f.Timestamp)
		if err != nil {
			r.logger.Error().Str("order_id", order.OrderID).Err(err).Msg("Endpoint reported malformed fill")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		enriched, err := r.ledger.ApplyFill(trade)
		if err != nil {
			r.logger.Error().
				Str("order_id", order.OrderID).
				Str("symbol", symbol).
				Err(err).
				Msg("Ledger refused confirmed fill")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		res.Trades = append(res.Trades, enriched)
		logging.LogTrade(r.logger, symbol, string(enriched.Side), enriched.Quantity, enriched.Price, enriched.RealizedPnL)
	}
	return len(status.Fills), firstErr
}

// abandon stops an order that outlived its confirmation budget: cancel at the
// endpoint, then take the endpoint's final word. Runs on a fresh context so a
// cancelled caller still cannot leave the order dangling.
func (r *Router) abandon(order models.ApprovedOrder) OrderStatus {
	callCtx, cancel := context.WithTimeout(context.Background(), r.attemptTimeout())
	defer cancel()

	if err := r.endpoint.Cancel(callCtx, order.OrderID); err != nil && !apperrors.Is(err, apperrors.ErrOrderTerminal) {
		r.logger.Warn().Str("order_id", order.OrderID).Err(err).Msg("Cancel of overdue order failed")
	}

	status, err := r.endpoint.StatusOf(callCtx, order.OrderID)
	if err != nil {
		r.logger.Error().Str("order_id", order.OrderID).Err(err).Msg("Order state unknown after cancel")
		return OrderStatus{OrderID: order.OrderID, State: models.OrderCancelled, Reason: "state unknown after cancel"}
	}
	return status
}

func (r *Router) attemptTimeout() time.Duration {
	return r.cfg.APITimeout / 4
}

func (r *Router) symbolLock(symbol string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.symbols[symbol]
	if !ok {
		l = &sync.Mutex{}
		r.symbols[symbol] = l
	}
	return l
}

func (r *Router) terminalResult(orderID string) (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[orderID]
	if !ok {
		return Result{}, false
	}
	return copyResult(res), true
}

func (r *Router) remember(res Result) Result {
	r.mu.Lock()
	r.results[res.OrderID] = res
	r.mu.Unlock()
	return copyResult(res)
}

func copyResult(res Result) Result {
	out := res
	out.Trades = make([]models.Trade, len(res.Trades))
	copy(out.Trades, res.Trades)
	return out
}

func validateOrder(order models.ApprovedOrder) error {
	if order.OrderID == "" {
		return apperrors.NewValidationError("order_id", order.OrderID, "must not be empty")
	}
	if order.Proposal.Direction != models.SideBuy && order.Proposal.Direction != models.SideSell {
		return apperrors.NewValidationError("direction", order.Proposal.Direction, "must be BUY or SELL")
	}
	if order.Quantity <= 0 {
		return apperrors.NewValidationError("quantity", order.Quantity, "must be positive")
	}
	return nil
}
