package matching

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/PxPatel/auction-engine/internal/logger"
	"github.com/PxPatel/auction-engine/internal/metrics"
	"github.com/PxPatel/auction-engine/internal/storage"
	"github.com/PxPatel/auction-engine/internal/types"
)

// MatchResult is what one committed unit of work produced
type MatchResult struct {
	// Order is the acting order as persisted at commit
	Order types.Order `json:"order"`
	// Trades created by the pass, in execution order
	Trades []types.Trade `json:"trades"`
	// UpdatedOrders holds the acting order when it changed, followed by
	// every resting order that was partially or fully filled
	UpdatedOrders []types.Order `json:"updated_orders"`
	// RemainingSize of the acting order after the pass
	RemainingSize int64 `json:"remaining_size"`
}

// Engine applies matching passes against a BookStore. Every pass runs
// inside the exclusive scope of the acting order's asset, so passes on one
// asset are serialized while different assets proceed in parallel.
type Engine struct {
	store   storage.BookStore
	feed    storage.TradeFeed
	clock   Clock
	log     *logger.Logger
	retries int
	backoff time.Duration

	// publishSlots holds one *sync.Mutex per asset. A committed pass takes
	// its asset's slot before leaving the exclusive scope and releases it
	// after publishing, so feeds receive the passes of an asset in commit
	// (and therefore sequence) order.
	publishSlots sync.Map
}

// Option configures an Engine
type Option func(*Engine)

// WithClock replaces the priority clock
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithTradeFeed forwards committed trades to feed
func WithTradeFeed(feed storage.TradeFeed) Option {
	return func(e *Engine) { e.feed = feed }
}

// WithContentionRetries retries a pass that could not acquire its scope up
// to n more times, waiting backoff*attempt between tries
func WithContentionRetries(n int, backoff time.Duration) Option {
	return func(e *Engine) {
		e.retries = n
		e.backoff = backoff
	}
}

// WithLogger replaces the default logger
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates an engine on top of store
func NewEngine(store storage.BookStore, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		clock: NewPriorityClock(),
		log:   logger.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit validates a new order, stores it and matches it against the book.
// Insertion and matching commit together.
func (e *Engine) Submit(ctx context.Context, req types.OrderRequest) (*MatchResult, error) {
	started := time.Now()
	if err := req.Validate(); err != nil {
		metrics.ObservePass("submit", metrics.OutcomeRejected, started)
		return nil, err
	}

	var result *MatchResult
	err := e.run(ctx, "submit", req.AssetID, started, func(ctx context.Context, tx storage.BookTx) ([]types.Trade, error) {
		if err := tx.Asset().CheckTradable(); err != nil {
			return nil, err
		}

		order := types.NewOrder(req, e.clock.Now())
		if err := tx.InsertOrder(ctx, order); err != nil {
			return nil, fmt.Errorf("insert order %s: %w", order.ID, err)
		}

		r, err := e.matchPass(ctx, tx, order.ID, true)
		if err != nil {
			return nil, err
		}
		result = r
		return r.Trades, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SubmitOrUpdate runs a matching pass for an order that is already stored,
// using its current persisted state as the incoming side.
func (e *Engine) SubmitOrUpdate(ctx context.Context, orderID string) (*MatchResult, error) {
	started := time.Now()
	order, err := e.store.Order(ctx, orderID)
	if err != nil {
		metrics.ObservePass("match", outcomeOf(err), started)
		return nil, err
	}

	var result *MatchResult
	err = e.run(ctx, "match", order.AssetID, started, func(ctx context.Context, tx storage.BookTx) ([]types.Trade, error) {
		if err := tx.Asset().CheckTradable(); err != nil {
			return nil, err
		}

		r, err := e.matchPass(ctx, tx, orderID, false)
		if err != nil {
			return nil, err
		}
		result = r
		return r.Trades, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Amend changes price, side or size of an open order and immediately runs
// a matching pass with the amended order as the incoming side. The
// amendment and the pass commit together.
func (e *Engine) Amend(ctx context.Context, orderID string, a Amendment) (*MatchResult, error) {
	started := time.Now()
	if a.IsEmpty() {
		metrics.ObservePass("amend", metrics.OutcomeRejected, started)
		return nil, &types.ValidationError{Field: "amendment", Message: "must change price, side or size"}
	}

	order, err := e.store.Order(ctx, orderID)
	if err != nil {
		metrics.ObservePass("amend", outcomeOf(err), started)
		return nil, err
	}

	var result *MatchResult
	err = e.run(ctx, "amend", order.AssetID, started, func(ctx context.Context, tx storage.BookTx) ([]types.Trade, error) {
		if err := tx.Asset().CheckTradable(); err != nil {
			return nil, err
		}

		current, err := tx.Order(ctx, orderID)
		if err != nil {
			return nil, err
		}

		amended, reset, err := ApplyAmendment(*current, a, e.clock.Now())
		if err != nil {
			return nil, err
		}
		if err := tx.UpdateOrder(ctx, &amended); err != nil {
			return nil, fmt.Errorf("update amended order %s: %w", orderID, err)
		}

		e.log.Debug("Order amended", map[string]interface{}{
			"order_id":       orderID,
			"price":          amended.Price.String(),
			"side":           amended.Side,
			"size":           amended.Size,
			"priority_reset": reset,
		})

		r, err := e.matchPass(ctx, tx, orderID, true)
		if err != nil {
			return nil, err
		}
		result = r
		return r.Trades, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel closes an open order. Cancelled orders never match again.
func (e *Engine) Cancel(ctx context.Context, orderID string) (*types.Order, error) {
	started := time.Now()
	order, err := e.store.Order(ctx, orderID)
	if err != nil {
		metrics.ObservePass("cancel", outcomeOf(err), started)
		return nil, err
	}

	var cancelled *types.Order
	err = e.run(ctx, "cancel", order.AssetID, started, func(ctx context.Context, tx storage.BookTx) ([]types.Trade, error) {
		current, err := tx.Order(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if current.Status != types.StatusOpen {
			return nil, &types.ValidationError{Field: "order_id", Message: fmt.Sprintf("order %s is %s", orderID, current.Status)}
		}

		current.Status = types.StatusCancelled
		current.UpdatedAt = e.clock.Now()
		if err := tx.UpdateOrder(ctx, current); err != nil {
			return nil, fmt.Errorf("cancel order %s: %w", orderID, err)
		}
		cancelled = current
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// matchPass is steps 1-5 of a pass: fresh reads, matcher, then trades,
// order updates and the last price, all through tx. Any error aborts the
// whole scope.
func (e *Engine) matchPass(ctx context.Context, tx storage.BookTx, orderID string, actingChanged bool) (*MatchResult, error) {
	acting, err := tx.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	book, err := tx.OpenOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("read book %s: %w", acting.AssetID, err)
	}

	fills := ComputeMatches(acting, book)
	resting := lo.KeyBy(book, func(o *types.Order) string { return o.ID })

	result := &MatchResult{}
	var filledResting []types.Order

	for _, fill := range fills {
		counterparty, ok := resting[fill.RestingOrderID]
		if !ok || counterparty.ID == acting.ID {
			return nil, &types.InvariantError{Message: fmt.Sprintf("fill references unknown resting order %s", fill.RestingOrderID)}
		}
		if fill.BuyerID == fill.SellerID {
			return nil, &types.InvariantError{Message: fmt.Sprintf("self trade between %s and %s", fill.BuyOrderID, fill.SellOrderID)}
		}

		now := e.clock.Now()
		// ApplyFill rejects a fill larger than what either side has left
		if err := acting.ApplyFill(fill.Size, now); err != nil {
			return nil, err
		}
		if err := counterparty.ApplyFill(fill.Size, now); err != nil {
			return nil, err
		}

		trade := types.NewTrade(acting.AssetID, fill, now)
		if err := tx.InsertTrade(ctx, trade); err != nil {
			return nil, fmt.Errorf("insert trade %s: %w", trade.ID, err)
		}
		if err := tx.UpdateOrder(ctx, counterparty); err != nil {
			return nil, fmt.Errorf("update resting order %s: %w", counterparty.ID, err)
		}

		result.Trades = append(result.Trades, *trade)
		filledResting = append(filledResting, *counterparty)
	}

	if len(fills) > 0 {
		if err := tx.UpdateOrder(ctx, acting); err != nil {
			return nil, fmt.Errorf("update acting order %s: %w", acting.ID, err)
		}

		last := result.Trades[len(result.Trades)-1]
		if err := tx.SetLastPrice(ctx, last.Price); err != nil {
			return nil, fmt.Errorf("set last price %s: %w", acting.AssetID, err)
		}
	}

	if actingChanged || len(fills) > 0 {
		result.UpdatedOrders = append(result.UpdatedOrders, *acting)
	}
	result.UpdatedOrders = append(result.UpdatedOrders, filledResting...)
	result.Order = *acting
	result.RemainingSize = acting.RemainingSize

	return result, nil
}

// passFunc is the body of one pass; it returns the trades to publish once
// the pass commits
type passFunc func(ctx context.Context, tx storage.BookTx) ([]types.Trade, error)

// run executes fn inside the asset's exclusive scope, retrying on
// contention when configured, publishes what it committed and records the
// outcome.
func (e *Engine) run(ctx context.Context, operation, assetID string, started time.Time, fn passFunc) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = e.attempt(ctx, assetID, fn)
		if err == nil || !errors.Is(err, types.ErrContention) || attempt >= e.retries {
			break
		}

		e.log.Warn("Exclusive scope contended, retrying", map[string]interface{}{
			"operation": operation,
			"asset_id":  assetID,
			"attempt":   attempt + 1,
		})

		timer := time.NewTimer(e.backoff * time.Duration(attempt+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			metrics.ObservePass(operation, metrics.OutcomeContention, started)
			return &types.ContentionError{AssetID: assetID, Err: ctx.Err()}
		case <-timer.C:
		}
	}

	outcome := outcomeOf(err)
	metrics.ObservePass(operation, outcome, started)

	switch outcome {
	case metrics.OutcomeContention:
		e.log.Warn("Exclusive scope unavailable", map[string]interface{}{
			"operation": operation,
			"asset_id":  assetID,
			"error":     err.Error(),
		})
	case metrics.OutcomeFailed:
		if errors.Is(err, types.ErrInvariant) {
			e.log.Error("Matching pass aborted on invariant violation", map[string]interface{}{
				"operation": operation,
				"asset_id":  assetID,
				"error":     err.Error(),
			})
		} else {
			e.log.Error("Matching pass failed", map[string]interface{}{
				"operation": operation,
				"asset_id":  assetID,
				"error":     err.Error(),
			})
		}
	case metrics.OutcomeCommitted:
		e.log.Debug("Matching pass committed", map[string]interface{}{
			"operation":   operation,
			"asset_id":    assetID,
			"duration_ms": time.Since(started).Milliseconds(),
		})
	}

	if err != nil {
		return fmt.Errorf("%s on asset %s: %w", operation, assetID, err)
	}
	return nil
}

// attempt runs fn once in the asset's scope. A pass that produced trades
// takes the asset's publish slot while it still holds the scope; the next
// pass on the asset can only take the slot after this one has published.
func (e *Engine) attempt(ctx context.Context, assetID string, fn passFunc) error {
	var (
		trades []types.Trade
		slot   *sync.Mutex
	)
	err := e.store.WithinAssetScope(ctx, assetID, func(ctx context.Context, tx storage.BookTx) error {
		t, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		trades = t
		if len(trades) > 0 && e.feed != nil {
			slot = e.publishSlot(assetID)
			slot.Lock()
		}
		return nil
	})
	if slot != nil {
		if err == nil {
			e.publish(ctx, trades)
		}
		slot.Unlock()
	}
	if err == nil {
		metrics.AddTrades(len(trades))
	}
	return err
}

func (e *Engine) publishSlot(assetID string) *sync.Mutex {
	slot, _ := e.publishSlots.LoadOrStore(assetID, &sync.Mutex{})
	return slot.(*sync.Mutex)
}

func (e *Engine) publish(ctx context.Context, trades []types.Trade) {
	// The pass is already committed; a feed failure only delays consumers
	if err := e.feed.Publish(ctx, trades); err != nil {
		e.log.Warn("Failed to publish trades", map[string]interface{}{
			"asset_id": trades[0].AssetID,
			"trades":   len(trades),
			"error":    err.Error(),
		})
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeCommitted
	case errors.Is(err, types.ErrContention):
		return metrics.OutcomeContention
	case errors.Is(err, types.ErrValidation):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeFailed
	}
}

// Order retrieves a committed order
func (e *Engine) Order(ctx context.Context, orderID string) (*types.Order, error) {
	return e.store.Order(ctx, orderID)
}

// OpenOrders returns the committed open orders of an asset
func (e *Engine) OpenOrders(ctx context.Context, assetID string) ([]*types.Order, error) {
	if _, err := e.store.Asset(ctx, assetID); err != nil {
		return nil, err
	}
	return e.store.OpenOrders(ctx, assetID)
}

// RecentTrades returns up to limit trades of an asset, newest first
func (e *Engine) RecentTrades(ctx context.Context, assetID string, limit int) ([]*types.Trade, error) {
	if _, err := e.store.Asset(ctx, assetID); err != nil {
		return nil, err
	}
	return e.store.RecentTrades(ctx, assetID, limit)
}

// Asset retrieves an asset with its last traded price
func (e *Engine) Asset(ctx context.Context, assetID string) (*types.Asset, error) {
	return e.store.Asset(ctx, assetID)
}

// Close releases the trade feed and the store
func (e *Engine) Close() error {
	var errs []error
	if e.feed != nil {
		errs = append(errs, e.feed.Close())
	}
	errs = append(errs, e.store.Close())
	return errors.Join(errs...)
}
