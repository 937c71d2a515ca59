package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/olyamironova/limitbook/internal/domain"
	"github.com/olyamironova/limitbook/internal/logger"
	"github.com/olyamironova/limitbook/internal/metrics"
	"github.com/olyamironova/limitbook/internal/port"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine is the single owner of an OrderBook. Every book call runs under one
// mutex; journal and publisher calls happen after the lock is released.
type Engine struct {
	journal   port.Journal
	publisher port.Publisher

	publishDepth int
	sinkTimeout  time.Duration

	mu   sync.Mutex
	book *OrderBook

	// sequence of published snapshots
	seq uint64
}

type Option func(*Engine)

// WithPublishDepth sets how many levels per side are handed to the publisher.
func WithPublishDepth(depth int) Option {
	return func(e *Engine) { e.publishDepth = depth }
}

// WithSinkTimeout bounds each journal/publisher call.
func WithSinkTimeout(d time.Duration) Option {
	return func(e *Engine) { e.sinkTimeout = d }
}

// NewEngine builds an engine over an empty book. journal and publisher may be
// nil.
func NewEngine(journal port.Journal, publisher port.Publisher, opts ...Option) *Engine {
	e := &Engine{
		journal:      journal,
		publisher:    publisher,
		publishDepth: 10,
		sinkTimeout:  250 * time.Millisecond,
		book:         NewOrderBook(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SubmitLimit places a limit order.
func (e *Engine) SubmitLimit(ctx context.Context, price decimal.Decimal, quantity int64, side domain.Side) (domain.ExecutionResult, error) {
	return e.submit(ctx, domain.Limit, func(b *OrderBook) (domain.ExecutionResult, error) {
		return b.SubmitLimitOrder(price, quantity, side)
	})
}

// SubmitMarket places a market order.
func (e *Engine) SubmitMarket(ctx context.Context, quantity int64, side domain.Side) (domain.ExecutionResult, error) {
	return e.submit(ctx, domain.Market, func(b *OrderBook) (domain.ExecutionResult, error) {
		return b.SubmitMarketOrder(quantity, side)
	})
}

// Submit dispatches on typ. price is ignored for market orders.
func (e *Engine) Submit(ctx context.Context, typ domain.OrderType, side domain.Side, price decimal.Decimal, quantity int64) (domain.ExecutionResult, error) {
	switch typ {
	case domain.Limit:
		return e.SubmitLimit(ctx, price, quantity, side)
	case domain.Market:
		return e.SubmitMarket(ctx, quantity, side)
	}
	metrics.OrdersRejectedTotal.WithLabelValues("invalid_input").Inc()
	return domain.ExecutionResult{}, fmt.Errorf("%w: unknown order type %q", domain.ErrInvalidInput, typ)
}

// Snapshot returns up to depth levels per side.
func (e *Engine) Snapshot(depth int) domain.BookSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Snapshot(depth)
}

// Reset discards every resting order.
func (e *Engine) Reset(ctx context.Context) {
	e.mu.Lock()
	e.book.Reset()
	snap := e.observeLocked()
	e.mu.Unlock()

	logger.Info(ctx, "book cleared")
	e.publish(ctx, snap)
}

// Seed submits the given limit orders under one lock, so no other order can
// interleave with them. It stops at the first invalid entry; entries before
// it stay in the book.
func (e *Engine) Seed(ctx context.Context, orders []SeedOrder) error {
	e.mu.Lock()
	results := make([]domain.ExecutionResult, 0, len(orders))
	var err error
	for _, o := range orders {
		var res domain.ExecutionResult
		if res, err = e.book.SubmitLimitOrder(o.Price, o.Quantity, o.Side); err != nil {
			break
		}
		results = append(results, res)
	}
	snap := e.observeLocked()
	e.mu.Unlock()

	now := time.Now()
	for _, res := range results {
		metrics.OrdersTotal.WithLabelValues(string(res.Side), string(res.Type)).Inc()
		e.record(ctx, res, now)
	}
	e.publish(ctx, snap)
	if err != nil {
		return err
	}
	logger.Info(ctx, "book seeded", zap.Int("orders", len(results)))
	return nil
}

func (e *Engine) submit(ctx context.Context, typ domain.OrderType, fn func(*OrderBook) (domain.ExecutionResult, error)) (domain.ExecutionResult, error) {
	e.mu.Lock()
	start := time.Now()
	res, err := fn(e.book)
	elapsed := time.Since(start)
	res.Latency = elapsed
	var snap *domain.BookSnapshot
	if err == nil {
		snap = e.observeLocked()
	}
	e.mu.Unlock()

	if err != nil {
		reason := "internal"
		if errors.Is(err, domain.ErrInvalidInput) {
			reason = "invalid_input"
		}
		metrics.OrdersRejectedTotal.WithLabelValues(reason).Inc()
		logger.Debug(ctx, "order rejected", zap.String("type", string(typ)), zap.Error(err))
		return res, err
	}

	metrics.OrdersTotal.WithLabelValues(string(res.Side), string(res.Type)).Inc()
	metrics.MatchDuration.Observe(elapsed.Seconds())
	metrics.FillsTotal.Add(float64(res.TradeCount))
	metrics.FilledQuantityTotal.Add(float64(res.Filled))
	logger.Debug(ctx, "order processed",
		zap.String("order_id", res.OrderID),
		zap.String("side", string(res.Side)),
		zap.String("type", string(res.Type)),
		zap.Int64("requested", res.Requested),
		zap.Int64("filled", res.Filled),
		zap.Int64("resting", res.Resting),
		zap.Int("trades", res.TradeCount),
		zap.Duration("elapsed", elapsed),
	)

	e.record(ctx, res, start)
	e.publish(ctx, snap)
	return res, nil
}

// observeLocked updates level gauges and, when a publisher is configured,
// captures the top of book for it stamped with the next sequence number.
// Caller holds e.mu.
func (e *Engine) observeLocked() *domain.BookSnapshot {
	bids, asks := e.book.Levels()
	metrics.BookLevels.WithLabelValues(string(domain.Buy)).Set(float64(bids))
	metrics.BookLevels.WithLabelValues(string(domain.Sell)).Set(float64(asks))
	if e.publisher == nil {
		return nil
	}
	e.seq++
	snap := e.book.Snapshot(e.publishDepth)
	snap.Seq = e.seq
	return &snap
}

func (e *Engine) record(ctx context.Context, res domain.ExecutionResult, at time.Time) {
	if e.journal == nil {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.sinkTimeout)
	defer cancel()
	if err := e.journal.RecordExecution(sctx, res, at); err != nil {
		metrics.SinkErrorsTotal.WithLabelValues("journal").Inc()
		logger.Warn(ctx, "journal write failed", zap.String("order_id", res.OrderID), zap.Error(err))
	}
}

func (e *Engine) publish(ctx context.Context, snap *domain.BookSnapshot) {
	if e.publisher == nil || snap == nil {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.sinkTimeout)
	defer cancel()
	if err := e.publisher.PublishBook(sctx, *snap); err != nil {
		metrics.SinkErrorsTotal.WithLabelValues("publisher").Inc()
		logger.Warn(ctx, "book publish failed", zap.Error(err))
	}
}
