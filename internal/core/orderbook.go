package core

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/olyamironova/limitbook/internal/domain"
	"github.com/shopspring/decimal"
)

// OrderBook matches orders for a single instrument with price/time priority.
// It performs no locking: callers serialize access (see Engine).
type OrderBook struct {
	bids *ledger
	asks *ledger
}

func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids: newLedger(domain.Buy),
		asks: newLedger(domain.Sell),
	}
}

// SubmitLimitOrder matches against the opposite side while the best opposite
// price crosses the limit (inclusive), then rests any remainder at price.
func (ob *OrderBook) SubmitLimitOrder(price decimal.Decimal, quantity int64, side domain.Side) (domain.ExecutionResult, error) {
	if err := validate(quantity, side); err != nil {
		return domain.ExecutionResult{}, err
	}
	if err := validatePrice(price); err != nil {
		return domain.ExecutionResult{}, err
	}
	if lv, ok := ob.ledger(side).get(price); ok && lv.total > math.MaxInt64-quantity {
		return domain.ExecutionResult{}, fmt.Errorf("%w: level %s is full", domain.ErrInvalidInput, price)
	}

	o := ob.accept(domain.Limit, side, price, quantity)
	res := newResult(o)
	ob.match(o, &res)

	if o.Remaining > 0 {
		ob.ledger(side).levelAt(price).push(o)
		res.Resting = o.Remaining
	}
	return res, nil
}

// SubmitMarketOrder consumes the opposite side at any price. Whatever is left
// once the opposite side is exhausted is dropped; market orders never rest.
func (ob *OrderBook) SubmitMarketOrder(quantity int64, side domain.Side) (domain.ExecutionResult, error) {
	if err := validate(quantity, side); err != nil {
		return domain.ExecutionResult{}, err
	}

	o := ob.accept(domain.Market, side, decimal.Zero, quantity)
	res := newResult(o)
	ob.match(o, &res)
	return res, nil
}

// Snapshot returns up to depth aggregated levels per side, best first.
func (ob *OrderBook) Snapshot(depth int) domain.BookSnapshot {
	return domain.BookSnapshot{
		Bids: ob.bids.top(depth),
		Asks: ob.asks.top(depth),
	}
}

func (ob *OrderBook) BestBid() (decimal.Decimal, bool) { return bestPrice(ob.bids) }

func (ob *OrderBook) BestAsk() (decimal.Decimal, bool) { return bestPrice(ob.asks) }

// Levels reports the number of price levels on each side.
func (ob *OrderBook) Levels() (bids, asks int) { return ob.bids.len(), ob.asks.len() }

// Reset drops every resting order.
func (ob *OrderBook) Reset() {
	ob.bids = newLedger(domain.Buy)
	ob.asks = newLedger(domain.Sell)
}

func (ob *OrderBook) accept(typ domain.OrderType, side domain.Side, price decimal.Decimal, quantity int64) *domain.Order {
	return &domain.Order{
		ID:        uuid.NewString(),
		Side:      side,
		Type:      typ,
		Price:     price,
		Quantity:  quantity,
		Remaining: quantity,
	}
}

func (ob *OrderBook) match(o *domain.Order, res *domain.ExecutionResult) {
	book := ob.ledger(o.Side.Opposite())
	for o.Remaining > 0 {
		lv, ok := book.best()
		if !ok || !crosses(o, lv.price) {
			return
		}
		for o.Remaining > 0 && !lv.empty() {
			maker := lv.front()
			qty := min(o.Remaining, maker.Remaining)
			o.Remaining -= qty
			res.Record(maker.ID, maker.Price, qty)
			lv.consume(qty)
		}
		if lv.empty() {
			book.remove(lv)
		}
	}
}

func (ob *OrderBook) ledger(side domain.Side) *ledger {
	if side == domain.Buy {
		return ob.bids
	}
	return ob.asks
}

func crosses(o *domain.Order, best decimal.Decimal) bool {
	switch {
	case o.Type == domain.Market:
		return true
	case o.Side == domain.Buy:
		return o.Price.GreaterThanOrEqual(best)
	default:
		return o.Price.LessThanOrEqual(best)
	}
}

func validate(quantity int64, side domain.Side) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be > 0, got %d", domain.ErrInvalidInput, quantity)
	}
	if quantity > domain.MaxQuantity {
		return fmt.Errorf("%w: quantity must be <= %d, got %d", domain.ErrInvalidInput, domain.MaxQuantity, quantity)
	}
	if !side.Valid() {
		return fmt.Errorf("%w: unknown side %q", domain.ErrInvalidInput, side)
	}
	return nil
}

// maxPriceExponent bounds the exponent before any arithmetic touches the
// price; rescaling cost grows with the exponent.
const maxPriceExponent = 64

var priceLimit = decimal.New(1, domain.PriceDigits)

// validatePrice accepts positive prices below 10^PriceDigits with at most
// PriceScale fractional digits. 100.000000000 is accepted as 100.
func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return fmt.Errorf("%w: price must be > 0", domain.ErrInvalidInput)
	}
	exp := price.Exponent()
	if exp < -maxPriceExponent || exp > domain.PriceDigits {
		return fmt.Errorf("%w: price out of range", domain.ErrInvalidInput)
	}
	if !price.LessThan(priceLimit) {
		return fmt.Errorf("%w: price must be < %s", domain.ErrInvalidInput, priceLimit)
	}
	if !price.Truncate(domain.PriceScale).Equal(price) {
		return fmt.Errorf("%w: price has more than %d decimal places", domain.ErrInvalidInput, domain.PriceScale)
	}
	return nil
}

func newResult(o *domain.Order) domain.ExecutionResult {
	return domain.ExecutionResult{
		OrderID:   o.ID,
		Side:      o.Side,
		Type:      o.Type,
		Price:     o.Price,
		Requested: o.Quantity,
		Notional:  decimal.Zero,
	}
}

func bestPrice(l *ledger) (decimal.Decimal, bool) {
	lv, ok := l.best()
	if !ok {
		return decimal.Zero, false
	}
	return lv.price, true
}
