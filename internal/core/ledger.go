package core

import (
	"github.com/gammazero/deque"
	"github.com/google/btree"
	"github.com/olyamironova/limitbook/internal/domain"
	"github.com/shopspring/decimal"
)

const btreeDegree = 32

// priceLevel holds every resting order at one price, oldest first.
type priceLevel struct {
	price  decimal.Decimal
	orders deque.Deque[*domain.Order]
	total  int64
}

func (l *priceLevel) push(o *domain.Order) {
	l.orders.PushBack(o)
	l.total += o.Remaining
}

func (l *priceLevel) front() *domain.Order { return l.orders.Front() }

// consume takes qty from the head order and drops it once exhausted.
func (l *priceLevel) consume(qty int64) {
	head := l.orders.Front()
	head.Remaining -= qty
	l.total -= qty
	if head.Remaining == 0 {
		l.orders.PopFront()
	}
}

func (l *priceLevel) empty() bool { return l.orders.Len() == 0 }

// ledger maps price to level for one side. Levels are ordered best first:
// descending for bids, ascending for asks, so Min is always the best price.
type ledger struct {
	side   domain.Side
	levels *btree.BTreeG[*priceLevel]
}

func newLedger(side domain.Side) *ledger {
	less := func(a, b *priceLevel) bool { return a.price.LessThan(b.price) }
	if side == domain.Buy {
		less = func(a, b *priceLevel) bool { return a.price.GreaterThan(b.price) }
	}
	return &ledger{side: side, levels: btree.NewG(btreeDegree, less)}
}

func (l *ledger) best() (*priceLevel, bool) { return l.levels.Min() }

func (l *ledger) len() int { return l.levels.Len() }

func (l *ledger) get(price decimal.Decimal) (*priceLevel, bool) {
	return l.levels.Get(&priceLevel{price: price})
}

// levelAt returns the level for price, creating it when absent.
func (l *ledger) levelAt(price decimal.Decimal) *priceLevel {
	if lv, ok := l.get(price); ok {
		return lv
	}
	lv := &priceLevel{price: price}
	l.levels.ReplaceOrInsert(lv)
	return lv
}

func (l *ledger) remove(lv *priceLevel) { l.levels.Delete(lv) }

// walk visits levels best to worst until fn returns false.
func (l *ledger) walk(fn func(*priceLevel) bool) { l.levels.Ascend(fn) }

func (l *ledger) top(depth int) []domain.BookLevel {
	if depth <= 0 {
		return []domain.BookLevel{}
	}
	out := make([]domain.BookLevel, 0, min(depth, l.len()))
	l.walk(func(lv *priceLevel) bool {
		out = append(out, domain.BookLevel{
			Price:    lv.price,
			Quantity: lv.total,
			Orders:   lv.orders.Len(),
		})
		return len(out) < depth
	})
	return out
}
