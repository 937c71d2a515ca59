package domain

import "github.com/shopspring/decimal"

// BookLevel is the aggregate resting quantity at one price.
type BookLevel struct {
	Price    decimal.Decimal
	Quantity int64
	Orders   int
}

// BookSnapshot lists levels best-to-worst on each side. Seq increases with
// every published snapshot so consumers can drop stale ones; it is zero for
// on-demand reads.
type BookSnapshot struct {
	Seq  uint64
	Bids []BookLevel
	Asks []BookLevel
}

func (s *BookSnapshot) BestBid() (BookLevel, bool) {
	if len(s.Bids) == 0 {
		return BookLevel{}, false
	}
	return s.Bids[0], true
}

func (s *BookSnapshot) BestAsk() (BookLevel, bool) {
	if len(s.Asks) == 0 {
		return BookLevel{}, false
	}
	return s.Asks[0], true
}
