package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill is one consumption of a resting (maker) order. Price is always the
// maker's price.
type Fill struct {
	MakerID  string
	Price    decimal.Decimal
	Quantity int64
}

// ExecutionResult is the outcome of one submit call.
type ExecutionResult struct {
	OrderID    string
	Side       Side
	Type       OrderType
	Price      decimal.Decimal // limit price, zero for market orders
	Requested  int64
	Filled     int64
	Resting    int64
	TradeCount int
	Notional   decimal.Decimal
	Traded     bool
	Fills      []Fill

	// Latency is the time spent inside the book, set by core.Engine.
	Latency time.Duration
}

// Record adds one maker consumption to the result.
func (r *ExecutionResult) Record(makerID string, price decimal.Decimal, qty int64) {
	r.Filled += qty
	r.TradeCount++
	r.Notional = r.Notional.Add(price.Mul(decimal.NewFromInt(qty)))
	r.Traded = true
	r.Fills = append(r.Fills, Fill{MakerID: makerID, Price: price, Quantity: qty})
}

// AvgPrice is notional / filled. ok is false when nothing filled.
func (r *ExecutionResult) AvgPrice() (avg decimal.Decimal, ok bool) {
	if r.Filled == 0 {
		return decimal.Zero, false
	}
	return r.Notional.Div(decimal.NewFromInt(r.Filled)), true
}
