package dto

import (
	"encoding/json"
	"errors"

	"github.com/olyamironova/limitbook/internal/domain"
	"github.com/shopspring/decimal"
)

// Prices travel as JSON numbers (json.Number) so clients see 101.5, not
// "101.5", while the server keeps decimal precision.

type SubmitOrderRequest struct {
	Side  string      `json:"side"`
	Type  string      `json:"type"`
	Qty   *int64      `json:"qty"`
	Price json.Number `json:"price,omitempty"`
}

// Request-shape errors. Parse wraps them so errors.Is also matches
// domain.ErrInvalidInput.
var (
	ErrMissingFields = errors.New("missing side/type/qty")
	ErrMissingPrice  = errors.New("missing price for limit order")
	ErrBadPrice      = errors.New("price is not a number")
	ErrLongPrice     = errors.New("price has too many digits")
)

// Order is a parsed submit request. Price is zero for market orders.
type Order struct {
	Side     domain.Side
	Type     domain.OrderType
	Quantity int64
	Price    decimal.Decimal
}

// maxPriceLen rejects absurd price literals before they are parsed.
const maxPriceLen = 32

// Parse checks presence and spelling. Range checks (qty, price bounds) are
// left to the book.
func (r SubmitOrderRequest) Parse() (Order, error) {
	if r.Side == "" || r.Type == "" || r.Qty == nil {
		return Order{}, invalid(ErrMissingFields)
	}
	side, err := domain.ParseSide(r.Side)
	if err != nil {
		return Order{}, err
	}
	typ, err := domain.ParseOrderType(r.Type)
	if err != nil {
		return Order{}, err
	}
	o := Order{Side: side, Type: typ, Quantity: *r.Qty}
	if typ == domain.Market {
		return o, nil
	}
	if r.Price == "" {
		return Order{}, invalid(ErrMissingPrice)
	}
	if len(r.Price) > maxPriceLen {
		return Order{}, invalid(ErrLongPrice)
	}
	if o.Price, err = decimal.NewFromString(r.Price.String()); err != nil {
		return Order{}, invalid(ErrBadPrice)
	}
	return o, nil
}

type invalidErr struct{ err error }

func (e invalidErr) Error() string { return e.err.Error() }

func (e invalidErr) Unwrap() []error { return []error{e.err, domain.ErrInvalidInput} }

func invalid(err error) error { return invalidErr{err} }

type SubmitOrderResponse struct {
	Status    string      `json:"status"`
	OrderID   string      `json:"order_id"`
	Filled    int64       `json:"filled"`
	Requested int64       `json:"requested"`
	Resting   int64       `json:"resting"`
	Trades    int         `json:"trades"`
	AvgPrice  json.Number `json:"avg_price,omitempty"`
	LatencyNs int64       `json:"latency_ns"`
}

type Level struct {
	Price json.Number `json:"price"`
	Qty   int64       `json:"qty"`
}

// BookResponse is also the published payload; Seq is set only there.
type BookResponse struct {
	Seq  uint64  `json:"seq,omitempty"`
	Bids []Level `json:"bids"`
	Asks []Level `json:"asks"`
}

type StatusResponse struct {
	Status string `json:"status"`
	Added  int    `json:"added,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

const avgPricePlaces = 8

func NewSubmitOrderResponse(res domain.ExecutionResult) SubmitOrderResponse {
	out := SubmitOrderResponse{
		Status:    "ok",
		OrderID:   res.OrderID,
		Filled:    res.Filled,
		Requested: res.Requested,
		Resting:   res.Resting,
		Trades:    res.TradeCount,
		LatencyNs: res.Latency.Nanoseconds(),
	}
	if avg, ok := res.AvgPrice(); ok {
		out.AvgPrice = json.Number(avg.Round(avgPricePlaces).String())
	}
	return out
}

func NewBookResponse(snap domain.BookSnapshot) BookResponse {
	return BookResponse{
		Seq:  snap.Seq,
		Bids: levels(snap.Bids),
		Asks: levels(snap.Asks),
	}
}

func levels(in []domain.BookLevel) []Level {
	out := make([]Level, len(in))
	for i, l := range in {
		out[i] = Level{Price: json.Number(l.Price.String()), Qty: l.Quantity}
	}
	return out
}
