package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Side string
type OrderType string

const (
	Buy    Side      = "BUY"
	Sell   Side      = "SELL"
	Limit  OrderType = "LIMIT"
	Market OrderType = "MARKET"
)

// ErrInvalidInput rejects a submit before it touches the book.
var ErrInvalidInput = errors.New("invalid input")

// Input bounds. A price has at most PriceScale fractional digits and
// PriceDigits integer digits.
const (
	MaxQuantity int64 = 1_000_000_000_000
	PriceScale        = 8
	PriceDigits       = 12
)

// Opposite returns the side an order of this side trades against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) Valid() bool { return s == Buy || s == Sell }

func (t OrderType) Valid() bool { return t == Limit || t == Market }

// ParseSide accepts buy/sell in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	}
	return "", fmt.Errorf("%w: unknown side %q", ErrInvalidInput, s)
}

// ParseOrderType accepts limit/market in any case.
func ParseOrderType(s string) (OrderType, error) {
	switch OrderType(strings.ToUpper(strings.TrimSpace(s))) {
	case Limit:
		return Limit, nil
	case Market:
		return Market, nil
	}
	return "", fmt.Errorf("%w: unknown order type %q", ErrInvalidInput, s)
}

// Order is a resting or incoming order. Remaining only ever decreases once
// the order is accepted.
type Order struct {
	ID        string
	Side      Side
	Type      OrderType
	Price     decimal.Decimal
	Quantity  int64
	Remaining int64
}
