package core

import (
	"github.com/olyamironova/limitbook/internal/domain"
	"github.com/shopspring/decimal"
)

// SeedOrder is a resting limit order used to pre-populate a book.
type SeedOrder struct {
	Price    decimal.Decimal
	Quantity int64
	Side     domain.Side
}

// DemoBook is the fixed opening book used by the menu and by servers started
// with book.seed_demo. None of the bids cross any of the asks.
var DemoBook = []SeedOrder{
	{decimal.RequireFromString("105.25"), 10, domain.Buy},
	{decimal.RequireFromString("103.10"), 15, domain.Buy},
	{decimal.RequireFromString("101.80"), 20, domain.Buy},
	{decimal.RequireFromString("98.50"), 12, domain.Buy},
	{decimal.RequireFromString("110.00"), 8, domain.Buy},
	{decimal.RequireFromString("106.75"), 5, domain.Buy},
	{decimal.RequireFromString("112.30"), 18, domain.Buy},
	{decimal.RequireFromString("104.40"), 22, domain.Buy},
	{decimal.RequireFromString("109.90"), 9, domain.Buy},
	{decimal.RequireFromString("107.20"), 14, domain.Buy},

	{decimal.RequireFromString("115.60"), 7, domain.Sell},
	{decimal.RequireFromString("117.45"), 12, domain.Sell},
	{decimal.RequireFromString("120.00"), 10, domain.Sell},
	{decimal.RequireFromString("118.10"), 6, domain.Sell},
	{decimal.RequireFromString("122.75"), 11, domain.Sell},
	{decimal.RequireFromString("119.30"), 16, domain.Sell},
	{decimal.RequireFromString("121.80"), 9, domain.Sell},
	{decimal.RequireFromString("116.50"), 13, domain.Sell},
	{decimal.RequireFromString("123.40"), 4, domain.Sell},
	{decimal.RequireFromString("118.75"), 15, domain.Sell},
}
