// Package loadgen injects batches of random limit orders into a book.
package loadgen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/olyamironova/limitbook/internal/core"
	"github.com/olyamironova/limitbook/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	// Pairs is the number of buy/sell pairs in one batch.
	Pairs = 20

	minCents  = 9500 // 95.00
	spanCents = 3000 // up to 124.99
	maxQty    = 25
)

// Submitter is the part of core.Engine the generator needs.
type Submitter interface {
	SubmitLimit(ctx context.Context, price decimal.Decimal, quantity int64, side domain.Side) (domain.ExecutionResult, error)
}

// Generator produces batches of interleaved buy and sell limit orders with
// prices uniform in [95, 125) at cent precision and quantities in [1, 25].
// It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a generator with a fixed seed, for reproducible batches.
func New(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandom returns a generator seeded from the runtime source.
func NewRandom() *Generator {
	return New(rand.Uint64())
}

// Batch returns one batch of 2*Pairs orders, buy first in each pair.
func (g *Generator) Batch() []core.SeedOrder {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]core.SeedOrder, 0, 2*Pairs)
	for i := 0; i < Pairs; i++ {
		out = append(out, g.next(domain.Buy), g.next(domain.Sell))
	}
	return out
}

func (g *Generator) next(side domain.Side) core.SeedOrder {
	cents := int64(minCents + g.rng.IntN(spanCents))
	return core.SeedOrder{
		Price:    decimal.New(cents, -2),
		Quantity: int64(g.rng.IntN(maxQty) + 1),
		Side:     side,
	}
}

// Report summarizes one injected batch.
type Report struct {
	Added  int
	Filled int64
	Trades int
}

// Inject submits one batch through s. Orders may trade against the book and
// against each other.
func (g *Generator) Inject(ctx context.Context, s Submitter) (Report, error) {
	var rep Report
	for _, o := range g.Batch() {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res, err := s.SubmitLimit(ctx, o.Price, o.Quantity, o.Side)
		if err != nil {
			return rep, fmt.Errorf("loadgen: submit %s %d@%s: %w", o.Side, o.Quantity, o.Price, err)
		}
		rep.Added++
		rep.Filled += res.Filled
		rep.Trades += res.TradeCount
	}
	return rep, nil
}
