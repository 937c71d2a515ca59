package breaker

import (
	"context"
	"time"

	"github.com/olyamironova/limitbook/internal/domain"
	"github.com/olyamironova/limitbook/internal/logger"
	"github.com/olyamironova/limitbook/internal/metrics"
	"github.com/olyamironova/limitbook/internal/port"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Rule configures when a sink breaker opens and how long it stays open.
type Rule struct {
	// consecutive failures that open the breaker
	Failures uint32
	// time spent open before a half-open probe
	Timeout time.Duration
}

func (r Rule) settings(name string) gobreaker.Settings {
	if r.Failures == 0 {
		r.Failures = 5
	}
	if r.Timeout <= 0 {
		r.Timeout = 5 * time.Second
	}
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     r.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= r.Failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn(context.Background(), "sink breaker state changed",
				zap.String("sink", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
}

// Journal guards a port.Journal. While open, calls fail fast with
// gobreaker.ErrOpenState.
type Journal struct {
	next port.Journal
	cb   *gobreaker.CircuitBreaker[struct{}]
}

var _ port.Journal = (*Journal)(nil)

func NewJournal(next port.Journal, rule Rule) *Journal {
	return &Journal{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[struct{}](rule.settings("journal")),
	}
}

func (j *Journal) RecordExecution(ctx context.Context, res domain.ExecutionResult, at time.Time) error {
	_, err := j.cb.Execute(func() (struct{}, error) {
		return struct{}{}, j.next.RecordExecution(ctx, res, at)
	})
	return err
}

func (j *Journal) State() gobreaker.State { return j.cb.State() }

// Publisher guards a port.Publisher.
type Publisher struct {
	next port.Publisher
	cb   *gobreaker.CircuitBreaker[struct{}]
}

var _ port.Publisher = (*Publisher)(nil)

func NewPublisher(next port.Publisher, rule Rule) *Publisher {
	return &Publisher{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[struct{}](rule.settings("publisher")),
	}
}

func (p *Publisher) PublishBook(ctx context.Context, snap domain.BookSnapshot) error {
	_, err := p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.next.PublishBook(ctx, snap)
	})
	return err
}

func (p *Publisher) State() gobreaker.State { return p.cb.State() }
