package in_memory

import (
	"context"
	"sync"

	"github.com/olyamironova/limitbook/internal/domain"
	"github.com/olyamironova/limitbook/internal/port"
)

// Publisher remembers the newest published book and how many were published.
// A sequenced snapshot older than the one held is counted but not kept.
type Publisher struct {
	mu    sync.Mutex
	last  domain.BookSnapshot
	count int
}

var _ port.Publisher = (*Publisher)(nil)

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) PublishBook(ctx context.Context, snap domain.BookSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	if snap.Seq == 0 || snap.Seq > p.last.Seq {
		p.last = snap
	}
	return nil
}

func (p *Publisher) Last() (domain.BookSnapshot, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.count
}
