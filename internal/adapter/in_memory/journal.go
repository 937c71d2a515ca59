package in_memory

import (
	"context"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/olyamironova/limitbook/internal/domain"
	"github.com/olyamironova/limitbook/internal/port"
)

// Entry is one recorded execution.
type Entry struct {
	Result domain.ExecutionResult
	At     time.Time
}

// Journal keeps executions in memory, oldest first. A bounded journal drops
// its oldest entry once full.
type Journal struct {
	mu       sync.Mutex
	entries  deque.Deque[Entry]
	capacity int
	dropped  uint64
}

var _ port.Journal = (*Journal)(nil)

// NewJournal returns an unbounded journal.
func NewJournal() *Journal {
	return &Journal{}
}

// NewBoundedJournal keeps at most capacity entries.
func NewBoundedJournal(capacity int) *Journal {
	return &Journal{capacity: capacity}
}

func (j *Journal) RecordExecution(ctx context.Context, res domain.ExecutionResult, at time.Time) error {
	res.Fills = append([]domain.Fill(nil), res.Fills...)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries.PushBack(Entry{Result: res, At: at})
	if j.capacity > 0 && j.entries.Len() > j.capacity {
		j.entries.PopFront()
		j.dropped++
	}
	return nil
}

// Entries returns a copy of what is currently retained.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, j.entries.Len())
	for i := range out {
		out[i] = j.entries.At(i)
	}
	return out
}

// Dropped reports how many entries a bounded journal has evicted.
func (j *Journal) Dropped() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.dropped
}
