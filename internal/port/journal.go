package port

import (
	"context"
	"time"

	"github.com/olyamironova/limitbook/internal/domain"
)

// Journal records executions for audit. It is write-only: the book is never
// rebuilt from it.
type Journal interface {
	RecordExecution(ctx context.Context, res domain.ExecutionResult, at time.Time) error
}
