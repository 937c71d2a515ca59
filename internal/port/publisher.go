package port

import (
	"context"

	"github.com/olyamironova/limitbook/internal/domain"
)

// Publisher fans the latest top of book out to downstream consumers.
type Publisher interface {
	PublishBook(ctx context.Context, snap domain.BookSnapshot) error
}
