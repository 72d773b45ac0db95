package ports

import (
	"context"

	"github.com/storefront/identity-service/internal/core/domain"
)

// EventPublisher hands lifecycle events to the asynchronous audit pipeline.
type EventPublisher interface {
	Publish(event domain.AccountEvent)
}

// EventService records a single lifecycle event.
type EventService interface {
	Record(ctx context.Context, event domain.AccountEvent) error
}
