package ports

import (
	"context"

	"github.com/storefront/identity-service/internal/core/domain"
)

// EventRepository persists the account audit trail.
type EventRepository interface {
	// InsertEvent appends an event to the account_events collection.
	InsertEvent(ctx context.Context, event *domain.AccountEvent) error
}
