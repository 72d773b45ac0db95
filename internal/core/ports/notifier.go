package ports

import (
	"context"

	"github.com/storefront/identity-service/internal/core/domain"
)

// Notifier delivers a formatted message to one address.
type Notifier interface {
	Send(ctx context.Context, msg domain.Message) error
}
