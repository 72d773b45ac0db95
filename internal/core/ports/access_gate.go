package ports

import (
	"context"

	"github.com/storefront/identity-service/internal/core/domain"
)

// AccessGate turns a bearer token into an Identity and enforces roles.
type AccessGate interface {
	// Authenticate verifies the token and re-checks the live account:
	// it must exist, be active, be verified, and be approved if a seller.
	Authenticate(ctx context.Context, token string) (*domain.Identity, error)
	// Authorize checks the persisted role against the allowed set.
	Authorize(identity *domain.Identity, allowed ...domain.Role) error
}
