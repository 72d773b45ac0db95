package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/storefront/identity-service/internal/core/domain"
)

// IdentityKey is the echo context key under which the Auth middleware stores
// the authenticated *domain.Identity.
const IdentityKey = "identity"

// ctxIdentity extracts the identity injected by the Auth middleware. Its
// absence means the route was mounted without the middleware.
func ctxIdentity(c echo.Context) (*domain.Identity, error) {
	id, _ := c.Get(IdentityKey).(*domain.Identity)
	if id == nil || id.Account == nil {
		return nil, domain.ErrUnauthenticated
	}
	return id, nil
}
