package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/storefront/identity-service/internal/api/handler"
	"github.com/storefront/identity-service/internal/core/domain"
	"github.com/storefront/identity-service/internal/core/ports"
)

// RBAC enforces role-based access control against the persisted role of the
// identity set by Auth. It must run after Auth.
func RBAC(gate ports.AccessGate, allowedRoles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, _ := c.Get(handler.IdentityKey).(*domain.Identity)
			if err := gate.Authorize(identity, allowedRoles...); err != nil {
				return err
			}
			return next(c)
		}
	}
}
