package ports

import "github.com/storefront/identity-service/internal/core/domain"

// TokenIssuer mints and verifies stateless session tokens.
type TokenIssuer interface {
	Issue(claims domain.SessionClaims) (token string, claimsOut domain.SessionClaims, err error)
	Verify(token string) (*domain.SessionClaims, error)
}
