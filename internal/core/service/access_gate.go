package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/storefront/identity-service/internal/core/domain"
	"github.com/storefront/identity-service/internal/core/ports"
)

// AccessGate authenticates bearer tokens against the live credential store.
type AccessGate struct {
	repo   ports.AccountRepository
	tokens ports.TokenIssuer
}

func NewAccessGate(repo ports.AccountRepository, tokens ports.TokenIssuer) *AccessGate {
	return &AccessGate{repo: repo, tokens: tokens}
}

// Authenticate verifies token and reloads the account it names. The token
// proves identity only; every status flag comes from the store.
func (g *AccessGate) Authenticate(ctx context.Context, token string) (*domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	claims, err := g.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	acc, err := g.repo.FindByID(ctx, claims.AccountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}

	switch {
	case acc.Deactivated():
		return nil, domain.ErrAccountDeactivated
	case !acc.EmailVerified:
		return nil, domain.ErrEmailNotVerified
	case acc.Role == domain.RoleSeller && acc.SellerStatus() != domain.SellerApproved:
		return nil, domain.ErrSellerNotApproved
	}

	return &domain.Identity{
		AccountID: acc.ID,
		Email:     acc.Email,
		Role:      acc.Role,
		TokenRole: claims.Role,
		Account:   acc,
	}, nil
}

// Authorize checks the persisted role of identity against allowed.
// An empty allowed set admits any authenticated identity.
func (g *AccessGate) Authorize(identity *domain.Identity, allowed ...domain.Role) error {
	if identity == nil {
		return domain.ErrUnauthenticated
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, r := range allowed {
		if identity.Role == r {
			return nil
		}
	}
	return domain.ErrAccessDenied
}
