package ports

import (
	"context"

	"github.com/storefront/identity-service/internal/core/domain"
)

// CreateSellerInput carries an admin-provisioned seller.
type CreateSellerInput struct {
	Name     string
	Email    string
	Mobile   string
	Password string // generated when empty
	Store    domain.StoreInfo
	Image    *ImageUpload
}

// CreateSellerResult is returned by CreateSeller.
type CreateSellerResult struct {
	Account *domain.Account
	// Generated is true when the service chose the password and only the
	// welcome email carries it.
	Generated bool
	EmailSent bool
}

// ReviewResult is returned by seller approval and rejection.
type ReviewResult struct {
	Account   *domain.Account
	EmailSent bool
}

// AdminService holds the operations reserved to administrators. The acting
// admin is always re-checked against the credential store.
type AdminService interface {
	CreateSeller(ctx context.Context, admin domain.Identity, in CreateSellerInput) (*CreateSellerResult, error)
	ApproveSeller(ctx context.Context, admin domain.Identity, sellerID string) (*ReviewResult, error)
	RejectSeller(ctx context.Context, admin domain.Identity, sellerID string) (*ReviewResult, error)
	ListPendingSellers(ctx context.Context, admin domain.Identity) ([]*domain.Account, error)
	DeactivateAccount(ctx context.Context, admin domain.Identity, accountID string) error
	// BootstrapAdmin creates the configured admin account when it is missing.
	BootstrapAdmin(ctx context.Context, name, email, password string) (*domain.Account, error)
}
