package ports

import (
	"context"
	"time"

	"github.com/storefront/identity-service/internal/core/domain"
)

// AccountUpdate lists the fields a finalized challenge may change.
// Nil fields are left untouched.
type AccountUpdate struct {
	EmailVerified *bool
	PasswordHash  *string
}

// SellerReview carries the audit fields of an admin decision on a seller.
type SellerReview struct {
	ReviewerID string
	At         time.Time
}

// AccountRepository is the credential store.
type AccountRepository interface {
	// Create inserts a new account. A second account with the same email is
	// rejected with domain.ErrAlreadyRegistered, never overwritten.
	Create(ctx context.Context, account *domain.Account) error
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)

	// SaveChallenge replaces the account's challenge with ch.
	SaveChallenge(ctx context.Context, accountID string, ch domain.OTPChallenge) error
	// FinalizeChallenge consumes the live challenge matching code and purpose
	// that is still unexpired at now, and applies update in the same atomic
	// write. It returns domain.ErrAlreadyConsumed when no such challenge is left.
	FinalizeChallenge(ctx context.Context, accountID, code string, purpose domain.OTPPurpose, now time.Time, update AccountUpdate) error
	// ClearChallenge nulls the challenge and marks it consumed. Idempotent.
	ClearChallenge(ctx context.Context, accountID string) error

	// ApproveSeller moves a pending seller to approved, activating and
	// verifying it. Returns domain.ErrAccountNotFound when no pending seller matches.
	ApproveSeller(ctx context.Context, sellerID string, review SellerReview) error
	// RejectSeller moves a pending seller to rejected.
	RejectSeller(ctx context.Context, sellerID string, review SellerReview) error
	// SoftDelete stamps deletedAt and deactivates the account.
	SoftDelete(ctx context.Context, accountID string, at time.Time) error

	// ListPendingSellers returns live sellers awaiting review, newest first.
	ListPendingSellers(ctx context.Context) ([]*domain.Account, error)
}
