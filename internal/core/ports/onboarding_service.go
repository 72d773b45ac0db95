package ports

import (
	"context"
	"time"

	"github.com/storefront/identity-service/internal/core/domain"
)

// SignupInput carries the self-service registration form.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Mobile   string
	Role     string
	Store    *domain.StoreInfo
}

// SignupResult is returned by Signup.
type SignupResult struct {
	Account *domain.Account
	// EmailSent is false when the verification code could not be delivered.
	EmailSent bool
	// Reissued is true when the email belonged to an unverified account and a
	// fresh code was issued instead of creating a new record.
	Reissued bool
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   *domain.Account
}

// ResetPasswordInput carries the reset form.
type ResetPasswordInput struct {
	Email       string
	Code        string
	NewPassword string
}

// OnboardingService covers the self-service flows: signup, email
// verification, login and password recovery.
type OnboardingService interface {
	Signup(ctx context.Context, in SignupInput) (*SignupResult, error)
	ConfirmEmail(ctx context.Context, email, code string) (*domain.Account, error)
	ResendCode(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	// ForgotPassword never reveals whether the email is registered.
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in ResetPasswordInput) error
}
