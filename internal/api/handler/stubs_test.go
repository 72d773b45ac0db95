package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/storefront/identity-service/internal/core/domain"
	"github.com/storefront/identity-service/internal/core/ports"
)

type stubOnboarding struct {
	signupFn  func(ctx context.Context, in ports.SignupInput) (*ports.SignupResult, error)
	confirmFn func(ctx context.Context, email, code string) (*domain.Account, error)
	resendFn  func(ctx context.Context, email string) error
	loginFn   func(ctx context.Context, email, password string) (*ports.LoginResult, error)
	forgotFn  func(ctx context.Context, email string) error
	resetFn   func(ctx context.Context, in ports.ResetPasswordInput) error
}

func (s *stubOnboarding) Signup(ctx context.Context, in ports.SignupInput) (*ports.SignupResult, error) {
	return s.signupFn(ctx, in)
}

func (s *stubOnboarding) ConfirmEmail(ctx context.Context, email, code string) (*domain.Account, error) {
	return s.confirmFn(ctx, email, code)
}

func (s *stubOnboarding) ResendCode(ctx context.Context, email string) error {
	return s.resendFn(ctx, email)
}

func (s *stubOnboarding) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubOnboarding) ForgotPassword(ctx context.Context, email string) error {
	return s.forgotFn(ctx, email)
}

func (s *stubOnboarding) ResetPassword(ctx context.Context, in ports.ResetPasswordInput) error {
	return s.resetFn(ctx, in)
}

type stubAdmin struct {
	createFn     func(ctx context.Context, admin domain.Identity, in ports.CreateSellerInput) (*ports.CreateSellerResult, error)
	approveFn    func(ctx context.Context, admin domain.Identity, id string) (*ports.ReviewResult, error)
	rejectFn     func(ctx context.Context, admin domain.Identity, id string) (*ports.ReviewResult, error)
	listFn       func(ctx context.Context, admin domain.Identity) ([]*domain.Account, error)
	deactivateFn func(ctx context.Context, admin domain.Identity, id string) error
}

func (s *stubAdmin) CreateSeller(ctx context.Context, admin domain.Identity, in ports.CreateSellerInput) (*ports.CreateSellerResult, error) {
	return s.createFn(ctx, admin, in)
}

func (s *stubAdmin) ApproveSeller(ctx context.Context, admin domain.Identity, id string) (*ports.ReviewResult, error) {
	return s.approveFn(ctx, admin, id)
}

func (s *stubAdmin) RejectSeller(ctx context.Context, admin domain.Identity, id string) (*ports.ReviewResult, error) {
	return s.rejectFn(ctx, admin, id)
}

func (s *stubAdmin) ListPendingSellers(ctx context.Context, admin domain.Identity) ([]*domain.Account, error) {
	return s.listFn(ctx, admin)
}

func (s *stubAdmin) DeactivateAccount(ctx context.Context, admin domain.Identity, id string) error {
	return s.deactivateFn(ctx, admin, id)
}

func (s *stubAdmin) BootstrapAdmin(context.Context, string, string, string) (*domain.Account, error) {
	return nil, nil
}

var fixedTime = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator("US")
	return e
}

func jsonContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func adminIdentity() *domain.Identity {
	acc := &domain.Account{ID: "admin-1", Email: "admin@example.com", Role: domain.RoleAdmin, Active: true, EmailVerified: true}
	return &domain.Identity{AccountID: acc.ID, Email: acc.Email, Role: acc.Role, TokenRole: acc.Role, Account: acc}
}

func sampleSeller(status domain.SellerStatus) *domain.Account {
	return &domain.Account{
		ID:            "seller-1",
		Email:         "shop@example.com",
		PasswordHash:  "$2a$10$secret-hash",
		Name:          "Shop",
		Role:          domain.RoleSeller,
		EmailVerified: true,
		Active:        true,
		Seller:        &domain.SellerProfile{Status: status, Store: domain.StoreInfo{StoreName: "Shop Inc"}},
		OTP:           &domain.OTPChallenge{Code: "123456", Purpose: domain.PurposeSignup},
		CreatedAt:     fixedTime,
	}
}
