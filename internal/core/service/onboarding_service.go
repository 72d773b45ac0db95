package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/storefront/identity-service/internal/core/domain"
	"github.com/storefront/identity-service/internal/core/ports"
	"github.com/storefront/identity-service/internal/pkg/phone"
)

// OnboardingService implements the self-service account flows.
type OnboardingService struct {
	repo     ports.AccountRepository
	otp      *OTPEngine
	tokens   ports.TokenIssuer
	throttle ports.ChallengeThrottle
	events   ports.EventPublisher
	hasher   *hasher
	log      zerolog.Logger
	now      func() time.Time
	region   string
}

// OnboardingOption customizes an OnboardingService.
type OnboardingOption func(*OnboardingService)

// WithThrottle limits how often challenges are re-issued.
func WithThrottle(t ports.ChallengeThrottle) OnboardingOption {
	return func(s *OnboardingService) { s.throttle = t }
}

// WithEvents publishes lifecycle events to p.
func WithEvents(p ports.EventPublisher) OnboardingOption {
	return func(s *OnboardingService) {
		if p != nil {
			s.events = p
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) OnboardingOption {
	return func(s *OnboardingService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPhoneRegion sets the region used to parse mobile numbers without a
// country prefix.
func WithPhoneRegion(region string) OnboardingOption {
	return func(s *OnboardingService) { s.region = region }
}

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) OnboardingOption {
	return func(s *OnboardingService) { s.hasher = newHasher(cost) }
}

func NewOnboardingService(
	repo ports.AccountRepository,
	otp *OTPEngine,
	tokens ports.TokenIssuer,
	log zerolog.Logger,
	opts ...OnboardingOption,
) *OnboardingService {
	s := &OnboardingService{
		repo:   repo,
		otp:    otp,
		tokens: tokens,
		events: noopPublisher{},
		hasher: newHasher(0),
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
		region: phone.DefaultRegion,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup registers a user or seller and sends the verification code. An
// unverified account with the same email gets a fresh code instead.
func (s *OnboardingService) Signup(ctx context.Context, in ports.SignupInput) (*ports.SignupResult, error) {
	email := domain.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" {
		return nil, fmt.Errorf("%w: name and email are required", domain.ErrInvalidInput)
	}

	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}
	if role == domain.RoleAdmin {
		return nil, fmt.Errorf("%w: admin accounts cannot sign up", domain.ErrInvalidRole)
	}
	if role == domain.RoleSeller && (in.Store == nil || strings.TrimSpace(in.Store.StoreName) == "") {
		return nil, fmt.Errorf("%w: store name is required for sellers", domain.ErrInvalidInput)
	}

	mobile, err := normalizeMobile(in.Mobile, s.region)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return s.reissueSignup(ctx, existing)
	case !errors.Is(err, domain.ErrAccountNotFound):
		return nil, fmt.Errorf("signup: %w", err)
	}

	hash, err := s.hasher.hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	acc := &domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Mobile:       mobile,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if role == domain.RoleSeller {
		acc.Seller = &domain.SellerProfile{Status: domain.SellerPending, Store: trimStore(*in.Store)}
	}

	if err := s.repo.Create(ctx, acc); err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	s.publish(acc.ID, domain.EventSignedUp, "", map[string]string{"role": string(role)})

	sent, err := s.issue(ctx, acc, domain.PurposeSignup)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", acc.ID).Str("role", string(role)).Bool("email_sent", sent).Msg("account signed up")
	return &ports.SignupResult{Account: acc, EmailSent: sent}, nil
}

func (s *OnboardingService) reissueSignup(ctx context.Context, acc *domain.Account) (*ports.SignupResult, error) {
	if acc.EmailVerified || acc.DeletedAt != nil {
		return nil, domain.ErrAlreadyRegistered
	}
	if err := s.allow(ctx, acc.Email, domain.PurposeSignup); err != nil {
		return nil, err
	}

	sent, err := s.issue(ctx, acc, domain.PurposeSignup)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", acc.ID).Bool("email_sent", sent).Msg("signup challenge reissued")
	return &ports.SignupResult{Account: acc, EmailSent: sent, Reissued: true}, nil
}

// ConfirmEmail consumes the signup code and marks the email verified.
func (s *OnboardingService) ConfirmEmail(ctx context.Context, email, code string) (*domain.Account, error) {
	acc, err := s.repo.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if acc.Deactivated() {
		return nil, domain.ErrAccountDeactivated
	}
	if acc.EmailVerified {
		return nil, domain.ErrAlreadyVerified
	}

	code = strings.TrimSpace(code)
	if err := s.otp.Verify(acc, code, domain.PurposeSignup); err != nil {
		return nil, err
	}
	verified := true
	if err := s.otp.Finalize(ctx, acc, code, domain.PurposeSignup, ports.AccountUpdate{EmailVerified: &verified}); err != nil {
		return nil, err
	}
	acc.UpdatedAt = s.now()

	s.publish(acc.ID, domain.EventEmailVerified, "", nil)
	s.log.Info().Str("account_id", acc.ID).Str("state", string(acc.State())).Msg("email verified")
	return acc, nil
}

// ResendCode issues a new signup code to an unverified account. Unlike
// Signup, a delivery failure is returned to the caller.
func (s *OnboardingService) ResendCode(ctx context.Context, email string) error {
	acc, err := s.repo.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if acc.EmailVerified {
		return domain.ErrAlreadyVerified
	}
	if acc.Deactivated() {
		return domain.ErrAccountDeactivated
	}
	if err := s.allow(ctx, acc.Email, domain.PurposeSignup); err != nil {
		return err
	}

	if _, err := s.otp.Issue(ctx, acc, domain.PurposeSignup); err != nil {
		if errors.Is(err, domain.ErrDeliveryFailed) {
			s.log.Warn().Err(err).Str("account_id", acc.ID).Msg("resend delivery failed")
		}
		return err
	}
	s.publish(acc.ID, domain.EventChallengeIssued, "", map[string]string{"purpose": string(domain.PurposeSignup)})
	return nil
}

// Login checks the account state before the password so that an unverified
// or unapproved account never receives a token.
func (s *OnboardingService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	acc, err := s.repo.FindByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, domain.ErrAccountNotFound) {
		s.hasher.burn(password)
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	switch {
	case acc.Deactivated():
		return nil, domain.ErrAccountDeactivated
	case !acc.EmailVerified:
		return nil, domain.ErrEmailNotVerified
	}
	switch acc.SellerStatus() {
	case domain.SellerPending:
		return nil, domain.ErrSellerPendingApproval
	case domain.SellerRejected:
		return nil, domain.ErrSellerNotApproved
	case domain.SellerSuspended:
		return nil, domain.ErrAccountDeactivated
	}

	if !s.hasher.matches(acc.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}

	token, claims, err := s.tokens.Issue(domain.SessionClaims{
		AccountID: acc.ID,
		Role:      acc.Role,
		Email:     acc.Email,
		Name:      acc.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("login: issue token: %w", err)
	}

	s.publish(acc.ID, domain.EventLoggedIn, "", nil)
	s.log.Info().Str("account_id", acc.ID).Str("role", string(acc.Role)).Msg("login succeeded")
	return &ports.LoginResult{Token: token, ExpiresAt: claims.ExpiresAt, Account: acc}, nil
}

// ForgotPassword sends a reset code when the account exists and is active.
// Apart from storage failures it always succeeds.
func (s *OnboardingService) ForgotPassword(ctx context.Context, email string) error {
	acc, err := s.repo.FindByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	if acc.Deactivated() {
		s.log.Debug().Str("account_id", acc.ID).Msg("reset requested for inactive account")
		return nil
	}
	if err := s.allow(ctx, acc.Email, domain.PurposeReset); err != nil {
		s.log.Info().Str("account_id", acc.ID).Msg("reset request throttled")
		return nil
	}

	if _, err := s.issue(ctx, acc, domain.PurposeReset); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	return nil
}

// ResetPassword verifies the reset code, stores the new hash and consumes
// the code in a single write.
func (s *OnboardingService) ResetPassword(ctx context.Context, in ports.ResetPasswordInput) error {
	acc, err := s.repo.FindByEmail(ctx, domain.NormalizeEmail(in.Email))
	if errors.Is(err, domain.ErrAccountNotFound) {
		return domain.ErrCodeMismatch
	}
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if acc.Deactivated() {
		return domain.ErrAccountDeactivated
	}

	code := strings.TrimSpace(in.Code)
	if err := s.otp.Verify(acc, code, domain.PurposeReset); err != nil {
		return err
	}
	hash, err := s.hasher.hash(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.otp.Finalize(ctx, acc, code, domain.PurposeReset, ports.AccountUpdate{PasswordHash: &hash}); err != nil {
		return err
	}

	s.publish(acc.ID, domain.EventPasswordReset, "", nil)
	s.log.Info().Str("account_id", acc.ID).Msg("password reset")
	return nil
}

// issue sends a challenge and reports whether it was delivered. Only
// storage failures are returned.
func (s *OnboardingService) issue(ctx context.Context, acc *domain.Account, purpose domain.OTPPurpose) (bool, error) {
	_, err := s.otp.Issue(ctx, acc, purpose)
	switch {
	case errors.Is(err, domain.ErrDeliveryFailed):
		s.log.Warn().Err(err).Str("account_id", acc.ID).Str("purpose", string(purpose)).Msg("otp delivery failed")
		s.publish(acc.ID, domain.EventChallengeIssued, "", map[string]string{"purpose": string(purpose), "delivered": "false"})
		return false, nil
	case err != nil:
		return false, err
	}
	s.publish(acc.ID, domain.EventChallengeIssued, "", map[string]string{"purpose": string(purpose)})
	return true, nil
}

// allow consults the throttle. A throttle outage lets the request through.
func (s *OnboardingService) allow(ctx context.Context, email string, purpose domain.OTPPurpose) error {
	if s.throttle == nil {
		return nil
	}
	err := s.throttle.Allow(ctx, email, purpose)
	if err == nil || errors.Is(err, domain.ErrTooManyRequests) {
		return err
	}
	s.log.Warn().Err(err).Str("purpose", string(purpose)).Msg("otp throttle unavailable, allowing request")
	return nil
}

func (s *OnboardingService) publish(accountID string, t domain.EventType, actorID string, details map[string]string) {
	s.events.Publish(domain.AccountEvent{
		AccountID: accountID,
		Type:      t,
		ActorID:   actorID,
		Timestamp: s.now(),
		Details:   details,
	})
}

func normalizeMobile(raw, region string) (string, error) {
	mobile, err := phone.Normalize(raw, region)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return mobile, nil
}

func trimStore(in domain.StoreInfo) domain.StoreInfo {
	return domain.StoreInfo{
		StoreName:    strings.TrimSpace(in.StoreName),
		TaxID:        strings.TrimSpace(in.TaxID),
		BusinessType: strings.TrimSpace(in.BusinessType),
	}
}
