package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/storefront/identity-service/internal/core/domain"
	"github.com/storefront/identity-service/internal/core/ports"
)

const (
	defaultCodeDigits = 6
	defaultCodeTTL    = 5 * time.Minute
)

// OTPEngine issues, verifies and consumes the one-time codes stored on
// accounts. An account holds at most one challenge at a time.
type OTPEngine struct {
	repo      ports.AccountRepository
	notifier  ports.Notifier
	templates *Templates
	now       func() time.Time
	random    io.Reader
	digits    int
	ttl       time.Duration
}

// OTPOption customizes an OTPEngine.
type OTPOption func(*OTPEngine)

// WithOTPClock overrides the time source.
func WithOTPClock(now func() time.Time) OTPOption {
	return func(e *OTPEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithOTPRandom overrides the randomness source used for codes.
func WithOTPRandom(r io.Reader) OTPOption {
	return func(e *OTPEngine) {
		if r != nil {
			e.random = r
		}
	}
}

// WithOTPTTL overrides the code lifetime.
func WithOTPTTL(ttl time.Duration) OTPOption {
	return func(e *OTPEngine) {
		if ttl > 0 {
			e.ttl = ttl
		}
	}
}

func NewOTPEngine(repo ports.AccountRepository, notifier ports.Notifier, templates *Templates, opts ...OTPOption) *OTPEngine {
	e := &OTPEngine{
		repo:      repo,
		notifier:  notifier,
		templates: templates,
		now:       func() time.Time { return time.Now().UTC() },
		random:    rand.Reader,
		digits:    defaultCodeDigits,
		ttl:       defaultCodeTTL,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TTL returns the lifetime of issued codes.
func (e *OTPEngine) TTL() time.Duration { return e.ttl }

// Issue stores a fresh challenge on acc, replacing any previous one, and
// sends it. When only the delivery fails the challenge is returned together
// with an error wrapping domain.ErrDeliveryFailed; the code stays valid.
func (e *OTPEngine) Issue(ctx context.Context, acc *domain.Account, purpose domain.OTPPurpose) (*domain.OTPChallenge, error) {
	code, err := e.randomCode()
	if err != nil {
		return nil, fmt.Errorf("issue otp: %w", err)
	}

	now := e.now()
	ch := domain.OTPChallenge{
		Code:      code,
		Purpose:   purpose,
		IssuedAt:  now,
		ExpiresAt: now.Add(e.ttl),
	}
	if err := e.repo.SaveChallenge(ctx, acc.ID, ch); err != nil {
		return nil, fmt.Errorf("issue otp: %w", err)
	}
	acc.OTP = &ch

	msg, err := e.templates.Challenge(acc, purpose, code, e.ttl)
	if err != nil {
		return &ch, fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}
	if err := e.notifier.Send(ctx, msg); err != nil {
		return &ch, fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}
	return &ch, nil
}

// Verify checks code against the live challenge of acc without consuming it.
func (e *OTPEngine) Verify(acc *domain.Account, code string, purpose domain.OTPPurpose) error {
	if !acc.OTP.Live(purpose) {
		return domain.ErrAlreadyConsumed
	}
	if subtle.ConstantTimeCompare([]byte(acc.OTP.Code), []byte(code)) != 1 {
		return domain.ErrCodeMismatch
	}
	if !e.now().Before(acc.OTP.ExpiresAt) {
		return domain.ErrExpired
	}
	return nil
}

// Finalize consumes the challenge and applies update atomically. Of two
// concurrent callers only the first succeeds, and a code that expired after
// Verify is rejected with domain.ErrExpired.
func (e *OTPEngine) Finalize(ctx context.Context, acc *domain.Account, code string, purpose domain.OTPPurpose, update ports.AccountUpdate) error {
	now := e.now()
	if err := e.repo.FinalizeChallenge(ctx, acc.ID, code, purpose, now, update); err != nil {
		if errors.Is(err, domain.ErrAlreadyConsumed) && acc.OTP.Live(purpose) && !now.Before(acc.OTP.ExpiresAt) {
			return domain.ErrExpired
		}
		return err
	}
	if acc.OTP != nil {
		acc.OTP = &domain.OTPChallenge{Purpose: acc.OTP.Purpose, IssuedAt: acc.OTP.IssuedAt, Consumed: true}
	}
	if update.EmailVerified != nil {
		acc.EmailVerified = *update.EmailVerified
	}
	if update.PasswordHash != nil {
		acc.PasswordHash = *update.PasswordHash
	}
	return nil
}

// Clear invalidates whatever challenge acc holds.
func (e *OTPEngine) Clear(ctx context.Context, acc *domain.Account) error {
	if err := e.repo.ClearChallenge(ctx, acc.ID); err != nil {
		return err
	}
	if acc.OTP != nil {
		acc.OTP.Code = ""
		acc.OTP.ExpiresAt = time.Time{}
		acc.OTP.Consumed = true
	}
	return nil
}

// randomCode draws uniformly from [0, 10^digits) and zero-pads the result.
func (e *OTPEngine) randomCode() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(e.digits)), nil)
	n, err := rand.Int(e.random, limit)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", e.digits, n.Int64()), nil
}
