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

const generatedPasswordLength = 12

// AdminService implements the administrator operations.
type AdminService struct {
	repo      ports.AccountRepository
	images    ports.ImageStore
	notifier  ports.Notifier
	templates *Templates
	events    ports.EventPublisher
	hasher    *hasher
	log       zerolog.Logger
	now       func() time.Time
	region    string
}

// AdminOption customizes an AdminService.
type AdminOption func(*AdminService)

func WithAdminEvents(p ports.EventPublisher) AdminOption {
	return func(s *AdminService) {
		if p != nil {
			s.events = p
		}
	}
}

func WithAdminClock(now func() time.Time) AdminOption {
	return func(s *AdminService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithAdminPhoneRegion(region string) AdminOption {
	return func(s *AdminService) { s.region = region }
}

func WithAdminBcryptCost(cost int) AdminOption {
	return func(s *AdminService) { s.hasher = newHasher(cost) }
}

func NewAdminService(
	repo ports.AccountRepository,
	images ports.ImageStore,
	notifier ports.Notifier,
	templates *Templates,
	log zerolog.Logger,
	opts ...AdminOption,
) *AdminService {
	s := &AdminService{
		repo:      repo,
		images:    images,
		notifier:  notifier,
		templates: templates,
		events:    noopPublisher{},
		hasher:    newHasher(0),
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		region:    phone.DefaultRegion,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSeller provisions an approved, verified seller. The uploaded image
// is removed again if the account cannot be stored. A failed welcome email
// does not undo the account.
func (s *AdminService) CreateSeller(ctx context.Context, admin domain.Identity, in ports.CreateSellerInput) (*ports.CreateSellerResult, error) {
	actor, err := s.requireAdmin(ctx, admin)
	if err != nil {
		return nil, err
	}

	email := domain.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" || strings.TrimSpace(in.Store.StoreName) == "" {
		return nil, fmt.Errorf("%w: name, email and store name are required", domain.ErrInvalidInput)
	}
	mobile, err := normalizeMobile(in.Mobile, s.region)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrAlreadyRegistered
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("create seller: %w", err)
	}

	password, generated := in.Password, false
	if password == "" {
		if password, err = generatePassword(generatedPasswordLength); err != nil {
			return nil, err
		}
		generated = true
	}
	hash, err := s.hasher.hash(password)
	if err != nil {
		return nil, err
	}

	var image *domain.ImageRef
	if in.Image != nil && s.images != nil {
		if image, err = s.images.Upload(ctx, *in.Image); err != nil {
			return nil, fmt.Errorf("create seller: upload image: %w", err)
		}
	}

	now := s.now()
	acc := &domain.Account{
		ID:            uuid.NewString(),
		Email:         email,
		PasswordHash:  hash,
		Name:          name,
		Mobile:        mobile,
		ProfileImage:  image,
		Role:          domain.RoleSeller,
		EmailVerified: true,
		Active:        true,
		Seller: &domain.SellerProfile{
			Status:     domain.SellerApproved,
			Store:      trimStore(in.Store),
			ReviewedBy: actor.ID,
			ReviewedAt: &now,
		},
		CreatedBy: actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, acc); err != nil {
		s.discardImage(image)
		return nil, fmt.Errorf("create seller: %w", err)
	}

	sent := s.notify(ctx, acc, func() (domain.Message, error) { return s.templates.SellerCreated(acc, password) })
	s.publish(acc.ID, domain.EventSellerCreated, actor.ID)

	s.log.Info().
		Str("account_id", acc.ID).
		Str("admin_id", actor.ID).
		Bool("generated_password", generated).
		Bool("email_sent", sent).
		Msg("seller created by admin")
	return &ports.CreateSellerResult{Account: acc, Generated: generated, EmailSent: sent}, nil
}

// ApproveSeller moves a seller to approved and notifies them.
func (s *AdminService) ApproveSeller(ctx context.Context, admin domain.Identity, sellerID string) (*ports.ReviewResult, error) {
	actor, err := s.requireAdmin(ctx, admin)
	if err != nil {
		return nil, err
	}
	seller, err := s.findSeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if seller.SellerStatus() == domain.SellerApproved {
		return nil, domain.ErrAlreadyApproved
	}
	if !seller.State().CanTransitionTo(domain.StateSellerApproved) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, seller.State(), domain.StateSellerApproved)
	}

	now := s.now()
	if err := s.repo.ApproveSeller(ctx, seller.ID, ports.SellerReview{ReviewerID: actor.ID, At: now}); err != nil {
		return nil, s.reviewConflict(ctx, seller.ID, err)
	}
	seller.Seller.Status = domain.SellerApproved
	seller.Seller.ReviewedBy = actor.ID
	seller.Seller.ReviewedAt = &now
	seller.EmailVerified = true
	seller.Active = true
	seller.UpdatedAt = now

	sent := s.notify(ctx, seller, func() (domain.Message, error) { return s.templates.SellerApproved(seller) })
	s.publish(seller.ID, domain.EventSellerApproved, actor.ID)

	s.log.Info().Str("account_id", seller.ID).Str("admin_id", actor.ID).Bool("email_sent", sent).Msg("seller approved")
	return &ports.ReviewResult{Account: seller, EmailSent: sent}, nil
}

// RejectSeller moves a pending seller to rejected and notifies them.
func (s *AdminService) RejectSeller(ctx context.Context, admin domain.Identity, sellerID string) (*ports.ReviewResult, error) {
	actor, err := s.requireAdmin(ctx, admin)
	if err != nil {
		return nil, err
	}
	seller, err := s.findSeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if seller.SellerStatus() == domain.SellerApproved {
		return nil, domain.ErrAlreadyApproved
	}
	if !seller.State().CanTransitionTo(domain.StateSellerRejected) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, seller.State(), domain.StateSellerRejected)
	}

	now := s.now()
	if err := s.repo.RejectSeller(ctx, seller.ID, ports.SellerReview{ReviewerID: actor.ID, At: now}); err != nil {
		return nil, s.reviewConflict(ctx, seller.ID, err)
	}
	seller.Seller.Status = domain.SellerRejected
	seller.Seller.ReviewedBy = actor.ID
	seller.Seller.ReviewedAt = &now
	seller.UpdatedAt = now

	sent := s.notify(ctx, seller, func() (domain.Message, error) { return s.templates.SellerRejected(seller) })
	s.publish(seller.ID, domain.EventSellerRejected, actor.ID)

	s.log.Info().Str("account_id", seller.ID).Str("admin_id", actor.ID).Bool("email_sent", sent).Msg("seller rejected")
	return &ports.ReviewResult{Account: seller, EmailSent: sent}, nil
}

// ListPendingSellers returns sellers awaiting review, newest first.
func (s *AdminService) ListPendingSellers(ctx context.Context, admin domain.Identity) ([]*domain.Account, error) {
	if _, err := s.requireAdmin(ctx, admin); err != nil {
		return nil, err
	}
	sellers, err := s.repo.ListPendingSellers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending sellers: %w", err)
	}
	return sellers, nil
}

// DeactivateAccount soft deletes an account. Admins cannot deactivate
// themselves.
func (s *AdminService) DeactivateAccount(ctx context.Context, admin domain.Identity, accountID string) error {
	actor, err := s.requireAdmin(ctx, admin)
	if err != nil {
		return err
	}
	if accountID == actor.ID {
		return fmt.Errorf("%w: admins cannot deactivate themselves", domain.ErrInvalidInput)
	}

	target, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !target.State().CanTransitionTo(domain.StateDeactivated) {
		return fmt.Errorf("%w: account already deactivated", domain.ErrInvalidTransition)
	}
	if err := s.repo.SoftDelete(ctx, target.ID, s.now()); err != nil {
		return fmt.Errorf("deactivate account: %w", err)
	}

	s.publish(target.ID, domain.EventAccountDeactivated, actor.ID)
	s.log.Info().Str("account_id", target.ID).Str("admin_id", actor.ID).Msg("account deactivated")
	return nil
}

// BootstrapAdmin makes sure the configured admin exists. It returns the
// existing account when one is already registered as admin.
func (s *AdminService) BootstrapAdmin(ctx context.Context, name, email, password string) (*domain.Account, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: admin email and password are required", domain.ErrInvalidInput)
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		if existing.Role != domain.RoleAdmin {
			return nil, fmt.Errorf("bootstrap admin: %w: %s belongs to a %s", domain.ErrAlreadyRegistered, email, existing.Role)
		}
		return existing, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	hash, err := s.hasher.hash(password)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}

	now := s.now()
	acc := &domain.Account{
		ID:            uuid.NewString(),
		Email:         email,
		PasswordHash:  hash,
		Name:          strings.TrimSpace(name),
		Role:          domain.RoleAdmin,
		EmailVerified: true,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, acc); err != nil {
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	s.log.Info().Str("account_id", acc.ID).Msg("admin account created")
	return acc, nil
}

// requireAdmin re-reads the acting account; a token role is never trusted.
func (s *AdminService) requireAdmin(ctx context.Context, admin domain.Identity) (*domain.Account, error) {
	acc, err := s.repo.FindByID(ctx, admin.AccountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrAccessDenied
	}
	if err != nil {
		return nil, err
	}
	if acc.Role != domain.RoleAdmin || acc.Deactivated() {
		return nil, domain.ErrAccessDenied
	}
	return acc, nil
}

func (s *AdminService) findSeller(ctx context.Context, id string) (*domain.Account, error) {
	acc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acc.Role != domain.RoleSeller || acc.Seller == nil || acc.Deactivated() {
		return nil, domain.ErrAccountNotFound
	}
	return acc, nil
}

// reviewConflict explains a conditional review update that matched nothing,
// usually because another admin got there first.
func (s *AdminService) reviewConflict(ctx context.Context, id string, err error) error {
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return err
	}
	current, findErr := s.repo.FindByID(ctx, id)
	if findErr != nil || current.Deactivated() {
		return err
	}
	if current.SellerStatus() == domain.SellerApproved {
		return domain.ErrAlreadyApproved
	}
	return fmt.Errorf("%w: seller is %s", domain.ErrInvalidTransition, current.State())
}

func (s *AdminService) notify(ctx context.Context, acc *domain.Account, render func() (domain.Message, error)) bool {
	msg, err := render()
	if err == nil {
		err = s.notifier.Send(ctx, msg)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("account_id", acc.ID).Msg("notification delivery failed")
		return false
	}
	return true
}

// discardImage runs on a fresh context so a cancelled request still cleans up.
func (s *AdminService) discardImage(ref *domain.ImageRef) {
	if ref == nil || s.images == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.images.Delete(ctx, ref.PublicID); err != nil {
		s.log.Error().Err(err).Str("public_id", ref.PublicID).Msg("failed to delete orphaned profile image")
	}
}

func (s *AdminService) publish(accountID string, t domain.EventType, actorID string) {
	s.events.Publish(domain.AccountEvent{
		AccountID: accountID,
		Type:      t,
		ActorID:   actorID,
		Timestamp: s.now(),
	})
}
