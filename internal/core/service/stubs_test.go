package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/storefront/identity-service/internal/core/domain"
	"github.com/storefront/identity-service/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory account repository. Conditional writes hold the lock so they
// behave like the single-document updates of the real store.
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.Account
	byEmail map[string]string

	createErr error
	saveErr   error
	findErr   error
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{
		byID:    make(map[string]*domain.Account),
		byEmail: make(map[string]string),
	}
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	if a.OTP != nil {
		otp := *a.OTP
		c.OTP = &otp
	}
	if a.Seller != nil {
		seller := *a.Seller
		c.Seller = &seller
	}
	if a.ProfileImage != nil {
		img := *a.ProfileImage
		c.ProfileImage = &img
	}
	return &c
}

func (r *stubAccountRepo) seed(a *domain.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[a.ID] = cloneAccount(a)
	r.byEmail[a.Email] = a.ID
}

func (r *stubAccountRepo) get(id string) *domain.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil
	}
	return cloneAccount(a)
}

func (r *stubAccountRepo) getByEmail(email string) *domain.Account {
	r.mu.Lock()
	id, ok := r.byEmail[email]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return r.get(id)
}

func (r *stubAccountRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, dup := r.byEmail[a.Email]; dup {
		return domain.ErrAlreadyRegistered
	}
	r.byID[a.ID] = cloneAccount(a)
	r.byEmail[a.Email] = a.ID
	return nil
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	if a := r.get(id); a != nil {
		return a, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	if a := r.getByEmail(email); a != nil {
		return a, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) SaveChallenge(_ context.Context, id string, ch domain.OTPChallenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.OTP = &ch
	return nil
}

func (r *stubAccountRepo) FinalizeChallenge(_ context.Context, id, code string, purpose domain.OTPPurpose, now time.Time, update ports.AccountUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok || !a.OTP.Live(purpose) || a.OTP.Code != code || !now.Before(a.OTP.ExpiresAt) {
		return domain.ErrAlreadyConsumed
	}
	a.OTP = &domain.OTPChallenge{Purpose: purpose, Consumed: true}
	if update.EmailVerified != nil {
		a.EmailVerified = *update.EmailVerified
	}
	if update.PasswordHash != nil {
		a.PasswordHash = *update.PasswordHash
	}
	return nil
}

func (r *stubAccountRepo) ClearChallenge(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byID[id]; ok && a.OTP != nil {
		a.OTP.Code = ""
		a.OTP.ExpiresAt = time.Time{}
		a.OTP.Consumed = true
	}
	return nil
}

func (r *stubAccountRepo) review(id string, from domain.SellerStatus, to domain.SellerStatus, rv ports.SellerReview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok || a.Seller == nil || a.Seller.Status != from || a.DeletedAt != nil {
		return domain.ErrAccountNotFound
	}
	a.Seller.Status = to
	a.Seller.ReviewedBy = rv.ReviewerID
	at := rv.At
	a.Seller.ReviewedAt = &at
	if to == domain.SellerApproved {
		a.Active = true
		a.EmailVerified = true
	}
	return nil
}

func (r *stubAccountRepo) ApproveSeller(_ context.Context, id string, rv ports.SellerReview) error {
	return r.review(id, domain.SellerPending, domain.SellerApproved, rv)
}

func (r *stubAccountRepo) RejectSeller(_ context.Context, id string, rv ports.SellerReview) error {
	return r.review(id, domain.SellerPending, domain.SellerRejected, rv)
}

func (r *stubAccountRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Active = false
	a.DeletedAt = &at
	return nil
}

func (r *stubAccountRepo) ListPendingSellers(_ context.Context) ([]*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Account
	for _, a := range r.byID {
		if a.Seller != nil && a.Seller.Status == domain.SellerPending && a.DeletedAt == nil {
			out = append(out, cloneAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

type stubNotifier struct {
	mu   sync.Mutex
	err  error
	sent []domain.Message
}

func (n *stubNotifier) Send(_ context.Context, msg domain.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *stubNotifier) last() domain.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return domain.Message{}
	}
	return n.sent[len(n.sent)-1]
}

type stubThrottle struct {
	err   error
	calls int
}

func (t *stubThrottle) Allow(context.Context, string, domain.OTPPurpose) error {
	t.calls++
	return t.err
}

type stubPublisher struct {
	mu     sync.Mutex
	events []domain.AccountEvent
}

func (p *stubPublisher) Publish(ev domain.AccountEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *stubPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type stubImageStore struct {
	uploadErr error
	uploaded  []string
	deleted   []string
}

func (s *stubImageStore) Upload(_ context.Context, img ports.ImageUpload) (*domain.ImageRef, error) {
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	id := "img-" + img.Filename
	s.uploaded = append(s.uploaded, id)
	return &domain.ImageRef{URL: "/images/" + id, PublicID: id}, nil
}

func (s *stubImageStore) Delete(_ context.Context, publicID string) error {
	s.deleted = append(s.deleted, publicID)
	return nil
}

type stubEventRepo struct {
	insertErr error
	inserted  []*domain.AccountEvent
}

func (r *stubEventRepo) InsertEvent(_ context.Context, e *domain.AccountEvent) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, e)
	return nil
}

var errBoom = errors.New("boom")

// testClock is a settable clock shared by the services under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
