package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/storefront/identity-service/internal/core/domain"
	"github.com/storefront/identity-service/internal/infrastructure/token"
)

func newGateFixture(t *testing.T) (*AccessGate, *stubAccountRepo, *token.Issuer) {
	t.Helper()
	issuer, err := token.NewIssuer("gate-secret", "", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	repo := newStubAccountRepo()
	return NewAccessGate(repo, issuer), repo, issuer
}

func issueFor(t *testing.T, issuer *token.Issuer, id string, role domain.Role) string {
	t.Helper()
	tok, _, err := issuer.Issue(domain.SessionClaims{AccountID: id, Role: role})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

func TestAccessGate_Authenticate(t *testing.T) {
	gate, repo, issuer := newGateFixture(t)
	now := time.Now()

	repo.seed(&domain.Account{ID: "user", Email: "user@example.com", Role: domain.RoleUser, Active: true, EmailVerified: true})
	repo.seed(&domain.Account{ID: "inactive", Email: "inactive@example.com", Role: domain.RoleUser, EmailVerified: true})
	repo.seed(&domain.Account{ID: "deleted", Email: "deleted@example.com", Role: domain.RoleUser, Active: true, EmailVerified: true, DeletedAt: &now})
	repo.seed(&domain.Account{ID: "unverified", Email: "unverified@example.com", Role: domain.RoleUser, Active: true})
	repo.seed(&domain.Account{ID: "pending", Email: "pending@example.com", Role: domain.RoleSeller, Active: true, EmailVerified: true, Seller: &domain.SellerProfile{Status: domain.SellerPending}})
	repo.seed(&domain.Account{ID: "seller", Email: "seller@example.com", Role: domain.RoleSeller, Active: true, EmailVerified: true, Seller: &domain.SellerProfile{Status: domain.SellerApproved}})

	cases := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", domain.ErrUnauthenticated},
		{"garbage", "not-a-token", domain.ErrUnauthenticated},
		{"vanished", issueFor(t, issuer, "ghost", domain.RoleUser), domain.ErrUnauthenticated},
		{"inactive", issueFor(t, issuer, "inactive", domain.RoleUser), domain.ErrAccountDeactivated},
		{"deleted", issueFor(t, issuer, "deleted", domain.RoleUser), domain.ErrAccountDeactivated},
		{"unverified", issueFor(t, issuer, "unverified", domain.RoleUser), domain.ErrEmailNotVerified},
		{"pending seller", issueFor(t, issuer, "pending", domain.RoleSeller), domain.ErrSellerNotApproved},
	}
	for _, tc := range cases {
		if _, err := gate.Authenticate(context.Background(), tc.token); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	for _, id := range []string{"user", "seller"} {
		ident, err := gate.Authenticate(context.Background(), issueFor(t, issuer, id, domain.RoleUser))
		if err != nil {
			t.Fatalf("%s: %v", id, err)
		}
		if ident.AccountID != id || ident.Account == nil {
			t.Fatalf("%s: unexpected identity %+v", id, ident)
		}
	}
}

func TestAccessGate_UsesPersistedRole(t *testing.T) {
	gate, repo, issuer := newGateFixture(t)
	repo.seed(&domain.Account{ID: "u1", Email: "u1@example.com", Role: domain.RoleUser, Active: true, EmailVerified: true})

	// Token minted while the account was an admin.
	ident, err := gate.Authenticate(context.Background(), issueFor(t, issuer, "u1", domain.RoleAdmin))
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if ident.Role != domain.RoleUser || ident.TokenRole != domain.RoleAdmin {
		t.Fatalf("unexpected roles: %+v", ident)
	}
	if err := gate.Authorize(ident, domain.RoleAdmin); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if err := gate.Authorize(ident, domain.RoleAdmin, domain.RoleUser); err != nil {
		t.Fatalf("expected access, got %v", err)
	}
	if err := gate.Authorize(ident); err != nil {
		t.Fatalf("empty role set admits any identity, got %v", err)
	}
	if err := gate.Authorize(nil, domain.RoleUser); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAccessGate_DeactivationTakesEffectImmediately(t *testing.T) {
	gate, repo, issuer := newGateFixture(t)
	repo.seed(&domain.Account{ID: "u1", Email: "u1@example.com", Role: domain.RoleUser, Active: true, EmailVerified: true})
	tok := issueFor(t, issuer, "u1", domain.RoleUser)

	if _, err := gate.Authenticate(context.Background(), tok); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := repo.SoftDelete(context.Background(), "u1", time.Now()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := gate.Authenticate(context.Background(), tok); !errors.Is(err, domain.ErrAccountDeactivated) {
		t.Fatalf("expected ErrAccountDeactivated, got %v", err)
	}
}
