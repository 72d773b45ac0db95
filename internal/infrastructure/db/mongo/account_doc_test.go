package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/storefront/identity-service/internal/core/domain"
)

func TestAccountDoc_BSONLayout(t *testing.T) {
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	acc := &domain.Account{
		ID:           "acc-1",
		Email:        "shop@example.com",
		PasswordHash: "hash",
		Role:         domain.RoleSeller,
		Active:       true,
		Seller:       &domain.SellerProfile{Status: domain.SellerPending, Store: domain.StoreInfo{StoreName: "Shop"}},
		OTP:          &domain.OTPChallenge{Code: "012345", Purpose: domain.PurposeSignup, IssuedAt: now, ExpiresAt: now.Add(5 * time.Minute)},
		CreatedAt:    now,
	}

	raw, err := bson.Marshal(toAccountDoc(acc))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if m["_id"] != "acc-1" || m["email"] != "shop@example.com" {
		t.Fatalf("unexpected identity fields: %v", m)
	}
	if _, ok := m["deleted_at"]; !ok {
		t.Errorf("deleted_at must be stored as null so the pending filter matches")
	}
	otp, ok := m["otp"].(bson.M)
	if !ok {
		t.Fatalf("expected otp sub-document, got %T", m["otp"])
	}
	if otp["code"] != "012345" || otp["purpose"] != "signup" || otp["consumed"] != false {
		t.Errorf("unexpected otp document: %v", otp)
	}
	seller, ok := m["seller"].(bson.M)
	if !ok || seller["status"] != "pending" {
		t.Errorf("unexpected seller document: %v", m["seller"])
	}
}

func TestAccountDoc_ClearedChallengeDecodes(t *testing.T) {
	doc := accountDoc{
		ID:    "acc-1",
		Email: "ana@example.com",
		Role:  "user",
		OTP:   &challengeDoc{Purpose: "signup", Consumed: true},
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back accountDoc
	if err := bson.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	acc := back.toDomain()
	if acc.OTP == nil || acc.OTP.Code != "" || !acc.OTP.ExpiresAt.IsZero() {
		t.Fatalf("unexpected challenge: %+v", acc.OTP)
	}
	if acc.OTP.Live(domain.PurposeSignup) {
		t.Fatalf("cleared challenge must not be live")
	}
	if acc.Seller != nil {
		t.Fatalf("user must not carry a seller profile")
	}
}

func TestFinalizeFilter_RequiresUnexpiredChallenge(t *testing.T) {
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	f := finalizeFilter("acc-1", "123456", domain.PurposeReset, now)

	if f["otp.code"] != "123456" || f["otp.purpose"] != string(domain.PurposeReset) || f["otp.consumed"] != false {
		t.Fatalf("unexpected challenge match: %v", f)
	}
	exp, ok := f["otp.expires_at"].(bson.M)
	if !ok {
		t.Fatalf("expected an expiry condition, got %v", f["otp.expires_at"])
	}
	if got, _ := exp["$gt"].(time.Time); !got.Equal(now) {
		t.Fatalf("expected expires_at > %v, got %v", now, exp)
	}
}
