package mongo

import (
	"time"

	"github.com/storefront/identity-service/internal/core/domain"
)

type accountDoc struct {
	ID            string        `bson:"_id"`
	Email         string        `bson:"email"`
	PasswordHash  string        `bson:"password_hash,omitempty"`
	Name          string        `bson:"name"`
	Mobile        string        `bson:"mobile,omitempty"`
	ProfileImage  *imageDoc     `bson:"profile_image,omitempty"`
	Role          string        `bson:"role"`
	EmailVerified bool          `bson:"email_verified"`
	Active        bool          `bson:"active"`
	DeletedAt     *time.Time    `bson:"deleted_at"`
	Seller        *sellerDoc    `bson:"seller,omitempty"`
	OTP           *challengeDoc `bson:"otp,omitempty"`
	CreatedBy     string        `bson:"created_by,omitempty"`
	CreatedAt     time.Time     `bson:"created_at"`
	UpdatedAt     time.Time     `bson:"updated_at"`
}

type imageDoc struct {
	URL      string `bson:"url"`
	PublicID string `bson:"public_id"`
}

type sellerDoc struct {
	Status       string     `bson:"status"`
	StoreName    string     `bson:"store_name"`
	TaxID        string     `bson:"tax_id,omitempty"`
	BusinessType string     `bson:"business_type,omitempty"`
	ReviewedBy   string     `bson:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `bson:"reviewed_at,omitempty"`
}

// challengeDoc uses pointers so a cleared challenge stores explicit nulls.
type challengeDoc struct {
	Code      *string    `bson:"code"`
	Purpose   string     `bson:"purpose"`
	IssuedAt  time.Time  `bson:"issued_at"`
	ExpiresAt *time.Time `bson:"expires_at"`
	Consumed  bool       `bson:"consumed"`
}

func toAccountDoc(a *domain.Account) accountDoc {
	doc := accountDoc{
		ID:            a.ID,
		Email:         a.Email,
		PasswordHash:  a.PasswordHash,
		Name:          a.Name,
		Mobile:        a.Mobile,
		Role:          string(a.Role),
		EmailVerified: a.EmailVerified,
		Active:        a.Active,
		DeletedAt:     a.DeletedAt,
		CreatedBy:     a.CreatedBy,
		CreatedAt:     a.CreatedAt.UTC(),
		UpdatedAt:     a.UpdatedAt.UTC(),
	}
	if a.ProfileImage != nil {
		doc.ProfileImage = &imageDoc{URL: a.ProfileImage.URL, PublicID: a.ProfileImage.PublicID}
	}
	if a.Seller != nil {
		doc.Seller = &sellerDoc{
			Status:       string(a.Seller.Status),
			StoreName:    a.Seller.Store.StoreName,
			TaxID:        a.Seller.Store.TaxID,
			BusinessType: a.Seller.Store.BusinessType,
			ReviewedBy:   a.Seller.ReviewedBy,
			ReviewedAt:   a.Seller.ReviewedAt,
		}
	}
	if a.OTP != nil {
		ch := toChallengeDoc(*a.OTP)
		doc.OTP = &ch
	}
	return doc
}

func toChallengeDoc(ch domain.OTPChallenge) challengeDoc {
	doc := challengeDoc{
		Purpose:  string(ch.Purpose),
		IssuedAt: ch.IssuedAt.UTC(),
		Consumed: ch.Consumed,
	}
	if ch.Code != "" {
		code := ch.Code
		doc.Code = &code
	}
	if !ch.ExpiresAt.IsZero() {
		exp := ch.ExpiresAt.UTC()
		doc.ExpiresAt = &exp
	}
	return doc
}

func (d *accountDoc) toDomain() *domain.Account {
	a := &domain.Account{
		ID:            d.ID,
		Email:         d.Email,
		PasswordHash:  d.PasswordHash,
		Name:          d.Name,
		Mobile:        d.Mobile,
		Role:          domain.Role(d.Role),
		EmailVerified: d.EmailVerified,
		Active:        d.Active,
		DeletedAt:     d.DeletedAt,
		CreatedBy:     d.CreatedBy,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.ProfileImage != nil {
		a.ProfileImage = &domain.ImageRef{URL: d.ProfileImage.URL, PublicID: d.ProfileImage.PublicID}
	}
	if d.Seller != nil {
		a.Seller = &domain.SellerProfile{
			Status: domain.SellerStatus(d.Seller.Status),
			Store: domain.StoreInfo{
				StoreName:    d.Seller.StoreName,
				TaxID:        d.Seller.TaxID,
				BusinessType: d.Seller.BusinessType,
			},
			ReviewedBy: d.Seller.ReviewedBy,
			ReviewedAt: d.Seller.ReviewedAt,
		}
	}
	if d.OTP != nil {
		ch := &domain.OTPChallenge{
			Purpose:  domain.OTPPurpose(d.OTP.Purpose),
			IssuedAt: d.OTP.IssuedAt,
			Consumed: d.OTP.Consumed,
		}
		if d.OTP.Code != nil {
			ch.Code = *d.OTP.Code
		}
		if d.OTP.ExpiresAt != nil {
			ch.ExpiresAt = *d.OTP.ExpiresAt
		}
		a.OTP = ch
	}
	return a
}
