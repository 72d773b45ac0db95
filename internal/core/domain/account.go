package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the fixed set of account roles.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
	RoleUser   Role = "user"
)

// ParseRole resolves a role name. An empty name resolves to RoleUser.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleUser:
		return RoleUser, nil
	case RoleSeller:
		return RoleSeller, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// SellerStatus is the review status of a seller account.
type SellerStatus string

const (
	SellerPending   SellerStatus = "pending"
	SellerApproved  SellerStatus = "approved"
	SellerRejected  SellerStatus = "rejected"
	SellerSuspended SellerStatus = "suspended"
)

// OTPPurpose tells which flow a one-time code belongs to.
type OTPPurpose string

const (
	PurposeSignup OTPPurpose = "signup"
	PurposeReset  OTPPurpose = "reset_password"
)

// ImageRef is a weak reference to an image owned by the image store.
type ImageRef struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// StoreInfo describes a seller's business.
type StoreInfo struct {
	StoreName    string `json:"store_name"`
	TaxID        string `json:"tax_id"`
	BusinessType string `json:"business_type"`
}

// SellerProfile exists only on seller accounts.
type SellerProfile struct {
	Status     SellerStatus `json:"status"`
	Store      StoreInfo    `json:"store"`
	ReviewedBy string       `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time   `json:"reviewed_at,omitempty"`
}

// OTPChallenge is the single live one-time code of an account.
type OTPChallenge struct {
	Code      string
	Purpose   OTPPurpose
	IssuedAt  time.Time
	ExpiresAt time.Time
	Consumed  bool
}

// Live reports whether the challenge can still be verified for purpose.
// Expiry is checked separately so callers can tell the two failures apart.
func (c *OTPChallenge) Live(purpose OTPPurpose) bool {
	return c != nil && !c.Consumed && c.Code != "" && c.Purpose == purpose
}

// Account is the persisted identity record.
type Account struct {
	ID            string
	Email         string
	PasswordHash  string `json:"-"`
	Name          string
	Mobile        string
	ProfileImage  *ImageRef
	Role          Role
	EmailVerified bool
	Active        bool
	DeletedAt     *time.Time
	Seller        *SellerProfile
	OTP           *OTPChallenge `json:"-"`
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Deactivated reports whether the account is switched off or soft deleted.
func (a *Account) Deactivated() bool {
	return !a.Active || a.DeletedAt != nil
}

// SellerStatus returns the seller review status, or "" for non-sellers.
func (a *Account) SellerStatus() SellerStatus {
	if a.Seller == nil {
		return ""
	}
	return a.Seller.Status
}

// Identity is an authenticated caller, re-derived from the live account.
type Identity struct {
	AccountID string
	Email     string
	// Role is the persisted role; TokenRole is what the session token claimed.
	Role      Role
	TokenRole Role
	Account   *Account
}

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	AccountID string
	Role      Role
	Email     string
	Name      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Message is a notification addressed to one recipient.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
