package domain

import "time"

// EventType names a lifecycle transition recorded in the audit trail.
type EventType string

const (
	EventSignedUp           EventType = "signed_up"
	EventChallengeIssued    EventType = "challenge_issued"
	EventEmailVerified      EventType = "email_verified"
	EventLoggedIn           EventType = "logged_in"
	EventPasswordReset      EventType = "password_reset"
	EventSellerApproved     EventType = "seller_approved"
	EventSellerRejected     EventType = "seller_rejected"
	EventSellerCreated      EventType = "seller_created"
	EventAccountDeactivated EventType = "account_deactivated"
)

// AccountEvent records something that happened to an account.
type AccountEvent struct {
	AccountID string
	Type      EventType
	ActorID   string // empty when the account owner acted
	Timestamp time.Time
	Details   map[string]string // optional
}
