package domain

import "errors"

var (
	ErrAccountNotFound       = errors.New("account not found")
	ErrAlreadyRegistered     = errors.New("email already registered")
	ErrAlreadyVerified       = errors.New("email already verified")
	ErrAlreadyApproved       = errors.New("seller already approved")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountDeactivated    = errors.New("account is deactivated")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrSellerPendingApproval = errors.New("seller account is pending approval")
	ErrSellerNotApproved     = errors.New("seller account not approved")
	ErrInvalidRole           = errors.New("invalid role")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidTransition     = errors.New("invalid account state transition")

	// One-time code failures.
	ErrCodeMismatch    = errors.New("invalid otp")
	ErrExpired         = errors.New("otp has expired")
	ErrAlreadyConsumed = errors.New("no active otp challenge")
	ErrTooManyRequests = errors.New("too many otp requests")

	ErrDeliveryFailed  = errors.New("notification delivery failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrAccessDenied    = errors.New("access denied")

	// ErrStorage wraps every credential store failure.
	ErrStorage = errors.New("storage unavailable")
)
