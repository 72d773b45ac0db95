package domain

// AccountState is the onboarding state derived from the stored flags.
type AccountState string

const (
	StateUnverified     AccountState = "unverified"
	StateVerified       AccountState = "verified"
	StateSellerPending  AccountState = "seller_pending"
	StateSellerApproved AccountState = "seller_approved"
	StateSellerRejected AccountState = "seller_rejected"
	StateSuspended      AccountState = "suspended"
	StateDeactivated    AccountState = "deactivated"
)

// validTransitions defines the allowed onboarding transitions.
// An unverified seller may be approved or rejected directly by an admin.
var validTransitions = map[AccountState][]AccountState{
	StateUnverified:     {StateVerified, StateSellerPending, StateSellerApproved, StateSellerRejected, StateDeactivated},
	StateVerified:       {StateDeactivated},
	StateSellerPending:  {StateSellerApproved, StateSellerRejected, StateDeactivated},
	StateSellerApproved: {StateSuspended, StateDeactivated},
	StateSellerRejected: {StateDeactivated},
	StateSuspended:      {StateSellerApproved, StateDeactivated},
}

// CanTransitionTo reports whether a transition from s to next is valid.
func (s AccountState) CanTransitionTo(next AccountState) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// State derives the onboarding state of the account.
func (a *Account) State() AccountState {
	if a.Deactivated() {
		return StateDeactivated
	}
	if a.Seller != nil && a.Seller.Status == SellerSuspended {
		return StateSuspended
	}
	if !a.EmailVerified {
		return StateUnverified
	}
	if a.Seller == nil {
		return StateVerified
	}
	switch a.Seller.Status {
	case SellerApproved:
		return StateSellerApproved
	case SellerRejected:
		return StateSellerRejected
	default:
		return StateSellerPending
	}
}
