package ports

import (
	"context"

	"github.com/storefront/identity-service/internal/core/domain"
)

// ChallengeThrottle limits how often a challenge may be (re)issued for an
// email and purpose. It returns domain.ErrTooManyRequests when over the limit.
type ChallengeThrottle interface {
	Allow(ctx context.Context, email string, purpose domain.OTPPurpose) error
}
