package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storefront/identity-service/internal/core/domain"
)

// commander is the subset of the Redis client the throttle needs.
type commander interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// ThrottleConfig bounds challenge issuance per email and purpose.
type ThrottleConfig struct {
	Cooldown     time.Duration // minimum gap between two challenges
	Window       time.Duration
	MaxPerWindow int // 0 disables the window cap
}

// ChallengeThrottle implements ports.ChallengeThrottle with a cooldown key
// and a fixed-window counter.
// Key format: otp:cooldown:<purpose>:<email> and otp:window:<purpose>:<email>
type ChallengeThrottle struct {
	client commander
	cfg    ThrottleConfig
}

func NewChallengeThrottle(client commander, cfg ThrottleConfig) *ChallengeThrottle {
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	return &ChallengeThrottle{client: client, cfg: cfg}
}

// Allow returns domain.ErrTooManyRequests when the caller must wait. Any
// other error means Redis could not be consulted.
func (t *ChallengeThrottle) Allow(ctx context.Context, email string, purpose domain.OTPPurpose) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if t.cfg.Cooldown > 0 {
		ok, err := t.client.SetNX(ctx, t.key("cooldown", email, purpose), "1", t.cfg.Cooldown).Result()
		if err != nil {
			return fmt.Errorf("throttle cooldown: %w", err)
		}
		if !ok {
			return domain.ErrTooManyRequests
		}
	}

	if t.cfg.MaxPerWindow <= 0 {
		return nil
	}
	windowKey := t.key("window", email, purpose)
	n, err := t.client.Incr(ctx, windowKey).Result()
	if err != nil {
		return fmt.Errorf("throttle window: %w", err)
	}
	if n == 1 {
		if err := t.client.Expire(ctx, windowKey, t.cfg.Window).Err(); err != nil {
			return fmt.Errorf("throttle window expiry: %w", err)
		}
	}
	if n > int64(t.cfg.MaxPerWindow) {
		return domain.ErrTooManyRequests
	}
	return nil
}

func (t *ChallengeThrottle) key(kind, email string, purpose domain.OTPPurpose) string {
	return fmt.Sprintf("otp:%s:%s:%s", kind, purpose, email)
}
