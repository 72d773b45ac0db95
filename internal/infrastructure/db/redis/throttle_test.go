package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/identity-service/internal/core/domain"
)

// fakeRedis keeps keys in memory; expiry is driven by the test.
type fakeRedis struct {
	mu      sync.Mutex
	strings map[string]string
	counts  map[string]int64
	ttls    map[string]time.Duration
	err     error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		strings: make(map[string]string),
		counts:  make(map[string]int64),
		ttls:    make(map[string]time.Duration),
	}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, exp time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.strings[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.strings[key] = value.(string)
	f.ttls[key] = exp
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeRedis) Expire(_ context.Context, key string, exp time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttls[key] = exp
	return redis.NewBoolResult(true, nil)
}

// expire drops a key as if its TTL elapsed.
func (f *fakeRedis) expire(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.strings, key)
	delete(f.counts, key)
	delete(f.ttls, key)
}

func TestChallengeThrottle_Cooldown(t *testing.T) {
	fake := newFakeRedis()
	th := NewChallengeThrottle(fake, ThrottleConfig{Cooldown: time.Minute})
	ctx := context.Background()

	require.NoError(t, th.Allow(ctx, "ana@example.com", domain.PurposeSignup))
	assert.ErrorIs(t, th.Allow(ctx, "ana@example.com", domain.PurposeSignup), domain.ErrTooManyRequests)

	// Other purposes and other emails are independent.
	assert.NoError(t, th.Allow(ctx, "ana@example.com", domain.PurposeReset))
	assert.NoError(t, th.Allow(ctx, "bob@example.com", domain.PurposeSignup))

	assert.Equal(t, time.Minute, fake.ttls["otp:cooldown:signup:ana@example.com"])
	fake.expire("otp:cooldown:signup:ana@example.com")
	assert.NoError(t, th.Allow(ctx, "ana@example.com", domain.PurposeSignup))
}

func TestChallengeThrottle_WindowCap(t *testing.T) {
	fake := newFakeRedis()
	th := NewChallengeThrottle(fake, ThrottleConfig{Window: 30 * time.Minute, MaxPerWindow: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, th.Allow(ctx, "ana@example.com", domain.PurposeReset), "attempt %d", i+1)
	}
	assert.ErrorIs(t, th.Allow(ctx, "ana@example.com", domain.PurposeReset), domain.ErrTooManyRequests)
	assert.Equal(t, 30*time.Minute, fake.ttls["otp:window:reset_password:ana@example.com"])

	fake.expire("otp:window:reset_password:ana@example.com")
	assert.NoError(t, th.Allow(ctx, "ana@example.com", domain.PurposeReset))
}

func TestChallengeThrottle_RedisErrorIsNotThrottling(t *testing.T) {
	fake := newFakeRedis()
	fake.err = errors.New("connection refused")
	th := NewChallengeThrottle(fake, ThrottleConfig{Cooldown: time.Minute, MaxPerWindow: 3})

	err := th.Allow(context.Background(), "ana@example.com", domain.PurposeSignup)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrTooManyRequests)
}
