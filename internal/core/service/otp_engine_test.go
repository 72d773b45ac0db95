package service

import (
	"bytes"
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/identity-service/internal/core/domain"
	"github.com/storefront/identity-service/internal/core/ports"
)

var sixDigits = regexp.MustCompile(`^\d{6}$`)

func newTestTemplates(t *testing.T) *Templates {
	t.Helper()
	tpl, err := NewTemplates(TemplateOptions{AppName: "Storefront", FrontendURL: "https://shop.example.com"})
	require.NoError(t, err)
	return tpl
}

func newTestEngine(t *testing.T, repo *stubAccountRepo, n *stubNotifier, clock *testClock, opts ...OTPOption) *OTPEngine {
	t.Helper()
	opts = append([]OTPOption{WithOTPClock(clock.Now)}, opts...)
	return NewOTPEngine(repo, n, newTestTemplates(t), opts...)
}

func seedUser(repo *stubAccountRepo, id, email string) *domain.Account {
	acc := &domain.Account{ID: id, Email: email, Name: "Test", Role: domain.RoleUser, Active: true}
	repo.seed(acc)
	return acc
}

func TestOTPEngine_IssuePersistsAndSends(t *testing.T) {
	repo, n, clock := newStubAccountRepo(), &stubNotifier{}, newTestClock()
	engine := newTestEngine(t, repo, n, clock)
	acc := seedUser(repo, "acc-1", "ana@example.com")

	ch, err := engine.Issue(context.Background(), acc, domain.PurposeSignup)
	require.NoError(t, err)

	assert.Regexp(t, sixDigits, ch.Code)
	assert.Equal(t, clock.Now().Add(5*time.Minute), ch.ExpiresAt)
	assert.False(t, ch.Consumed)

	stored := repo.get("acc-1").OTP
	require.NotNil(t, stored)
	assert.Equal(t, ch.Code, stored.Code)
	assert.Equal(t, domain.PurposeSignup, stored.Purpose)

	require.Len(t, n.sent, 1)
	assert.Equal(t, "ana@example.com", n.sent[0].To)
	assert.Contains(t, n.sent[0].Body, ch.Code)
}

func TestOTPEngine_CodeIsZeroPadded(t *testing.T) {
	repo, n, clock := newStubAccountRepo(), &stubNotifier{}, newTestClock()
	engine := newTestEngine(t, repo, n, clock, WithOTPRandom(bytes.NewReader(make([]byte, 64))))
	acc := seedUser(repo, "acc-1", "ana@example.com")

	ch, err := engine.Issue(context.Background(), acc, domain.PurposeSignup)
	require.NoError(t, err)
	assert.Equal(t, "000000", ch.Code)
}

func TestOTPEngine_DeliveryFailureKeepsCode(t *testing.T) {
	repo, n, clock := newStubAccountRepo(), &stubNotifier{err: errBoom}, newTestClock()
	engine := newTestEngine(t, repo, n, clock)
	acc := seedUser(repo, "acc-1", "ana@example.com")

	ch, err := engine.Issue(context.Background(), acc, domain.PurposeSignup)
	require.ErrorIs(t, err, domain.ErrDeliveryFailed)
	require.NotNil(t, ch)
	assert.Equal(t, ch.Code, repo.get("acc-1").OTP.Code)
	assert.NoError(t, engine.Verify(repo.get("acc-1"), ch.Code, domain.PurposeSignup))
}

func TestOTPEngine_StorageFailureIsNotDeliveryFailure(t *testing.T) {
	repo, n, clock := newStubAccountRepo(), &stubNotifier{}, newTestClock()
	repo.saveErr = domain.ErrStorage
	engine := newTestEngine(t, repo, n, clock)
	acc := seedUser(repo, "acc-1", "ana@example.com")

	_, err := engine.Issue(context.Background(), acc, domain.PurposeSignup)
	require.ErrorIs(t, err, domain.ErrStorage)
	assert.NotErrorIs(t, err, domain.ErrDeliveryFailed)
	assert.Empty(t, n.sent)
}

func TestOTPEngine_ReissueReplacesPreviousCode(t *testing.T) {
	repo, n, clock := newStubAccountRepo(), &stubNotifier{}, newTestClock()
	engine := newTestEngine(t, repo, n, clock)
	acc := seedUser(repo, "acc-1", "ana@example.com")

	first, err := engine.Issue(context.Background(), acc, domain.PurposeSignup)
	require.NoError(t, err)
	var second *domain.OTPChallenge
	for second == nil || second.Code == first.Code {
		second, err = engine.Issue(context.Background(), acc, domain.PurposeSignup)
		require.NoError(t, err)
	}

	stored := repo.get("acc-1")
	assert.ErrorIs(t, engine.Verify(stored, first.Code, domain.PurposeSignup), domain.ErrCodeMismatch)
	assert.NoError(t, engine.Verify(stored, second.Code, domain.PurposeSignup))
}

func TestOTPEngine_VerifyErrors(t *testing.T) {
	repo, n, clock := newStubAccountRepo(), &stubNotifier{}, newTestClock()
	engine := newTestEngine(t, repo, n, clock)
	acc := seedUser(repo, "acc-1", "ana@example.com")

	assert.ErrorIs(t, engine.Verify(acc, "123456", domain.PurposeSignup), domain.ErrAlreadyConsumed)

	ch, err := engine.Issue(context.Background(), acc, domain.PurposeSignup)
	require.NoError(t, err)

	wrong := "000000"
	if ch.Code == wrong {
		wrong = "111111"
	}
	assert.ErrorIs(t, engine.Verify(acc, wrong, domain.PurposeSignup), domain.ErrCodeMismatch)
	assert.ErrorIs(t, engine.Verify(acc, ch.Code, domain.PurposeReset), domain.ErrAlreadyConsumed)

	clock.Advance(4*time.Minute + 59*time.Second)
	assert.NoError(t, engine.Verify(acc, ch.Code, domain.PurposeSignup))
	clock.Advance(time.Second)
	assert.ErrorIs(t, engine.Verify(acc, ch.Code, domain.PurposeSignup), domain.ErrExpired)
}

func TestOTPEngine_FinalizeAndClear(t *testing.T) {
	repo, n, clock := newStubAccountRepo(), &stubNotifier{}, newTestClock()
	engine := newTestEngine(t, repo, n, clock)
	acc := seedUser(repo, "acc-1", "ana@example.com")

	ch, err := engine.Issue(context.Background(), acc, domain.PurposeSignup)
	require.NoError(t, err)

	verified := true
	require.NoError(t, engine.Finalize(context.Background(), acc, ch.Code, domain.PurposeSignup, ports.AccountUpdate{EmailVerified: &verified}))
	assert.True(t, acc.EmailVerified)
	assert.True(t, repo.get("acc-1").EmailVerified)
	assert.ErrorIs(t, engine.Verify(repo.get("acc-1"), ch.Code, domain.PurposeSignup), domain.ErrAlreadyConsumed)

	err = engine.Finalize(context.Background(), acc, ch.Code, domain.PurposeSignup, ports.AccountUpdate{})
	assert.ErrorIs(t, err, domain.ErrAlreadyConsumed)

	require.NoError(t, engine.Clear(context.Background(), acc))
	require.NoError(t, engine.Clear(context.Background(), acc))
}

func TestOTPEngine_FinalizeRejectsCodeThatExpiredAfterVerify(t *testing.T) {
	repo, n, clock := newStubAccountRepo(), &stubNotifier{}, newTestClock()
	engine := newTestEngine(t, repo, n, clock)
	acc := seedUser(repo, "acc-1", "ana@example.com")

	ch, err := engine.Issue(context.Background(), acc, domain.PurposeReset)
	require.NoError(t, err)

	clock.Advance(4*time.Minute + 59*time.Second)
	require.NoError(t, engine.Verify(acc, ch.Code, domain.PurposeReset))

	clock.Advance(time.Second)
	hash := "new-hash"
	err = engine.Finalize(context.Background(), acc, ch.Code, domain.PurposeReset, ports.AccountUpdate{PasswordHash: &hash})
	assert.ErrorIs(t, err, domain.ErrExpired)

	stored := repo.get("acc-1")
	assert.NotEqual(t, "new-hash", stored.PasswordHash)
	assert.False(t, stored.OTP.Consumed)
}

func TestOTPEngine_ConcurrentFinalizeHasOneWinner(t *testing.T) {
	repo, n, clock := newStubAccountRepo(), &stubNotifier{}, newTestClock()
	engine := newTestEngine(t, repo, n, clock)
	acc := seedUser(repo, "acc-1", "ana@example.com")

	ch, err := engine.Issue(context.Background(), acc, domain.PurposeSignup)
	require.NoError(t, err)

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := repo.get("acc-1")
			verified := true
			err := engine.Finalize(context.Background(), local, ch.Code, domain.PurposeSignup, ports.AccountUpdate{EmailVerified: &verified})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrAlreadyConsumed)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}
