package service

import (
	"sync"
	"testing"
	"time"

	"github.com/prperemyshlev/identity-service/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret   = "test-secret-key-that-is-at-least-32-characters-long"
	testPassword = "Correct-Horse-42"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	clock       *fakeClock
	store       *memStore
	revocations *memRevocations
	limiter     *memLimiter
	notifier    *recordingNotifier
	tokens      *TokenIssuer
	verifier    *VerificationTokenIssuer
	creds       CredentialService
	meter       *UsageMeter
	validator   *SessionValidator
	apiKeys     APIKeyService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := newFakeClock()
	store := newMemStore()
	repos := store.repos()
	logger := zap.NewNop()
	metrics := NoopMetrics()

	revocations := newMemRevocations()
	limiter := newMemLimiter()
	notifier := &recordingNotifier{}

	jwt := utils.NewJWTManager(testSecret, "identity-test", 24*time.Hour).WithClock(clock.Now)
	tokens := NewTokenIssuer(jwt, revocations, metrics, logger)
	tokens.now = clock.Now

	verifier := NewVerificationTokenIssuer(store, limiter, VerificationConfig{
		EmailTTL:     24 * time.Hour,
		ResetTTL:     time.Hour,
		ResendWindow: time.Minute,
	})
	verifier.now = clock.Now

	meter := NewUsageMeter(repos.User, repos.Usage, metrics, logger)
	meter.now = clock.Now

	return &testEnv{
		clock:       clock,
		store:       store,
		revocations: revocations,
		limiter:     limiter,
		notifier:    notifier,
		tokens:      tokens,
		verifier:    verifier,
		creds:       NewCredentialService(repos, store, verifier, tokens, notifier, metrics, logger, bcrypt.MinCost),
		meter:       meter,
		validator:   NewSessionValidator(tokens, repos.APIKey, logger),
		apiKeys:     NewAPIKeyService(repos.APIKey, logger),
	}
}
