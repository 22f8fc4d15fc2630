package service

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/repository"
)

// memStore backs every repository in memory. Transactions are serialized
// and roll back by restoring a snapshot.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users      map[string]domain.User
	identities map[string]domain.OAuthIdentity
	tokens     map[string]domain.VerificationToken
	keys       map[string]domain.APIKey
	usage      map[string]domain.UsageCounter
}

type memSnapshot struct {
	users      map[string]domain.User
	identities map[string]domain.OAuthIdentity
	tokens     map[string]domain.VerificationToken
	keys       map[string]domain.APIKey
	usage      map[string]domain.UsageCounter
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[string]domain.User{},
		identities: map[string]domain.OAuthIdentity{},
		tokens:     map[string]domain.VerificationToken{},
		keys:       map[string]domain.APIKey{},
		usage:      map[string]domain.UsageCounter{},
	}
}

func (s *memStore) repos() *repository.Repositories {
	return &repository.Repositories{
		User:              &memUsers{s},
		OAuthIdentity:     &memIdentities{s},
		VerificationToken: &memTokens{s},
		APIKey:            &memKeys{s},
		Usage:             &memUsage{s},
	}
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		users:      maps.Clone(s.users),
		identities: maps.Clone(s.identities),
		tokens:     maps.Clone(s.tokens),
		keys:       maps.Clone(s.keys),
		usage:      maps.Clone(s.usage),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.identities = snap.identities
	s.tokens = snap.tokens
	s.keys = snap.keys
	s.usage = snap.usage
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos *repository.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx, s.repos()); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *memStore) identityCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.identities)
}

type memUsers struct{ s *memStore }

func (r *memUsers) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return fmt.Errorf("user %s: %w", user.Email, repository.ErrDuplicateEmail)
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Plan == "" {
		user.Plan = domain.PlanFree
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = *user
	return nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *memUsers) update(id string, fn func(u *domain.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	r.s.users[id] = u
	return nil
}

func (r *memUsers) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	return r.update(userID, func(u *domain.User) { u.PasswordHash = &passwordHash })
}

func (r *memUsers) ClearPassword(_ context.Context, userID string) error {
	return r.update(userID, func(u *domain.User) { u.PasswordHash = nil })
}

func (r *memUsers) MarkEmailVerified(_ context.Context, userID string) error {
	return r.update(userID, func(u *domain.User) { u.EmailVerified = true })
}

func (r *memUsers) UpdatePlan(_ context.Context, userID string, plan domain.Plan) error {
	return r.update(userID, func(u *domain.User) { u.Plan = plan })
}

type memIdentities struct{ s *memStore }

func (r *memIdentities) Create(_ context.Context, identity *domain.OAuthIdentity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := string(identity.Provider) + "|" + identity.ExternalID
	if _, ok := r.s.identities[key]; ok {
		return repository.ErrDuplicateOAuthIdentity
	}
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	r.s.identities[key] = *identity
	return nil
}

func (r *memIdentities) GetByExternalID(_ context.Context, provider domain.OAuthProvider, externalID string) (*domain.OAuthIdentity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	identity, ok := r.s.identities[string(provider)+"|"+externalID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &identity, nil
}

func (r *memIdentities) ListByUserID(_ context.Context, userID string) ([]*domain.OAuthIdentity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.OAuthIdentity{}
	for _, identity := range r.s.identities {
		if identity.UserID == userID {
			out = append(out, &identity)
		}
	}
	return out, nil
}

type memTokens struct{ s *memStore }

func (r *memTokens) InvalidateLive(_ context.Context, userID string, purpose domain.TokenPurpose, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for hash, t := range r.s.tokens {
		if t.UserID == userID && t.Purpose == purpose && t.ConsumedAt == nil {
			t.ConsumedAt = &now
			r.s.tokens[hash] = t
		}
	}
	return nil
}

func (r *memTokens) Create(_ context.Context, token *domain.VerificationToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tokens {
		if t.TokenHash == token.TokenHash {
			return repository.ErrDuplicateToken
		}
		if t.UserID == token.UserID && t.Purpose == token.Purpose && t.ConsumedAt == nil {
			return repository.ErrDuplicateToken
		}
	}
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	r.s.tokens[token.TokenHash] = *token
	return nil
}

func (r *memTokens) Consume(_ context.Context, tokenHash string, purpose domain.TokenPurpose, now time.Time) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[tokenHash]
	if !ok || t.Purpose != purpose || t.ConsumedAt != nil || t.IsExpired(now) {
		return "", repository.ErrNotFound
	}
	t.ConsumedAt = &now
	r.s.tokens[tokenHash] = t
	return t.UserID, nil
}

func (r *memTokens) GetByHash(_ context.Context, tokenHash string, purpose domain.TokenPurpose) (*domain.VerificationToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[tokenHash]
	if !ok || t.Purpose != purpose {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

type memKeys struct{ s *memStore }

func (r *memKeys) Create(_ context.Context, key *domain.APIKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.keys[key.KeyHash]; ok {
		return repository.ErrDuplicateAPIKey
	}
	if key.ID == "" {
		key.ID = uuid.NewString()
	}
	key.CreatedAt = time.Now().UTC()
	r.s.keys[key.KeyHash] = *key
	return nil
}

func (r *memKeys) GetByHash(_ context.Context, keyHash string) (*domain.APIKeyOwner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key, ok := r.s.keys[keyHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user := r.s.users[key.UserID]
	return &domain.APIKeyOwner{Key: key, Plan: user.Plan, IsAdmin: user.IsAdmin}, nil
}

func (r *memKeys) ListByUserID(_ context.Context, userID string) ([]*domain.APIKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.APIKey{}
	for _, key := range r.s.keys {
		if key.UserID == userID {
			out = append(out, &key)
		}
	}
	return out, nil
}

func (r *memKeys) Deactivate(_ context.Context, userID, keyID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for hash, key := range r.s.keys {
		if key.ID == keyID && key.UserID == userID {
			key.IsActive = false
			r.s.keys[hash] = key
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memKeys) Touch(_ context.Context, keyID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for hash, key := range r.s.keys {
		if key.ID == keyID {
			key.LastUsedAt = &at
			key.RequestCount++
			r.s.keys[hash] = key
		}
	}
	return nil
}

type memUsage struct{ s *memStore }

func (r *memUsage) Increment(_ context.Context, userID, period string, resource domain.Resource, delta, limit int64) (int64, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := userID + "|" + period
	c := r.s.usage[key]
	c.UserID, c.Period = userID, period

	var field *int64
	switch resource {
	case domain.ResourceStorage:
		field = &c.StorageBytes
	case domain.ResourceAPICalls:
		field = &c.APICalls
	case domain.ResourceImages:
		field = &c.ImageCount
	case domain.ResourceFolders:
		field = &c.FolderCount
	default:
		return 0, false, fmt.Errorf("unknown resource %q", resource)
	}

	if *field+delta > limit {
		return 0, false, nil
	}
	*field += delta
	r.s.usage[key] = c
	return *field, true, nil
}

func (r *memUsage) Get(_ context.Context, userID, period string) (*domain.UsageCounter, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := r.s.usage[userID+"|"+period]
	c.UserID, c.Period = userID, period
	return &c, nil
}

type memRevocations struct {
	mu      sync.Mutex
	tokens  map[string]domain.RevocationReason
	cutoffs map[string]int64
	err     error
}

func newMemRevocations() *memRevocations {
	return &memRevocations{tokens: map[string]domain.RevocationReason{}, cutoffs: map[string]int64{}}
}

func (l *memRevocations) RevokeToken(_ context.Context, tokenID string, _ time.Duration, reason domain.RevocationReason) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.tokens[tokenID] = reason
	return nil
}

func (l *memRevocations) RevokeUserBefore(_ context.Context, userID string, at time.Time, _ time.Duration, _ domain.RevocationReason) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.cutoffs[userID] = max(l.cutoffs[userID], at.UnixMilli())
	return nil
}

func (l *memRevocations) UserCutoff(_ context.Context, userID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return 0, l.err
	}
	return l.cutoffs[userID], nil
}

func (l *memRevocations) IsRevoked(_ context.Context, tokenID, userID string, issuedAtMs int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if _, ok := l.tokens[tokenID]; ok {
		return true, nil
	}
	cutoff, ok := l.cutoffs[userID]
	return ok && issuedAtMs <= cutoff, nil
}

// memLimiter counts events per key and never forgets them
type memLimiter struct {
	mu     sync.Mutex
	events map[string]int
}

func newMemLimiter() *memLimiter {
	return &memLimiter{events: map[string]int{}}
}

func (l *memLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.events[key] >= limit {
		return RateLimitResult{RetryAfter: window}, nil
	}
	l.events[key]++
	return RateLimitResult{Allowed: true, Remaining: limit - l.events[key]}, nil
}

type memStates struct {
	mu     sync.Mutex
	states map[string]string
}

func newMemStates() *memStates {
	return &memStates{states: map[string]string{}}
}

func (s *memStates) Save(_ context.Context, provider domain.OAuthProvider, state, verifier string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[string(provider)+"|"+state] = verifier
	return nil
}

func (s *memStates) Consume(_ context.Context, provider domain.OAuthProvider, state string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := string(provider) + "|" + state
	verifier, ok := s.states[key]
	delete(s.states, key)
	return verifier, ok, nil
}

func (s *memStates) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(maps.Keys(s.states))
}

type sentMail struct {
	kind  string
	to    string
	token string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *recordingNotifier) SendEmailVerification(_ context.Context, toEmail, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{kind: "verify", to: toEmail, token: token})
	return nil
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, toEmail, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{kind: "reset", to: toEmail, token: token})
	return nil
}

func (n *recordingNotifier) last(kind string) (sentMail, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].kind == kind {
			return n.sent[i], true
		}
	}
	return sentMail{}, false
}

func (n *recordingNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.sent {
		if m.kind == kind {
			c++
		}
	}
	return c
}
