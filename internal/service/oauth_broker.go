package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/repository"
	"github.com/prperemyshlev/identity-service/internal/utils"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const oauthStateBytes = 32

// OAuthConfig bounds the redirect round trip and the code exchange
type OAuthConfig struct {
	StateTTL        time.Duration
	ExchangeTimeout time.Duration
}

// OAuthResult is the outcome of a completed provider login
type OAuthResult struct {
	User    *domain.User
	Token   *domain.SessionToken
	Created bool
}

// OAuthBroker runs the authorization code flow against external providers
type OAuthBroker struct {
	providers map[domain.OAuthProvider]IdentityProvider
	states    StateStore
	tx        repository.Transactor
	tokens    *TokenIssuer
	cfg       OAuthConfig
	logger    *zap.Logger
}

// NewOAuthBroker creates a broker for the configured providers
func NewOAuthBroker(
	providers []IdentityProvider,
	states StateStore,
	tx repository.Transactor,
	tokens *TokenIssuer,
	cfg OAuthConfig,
	logger *zap.Logger,
) *OAuthBroker {
	byName := make(map[domain.OAuthProvider]IdentityProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &OAuthBroker{
		providers: byName,
		states:    states,
		tx:        tx,
		tokens:    tokens,
		cfg:       cfg,
		logger:    logger,
	}
}

// Providers lists the providers that can be used
func (b *OAuthBroker) Providers() []domain.OAuthProvider {
	out := make([]domain.OAuthProvider, 0, len(b.providers))
	for _, name := range []domain.OAuthProvider{domain.ProviderGoogle, domain.ProviderGitHub} {
		if _, ok := b.providers[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// BeginAuthorization stores a fresh state nonce and returns the provider's
// consent URL
func (b *OAuthBroker) BeginAuthorization(ctx context.Context, providerName string) (string, error) {
	provider, err := b.provider(providerName)
	if err != nil {
		return "", err
	}

	state, err := utils.RandomToken(oauthStateBytes)
	if err != nil {
		return "", err
	}
	verifier := oauth2.GenerateVerifier()

	if err := b.states.Save(ctx, provider.Name(), state, verifier, b.cfg.StateTTL); err != nil {
		return "", err
	}
	return provider.AuthCodeURL(state, verifier), nil
}

// HandleCallback completes a login. The state is checked before any call
// to the provider, and nothing is written unless the profile resolves.
func (b *OAuthBroker) HandleCallback(ctx context.Context, providerName, state, code string) (*OAuthResult, error) {
	provider, err := b.provider(providerName)
	if err != nil {
		return nil, err
	}
	if state == "" || code == "" {
		return nil, domain.ErrStateMismatch
	}

	verifier, ok, err := b.states.Consume(ctx, provider.Name(), state)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrStateMismatch
	}

	token, err := b.exchange(ctx, provider, code, verifier)
	if err != nil {
		b.logger.Warn("oauth code exchange failed", zap.String("provider", string(provider.Name())), zap.Error(err))
		return nil, domain.ErrOAuthExchangeFailed
	}

	profile, err := provider.FetchProfile(ctx, token)
	if err != nil {
		b.logger.Warn("oauth profile fetch failed", zap.String("provider", string(provider.Name())), zap.Error(err))
		return nil, domain.ErrOAuthProfileFetch
	}
	if profile.Email == "" || !profile.EmailVerified {
		return nil, fmt.Errorf("%w: provider did not return a verified email", domain.ErrOAuthProfileFetch)
	}
	profile.Email = utils.SanitizeEmail(profile.Email)

	user, created, err := b.resolveUser(ctx, provider.Name(), profile)
	if err != nil {
		return nil, err
	}

	session, err := b.tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	b.logger.Info("oauth login",
		zap.String("provider", string(provider.Name())),
		zap.String("user_id", user.ID),
		zap.Bool("created", created),
	)
	return &OAuthResult{User: user, Token: session, Created: created}, nil
}

func (b *OAuthBroker) provider(name string) (IdentityProvider, error) {
	parsed, ok := domain.ParseOAuthProvider(name)
	if !ok {
		return nil, domain.ErrUnsupportedProvider
	}
	provider, ok := b.providers[parsed]
	if !ok {
		return nil, domain.ErrUnsupportedProvider
	}
	return provider, nil
}

// exchange retries once on transport errors and provider 5xx. Rejected
// codes are final.
func (b *OAuthBroker) exchange(ctx context.Context, provider IdentityProvider, code, verifier string) (*oauth2.Token, error) {
	var token *oauth2.Token
	backoff := retry.WithMaxRetries(1, retry.NewConstant(200*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, b.cfg.ExchangeTimeout)
		defer cancel()

		var err error
		token, err = provider.Exchange(attemptCtx, code, verifier)
		if err == nil {
			return nil
		}

		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= http.StatusInternalServerError {
				return retry.RetryableError(err)
			}
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

// resolveUser finds the account for a provider profile, linking or creating
// one as needed. Two first logins racing for the same account collide on a
// unique index; the loser retries and finds the winner's rows.
func (b *OAuthBroker) resolveUser(ctx context.Context, provider domain.OAuthProvider, profile *ProviderProfile) (*domain.User, bool, error) {
	var user *domain.User
	var created bool

	err := retry.Do(ctx, retry.WithMaxRetries(1, retry.NewConstant(10*time.Millisecond)), func(ctx context.Context) error {
		err := b.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
			var claimed bool
			var err error
			user, created, claimed, err = linkOrCreate(ctx, repos, provider, profile)
			if err != nil || !claimed {
				return err
			}
			// Written before commit, so a failed revocation leaves the
			// account unlinked with its password.
			return b.tokens.RevokeUser(ctx, user.ID, domain.ReasonAccountClaimed)
		})
		if errors.Is(err, repository.ErrDuplicateEmail) || errors.Is(err, repository.ErrDuplicateOAuthIdentity) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve oauth user: %w", err)
	}
	return user, created, nil
}

// linkOrCreate reports claimed when an unverified local registration was
// taken over by the provider identity. The password set at registration is
// cleared because nobody proved ownership of the address when it was chosen.
func linkOrCreate(ctx context.Context, repos *repository.Repositories, provider domain.OAuthProvider, profile *ProviderProfile) (user *domain.User, created, claimed bool, err error) {
	identity, err := repos.OAuthIdentity.GetByExternalID(ctx, provider, profile.ExternalID)
	if err == nil {
		user, err := repos.User.GetByID(ctx, identity.UserID)
		return user, false, false, err
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, false, err
	}

	user, err = repos.User.GetByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		if !user.EmailVerified {
			if err := repos.User.ClearPassword(ctx, user.ID); err != nil {
				return nil, false, false, err
			}
			if err := repos.User.MarkEmailVerified(ctx, user.ID); err != nil {
				return nil, false, false, err
			}
			user.PasswordHash = nil
			user.EmailVerified = true
			claimed = true
		}
	case errors.Is(err, repository.ErrNotFound):
		user = &domain.User{
			Email:         profile.Email,
			DisplayName:   profile.Name,
			EmailVerified: true,
			Plan:          domain.PlanFree,
		}
		if err := repos.User.Create(ctx, user); err != nil {
			return nil, false, false, err
		}
		created = true
	default:
		return nil, false, false, err
	}

	email := profile.Email
	if err := repos.OAuthIdentity.Create(ctx, &domain.OAuthIdentity{
		UserID:     user.ID,
		Provider:   provider,
		ExternalID: profile.ExternalID,
		Email:      &email,
	}); err != nil {
		return nil, false, false, err
	}
	return user, created, claimed, nil
}
