package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/prperemyshlev/identity-service/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	githubAPIBaseURL  = "https://api.github.com"
)

// ProviderProfile is what the broker needs from a provider account
type ProviderProfile struct {
	ExternalID    string
	Email         string
	EmailVerified bool
	Name          string
}

// IdentityProvider is one external OAuth identity provider
type IdentityProvider interface {
	Name() domain.OAuthProvider
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (*ProviderProfile, error)
}

// ProviderConfig configures a provider. Empty endpoint fields use the
// provider's public endpoints.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	APIURL       string
}

func (c ProviderConfig) oauth2Config(endpoint oauth2.Endpoint, scopes []string) *oauth2.Config {
	if c.AuthURL != "" {
		endpoint.AuthURL = c.AuthURL
	}
	if c.TokenURL != "" {
		endpoint.TokenURL = c.TokenURL
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}
}

type googleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider creates the Google identity provider
func NewGoogleProvider(cfg ProviderConfig) IdentityProvider {
	userInfoURL := googleUserInfoURL
	if cfg.APIURL != "" {
		userInfoURL = strings.TrimRight(cfg.APIURL, "/") + "/v1/userinfo"
	}
	return &googleProvider{
		config:      cfg.oauth2Config(google.Endpoint, []string{"openid", "email", "profile"}),
		userInfoURL: userInfoURL,
	}
}

func (p *googleProvider) Name() domain.OAuthProvider { return domain.ProviderGoogle }

func (p *googleProvider) AuthCodeURL(state, verifier string) string {
	return p.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

func (p *googleProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	return p.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
}

func (p *googleProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*ProviderProfile, error) {
	var payload struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := getJSON(ctx, p.config.Client(ctx, token), p.userInfoURL, &payload); err != nil {
		return nil, err
	}
	if payload.Sub == "" {
		return nil, fmt.Errorf("google profile has no subject")
	}

	return &ProviderProfile{
		ExternalID:    payload.Sub,
		Email:         payload.Email,
		EmailVerified: payload.EmailVerified,
		Name:          payload.Name,
	}, nil
}

type githubProvider struct {
	config  *oauth2.Config
	apiBase string
}

// NewGitHubProvider creates the GitHub identity provider
func NewGitHubProvider(cfg ProviderConfig) IdentityProvider {
	apiBase := githubAPIBaseURL
	if cfg.APIURL != "" {
		apiBase = strings.TrimRight(cfg.APIURL, "/")
	}
	return &githubProvider{
		config:  cfg.oauth2Config(github.Endpoint, []string{"read:user", "user:email"}),
		apiBase: apiBase,
	}
}

func (p *githubProvider) Name() domain.OAuthProvider { return domain.ProviderGitHub }

func (p *githubProvider) AuthCodeURL(state, verifier string) string {
	return p.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

func (p *githubProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	return p.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
}

// FetchProfile reads /user for the account id and /user/emails for the
// primary address, since /user only shows a public email and no
// verification flag.
func (p *githubProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*ProviderProfile, error) {
	client := p.config.Client(ctx, token)

	var user struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
	}
	if err := getJSON(ctx, client, p.apiBase+"/user", &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("github profile has no id")
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, p.apiBase+"/user/emails", &emails); err != nil {
		return nil, err
	}

	profile := &ProviderProfile{
		ExternalID: "github-" + strconv.FormatInt(user.ID, 10),
		Name:       firstNonEmpty(user.Name, user.Login),
	}
	for _, e := range emails {
		if e.Primary {
			profile.Email = e.Email
			profile.EmailVerified = e.Verified
			break
		}
	}
	return profile, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("profile request %s returned %d", url, resp.StatusCode)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
