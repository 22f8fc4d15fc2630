package handler

import (
	"context"
	"time"

	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/service"
)

type stubAuthenticator struct {
	identity *domain.Identity
	err      error
}

func (s *stubAuthenticator) Validate(_ context.Context, bearer string) (*domain.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

type stubCredentials struct {
	service.CredentialService

	register     func(email, password, displayName string) (*domain.User, error)
	login        func(email, password string) (*domain.User, *domain.SessionToken, error)
	resendByMail func(email string) error
	resendByID   func(userID string) error
	changePlan   func(userID, plan string) (*domain.User, error)
}

func (s *stubCredentials) Register(_ context.Context, email, password, displayName string) (*domain.User, error) {
	return s.register(email, password, displayName)
}

func (s *stubCredentials) Login(_ context.Context, email, password string) (*domain.User, *domain.SessionToken, error) {
	return s.login(email, password)
}

func (s *stubCredentials) ResendVerification(_ context.Context, userID string) error {
	return s.resendByID(userID)
}

func (s *stubCredentials) ResendVerificationByEmail(_ context.Context, email string) error {
	return s.resendByMail(email)
}

func (s *stubCredentials) ChangePlan(_ context.Context, userID, plan string) (*domain.User, error) {
	return s.changePlan(userID, plan)
}

type stubUsage struct {
	calls   []domain.Resource
	consume func(resource domain.Resource, delta int64) (int64, error)
}

func (s *stubUsage) TryConsume(_ context.Context, _ string, resource domain.Resource, delta int64) (int64, error) {
	s.calls = append(s.calls, resource)
	if s.consume == nil {
		return delta, nil
	}
	return s.consume(resource, delta)
}

func (s *stubUsage) CurrentUsage(_ context.Context, userID string) (*service.UsageReport, error) {
	return &service.UsageReport{
		UserID:      userID,
		Plan:        domain.PlanFree,
		Period:      "2026-03",
		PeriodStart: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Resources: []service.ResourceUsage{
			{Resource: domain.ResourceAPICalls, Used: 10, Limit: 1000, Percent: 1, Unit: "requests"},
		},
	}, nil
}

type stubOAuth struct {
	begin    func(provider string) (string, error)
	callback func(provider, state, code string) (*service.OAuthResult, error)
}

func (s *stubOAuth) Providers() []domain.OAuthProvider {
	return []domain.OAuthProvider{domain.ProviderGoogle}
}

func (s *stubOAuth) BeginAuthorization(_ context.Context, provider string) (string, error) {
	return s.begin(provider)
}

func (s *stubOAuth) HandleCallback(_ context.Context, provider, state, code string) (*service.OAuthResult, error) {
	return s.callback(provider, state, code)
}

type stubLimiter struct {
	result service.RateLimitResult
	err    error
}

func (s *stubLimiter) Allow(context.Context, string, int, time.Duration) (service.RateLimitResult, error) {
	return s.result, s.err
}
