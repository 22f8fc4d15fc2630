package handler

import (
	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/dto"
	"github.com/prperemyshlev/identity-service/internal/service"
)

func toUserInfo(u *domain.User) dto.UserInfo {
	return dto.UserInfo{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		Plan:          string(u.Plan),
		EmailVerified: u.EmailVerified,
		IsAdmin:       u.IsAdmin,
	}
}

func toAuthResponse(u *domain.User, t *domain.SessionToken) dto.AuthResponse {
	return dto.AuthResponse{
		AccessToken: t.Token,
		TokenType:   t.TokenType,
		ExpiresIn:   t.ExpiresIn,
		ExpiresAt:   t.ExpiresAt,
		User:        toUserInfo(u),
	}
}

func toProfileResponse(p *service.Profile) dto.ProfileResponse {
	providers := make([]string, 0, len(p.Providers))
	for _, provider := range p.Providers {
		providers = append(providers, string(provider))
	}
	return dto.ProfileResponse{
		ID:            p.User.ID,
		Email:         p.User.Email,
		DisplayName:   p.User.DisplayName,
		Plan:          string(p.User.Plan),
		EmailVerified: p.User.EmailVerified,
		HasPassword:   p.User.HasPassword(),
		Providers:     providers,
		CreatedAt:     p.User.CreatedAt,
	}
}

func toAPIKeyResponse(k *domain.APIKey) dto.APIKeyResponse {
	return dto.APIKeyResponse{
		ID:           k.ID,
		Name:         k.Name,
		Prefix:       k.Prefix,
		Permissions:  k.Permissions,
		RequestCount: k.RequestCount,
		LastUsedAt:   k.LastUsedAt,
		IsActive:     k.IsActive,
		CreatedAt:    k.CreatedAt,
	}
}

func toUsageResponse(r *service.UsageReport) dto.UsageResponse {
	resources := make([]dto.ResourceUsageResponse, 0, len(r.Resources))
	for _, u := range r.Resources {
		resources = append(resources, dto.ResourceUsageResponse{
			Resource: string(u.Resource),
			Used:     u.Used,
			Limit:    u.Limit,
			Percent:  u.Percent,
			Unit:     u.Unit,
		})
	}
	return dto.UsageResponse{
		Plan:        string(r.Plan),
		Period:      r.Period,
		PeriodStart: r.PeriodStart,
		PeriodEnd:   r.PeriodEnd,
		Resources:   resources,
	}
}
