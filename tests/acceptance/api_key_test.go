package acceptance

import (
	"net/http"

	"github.com/prperemyshlev/identity-service/internal/dto"
)

func (s *Suite) TestAPIKey_Lifecycle() {
	auth := s.registerVerified("keys@example.com")

	var created dto.CreatedAPIKeyResponse
	resp := s.do(http.MethodPost, "/api/v1/api-keys", auth.AccessToken, dto.CreateAPIKeyRequest{
		Name:        "ci",
		Permissions: []string{"usage:read"},
	}, &created)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.NotEmpty(created.Key)
	s.Equal([]string{"usage:read"}, created.Permissions)

	var usage dto.UsageResponse
	resp = s.do(http.MethodGet, "/api/v1/usage", created.Key, nil, &usage)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	for _, r := range usage.Resources {
		if r.Resource == "api_calls" {
			s.Equal(int64(1), r.Used)
		}
	}

	var consumeErr dto.ErrorResponse
	resp = s.do(http.MethodPost, "/api/v1/usage/consume", created.Key, dto.ConsumeUsageRequest{Resource: "images", Amount: 1}, &consumeErr)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	s.Equal("forbidden", consumeErr.Error)

	resp = s.do(http.MethodGet, "/api/v1/api-keys", created.Key, nil, nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)

	var keys []dto.APIKeyResponse
	resp = s.do(http.MethodGet, "/api/v1/api-keys", auth.AccessToken, nil, &keys)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().Len(keys, 1)
	s.Equal(created.ID, keys[0].ID)

	resp = s.do(http.MethodDelete, "/api/v1/api-keys/"+created.ID, auth.AccessToken, nil, nil)
	s.Require().Equal(http.StatusNoContent, resp.StatusCode)

	var errResp dto.ErrorResponse
	resp = s.do(http.MethodGet, "/api/v1/usage", created.Key, nil, &errResp)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("api_key_inactive", errResp.Error)
}

func (s *Suite) TestAPIKey_MissingPermission() {
	auth := s.registerVerified("perm@example.com")

	var created dto.CreatedAPIKeyResponse
	resp := s.do(http.MethodPost, "/api/v1/api-keys", auth.AccessToken, dto.CreateAPIKeyRequest{
		Name:        "uploader",
		Permissions: []string{"images:write"},
	}, &created)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var errResp dto.ErrorResponse
	resp = s.do(http.MethodGet, "/api/v1/usage", created.Key, nil, &errResp)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	s.Equal("forbidden", errResp.Error)
}

func (s *Suite) TestAPIKey_WriterReservesQuota() {
	auth := s.registerVerified("writer@example.com")

	var created dto.CreatedAPIKeyResponse
	resp := s.do(http.MethodPost, "/api/v1/api-keys", auth.AccessToken, dto.CreateAPIKeyRequest{
		Name:        "uploader",
		Permissions: []string{"images:write"},
	}, &created)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var consumed dto.ConsumeUsageResponse
	resp = s.do(http.MethodPost, "/api/v1/usage/consume", created.Key, dto.ConsumeUsageRequest{Resource: "images", Amount: 2}, &consumed)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(int64(2), consumed.CurrentUsage)

	resp = s.do(http.MethodPost, "/api/v1/usage/consume", created.Key, dto.ConsumeUsageRequest{Resource: "folders", Amount: 1}, nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)
}
