package acceptance

import (
	"net/http"
	"sync"

	"github.com/prperemyshlev/identity-service/internal/dto"
)

func (s *Suite) TestUsage_ConsumeUpToLimit() {
	auth := s.registerVerified("quota@example.com")

	var consumed dto.ConsumeUsageResponse
	resp := s.do(http.MethodPost, "/api/v1/usage/consume", auth.AccessToken, dto.ConsumeUsageRequest{Resource: "folders", Amount: 10}, &consumed)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(int64(10), consumed.CurrentUsage)

	var errResp dto.ErrorResponse
	resp = s.do(http.MethodPost, "/api/v1/usage/consume", auth.AccessToken, dto.ConsumeUsageRequest{Resource: "folders", Amount: 1}, &errResp)
	s.Equal(http.StatusTooManyRequests, resp.StatusCode)
	s.Equal("quota_exceeded", errResp.Error)
	s.Equal(map[string]any{"resource": "folders", "current_usage": float64(10), "limit": float64(10)}, errResp.Details)

	var usage dto.UsageResponse
	resp = s.do(http.MethodGet, "/api/v1/usage", auth.AccessToken, nil, &usage)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	for _, r := range usage.Resources {
		if r.Resource == "folders" {
			s.Equal(int64(10), r.Used)
			s.Equal(int64(10), r.Limit)
		}
	}
}

func (s *Suite) TestUsage_ConcurrentConsumeAtLimit() {
	auth := s.registerVerified("race@example.com")

	resp := s.do(http.MethodPost, "/api/v1/usage/consume", auth.AccessToken, dto.ConsumeUsageRequest{Resource: "folders", Amount: 9}, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	const workers = 8
	statuses := make(chan int, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			statuses <- s.do(http.MethodPost, "/api/v1/usage/consume", auth.AccessToken, dto.ConsumeUsageRequest{Resource: "folders", Amount: 1}, nil).StatusCode
		}()
	}
	wg.Wait()
	close(statuses)

	ok, refused := 0, 0
	for status := range statuses {
		switch status {
		case http.StatusOK:
			ok++
		case http.StatusTooManyRequests:
			refused++
		}
	}
	s.Equal(1, ok)
	s.Equal(workers-1, refused)
}

func (s *Suite) TestAdmin_ChangePlanRaisesLimits() {
	admin := s.registerVerified("admin@example.com")
	member := s.registerVerified("member@example.com")

	_, err := s.Postgres.DB.Exec(`UPDATE users SET is_admin = TRUE WHERE id = $1`, admin.User.ID)
	s.Require().NoError(err)

	resp := s.do(http.MethodPut, "/api/v1/admin/users/"+member.User.ID+"/plan", member.AccessToken, dto.ChangePlanRequest{Plan: "pro"}, nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)

	var relogin dto.AuthResponse
	resp = s.do(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "admin@example.com", Password: testPassword}, &relogin)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var updated dto.UserInfo
	resp = s.do(http.MethodPut, "/api/v1/admin/users/"+member.User.ID+"/plan", relogin.AccessToken, dto.ChangePlanRequest{Plan: "pro"}, &updated)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("pro", updated.Plan)

	resp = s.do(http.MethodPost, "/api/v1/usage/consume", member.AccessToken, dto.ConsumeUsageRequest{Resource: "folders", Amount: 11}, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
}
