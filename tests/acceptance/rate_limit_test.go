package acceptance

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prperemyshlev/identity-service/internal/dto"
	"github.com/prperemyshlev/identity-service/internal/service"
	"go.uber.org/zap"
)

func (s *Suite) TestRateLimiter_ConcurrentCallersShareLastSlot() {
	limiter := service.NewRateLimiter(s.Redis)
	ctx := context.Background()

	first, err := limiter.Allow(ctx, "test:slots", 3, time.Minute)
	s.Require().NoError(err)
	s.True(first.Allowed)
	s.Equal(2, first.Remaining)

	second, err := limiter.Allow(ctx, "test:slots", 3, time.Minute)
	s.Require().NoError(err)
	s.Equal(1, second.Remaining)

	const workers = 16
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := limiter.Allow(ctx, "test:slots", 3, time.Minute)
			if err == nil && result.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), allowed.Load())

	denied, err := limiter.Allow(ctx, "test:slots", 3, time.Minute)
	s.Require().NoError(err)
	s.False(denied.Allowed)
	s.Equal(0, denied.Remaining)
	s.Greater(denied.RetryAfter, 58*time.Second)
	s.LessOrEqual(denied.RetryAfter, time.Minute)
}

func (s *Suite) TestResendVerification_ConcurrentRequestsMailOnce() {
	const email = "burst@example.com"
	resp := s.do(http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{Email: email, Password: testPassword}, nil)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	const workers = 8
	statuses := make(chan int, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			statuses <- s.do(http.MethodPost, "/api/v1/auth/resend-verification", "", dto.ResendVerificationRequest{Email: email}, nil).StatusCode
		}()
	}
	wg.Wait()
	close(statuses)

	for status := range statuses {
		s.Equal(http.StatusAccepted, status)
	}

	// one mail from registration, one from the burst
	mails := s.mail.FilterMessage("email verification link").FilterField(zap.String("to", email)).Len()
	s.Equal(2, mails)
}
