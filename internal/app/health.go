package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports whether the stores behind the service answer
type HealthChecker struct {
	postgres pinger
	redis    pinger
	logger   *zap.Logger
}

func NewHealthChecker(postgres, redis pinger, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		postgres: postgres,
		redis:    redis,
		logger:   logger,
	}
}

func (h *HealthChecker) check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		if err := h.postgres.Ping(ctx); err != nil {
			errs <- fmt.Errorf("postgres: %w", err)
			return
		}
		errs <- nil
	}()

	go func() {
		if err := h.redis.Ping(ctx); err != nil {
			errs <- fmt.Errorf("redis: %w", err)
			return
		}
		errs <- nil
	}()

	return errors.Join(<-errs, <-errs)
}

func (h *HealthChecker) Handler(c *gin.Context) {
	if err := h.check(c.Request.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "fail",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "pass",
	})
}
