package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/repository"
	"go.uber.org/zap"
)

// ResourceUsage is one line of a usage report
type ResourceUsage struct {
	Resource domain.Resource
	Used     int64
	Limit    int64
	Percent  float64
	Unit     string
}

// UsageReport is the read-only snapshot for the active period
type UsageReport struct {
	UserID      string
	Plan        domain.Plan
	Period      string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Resources   []ResourceUsage
}

// UsageMeter is the only path through which usage counters change
type UsageMeter struct {
	users   repository.UserRepository
	usage   repository.UsageRepository
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewUsageMeter creates a new usage meter
func NewUsageMeter(users repository.UserRepository, usage repository.UsageRepository, metrics *Metrics, logger *zap.Logger) *UsageMeter {
	return &UsageMeter{users: users, usage: usage, metrics: metrics, logger: logger, now: time.Now}
}

// TryConsume reserves delta units of resource for the user in the current
// period. Check and increment happen in one conditional write in the
// counter store; a refusal changes nothing.
func (m *UsageMeter) TryConsume(ctx context.Context, userID string, resource domain.Resource, delta int64) (int64, error) {
	if delta <= 0 {
		return 0, domain.NewValidationError("amount", "must be greater than zero")
	}

	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, domain.ErrUserNotFound
		}
		return 0, err
	}

	limits := LimitsFor(user.Plan)
	limit, err := limits.For(resource)
	if err != nil {
		return 0, domain.NewValidationError("resource", err.Error())
	}

	period := domain.PeriodFor(m.now())
	value, ok, err := m.usage.Increment(ctx, userID, period, resource, delta, limit)
	if err != nil {
		return 0, err
	}
	if ok {
		return value, nil
	}

	counter, err := m.usage.Get(ctx, userID, period)
	if err != nil {
		return 0, fmt.Errorf("failed to read usage after refusal: %w", err)
	}
	current, _ := counter.Get(resource)
	decision := Check(resource, limits, current, delta)

	m.metrics.quotaDenied(ctx, resource)
	m.logger.Debug("quota exceeded",
		zap.String("user_id", userID),
		zap.String("resource", string(resource)),
		zap.Int64("current", decision.CurrentUsage),
		zap.Int64("delta", delta),
		zap.Int64("limit", decision.Limit),
	)
	return 0, &domain.QuotaExceededError{Resource: resource, CurrentUsage: decision.CurrentUsage, Limit: decision.Limit}
}

// CurrentUsage returns the four counters of the active period against the plan's limits
func (m *UsageMeter) CurrentUsage(ctx context.Context, userID string) (*UsageReport, error) {
	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	now := m.now()
	period := domain.PeriodFor(now)
	counter, err := m.usage.Get(ctx, userID, period)
	if err != nil {
		return nil, err
	}

	start, end := domain.PeriodBounds(now)
	report := &UsageReport{
		UserID:      userID,
		Plan:        user.Plan,
		Period:      period,
		PeriodStart: start,
		PeriodEnd:   end,
	}

	limits := LimitsFor(user.Plan)
	for _, r := range domain.Resources() {
		used, _ := counter.Get(r)
		limit, _ := limits.For(r)
		var pct float64
		if limit > 0 {
			pct = float64(used) / float64(limit) * 100
		}
		report.Resources = append(report.Resources, ResourceUsage{
			Resource: r,
			Used:     used,
			Limit:    limit,
			Percent:  pct,
			Unit:     r.Unit(),
		})
	}

	return report, nil
}
