package service

import (
	"math"

	"github.com/prperemyshlev/identity-service/internal/domain"
)

// Decision is the outcome of an entitlement check
type Decision struct {
	Allowed      bool
	Resource     domain.Resource
	CurrentUsage int64
	Limit        int64
}

// LimitsFor returns the quotas of a plan. Anything unrecognised gets the
// free tier so a corrupted plan value can never widen access.
func LimitsFor(plan domain.Plan) domain.PlanLimits {
	switch plan {
	case domain.PlanStarter:
		return domain.PlanLimits{
			StorageLimit:     25 * domain.GB,
			APIRequestsLimit: 10_000,
			ImagesLimit:      1_000,
			FoldersLimit:     50,
		}
	case domain.PlanPro:
		return domain.PlanLimits{
			StorageLimit:     100 * domain.GB,
			APIRequestsLimit: 100_000,
			ImagesLimit:      10_000,
			FoldersLimit:     500,
		}
	case domain.PlanEnterprise:
		return domain.PlanLimits{
			StorageLimit:     1024 * domain.GB,
			APIRequestsLimit: 1_000_000,
			ImagesLimit:      100_000,
			FoldersLimit:     5_000,
		}
	case domain.PlanFree:
		fallthrough
	default:
		return domain.PlanLimits{
			StorageLimit:     1 * domain.GB,
			APIRequestsLimit: 1_000,
			ImagesLimit:      100,
			FoldersLimit:     10,
		}
	}
}

// Check denies iff currentUsage+delta exceeds the resource's limit.
// It has no side effects.
func Check(resource domain.Resource, limits domain.PlanLimits, currentUsage, delta int64) Decision {
	d := Decision{Resource: resource, CurrentUsage: currentUsage}

	limit, err := limits.For(resource)
	if err != nil {
		return d
	}
	d.Limit = limit

	if delta < 0 || currentUsage < 0 {
		return d
	}
	if currentUsage > math.MaxInt64-delta {
		return d
	}

	d.Allowed = currentUsage+delta <= limit
	return d
}
