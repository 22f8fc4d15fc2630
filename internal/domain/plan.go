package domain

import "fmt"

// Plan is a subscription tier
type Plan string

const (
	PlanFree       Plan = "free"
	PlanStarter    Plan = "starter"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// GB is the storage unit used by plan limits
const GB int64 = 1 << 30

// Plans returns every known plan in ascending order
func Plans() []Plan {
	return []Plan{PlanFree, PlanStarter, PlanPro, PlanEnterprise}
}

// ParsePlan resolves a plan name. Unknown names are reported, never guessed.
func ParsePlan(s string) (Plan, bool) {
	switch Plan(s) {
	case PlanFree, PlanStarter, PlanPro, PlanEnterprise:
		return Plan(s), true
	default:
		return "", false
	}
}

// Resource is a quota-bound resource
type Resource string

const (
	ResourceStorage  Resource = "storage"
	ResourceAPICalls Resource = "api_calls"
	ResourceImages   Resource = "images"
	ResourceFolders  Resource = "folders"
)

// Resources returns every metered resource
func Resources() []Resource {
	return []Resource{ResourceStorage, ResourceAPICalls, ResourceImages, ResourceFolders}
}

// ParseResource resolves a resource name
func ParseResource(s string) (Resource, bool) {
	switch Resource(s) {
	case ResourceStorage, ResourceAPICalls, ResourceImages, ResourceFolders:
		return Resource(s), true
	default:
		return "", false
	}
}

// Unit returns the unit a resource is counted in
func (r Resource) Unit() string {
	if r == ResourceStorage {
		return "bytes"
	}
	return "count"
}

// PlanLimits are the quotas a plan grants
type PlanLimits struct {
	StorageLimit     int64 `json:"storage_limit"`
	APIRequestsLimit int64 `json:"api_requests_limit"`
	ImagesLimit      int64 `json:"images_limit"`
	FoldersLimit     int64 `json:"folders_limit"`
}

// For returns the quota of a single resource
func (l PlanLimits) For(r Resource) (int64, error) {
	switch r {
	case ResourceStorage:
		return l.StorageLimit, nil
	case ResourceAPICalls:
		return l.APIRequestsLimit, nil
	case ResourceImages:
		return l.ImagesLimit, nil
	case ResourceFolders:
		return l.FoldersLimit, nil
	default:
		return 0, fmt.Errorf("unknown resource %q", r)
	}
}
