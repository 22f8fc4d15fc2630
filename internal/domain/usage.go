package domain

import (
	"fmt"
	"time"
)

// UsageCounter is a user's consumption within one billing period
type UsageCounter struct {
	UserID       string    `json:"user_id" db:"user_id"`
	Period       string    `json:"period" db:"period"`
	APICalls     int64     `json:"api_calls" db:"api_calls"`
	StorageBytes int64     `json:"storage_bytes" db:"storage_bytes"`
	ImageCount   int64     `json:"image_count" db:"image_count"`
	FolderCount  int64     `json:"folder_count" db:"folder_count"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Get returns the counter value for a resource
func (c UsageCounter) Get(r Resource) (int64, error) {
	switch r {
	case ResourceStorage:
		return c.StorageBytes, nil
	case ResourceAPICalls:
		return c.APICalls, nil
	case ResourceImages:
		return c.ImageCount, nil
	case ResourceFolders:
		return c.FolderCount, nil
	default:
		return 0, fmt.Errorf("unknown resource %q", r)
	}
}

// PeriodFor returns the calendar-month period key (UTC) containing t
func PeriodFor(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// PeriodBounds returns the start (inclusive) and end (exclusive) of the month containing t
func PeriodBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
