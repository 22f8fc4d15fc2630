package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/pkg/database"
)

// usageColumns is the only source of column names interpolated into SQL
var usageColumns = map[domain.Resource]string{
	domain.ResourceAPICalls: "api_calls",
	domain.ResourceStorage:  "storage_bytes",
	domain.ResourceImages:   "image_count",
	domain.ResourceFolders:  "folder_count",
}

// usageRepository implements UsageRepository interface
type usageRepository struct {
	db database.DBTX
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db database.DBTX) UsageRepository {
	return &usageRepository{db: db}
}

// Increment is a single conditional upsert. The WHERE clauses make the
// ceiling part of the write, so concurrent callers are serialized by the
// row lock and the loser sees the winner's value.
func (r *usageRepository) Increment(ctx context.Context, userID, period string, resource domain.Resource, delta, limit int64) (int64, bool, error) {
	col, ok := usageColumns[resource]
	if !ok {
		return 0, false, fmt.Errorf("unknown resource %q", resource)
	}

	query := fmt.Sprintf(`
		INSERT INTO usage_counters (user_id, period, %[1]s, updated_at)
		SELECT $1::uuid, $2::text, $3::bigint, NOW()
		WHERE $3::bigint <= $4::bigint
		ON CONFLICT (user_id, period) DO UPDATE
		SET %[1]s = usage_counters.%[1]s + EXCLUDED.%[1]s, updated_at = NOW()
		WHERE usage_counters.%[1]s + EXCLUDED.%[1]s <= $4::bigint
		RETURNING %[1]s
	`, col)

	var value int64
	err := r.db.QueryRowContext(ctx, query, userID, period, delta, limit).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to increment %s: %w", col, err)
	}

	return value, true, nil
}

// Get returns the counters for a period. A missing row is an all-zero counter.
func (r *usageRepository) Get(ctx context.Context, userID, period string) (*domain.UsageCounter, error) {
	query := `
		SELECT api_calls, storage_bytes, image_count, folder_count, updated_at
		FROM usage_counters
		WHERE user_id = $1 AND period = $2
	`

	counter := &domain.UsageCounter{UserID: userID, Period: period}
	err := r.db.QueryRowContext(ctx, query, userID, period).Scan(
		&counter.APICalls,
		&counter.StorageBytes,
		&counter.ImageCount,
		&counter.FolderCount,
		&counter.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return counter, nil
		}
		return nil, fmt.Errorf("failed to get usage counters: %w", err)
	}

	return counter, nil
}
