package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ==============================================
// COOLDOWN REPOSITORY
// ==============================================

// CooldownRepository backs the rate buckets in rate_events. Events are
// append-only; they age out of the query window rather than being deleted.
type CooldownRepository struct {
	db *pgxpool.Pool
}

func NewCooldownRepository(db *pgxpool.Pool) *CooldownRepository {
	return &CooldownRepository{db: db}
}

// RecordEvent appends one event to a named bucket
func (r *CooldownRepository) RecordEvent(ctx context.Context, bucket string) error {
	query := `
		INSERT INTO rate_events (bucket)
		VALUES ($1)
	`

	if _, err := r.db.Exec(ctx, query, bucket); err != nil {
		return fmt.Errorf("failed to record rate event: %w", err)
	}

	return nil
}

// CountSince counts events in a bucket within the trailing window
func (r *CooldownRepository) CountSince(ctx context.Context, bucket string, window time.Duration) (int, error) {
	query := `
		SELECT COUNT(*)::int
		FROM rate_events
		WHERE bucket = $1 AND created_at > $2
	`

	var count int
	err := r.db.QueryRow(ctx, query, bucket, time.Now().Add(-window)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rate events: %w", err)
	}

	return count, nil
}
