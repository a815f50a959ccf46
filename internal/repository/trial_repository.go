package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kickai/trialgate/internal/models"
)

// ==============================================
// TRIAL REPOSITORY
// ==============================================

type TrialRepository struct {
	db *pgxpool.Pool
}

func NewTrialRepository(db *pgxpool.Pool) *TrialRepository {
	return &TrialRepository{db: db}
}

// ==============================================
// CREATE SESSION
// ==============================================

// CreateSession writes the durable record that credentials were issued
func (r *TrialRepository) CreateSession(ctx context.Context, session *models.TrialSession) error {
	query := `
		INSERT INTO trial_sessions (phone, email, ip, fingerprint_hash, device_type, browser_info, username, password, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, start_time
	`

	row := r.db.QueryRow(ctx, query,
		session.Phone,
		session.Email,
		session.IP,
		session.FingerprintHash,
		session.DeviceType,
		session.BrowserInfo,
		session.Username,
		session.Password,
		session.Status,
	)

	if err := row.Scan(&session.ID, &session.StartTime); err != nil {
		return fmt.Errorf("failed to create trial session: %w", err)
	}

	return nil
}

// ==============================================
// COOLDOWN QUERY
// ==============================================

// CountActiveSince counts active trial sessions for a phone within the
// trailing window. Expired sessions do not count against the daily limit.
func (r *TrialRepository) CountActiveSince(ctx context.Context, phone string, window time.Duration) (int, error) {
	query := `
		SELECT COUNT(*)::int
		FROM trial_sessions
		WHERE phone = $1
		  AND status = $2
		  AND start_time > $3
	`

	var count int
	err := r.db.QueryRow(ctx, query, phone, models.TrialStatusActive, time.Now().Add(-window)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active trials: %w", err)
	}

	return count, nil
}

// ==============================================
// EXPIRY
// ==============================================

// ExpireActive marks all of a phone's active sessions expired and returns
// how many rows changed. Safe to re-run.
func (r *TrialRepository) ExpireActive(ctx context.Context, phone string) (int64, error) {
	query := `
		UPDATE trial_sessions
		SET status = $1
		WHERE phone = $2 AND status = $3
	`

	tag, err := r.db.Exec(ctx, query, models.TrialStatusExpired, phone, models.TrialStatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to expire trial sessions: %w", err)
	}

	return tag.RowsAffected(), nil
}
