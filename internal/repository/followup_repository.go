package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kickai/trialgate/internal/models"
)

// ==============================================
// FOLLOW-UP REPOSITORY
// ==============================================

// FollowupRepository stores deferred follow-up jobs consumed from the
// scheduling queue until their run time arrives.
type FollowupRepository struct {
	db *pgxpool.Pool
}

func NewFollowupRepository(db *pgxpool.Pool) *FollowupRepository {
	return &FollowupRepository{db: db}
}

// CreateJob stores a pending follow-up job
func (r *FollowupRepository) CreateJob(ctx context.Context, job *models.FollowupJob) error {
	query := `
		INSERT INTO trial_followups (phone, action, run_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	row := r.db.QueryRow(ctx, query, job.Phone, job.Action, job.RunAt)
	if err := row.Scan(&job.ID, &job.CreatedAt); err != nil {
		return fmt.Errorf("failed to create follow-up job: %w", err)
	}

	return nil
}

// DueJobs returns undone jobs whose run time has passed
func (r *FollowupRepository) DueJobs(ctx context.Context, now time.Time, limit int) ([]models.FollowupJob, error) {
	query := `
		SELECT id, phone, action, run_at, done_at, created_at
		FROM trial_followups
		WHERE done_at IS NULL AND run_at <= $1
		ORDER BY run_at ASC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.FollowupJob
	for rows.Next() {
		var j models.FollowupJob
		if err := rows.Scan(&j.ID, &j.Phone, &j.Action, &j.RunAt, &j.DoneAt, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan follow-up job: %w", err)
		}
		jobs = append(jobs, j)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read due jobs: %w", err)
	}

	return jobs, nil
}

// MarkDone flags a job as executed
func (r *FollowupRepository) MarkDone(ctx context.Context, jobID string) error {
	query := `
		UPDATE trial_followups
		SET done_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.Exec(ctx, query, jobID); err != nil {
		return fmt.Errorf("failed to mark follow-up done: %w", err)
	}

	return nil
}
