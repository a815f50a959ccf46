package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kickai/trialgate/internal/models"
)

// ==============================================
// ERRORS
// ==============================================

var (
	ErrCodeAlreadyConsumed = errors.New("code already consumed")
)

// ==============================================
// OTP REPOSITORY
// ==============================================

type OTPRepository struct {
	db *pgxpool.Pool
}

func NewOTPRepository(db *pgxpool.Pool) *OTPRepository {
	return &OTPRepository{db: db}
}

// ==============================================
// CREATE CODE
// ==============================================

// CreateCode stores a hashed one-time code for a phone
func (r *OTPRepository) CreateCode(ctx context.Context, code *models.OneTimeCode) error {
	query := `
		INSERT INTO one_time_codes (phone, code)
		VALUES ($1, $2)
		RETURNING id, consumed, created_at
	`

	row := r.db.QueryRow(ctx, query, code.Phone, code.CodeHash)
	if err := row.Scan(&code.ID, &code.Consumed, &code.CreatedAt); err != nil {
		return fmt.Errorf("failed to create one-time code: %w", err)
	}

	return nil
}

// ==============================================
// READ CANDIDATES
// ==============================================

// RecentUnconsumed fetches the most recent unconsumed codes for a phone,
// newest first. Verification walks these in order; multiple outstanding
// codes per phone are expected.
func (r *OTPRepository) RecentUnconsumed(ctx context.Context, phone string, limit int) ([]models.OneTimeCode, error) {
	query := `
		SELECT id, phone, code, consumed, created_at
		FROM one_time_codes
		WHERE phone = $1 AND consumed = false
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch codes: %w", err)
	}
	defer rows.Close()

	var codes []models.OneTimeCode
	for rows.Next() {
		var c models.OneTimeCode
		if err := rows.Scan(&c.ID, &c.Phone, &c.CodeHash, &c.Consumed, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan code: %w", err)
		}
		codes = append(codes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read codes: %w", err)
	}

	return codes, nil
}

// ==============================================
// CONSUME
// ==============================================

// Consume flags a code as used. The update is conditional on the code
// still being unconsumed, so two concurrent verifications of the same
// code succeed exactly once.
func (r *OTPRepository) Consume(ctx context.Context, codeID string) error {
	query := `
		UPDATE one_time_codes
		SET consumed = true
		WHERE id = $1 AND consumed = false
	`

	tag, err := r.db.Exec(ctx, query, codeID)
	if err != nil {
		return fmt.Errorf("failed to consume code: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrCodeAlreadyConsumed
	}

	return nil
}
