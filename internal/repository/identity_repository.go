package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kickai/trialgate/internal/models"
)

// ==============================================
// ERRORS
// ==============================================

var (
	ErrIdentityNotFound = errors.New("identity not found")
)

// ==============================================
// IDENTITY REPOSITORY
// ==============================================

type IdentityRepository struct {
	db *pgxpool.Pool
}

func NewIdentityRepository(db *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// ==============================================
// READS
// ==============================================

// GetByPhone retrieves an identity by its phone number
func (r *IdentityRepository) GetByPhone(ctx context.Context, phone string) (*models.Identity, error) {
	query := `
		SELECT id, phone, email, telegram_id, referral_code, referred_by,
		       entitlement_expires_at, email_notifications_enabled,
		       email_verified, unsubscribe_token
		FROM app_users
		WHERE phone = $1
	`

	var identity models.Identity
	err := r.db.QueryRow(ctx, query, phone).Scan(
		&identity.ID,
		&identity.Phone,
		&identity.Email,
		&identity.TelegramID,
		&identity.ReferralCode,
		&identity.ReferredBy,
		&identity.EntitlementExpiresAt,
		&identity.EmailNotificationsEnabled,
		&identity.EmailVerified,
		&identity.UnsubscribeToken,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}

	return &identity, nil
}

// GetTelegramID returns the linked Telegram chat id for a phone, or "" if
// the identity does not exist or has no channel linked.
func (r *IdentityRepository) GetTelegramID(ctx context.Context, phone string) (string, error) {
	query := `
		SELECT telegram_id
		FROM app_users
		WHERE phone = $1 AND telegram_id IS NOT NULL
	`

	var telegramID string
	err := r.db.QueryRow(ctx, query, phone).Scan(&telegramID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get telegram id: %w", err)
	}

	return telegramID, nil
}

// ==============================================
// WRITES
// ==============================================

// LinkTelegram attaches a Telegram chat id to the identity for a phone,
// creating the identity if it does not exist yet. An existing link is
// replaced, never cleared.
func (r *IdentityRepository) LinkTelegram(ctx context.Context, phone, telegramID string) error {
	query := `
		INSERT INTO app_users (phone, telegram_id)
		VALUES ($1, $2)
		ON CONFLICT (phone)
		DO UPDATE SET telegram_id = EXCLUDED.telegram_id
	`

	if _, err := r.db.Exec(ctx, query, phone, telegramID); err != nil {
		return fmt.Errorf("failed to link telegram: %w", err)
	}

	return nil
}

// UpsertTrialEmail records the trial email for a phone, creating the
// identity on first contact. Only email-related fields are touched;
// telegram_id and referral fields are left untouched on update.
func (r *IdentityRepository) UpsertTrialEmail(ctx context.Context, phone, email string) error {
	query := `
		INSERT INTO app_users (phone, email, email_notifications_enabled, email_verified, unsubscribe_token)
		VALUES ($1, $2, true, false, $3)
		ON CONFLICT (phone)
		DO UPDATE SET email = EXCLUDED.email,
		              email_notifications_enabled = true,
		              unsubscribe_token = COALESCE(app_users.unsubscribe_token, EXCLUDED.unsubscribe_token)
	`

	if _, err := r.db.Exec(ctx, query, phone, email, uuid.NewString()); err != nil {
		return fmt.Errorf("failed to upsert trial email: %w", err)
	}

	return nil
}
