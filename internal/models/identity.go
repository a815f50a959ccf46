package models

import (
	"database/sql"
	"time"
)

// ==============================================
// IDENTITY MODEL (app_users)
// ==============================================

// Identity is the persistent record for a phone number. Phone is the
// natural key; the Telegram chat id, once linked, is never cleared by
// this subsystem.
type Identity struct {
	ID                        string         `db:"id"`
	Phone                     string         `db:"phone"`
	Email                     sql.NullString `db:"email"`
	TelegramID                sql.NullString `db:"telegram_id"`
	ReferralCode              sql.NullString `db:"referral_code"`
	ReferredBy                sql.NullString `db:"referred_by"`
	EntitlementExpiresAt      sql.NullTime   `db:"entitlement_expires_at"`
	EmailNotificationsEnabled bool           `db:"email_notifications_enabled"`
	EmailVerified             bool           `db:"email_verified"`
	UnsubscribeToken          sql.NullString `db:"unsubscribe_token"`
}

// HasTelegram checks if the identity has a linked Telegram chat
func (i *Identity) HasTelegram() bool {
	return i.TelegramID.Valid && i.TelegramID.String != ""
}

// IsEntitled reports whether the identity still has an active entitlement
func (i *Identity) IsEntitled() bool {
	return i.EntitlementExpiresAt.Valid && i.EntitlementExpiresAt.Time.After(time.Now())
}
