package models

import (
	"database/sql"
	"time"
)

// ==============================================
// TRIAL SESSION MODEL
// ==============================================

// TrialSession is the durable record that credentials were issued to a
// phone. It is written only after a successful OTP verification, a passed
// cooldown check and a successful external provisioning call.
type TrialSession struct {
	ID              string         `db:"id"`
	Phone           string         `db:"phone"`
	Email           sql.NullString `db:"email"`
	IP              sql.NullString `db:"ip"`
	FingerprintHash sql.NullString `db:"fingerprint_hash"`
	DeviceType      sql.NullString `db:"device_type"`
	BrowserInfo     []byte         `db:"browser_info"` // raw JSON device/browser metadata
	Username        sql.NullString `db:"username"`
	Password        sql.NullString `db:"password"`
	Status          string         `db:"status"`
	StartTime       time.Time      `db:"start_time"`
}

// Trial session statuses
const (
	TrialStatusActive  = "active"
	TrialStatusExpired = "expired"
)

// ==============================================
// FOLLOW-UP JOB MODEL
// ==============================================

// FollowupJob is a deferred action scheduled after trial issuance.
type FollowupJob struct {
	ID        string       `db:"id"`
	Phone     string       `db:"phone"`
	Action    string       `db:"action"`
	RunAt     time.Time    `db:"run_at"`
	DoneAt    sql.NullTime `db:"done_at"`
	CreatedAt time.Time    `db:"created_at"`
}

// Follow-up actions and their offsets from trial start
const (
	FollowupNudge  = "nudge"
	FollowupExpire = "expire"

	NudgeDelay  = 30 * time.Minute
	ExpireDelay = 12 * time.Hour
)
