package models

import (
	"time"
)

// ==============================================
// ONE-TIME CODE MODEL
// ==============================================

type OneTimeCode struct {
	ID        string    `db:"id"`
	Phone     string    `db:"phone"`
	CodeHash  string    `db:"code"` // bcrypt hash, plaintext never stored
	Consumed  bool      `db:"consumed"`
	CreatedAt time.Time `db:"created_at"`
}

// IsExpired reports whether the code has aged out of its validity window
func (c *OneTimeCode) IsExpired() bool {
	return time.Since(c.CreatedAt) > OTPValidity
}

// ==============================================
// OTP CONFIGURATION
// ==============================================
const (
	OTPLength        = 6                // 6-digit numeric code
	OTPValidity      = 10 * time.Minute // codes expire 10 minutes after creation
	OTPCandidateSize = 5                // recent unconsumed codes considered per verify
)

// ==============================================
// COOLDOWN BUCKETS
// ==============================================
//
// Rate buckets are append-only event streams; the guard records first and
// counts within a trailing window, so the just-recorded event counts
// against the caller.
const (
	OTPSendWindow   = 10 * time.Minute
	OTPSendMax      = 3
	OTPVerifyWindow = 10 * time.Minute
	OTPVerifyMax    = 5

	TrialCooldownWindow = 24 * time.Hour
)

// OTPSendBucket names the rate bucket for OTP issuance per phone
func OTPSendBucket(phone string) string {
	return "otp:" + phone
}

// OTPVerifyBucket names the rate bucket for OTP verification attempts per phone
func OTPVerifyBucket(phone string) string {
	return "otp-verify:" + phone
}
