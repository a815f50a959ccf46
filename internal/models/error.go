package models

import (
	"errors"
	"fmt"
)

// ==============================================
// CUSTOM ERROR TYPES
// ==============================================

// AppError represents a structured application error
type AppError struct {
	Code    string // Stable machine-readable code for the client
	Message string // Human-readable message
	Err     error  // Underlying error (for logging)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ==============================================
// PREDEFINED ERRORS
// ==============================================

// Input errors
var (
	ErrBadRequest = errors.New("missing or malformed request fields")
)

// OTP errors
var (
	ErrOTPInvalid = errors.New("invalid OTP")
	ErrOTPExpired = errors.New("OTP has expired")
	ErrOTPRate    = errors.New("too many OTP requests")
)

// Cooldown / infrastructure errors
var (
	ErrTrialCooldown = errors.New("active trial within cooldown window")
	ErrSystemCheck   = errors.New("cooldown check could not be completed")
)

// ==============================================
// ERROR CODES (for API responses)
// ==============================================
const (
	ErrCodeBadRequest = "bad_request"
	ErrCodeRate       = "rate"
	ErrCodeExpired    = "expired"
	ErrCodeCooldown   = "cooldown"
	ErrCodeSystem     = "system_error"
	ErrCodeOTP        = "otp"

	ErrCodeProvisioningUnavailable = "provisioning_unavailable"
	ErrCodeProvisioningFailed      = "provisioning_failed"
	ErrCodeProvisioningIncomplete  = "provisioning_incomplete"
	ErrCodeProvisioningError       = "provisioning_error"
)
