package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kickai/trialgate/internal/auth"
	"github.com/kickai/trialgate/internal/models"
	"github.com/kickai/trialgate/internal/repository"
)

// ==============================================
// REPOSITORY INTERFACES (for testing)
// ==============================================

type OTPStore interface {
	CreateCode(ctx context.Context, code *models.OneTimeCode) error
	RecentUnconsumed(ctx context.Context, phone string, limit int) ([]models.OneTimeCode, error)
	Consume(ctx context.Context, codeID string) error
}

type CooldownGuard interface {
	RecordEvent(ctx context.Context, bucket string) error
	CountSince(ctx context.Context, bucket string, window time.Duration) (int, error)
}

type ChannelLookup interface {
	GetTelegramID(ctx context.Context, phone string) (string, error)
}

type OTPDeliverer interface {
	DeliverOTP(ctx context.Context, telegramID, code string)
}

// ==============================================
// OTP SERVICE
// ==============================================

type OTPService struct {
	otpStore  OTPStore
	cooldowns CooldownGuard
	channels  ChannelLookup
	deliverer OTPDeliverer
}

func NewOTPService(otpStore OTPStore, cooldowns CooldownGuard, channels ChannelLookup, deliverer OTPDeliverer) *OTPService {
	return &OTPService{
		otpStore:  otpStore,
		cooldowns: cooldowns,
		channels:  channels,
		deliverer: deliverer,
	}
}

// CodeIssue is the result of a successful issuance. Code is the plaintext,
// returned to the caller exactly once and never persisted.
type CodeIssue struct {
	Code               string
	TelegramRegistered bool
}

// ==============================================
// ISSUE
// ==============================================

// RequestCode issues a new one-time code for a phone. The guard records
// before counting, so the request being served counts against its own
// limit.
func (s *OTPService) RequestCode(ctx context.Context, phone string) (*CodeIssue, error) {
	// 1. Rate limit: max 3 sends per 10 minutes per phone
	bucket := models.OTPSendBucket(phone)
	if err := s.cooldowns.RecordEvent(ctx, bucket); err != nil {
		return nil, fmt.Errorf("failed to record send event: %w", err)
	}

	count, err := s.cooldowns.CountSince(ctx, bucket, models.OTPSendWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to count send events: %w", err)
	}
	if count > models.OTPSendMax {
		return nil, models.ErrOTPRate
	}

	// 2. Generate and store the hashed code
	code := auth.GenerateOTP()
	hash, err := auth.HashCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to hash code: %w", err)
	}

	record := &models.OneTimeCode{
		Phone:    phone,
		CodeHash: hash,
	}
	if err := s.otpStore.CreateCode(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store code: %w", err)
	}

	// 3. Best-effort delivery to the linked channel (async)
	telegramID, err := s.channels.GetTelegramID(ctx, phone)
	if err != nil {
		log.Printf("[OTP] Channel lookup failed - Phone: %s, Err: %v", phone, err)
		telegramID = ""
	}

	if telegramID != "" {
		go s.deliverer.DeliverOTP(context.WithoutCancel(ctx), telegramID, code)
	}

	return &CodeIssue{
		Code:               code,
		TelegramRegistered: telegramID != "",
	}, nil
}

// ==============================================
// VERIFY
// ==============================================

// VerifyCode checks a candidate code against the ledger, rate-limited to
// 5 attempts per 10 minutes per phone.
func (s *OTPService) VerifyCode(ctx context.Context, phone, code string) error {
	bucket := models.OTPVerifyBucket(phone)
	if err := s.cooldowns.RecordEvent(ctx, bucket); err != nil {
		return fmt.Errorf("failed to record verify event: %w", err)
	}

	count, err := s.cooldowns.CountSince(ctx, bucket, models.OTPVerifyWindow)
	if err != nil {
		return fmt.Errorf("failed to count verify events: %w", err)
	}
	if count > models.OTPVerifyMax {
		return models.ErrOTPRate
	}

	return s.Redeem(ctx, phone, code)
}

// Redeem tests a candidate against the most recent unconsumed codes in
// recency order and consumes the first match. A matched but stale record
// yields ErrOTPExpired; anything else yields ErrOTPInvalid. Consumption
// is conditional, so a code matched by two concurrent requests is honored
// exactly once.
func (s *OTPService) Redeem(ctx context.Context, phone, code string) error {
	candidates, err := s.otpStore.RecentUnconsumed(ctx, phone, models.OTPCandidateSize)
	if err != nil {
		return fmt.Errorf("failed to load candidates: %w", err)
	}

	if len(candidates) == 0 {
		return models.ErrOTPInvalid
	}

	for _, candidate := range candidates {
		if !auth.CheckCode(code, candidate.CodeHash) {
			continue
		}

		if candidate.IsExpired() {
			return models.ErrOTPExpired
		}

		if err := s.otpStore.Consume(ctx, candidate.ID); err != nil {
			if errors.Is(err, repository.ErrCodeAlreadyConsumed) {
				return models.ErrOTPInvalid
			}
			return fmt.Errorf("failed to consume code: %w", err)
		}

		return nil
	}

	return models.ErrOTPInvalid
}
