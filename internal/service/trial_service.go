package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kickai/trialgate/internal/api/dto"
	"github.com/kickai/trialgate/internal/models"
	"github.com/kickai/trialgate/internal/provision"
	"github.com/kickai/trialgate/internal/repository"
)

// ==============================================
// COLLABORATOR INTERFACES (for testing)
// ==============================================

type TrialStore interface {
	CreateSession(ctx context.Context, session *models.TrialSession) error
	CountActiveSince(ctx context.Context, phone string, window time.Duration) (int, error)
}

type IdentityStore interface {
	GetByPhone(ctx context.Context, phone string) (*models.Identity, error)
	UpsertTrialEmail(ctx context.Context, phone, email string) error
}

type OTPLedger interface {
	Redeem(ctx context.Context, phone, code string) error
}

type Provisioner interface {
	Provision(ctx context.Context, req provision.Request) (*provision.Credentials, error)
}

type CredentialNotifier interface {
	DeliverCredentials(ctx context.Context, identity *models.Identity, phone, message string)
}

type FollowupScheduler interface {
	ScheduleTrialFlow(ctx context.Context, phone string)
}

// CredentialsMessageFunc renders the delivery text for issued credentials
type CredentialsMessageFunc func(username, password, expiresAt string) string

// ==============================================
// TRIAL SERVICE (orchestrator)
// ==============================================

// TrialService sequences the trial issuance pipeline:
// validate → cooldown → OTP redeem → provision → persist → notify → schedule.
// It is the sole writer of trial sessions and the only caller of the
// provisioning client.
type TrialService struct {
	trials      TrialStore
	identities  IdentityStore
	otp         OTPLedger
	provisioner Provisioner
	notifier    CredentialNotifier
	scheduler   FollowupScheduler
	message     CredentialsMessageFunc
}

func NewTrialService(
	trials TrialStore,
	identities IdentityStore,
	otp OTPLedger,
	provisioner Provisioner,
	notifier CredentialNotifier,
	scheduler FollowupScheduler,
	message CredentialsMessageFunc,
) *TrialService {
	return &TrialService{
		trials:      trials,
		identities:  identities,
		otp:         otp,
		provisioner: provisioner,
		notifier:    notifier,
		scheduler:   scheduler,
		message:     message,
	}
}

// ==============================================
// START TRIAL
// ==============================================

// StartTrial runs the full issuance pipeline. Every failure before
// provisioning aborts with a typed *models.AppError; failures after a
// successful provisioning call are absorbed and logged, because the
// external credentials already exist.
func (s *TrialService) StartTrial(ctx context.Context, req dto.StartTrialRequest, ip string) (*dto.StartTrialResponse, error) {
	// 1. Validate the full payload before touching any store
	if err := validateTrialRequest(req); err != nil {
		return nil, err
	}

	phone := req.Phone
	email := deriveTrialEmail(phone, req.Email)

	log.Printf("[TRIAL] Request - Phone: %s, Device: %s, Fingerprint: %s", phone, req.DeviceType, req.FingerprintHash)

	// 2. Cooldown check and identity lookup are independent reads; run
	// the lookup concurrently while the guard is consulted.
	identityCh := make(chan *models.Identity, 1)
	go func() {
		identity, err := s.identities.GetByPhone(ctx, phone)
		if err != nil && !errors.Is(err, repository.ErrIdentityNotFound) {
			log.Printf("[TRIAL] Identity lookup failed - Phone: %s, Err: %v", phone, err)
		}
		identityCh <- identity
	}()

	active, err := s.trials.CountActiveSince(ctx, phone, models.TrialCooldownWindow)
	if err != nil {
		// Fail closed: this cooldown is a business-integrity control,
		// not best-effort throttling.
		log.Printf("[TRIAL] Cooldown check failed - Phone: %s, Err: %v", phone, err)
		return nil, models.NewAppError(models.ErrCodeSystem,
			"System maintenance in progress. Please try again later.", models.ErrSystemCheck)
	}
	if active > 0 {
		log.Printf("[TRIAL] Blocked by cooldown - Phone: %s, Active: %d", phone, active)
		return nil, models.NewAppError(models.ErrCodeCooldown,
			"You have already used your free trial. Please wait 24 hours or contact support.", models.ErrTrialCooldown)
	}

	identity := <-identityCh

	// 3. Redeem the OTP token
	if err := s.otp.Redeem(ctx, phone, req.Token); err != nil {
		switch {
		case errors.Is(err, models.ErrOTPExpired):
			return nil, models.NewAppError(models.ErrCodeOTP, "Your verification code has expired. Please request a new one.", err)
		case errors.Is(err, models.ErrOTPInvalid):
			return nil, models.NewAppError(models.ErrCodeOTP, "Invalid verification code.", err)
		default:
			return nil, models.NewAppError(models.ErrCodeSystem,
				"System maintenance in progress. Please try again later.", err)
		}
	}

	// 4. Provision credentials externally. No local fallback: without a
	// successful response the whole request fails.
	sessionID := "trial_" + uuid.NewString()
	creds, err := s.provisioner.Provision(ctx, provision.Request{
		Email:       email,
		Phone:       phone,
		Device:      req.DeviceType,
		Fingerprint: req.FingerprintHash,
		SessionID:   sessionID,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		IP:          ip,
		FingerprintDetails: provision.FingerprintDetails{
			Canvas:    req.FingerprintDetails.Canvas,
			UserAgent: req.FingerprintDetails.UserAgent,
			Timezone:  req.FingerprintDetails.Timezone,
			Platform:  req.FingerprintDetails.Platform,
			Language:  req.FingerprintDetails.Language,
			Hardware: provision.Hardware{
				Screen: provision.Screen{
					Width:      req.FingerprintDetails.Hardware.Screen.Width,
					Height:     req.FingerprintDetails.Hardware.Screen.Height,
					PixelRatio: req.FingerprintDetails.Hardware.Screen.PixelRatio,
				},
				Cores:       req.FingerprintDetails.Hardware.Cores,
				TouchPoints: req.FingerprintDetails.Hardware.TouchPoints,
			},
		},
	})
	if err != nil {
		return nil, mapProvisionError(err)
	}

	log.Printf("[TRIAL] Provisioned - Phone: %s, SessionID: %s, Username: %s", phone, sessionID, creds.Username)

	// 5. The external side effect is committed; finish on a detached
	// context so a caller disconnect cannot orphan it.
	detached := context.WithoutCancel(ctx)

	s.persist(detached, phone, email, ip, req, creds)

	// 6. Best-effort credential delivery, decoupled from the flow
	go s.notifier.DeliverCredentials(detached, identity, phone, s.message(creds.Username, creds.Password, creds.ExpiresAt))

	// 7. Fire-and-forget follow-up handoff
	s.scheduler.ScheduleTrialFlow(detached, phone)

	return &dto.StartTrialResponse{
		OK:        true,
		Username:  creds.Username,
		Password:  creds.Password,
		ExpiresAt: creds.ExpiresAt,
	}, nil
}

// persist writes the trial session and identity records. Errors here are
// absorbed and logged: the credentials were already granted externally.
func (s *TrialService) persist(ctx context.Context, phone, email, ip string, req dto.StartTrialRequest, creds *provision.Credentials) {
	browserInfo, err := json.Marshal(req.FingerprintDetails)
	if err != nil {
		browserInfo = []byte("{}")
	}

	session := &models.TrialSession{
		Phone:           phone,
		Email:           sql.NullString{String: email, Valid: true},
		IP:              nullable(ip),
		FingerprintHash: nullable(req.FingerprintHash),
		DeviceType:      nullable(req.DeviceType),
		BrowserInfo:     browserInfo,
		Username:        nullable(creds.Username),
		Password:        nullable(creds.Password),
		Status:          models.TrialStatusActive,
	}

	if err := s.trials.CreateSession(ctx, session); err != nil {
		log.Printf("[TRIAL] CRITICAL: session persist failed after provisioning - Phone: %s, Err: %v", phone, err)
	}

	if err := s.identities.UpsertTrialEmail(ctx, phone, email); err != nil {
		log.Printf("[TRIAL] Identity upsert failed - Phone: %s, Err: %v", phone, err)
	}
}

// ==============================================
// VALIDATION
// ==============================================

func validateTrialRequest(req dto.StartTrialRequest) *models.AppError {
	if req.Phone == "" || req.Token == "" {
		return models.NewAppError(models.ErrCodeBadRequest, "Phone and token are required", models.ErrBadRequest)
	}

	if req.FingerprintHash == "" || req.DeviceType == "" {
		return models.NewAppError(models.ErrCodeBadRequest, "Fingerprint data is required", models.ErrBadRequest)
	}

	fd := req.FingerprintDetails
	if fd.Canvas == "" || fd.UserAgent == "" || fd.Timezone == "" ||
		fd.Hardware.Screen.Width == 0 || fd.Hardware.Screen.Height == 0 {
		return models.NewAppError(models.ErrCodeBadRequest, "Complete fingerprint data is required", models.ErrBadRequest)
	}

	return nil
}

// ==============================================
// HELPERS
// ==============================================

// deriveTrialEmail falls back to a synthetic address derived from the
// phone digits when the caller supplied none.
func deriveTrialEmail(phone, email string) string {
	if email != "" {
		return email
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	return digits + "@kickai.trial"
}

func mapProvisionError(err error) *models.AppError {
	var provErr *provision.Error
	if !errors.As(err, &provErr) {
		return models.NewAppError(models.ErrCodeProvisioningError,
			"Trial service is temporarily unavailable. Please try again later.", err)
	}

	switch provErr.Kind {
	case provision.KindNotFound:
		return models.NewAppError(models.ErrCodeProvisioningUnavailable,
			"Trial provisioning service not found. Please contact support.", err)
	case provision.KindUnavailable:
		if provErr.Status > 0 {
			return models.NewAppError(models.ErrCodeProvisioningUnavailable,
				"Trial service is temporarily unavailable. Please try again later.", err)
		}
		return models.NewAppError(models.ErrCodeProvisioningError,
			"Cannot connect to trial service. Please try again later.", err)
	case provision.KindInvalidResponse:
		return models.NewAppError(models.ErrCodeProvisioningFailed,
			"Trial provisioning failed. Please try again later.", err)
	case provision.KindIncomplete:
		return models.NewAppError(models.ErrCodeProvisioningIncomplete,
			"Trial provisioning incomplete. Please try again later.", err)
	case provision.KindTimeout:
		return models.NewAppError(models.ErrCodeProvisioningError,
			"Trial service is taking too long to respond. Please try again in a few minutes.", err)
	default:
		return models.NewAppError(models.ErrCodeProvisioningError,
			"Trial service is temporarily unavailable. Please try again later.", err)
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
