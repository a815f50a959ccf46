package dto

// ==============================================
// TRIAL REQUEST DTOs
// ==============================================

// StartTrialRequest carries the phone, the OTP token and the complete
// device fingerprint captured client-side. Field presence is validated by
// the orchestrator, not by binding tags: every missing field must map to
// the same bad_request error code.
type StartTrialRequest struct {
	Phone              string             `json:"phone"`
	Token              string             `json:"token"`
	FingerprintHash    string             `json:"fingerprint_hash"`
	DeviceType         string             `json:"device_type"`
	Email              string             `json:"email"`
	FingerprintDetails FingerprintDetails `json:"fingerprint_details"`
}

// FingerprintDetails is the raw device/browser metadata behind the hash
type FingerprintDetails struct {
	Canvas    string   `json:"canvas"`
	UserAgent string   `json:"userAgent"`
	Timezone  string   `json:"timezone"`
	Platform  string   `json:"platform"`
	Language  string   `json:"language"`
	Hardware  Hardware `json:"hardware"`
}

type Hardware struct {
	Screen      Screen `json:"screen"`
	Cores       int    `json:"cores"`
	TouchPoints int    `json:"touchPoints"`
}

type Screen struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
}

// ==============================================
// TRIAL RESPONSE DTOs
// ==============================================

// StartTrialResponse - success payload returned to the caller
type StartTrialResponse struct {
	OK        bool   `json:"ok"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	ExpiresAt string `json:"expiresAt"`
}

// ErrorResponse - stable machine-readable code plus human-readable message
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
