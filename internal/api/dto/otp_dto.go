package dto

// ==============================================
// OTP REQUEST/RESPONSE DTOs
// ==============================================

// SendOTPRequest - issue a code for a phone number
type SendOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// SendOTPResponse - code is only populated in development mode
type SendOTPResponse struct {
	OK                 bool   `json:"ok"`
	TelegramRegistered bool   `json:"telegramRegistered"`
	Message            string `json:"message,omitempty"`
	Code               string `json:"code,omitempty"`
	DevNote            string `json:"dev_note,omitempty"`
}

// VerifyOTPRequest - check a candidate code
type VerifyOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

// VerifyOTPResponse
type VerifyOTPResponse struct {
	OK bool `json:"ok"`
}

// ==============================================
// TELEGRAM REGISTRATION DTOs
// ==============================================

type RegisterTelegramRequest struct {
	Phone            string `json:"phone" binding:"required"`
	TelegramID       string `json:"telegramId" binding:"required"`
	TelegramUsername string `json:"telegramUsername"`
}

type RegisterTelegramResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type TelegramStatusResponse struct {
	OK         bool `json:"ok"`
	Registered bool `json:"registered"`
}
