package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kickai/trialgate/internal/api/dto"
	"github.com/kickai/trialgate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==============================================
// MOCK SERVICE
// ==============================================

type MockTrialService struct {
	StartTrialFunc func(ctx context.Context, req dto.StartTrialRequest, ip string) (*dto.StartTrialResponse, error)
}

func (m *MockTrialService) StartTrial(ctx context.Context, req dto.StartTrialRequest, ip string) (*dto.StartTrialResponse, error) {
	if m.StartTrialFunc != nil {
		return m.StartTrialFunc(ctx, req, ip)
	}
	return &dto.StartTrialResponse{OK: true, Username: "u", Password: "p", ExpiresAt: "x"}, nil
}

func trialRouter(svc TrialService) *gin.Engine {
	router := gin.New()
	router.POST("/api/trial/start", NewTrialHandler(svc).Start)
	return router
}

func httptestRequest(method, path, body string, headers map[string]string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const validTrialBody = `{
	"phone": "+15551230000",
	"token": "123456",
	"fingerprint_hash": "fp-hash-1",
	"device_type": "desktop",
	"fingerprint_details": {
		"canvas": "canvas-data",
		"userAgent": "Mozilla/5.0",
		"timezone": "Europe/Berlin",
		"hardware": {"screen": {"width": 1920, "height": 1080}}
	}
}`

// ==============================================
// START TRIAL TESTS
// ==============================================

func TestStartTrialEndpoint_Success(t *testing.T) {
	var gotReq dto.StartTrialRequest
	svc := &MockTrialService{
		StartTrialFunc: func(ctx context.Context, req dto.StartTrialRequest, ip string) (*dto.StartTrialResponse, error) {
			gotReq = req
			return &dto.StartTrialResponse{OK: true, Username: "usr_ab12", Password: "pw_cd34", ExpiresAt: "2026-09-30T00:00:00Z"}, nil
		},
	}

	w := performJSON(trialRouter(svc), http.MethodPost, "/api/trial/start", validTrialBody)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "usr_ab12")
	assert.Equal(t, "+15551230000", gotReq.Phone)
	assert.Equal(t, "123456", gotReq.Token)
	assert.Equal(t, 1920, gotReq.FingerprintDetails.Hardware.Screen.Width)
}

func TestStartTrialEndpoint_MalformedBody(t *testing.T) {
	w := performJSON(trialRouter(&MockTrialService{}), http.MethodPost, "/api/trial/start", `{not json`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "bad_request")
}

func TestStartTrialEndpoint_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"bad request", models.NewAppError(models.ErrCodeBadRequest, "Phone and token are required", models.ErrBadRequest), http.StatusBadRequest, "bad_request"},
		{"bad otp", models.NewAppError(models.ErrCodeOTP, "Invalid verification code.", models.ErrOTPInvalid), http.StatusBadRequest, "otp"},
		{"cooldown", models.NewAppError(models.ErrCodeCooldown, "Please wait 24 hours", models.ErrTrialCooldown), http.StatusTooManyRequests, "cooldown"},
		{"system", models.NewAppError(models.ErrCodeSystem, "System maintenance in progress", models.ErrSystemCheck), http.StatusServiceUnavailable, "system_error"},
		{"provisioning unavailable", models.NewAppError(models.ErrCodeProvisioningUnavailable, "Temporarily unavailable", nil), http.StatusServiceUnavailable, "provisioning_unavailable"},
		{"provisioning failed", models.NewAppError(models.ErrCodeProvisioningFailed, "Provisioning failed", nil), http.StatusServiceUnavailable, "provisioning_failed"},
		{"provisioning incomplete", models.NewAppError(models.ErrCodeProvisioningIncomplete, "Provisioning incomplete", nil), http.StatusServiceUnavailable, "provisioning_incomplete"},
		{"provisioning error", models.NewAppError(models.ErrCodeProvisioningError, "Cannot connect", nil), http.StatusServiceUnavailable, "provisioning_error"},
		{"untyped error", errors.New("boom"), http.StatusInternalServerError, "system_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockTrialService{
				StartTrialFunc: func(ctx context.Context, req dto.StartTrialRequest, ip string) (*dto.StartTrialResponse, error) {
					return nil, tt.err
				},
			}

			w := performJSON(trialRouter(svc), http.MethodPost, "/api/trial/start", validTrialBody)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
			assert.NotContains(t, w.Body.String(), "boom", "internal errors must not leak")
		})
	}
}

func TestStartTrialEndpoint_ClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		wantIP  string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, "203.0.113.9"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "198.51.100.7"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "203.0.113.9", "X-Real-IP": "198.51.100.7"}, "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotIP string
			svc := &MockTrialService{
				StartTrialFunc: func(ctx context.Context, req dto.StartTrialRequest, ip string) (*dto.StartTrialResponse, error) {
					gotIP = ip
					return &dto.StartTrialResponse{OK: true}, nil
				},
			}

			req := httptestRequest(http.MethodPost, "/api/trial/start", validTrialBody, tt.headers)
			w := serve(trialRouter(svc), req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantIP, gotIP)
		})
	}
}
