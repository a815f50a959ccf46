package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// ==============================================
// MOCK LINKER
// ==============================================

type MockChannelLinker struct {
	LinkTelegramFunc  func(ctx context.Context, phone, telegramID string) error
	GetTelegramIDFunc func(ctx context.Context, phone string) (string, error)
}

func (m *MockChannelLinker) LinkTelegram(ctx context.Context, phone, telegramID string) error {
	if m.LinkTelegramFunc != nil {
		return m.LinkTelegramFunc(ctx, phone, telegramID)
	}
	return nil
}

func (m *MockChannelLinker) GetTelegramID(ctx context.Context, phone string) (string, error) {
	if m.GetTelegramIDFunc != nil {
		return m.GetTelegramIDFunc(ctx, phone)
	}
	return "", nil
}

func telegramRouter(linker ChannelLinker) *gin.Engine {
	router := gin.New()
	h := NewTelegramHandler(linker)
	router.POST("/api/telegram/register", h.Register)
	router.GET("/api/telegram/register", h.Status)
	return router
}

// ==============================================
// REGISTER TESTS
// ==============================================

func TestRegisterTelegram_Success(t *testing.T) {
	var gotPhone, gotID string
	linker := &MockChannelLinker{
		LinkTelegramFunc: func(ctx context.Context, phone, telegramID string) error {
			gotPhone, gotID = phone, telegramID
			return nil
		},
	}

	w := performJSON(telegramRouter(linker), http.MethodPost, "/api/telegram/register",
		`{"phone":"+15551230000","telegramId":"tg-777"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "+15551230000", gotPhone)
	assert.Equal(t, "tg-777", gotID)
}

func TestRegisterTelegram_MissingFields(t *testing.T) {
	w := performJSON(telegramRouter(&MockChannelLinker{}), http.MethodPost, "/api/telegram/register",
		`{"phone":"+15551230000"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterTelegram_StoreFailure(t *testing.T) {
	linker := &MockChannelLinker{
		LinkTelegramFunc: func(ctx context.Context, phone, telegramID string) error {
			return errors.New("db down")
		},
	}

	w := performJSON(telegramRouter(linker), http.MethodPost, "/api/telegram/register",
		`{"phone":"+15551230000","telegramId":"tg-777"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

// ==============================================
// STATUS TESTS
// ==============================================

func TestTelegramStatus_Registered(t *testing.T) {
	linker := &MockChannelLinker{
		GetTelegramIDFunc: func(ctx context.Context, phone string) (string, error) {
			return "tg-777", nil
		},
	}

	w := performJSON(telegramRouter(linker), http.MethodGet, "/api/telegram/register?phone=%2B15551230000", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"registered":true`)
}

func TestTelegramStatus_NotRegistered(t *testing.T) {
	w := performJSON(telegramRouter(&MockChannelLinker{}), http.MethodGet, "/api/telegram/register?phone=%2B15551230000", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"registered":false`)
}

func TestTelegramStatus_MissingPhone(t *testing.T) {
	w := performJSON(telegramRouter(&MockChannelLinker{}), http.MethodGet, "/api/telegram/register", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
