package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openclass/openclass-api/internal/middleware"
	"github.com/openclass/openclass-api/internal/models"
	"github.com/openclass/openclass-api/internal/service"
)

type memoryGateStore struct {
	session models.GateSession
}

func (m *memoryGateStore) Load(_ context.Context, principalID string) (*models.GateSession, error) {
	session := m.session
	session.PrincipalID = principalID
	return &session, nil
}

func (m *memoryGateStore) IncrementAttempts(context.Context, string, time.Duration) (int, error) {
	m.session.FailedAttempts++
	return m.session.FailedAttempts, nil
}

func (m *memoryGateStore) SetLockout(_ context.Context, _ string, expiry time.Time) error {
	m.session.LockoutExpiry = &expiry
	m.session.FailedAttempts = 0
	return nil
}

func (m *memoryGateStore) SetValidated(_ context.Context, _ string, until time.Time) error {
	m.session.ValidatedUntil = &until
	m.session.FailedAttempts = 0
	m.session.LockoutExpiry = nil
	return nil
}

type stubValidator struct {
	claims models.JWTClaims
}

func (s *stubValidator) ValidateToken(string) (*models.JWTClaims, error) {
	claims := s.claims
	return &claims, nil
}

func newGateRouter(store *memoryGateStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	gate := service.NewGateService(store, zap.NewNop(), service.GateServiceConfig{
		Secret:          "correct-horse-battery",
		MinKeyLength:    10,
		MaxAttempts:     5,
		LockoutDuration: 30 * time.Second,
		ValidationTTL:   24 * time.Hour,
	})
	h := NewGateHandler(gate)

	r := gin.New()
	r.Use(middleware.Authenticate(&stubValidator{claims: models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}}))
	r.POST("/gate/validate", h.Submit)
	r.GET("/gate/status", h.Status)
	return r
}

func submitKey(t *testing.T, r *gin.Engine, key string) *httptest.ResponseRecorder {
	t.Helper()
	body := strings.NewReader(`{"key":"` + key + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/gate/validate", body)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGateSubmitHappyPath(t *testing.T) {
	r := newGateRouter(&memoryGateStore{})

	w := submitKey(t, r, "correct-horse-battery")
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data struct {
			State          string     `json:"state"`
			ValidatedUntil *time.Time `json:"validated_until"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "validated", envelope.Data.State)
	assert.NotNil(t, envelope.Data.ValidatedUntil)
}

func TestGateSubmitLockoutFlow(t *testing.T) {
	r := newGateRouter(&memoryGateStore{})

	for i := 0; i < 4; i++ {
		w := submitKey(t, r, "wrong-key-padding")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := submitKey(t, r, "wrong-key-padding")
	require.Equal(t, http.StatusLocked, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var envelope struct {
		Data struct {
			State             string `json:"state"`
			RetryAfterSeconds int    `json:"retry_after_seconds"`
		} `json:"data"`
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "locked_out", envelope.Data.State)
	assert.Equal(t, "GATE_LOCKED", envelope.Error.Code)
	assert.Greater(t, envelope.Data.RetryAfterSeconds, 0)

	// Correct key is still refused while the lockout holds.
	w = submitKey(t, r, "correct-horse-battery")
	assert.Equal(t, http.StatusLocked, w.Code)
}

func TestGateSubmitShortKey(t *testing.T) {
	store := &memoryGateStore{}
	r := newGateRouter(store)

	w := submitKey(t, r, "short")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, store.session.FailedAttempts)
}

func TestGateStatusDefaultsUnvalidated(t *testing.T) {
	r := newGateRouter(&memoryGateStore{})

	req := httptest.NewRequest(http.MethodGet, "/gate/status", nil)
	req.Header.Set("Authorization", "Bearer token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data struct {
			State             string `json:"state"`
			AttemptsRemaining int    `json:"attempts_remaining"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "unvalidated", envelope.Data.State)
	assert.Equal(t, 5, envelope.Data.AttemptsRemaining)
}
