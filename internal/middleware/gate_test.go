package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/openclass/openclass-api/internal/models"
	appErrors "github.com/openclass/openclass-api/pkg/errors"
)

type fakeGateGuard struct {
	err   error
	calls int
}

func (g *fakeGateGuard) Require(context.Context, string) error {
	g.calls++
	return g.err
}

func gateRouter(guard *fakeGateGuard, claims models.JWTClaims, reached *bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(claimsContextKey, claims)
		c.Next()
	})
	r.Use(RequireGate(guard, models.RoleAdmin))
	r.GET("/summary", func(c *gin.Context) {
		*reached = true
		c.JSON(http.StatusOK, gin.H{"total_courses": 42})
	})
	return r
}

func TestRequireGateBlocksLockedOutAdmin(t *testing.T) {
	guard := &fakeGateGuard{err: appErrors.ErrGateLocked}
	var reached bool
	r := gateRouter(guard, models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}, &reached)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/summary", nil))

	assert.Equal(t, http.StatusLocked, w.Code)
	assert.False(t, reached, "aggregation handler must not run during lockout")
	assert.Contains(t, w.Body.String(), "GATE_LOCKED")
}

func TestRequireGateBlocksUnvalidatedAdmin(t *testing.T) {
	guard := &fakeGateGuard{err: appErrors.ErrGateRequired}
	var reached bool
	r := gateRouter(guard, models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}, &reached)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/summary", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, reached)
}

func TestRequireGateAllowsValidatedAdmin(t *testing.T) {
	guard := &fakeGateGuard{}
	var reached bool
	r := gateRouter(guard, models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}, &reached)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/summary", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, reached)
	assert.Equal(t, 1, guard.calls)
}

func TestRequireGateSkipsUngatedRoles(t *testing.T) {
	guard := &fakeGateGuard{err: appErrors.ErrGateRequired}
	var reached bool
	r := gateRouter(guard, models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher}, &reached)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/summary", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, reached)
	assert.Zero(t, guard.calls, "teachers are never checked against the gate")
}

func TestRequireGateRejectsMissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	guard := &fakeGateGuard{}
	r := gin.New()
	r.Use(RequireGate(guard, models.RoleAdmin))
	r.GET("/summary", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/summary", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, guard.calls)
}
