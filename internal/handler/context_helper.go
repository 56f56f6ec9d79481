package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/openclass/openclass-api/internal/middleware"
	"github.com/openclass/openclass-api/internal/models"
	appErrors "github.com/openclass/openclass-api/pkg/errors"
	"github.com/openclass/openclass-api/pkg/response"
)

// requireClaims pulls authenticated claims or writes a 401 and reports
// failure.
func requireClaims(c *gin.Context) (models.JWTClaims, bool) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.JWTClaims{}, false
	}
	return claims, true
}

// scopeFromClaims derives the analytics scope from the caller identity.
// Teachers see their own courses; admins see the platform. The scope is
// never taken from request parameters.
func scopeFromClaims(claims models.JWTClaims) models.AnalyticsScope {
	if claims.Role == models.RoleTeacher {
		return models.AnalyticsScope{TeacherID: claims.UserID}
	}
	return models.AnalyticsScope{}
}
