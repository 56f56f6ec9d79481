package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openclass/openclass-api/internal/models"
	appErrors "github.com/openclass/openclass-api/pkg/errors"
	"github.com/openclass/openclass-api/pkg/response"
)

const claimsContextKey = "auth_claims"

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// Authenticate extracts and verifies the bearer token, storing claims in
// the request context.
func Authenticate(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(claimsContextKey, *claims)
		c.Next()
	}
}

// ClaimsFromContext returns the authenticated claims, if present.
func ClaimsFromContext(c *gin.Context) (models.JWTClaims, bool) {
	value, ok := c.Get(claimsContextKey)
	if !ok {
		return models.JWTClaims{}, false
	}
	claims, ok := value.(models.JWTClaims)
	return claims, ok
}
