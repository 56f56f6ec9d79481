package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/openclass/openclass-api/internal/models"
	appErrors "github.com/openclass/openclass-api/pkg/errors"
	"github.com/openclass/openclass-api/pkg/response"
)

// GateGuard checks whether a principal currently holds a validated gate
// window.
type GateGuard interface {
	Require(ctx context.Context, principalID string) error
}

// RequireGate blocks gated analytics routes until the principal has
// validated an access key. When gatedRoles are given only those roles
// are checked; everyone else passes through, since the gate fronts the
// admin view alone. Lockouts propagate as-is so clients can show the
// retry countdown.
func RequireGate(gate GateGuard, gatedRoles ...models.UserRole) gin.HandlerFunc {
	gated := make(map[models.UserRole]struct{}, len(gatedRoles))
	for _, role := range gatedRoles {
		gated[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if len(gated) > 0 {
			if _, ok := gated[claims.Role]; !ok {
				c.Next()
				return
			}
		}
		if err := gate.Require(c.Request.Context(), claims.UserID); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
