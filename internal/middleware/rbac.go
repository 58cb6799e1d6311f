package middleware

import (
	"net/http"

	"saas-platform/internal/rbac"
	"saas-platform/pkg/database"
	"saas-platform/pkg/logger"
	"saas-platform/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequirePermission guards a route with an RBAC check: the
// authenticated user's role must grant the action on the subject.
func RequirePermission(action, subject string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			roleID, ok := c.Get("role_id").(uint)
			if !ok || roleID == 0 {
				log.Error("No authenticated role in context")
				prometheus.RecordAuthError("missing_role")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}

			allowed, err := rbac.Can(database.GetDB(), roleID, action, subject)
			if err != nil {
				log.Error("Permission lookup failed",
					zap.Uint("role_id", roleID),
					zap.String("action", action),
					zap.String("subject", subject),
					zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "permission check failed"})
			}

			if !allowed {
				log.Warn("Permission denied",
					zap.Uint("role_id", roleID),
					zap.String("action", action),
					zap.String("subject", subject))
				prometheus.RecordAuthError("permission_denied")
				return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permission"})
			}

			return next(c)
		}
	}
}
