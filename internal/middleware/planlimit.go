package middleware

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/habberrih/manara/internal/apperr"
	"github.com/habberrih/manara/internal/authz"
	"github.com/habberrih/manara/pkg/logger"
	"github.com/habberrih/manara/prometheus"
)

// PlanLimitMiddleware refuses the request when the bound organization has
// exhausted its plan quota for the feature. It must sit after
// OrgMemberMiddleware, which resolves the organization.
func PlanLimitMiddleware(checker *authz.PlanLimitChecker, feature authz.Feature, message string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			orgID := CurrentOrgID(c)
			if err := checker.Check(c.Request().Context(), orgID, feature, message); err != nil {
				logger.FromEcho(c).Warn("plan limit check refused request",
					zap.Uint("organization_id", orgID),
					zap.String("feature", string(feature)),
					zap.Error(err))
				prometheus.RecordGuardDenial("plan_limit")
				return c.JSON(apperr.Status(err), echo.Map{"error": apperr.Message(err)})
			}
			return next(c)
		}
	}
}
