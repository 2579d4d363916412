package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/habberrih/manara/internal/apperr"
	"github.com/habberrih/manara/internal/authz"
	"github.com/habberrih/manara/internal/model"
	"github.com/habberrih/manara/internal/tenant"
	"github.com/habberrih/manara/pkg/logger"
	"github.com/habberrih/manara/prometheus"
)

const membershipContextKey = "membership"

// OrgHeaderName carries the target organization when it is not part of the
// route path.
const OrgHeaderName = "X-Organization-ID"

// OrgMemberMiddleware guards tenant-scoped routes: it resolves the target
// organization from the path or header, verifies the caller's accepted
// membership (and role, when required), then binds the organization to the
// request context so every query below is tenant-scoped automatically. The
// membership lookup itself runs before that binding.
func OrgMemberMiddleware(checker *authz.MemberChecker, roles ...model.OrgRole) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)
			orgID := resolveOrgID(c)

			m, err := checker.Check(c.Request().Context(), CurrentUserID(c), orgID, roles...)
			if err != nil {
				log.Warn("organization access denied",
					zap.Uint("user_id", CurrentUserID(c)),
					zap.Uint("organization_id", orgID),
					zap.Error(err))
				prometheus.RecordGuardDenial(denialReason(err))
				return c.JSON(apperr.Status(err), echo.Map{"error": apperr.Message(err)})
			}

			c.Set(membershipContextKey, m)
			ctx := tenant.WithOrgID(c.Request().Context(), orgID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// CurrentMembership returns the membership resolved by OrgMemberMiddleware.
func CurrentMembership(c echo.Context) *model.Membership {
	m, _ := c.Get(membershipContextKey).(*model.Membership)
	return m
}

// CurrentOrgID returns the organization bound to this request, zero when the
// route is not organization-scoped.
func CurrentOrgID(c echo.Context) uint {
	if m := CurrentMembership(c); m != nil {
		return m.OrganizationID
	}
	return 0
}

func resolveOrgID(c echo.Context) uint {
	raw := c.Param("organization_id")
	if raw == "" {
		raw = c.Request().Header.Get(OrgHeaderName)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

func denialReason(err error) string {
	switch apperr.CodeOf(err) {
	case apperr.CodeAuthenticationRequired:
		return "unauthenticated"
	case apperr.CodeBadRequest:
		return "missing_organization"
	case apperr.CodeForbidden:
		return "not_a_member"
	default:
		return "error"
	}
}
