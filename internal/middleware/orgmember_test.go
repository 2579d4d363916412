package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/habberrih/manara/internal/authz"
	"github.com/habberrih/manara/internal/model"
	"github.com/habberrih/manara/internal/query"
	"github.com/habberrih/manara/internal/store"
	"github.com/habberrih/manara/internal/store/storetest"
	"github.com/habberrih/manara/internal/tenant"
	"github.com/habberrih/manara/pkg/jwtutil"
)

func guardFixture(t *testing.T) (*echo.Echo, *authz.MemberChecker, *storetest.Executor) {
	t.Helper()
	exec := storetest.NewExecutor()
	client := store.NewClientWithHandler(exec.Exec, store.DefaultConfig(), zap.NewNop())
	return echo.New(), authz.NewMemberChecker(client), exec
}

func asUser(userID uint) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if userID != 0 {
				c.Set("user", &jwtutil.UserClaims{UserID: userID})
			}
			return next(c)
		}
	}
}

// pingHandler reports whether the tenant binding reached the handler.
func pingHandler(c echo.Context) error {
	orgID, ok := tenant.OrgID(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "no tenant binding"})
	}
	m := CurrentMembership(c)
	return c.JSON(http.StatusOK, echo.Map{
		"organization_id": orgID,
		"role":            m.Role,
	})
}

func doRequest(e *echo.Echo, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGuardAllowsAcceptedMemberAndBindsTenant(t *testing.T) {
	e, checker, exec := guardFixture(t)
	exec.Seed("membership", query.Record{
		"user_id": uint(1), "organization_id": uint(7),
		"role": "MEMBER", "status": "ACCEPTED",
	})
	e.GET("/orgs/:organization_id/ping", pingHandler, asUser(1), OrgMemberMiddleware(checker))

	rec := doRequest(e, http.MethodGet, "/orgs/7/ping", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"organization_id":7`)
	assert.Contains(t, rec.Body.String(), `"role":"MEMBER"`)
}

func TestGuardDeniesNonMember(t *testing.T) {
	e, checker, _ := guardFixture(t)
	e.GET("/orgs/:organization_id/ping", pingHandler, asUser(1), OrgMemberMiddleware(checker))

	rec := doRequest(e, http.MethodGet, "/orgs/7/ping", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardDeniesPendingInvitation(t *testing.T) {
	e, checker, exec := guardFixture(t)
	exec.Seed("membership", query.Record{
		"user_id": uint(1), "organization_id": uint(7),
		"role": "MEMBER", "status": "PENDING",
	})
	e.GET("/orgs/:organization_id/ping", pingHandler, asUser(1), OrgMemberMiddleware(checker))

	rec := doRequest(e, http.MethodGet, "/orgs/7/ping", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "pending invitation")
}

func TestGuardDeniesInsufficientRole(t *testing.T) {
	e, checker, exec := guardFixture(t)
	exec.Seed("membership", query.Record{
		"user_id": uint(1), "organization_id": uint(7),
		"role": "MEMBER", "status": "ACCEPTED",
	})
	e.GET("/orgs/:organization_id/ping", pingHandler,
		asUser(1), OrgMemberMiddleware(checker, model.RoleAdmin, model.RoleOwner))

	rec := doRequest(e, http.MethodGet, "/orgs/7/ping", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardRequiresAuthentication(t *testing.T) {
	e, checker, _ := guardFixture(t)
	e.GET("/orgs/:organization_id/ping", pingHandler, asUser(0), OrgMemberMiddleware(checker))

	rec := doRequest(e, http.MethodGet, "/orgs/7/ping", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardResolvesOrgFromHeader(t *testing.T) {
	e, checker, exec := guardFixture(t)
	exec.Seed("membership", query.Record{
		"user_id": uint(1), "organization_id": uint(7),
		"role": "ADMIN", "status": "ACCEPTED",
	})
	e.GET("/ping", pingHandler, asUser(1), OrgMemberMiddleware(checker))

	rec := doRequest(e, http.MethodGet, "/ping", map[string]string{OrgHeaderName: "7"})
	require.Equal(t, http.StatusOK, rec.Code)

	// No path segment, no header: the target organization cannot be resolved.
	rec = doRequest(e, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
