package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/habberrih/manara/internal/middleware"
	"github.com/habberrih/manara/internal/model"
	"github.com/habberrih/manara/internal/service"
	"github.com/habberrih/manara/pkg/logger"
	"github.com/habberrih/manara/prometheus"
)

// MembershipHandler serves invitation and member management routes.
type MembershipHandler struct {
	members *service.MembershipService
}

func NewMembershipHandler(members *service.MembershipService) *MembershipHandler {
	return &MembershipHandler{members: members}
}

func (h *MembershipHandler) Invite(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordMembershipOperation("invite")

	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse invite request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Role == "" {
		req.Role = string(model.RoleMember)
	}

	m, err := h.members.Invite(c.Request().Context(),
		middleware.CurrentOrgID(c), middleware.CurrentUserID(c),
		req.Email, model.OrgRole(req.Role))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"membership": m})
}

// Accept runs outside the member guard: a pending invitee is by definition
// not yet an accepted member.
func (h *MembershipHandler) Accept(c echo.Context) error {
	prometheus.RecordMembershipOperation("accept")

	orgID, err := pathOrgID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid organization id"})
	}

	m, acceptErr := h.members.Accept(c.Request().Context(), middleware.CurrentUserID(c), orgID)
	if acceptErr != nil {
		return respondError(c, acceptErr)
	}
	return c.JSON(http.StatusOK, echo.Map{"membership": m})
}

func (h *MembershipHandler) UpdateRole(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordMembershipOperation("update_role")

	targetID, err := pathUserID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse role update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	m, updateErr := h.members.UpdateRole(c.Request().Context(),
		middleware.CurrentOrgID(c), targetID, model.OrgRole(req.Role))
	if updateErr != nil {
		return respondError(c, updateErr)
	}
	return c.JSON(http.StatusOK, echo.Map{"membership": m})
}

func (h *MembershipHandler) Remove(c echo.Context) error {
	prometheus.RecordMembershipOperation("remove")

	targetID, err := pathUserID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	if err := h.members.Remove(c.Request().Context(), middleware.CurrentOrgID(c), targetID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "member removed"})
}

func (h *MembershipHandler) List(c echo.Context) error {
	prometheus.RecordMembershipOperation("list")

	members, err := h.members.List(c.Request().Context(), middleware.CurrentOrgID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"members": members})
}

func pathOrgID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("organization_id"), 10, 64)
	return uint(id), err
}

func pathUserID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	return uint(id), err
}
