package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/habberrih/manara/internal/middleware"
	"github.com/habberrih/manara/internal/service"
	"github.com/habberrih/manara/pkg/logger"
	"github.com/habberrih/manara/prometheus"
)

// OrganizationHandler serves tenant lifecycle routes. Create and List run
// outside any organization binding; the rest sit behind the member guard.
type OrganizationHandler struct {
	orgs *service.OrganizationService
}

func NewOrganizationHandler(orgs *service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs}
}

func (h *OrganizationHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOrganizationOperation("create")

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse organization create request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	org, err := h.orgs.Create(c.Request().Context(), middleware.CurrentUserID(c), req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"organization": org})
}

func (h *OrganizationHandler) List(c echo.Context) error {
	prometheus.RecordOrganizationOperation("list")

	orgs, err := h.orgs.ListForUser(c.Request().Context(), middleware.CurrentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"organizations": orgs})
}

func (h *OrganizationHandler) Get(c echo.Context) error {
	prometheus.RecordOrganizationOperation("get")

	org, err := h.orgs.Get(c.Request().Context(), middleware.CurrentOrgID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"organization": org})
}

func (h *OrganizationHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOrganizationOperation("update")

	var req struct {
		Name *string `json:"name,omitempty"`
		Plan *string `json:"plan,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse organization update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	org, err := h.orgs.Update(c.Request().Context(), middleware.CurrentOrgID(c), req.Name, req.Plan)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"organization": org})
}

func (h *OrganizationHandler) Delete(c echo.Context) error {
	prometheus.RecordOrganizationOperation("delete")

	if err := h.orgs.Delete(c.Request().Context(), middleware.CurrentOrgID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "organization deleted"})
}
