package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/habberrih/manara/internal/middleware"
	"github.com/habberrih/manara/internal/service"
	"github.com/habberrih/manara/pkg/logger"
	"github.com/habberrih/manara/prometheus"
)

// ApiKeyHandler serves tenant-scoped API key routes.
type ApiKeyHandler struct {
	keys *service.ApiKeyService
}

func NewApiKeyHandler(keys *service.ApiKeyService) *ApiKeyHandler {
	return &ApiKeyHandler{keys: keys}
}

func (h *ApiKeyHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordApiKeyOperation("create")

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse api key create request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	key, secret, err := h.keys.Create(c.Request().Context(), middleware.CurrentOrgID(c), req.Name)
	if err != nil {
		return respondError(c, err)
	}

	// The plain secret is shown once and cannot be recovered later.
	return c.JSON(http.StatusCreated, echo.Map{
		"api_key": key,
		"secret":  secret,
	})
}

func (h *ApiKeyHandler) List(c echo.Context) error {
	prometheus.RecordApiKeyOperation("list")

	keys, err := h.keys.List(c.Request().Context(), middleware.CurrentOrgID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"api_keys": keys})
}

func (h *ApiKeyHandler) Revoke(c echo.Context) error {
	prometheus.RecordApiKeyOperation("revoke")

	keyID, err := strconv.ParseUint(c.Param("key_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid key id"})
	}

	if err := h.keys.Revoke(c.Request().Context(), middleware.CurrentOrgID(c), uint(keyID)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "api key revoked"})
}
