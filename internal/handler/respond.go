// Package handler holds the HTTP boundary: request parsing, response
// shaping and the translation from application errors to status codes.
// Business rules live in the service layer.
package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/habberrih/manara/internal/apperr"
	"github.com/habberrih/manara/pkg/logger"
	"github.com/habberrih/manara/prometheus"
)

// respondError translates a service error into the HTTP answer. Unclassified
// errors become a generic 500 so internals never leak to clients.
func respondError(c echo.Context, err error) error {
	status := apperr.Status(err)
	if status >= 500 {
		logger.FromEcho(c).Error("request failed", zap.Error(err))
	}
	return c.JSON(status, echo.Map{"error": apperr.Message(err)})
}

// MetricsHandler exposes the Prometheus registry
func MetricsHandler(c echo.Context) error {
	h := prometheus.GetPrometheusHandler()
	h.ServeHTTP(c.Response(), c.Request())
	return nil
}
