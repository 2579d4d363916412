package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/habberrih/manara/internal/middleware"
	"github.com/habberrih/manara/internal/service"
	"github.com/habberrih/manara/pkg/jwtutil"
	"github.com/habberrih/manara/pkg/logger"
	"github.com/habberrih/manara/prometheus"
)

// AuthHandler serves registration, login and the refresh token flow.
type AuthHandler struct {
	users *service.UserService
	jwt   *jwtutil.JWTUtil
}

func NewAuthHandler(users *service.UserService, jwt *jwtutil.JWTUtil) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt}
}

func (h *AuthHandler) Register(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		Email    string  `json:"email"`
		Password string  `json:"password"`
		Name     *string `json:"name,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	user, err := h.users.Register(c.Request().Context(), req.Email, req.Password, req.Name)
	if err != nil {
		prometheus.RecordAuthError("registration_failed")
		return respondError(c, err)
	}

	log.Info("User registered", zap.String("email", user.String("email")))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	ctx := c.Request().Context()
	user, err := h.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		log.Warn("Login rejected", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_credentials")
		return respondError(c, err)
	}

	access, refresh, err := h.issueTokens(c, user.String("email"), user.Uint("id"), user["is_super_admin"] == true)
	if err != nil {
		prometheus.RecordAuthError("token_generation_failed")
		return respondError(c, err)
	}

	log.Info("User logged in", zap.String("email", user.String("email")))
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"user":          user,
	})
}

// Refresh rotates the token pair: the presented refresh token must match the
// stored hash, and a new hash replaces it so the old token dies here.
func (h *AuthHandler) Refresh(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	claims, err := h.jwt.ValidateToken(req.RefreshToken, jwtutil.KindRefresh)
	if err != nil {
		log.Warn("Invalid refresh token", zap.Error(err))
		prometheus.RecordAuthError("invalid_refresh_token")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired refresh token"})
	}

	ctx := c.Request().Context()
	user, err := h.users.VerifyRefreshToken(ctx, claims.UserID, req.RefreshToken)
	if err != nil {
		prometheus.RecordAuthError("refresh_token_mismatch")
		return respondError(c, err)
	}

	access, refresh, err := h.issueTokens(c, user.String("email"), user.Uint("id"), false)
	if err != nil {
		prometheus.RecordAuthError("token_generation_failed")
		return respondError(c, err)
	}

	log.Info("Token refreshed", zap.Uint("user_id", user.Uint("id")))
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  access,
		"refresh_token": refresh,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	log := logger.FromEcho(c)

	userID := middleware.CurrentUserID(c)
	if err := h.users.Logout(c.Request().Context(), userID); err != nil {
		return respondError(c, err)
	}

	prometheus.DecreaseActiveTokens()
	log.Info("User logged out", zap.Uint("user_id", userID))
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHandler) issueTokens(c echo.Context, email string, userID uint, isSuperAdmin bool) (string, string, error) {
	access, err := h.jwt.GenerateAccessToken(email, userID, isSuperAdmin)
	if err != nil {
		return "", "", err
	}
	refresh, err := h.jwt.GenerateRefreshToken(email, userID)
	if err != nil {
		return "", "", err
	}
	if err := h.users.StoreRefreshToken(c.Request().Context(), userID, refresh); err != nil {
		return "", "", err
	}

	prometheus.IncreaseActiveTokens()
	return access, refresh, nil
}
