package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ucfagri/sambot/internal/auth"
)

const tokenTTL = 24 * time.Hour

// AuthHandler issues admin tokens for the dashboard API.
type AuthHandler struct {
	jwtSecret    string
	passwordHash string
	logger       *slog.Logger
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrorResponse is the error payload shape for all handlers.
type ErrorResponse struct {
	Message string `json:"message"`
}

func NewAuthHandler(log *slog.Logger, jwtSecret, passwordHash string) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{
		jwtSecret:    jwtSecret,
		passwordHash: passwordHash,
		logger:       log.With(slog.String("handler", "auth")),
	}
}

func (h *AuthHandler) Register(e *echo.Echo) {
	e.POST("/auth/login", h.Login)
}

// Login checks the admin password and returns a bearer token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = "admin"
	}
	if !auth.CheckPassword(h.passwordHash, req.Password) {
		h.logger.Warn("login rejected", slog.String("username", username))
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	token, expiresAt, err := auth.GenerateToken(username, h.jwtSecret, tokenTTL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}
