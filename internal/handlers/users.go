package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ucfagri/sambot/internal/auth"
	"github.com/ucfagri/sambot/internal/entitlement"
	"github.com/ucfagri/sambot/internal/users"
)

// UsersHandler exposes farmer profiles to the admin dashboard.
type UsersHandler struct {
	service     *users.Service
	entitlement *entitlement.Service
	logger      *slog.Logger
}

type listUsersResponse struct {
	Items []userView `json:"items"`
	Total int        `json:"total"`
}

type userView struct {
	users.User
	PremiumActive bool `json:"premium_active"`
}

func NewUsersHandler(log *slog.Logger, service *users.Service, ent *entitlement.Service) *UsersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UsersHandler{
		service:     service,
		entitlement: ent,
		logger:      log.With(slog.String("handler", "users")),
	}
}

func (h *UsersHandler) Register(e *echo.Echo) {
	userGroup := e.Group("/users")
	userGroup.GET("", h.ListUsers)
	userGroup.GET("/:id", h.GetUser)
	userGroup.POST("/:id/premium", h.GrantPremium)
}

// ListUsers returns every profile, optionally filtered to premium holders.
func (h *UsersHandler) ListUsers(c echo.Context) error {
	premiumOnly := c.QueryParam("premium") == "true"
	var items []userView
	for _, u := range h.service.All() {
		active := h.entitlement.IsActive(u)
		if premiumOnly && !active {
			continue
		}
		items = append(items, userView{User: u, PremiumActive: active})
	}
	return c.JSON(http.StatusOK, listUsersResponse{Items: items, Total: len(items)})
}

func (h *UsersHandler) GetUser(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user id is required")
	}
	u, ok := h.service.Get(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, userView{User: u, PremiumActive: h.entitlement.IsActive(u)})
}

// GrantPremium applies a manual premium grant, for support escalations where
// a legitimate receipt failed automated verification.
func (h *UsersHandler) GrantPremium(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user id is required")
	}
	if _, ok := h.service.Get(id); !ok {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	grantedBy := "admin"
	if sub, err := auth.SubjectFromContext(c); err == nil {
		grantedBy = sub
	}
	u, err := h.entitlement.Grant(id, "manual:"+grantedBy)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.logger.Info("manual premium grant",
		slog.String("user_id", id),
		slog.String("granted_by", grantedBy),
	)
	return c.JSON(http.StatusOK, userView{User: u, PremiumActive: true})
}
