package patient

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole("admin", "doctor", "receptionist"))
	staff.GET("/patients/:account_id/profile", h.GetProfile)
}

func (h *Handler) GetProfile(c echo.Context) error {
	accountID, err := uuid.Parse(c.Param("account_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid account id")
	}

	profile, err := h.svc.GetByAccount(c.Request().Context(), accountID)
	if errors.Is(err, ErrProfileNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient profile not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load profile").SetInternal(err)
	}

	return c.JSON(http.StatusOK, profile)
}
