package account

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes mounts the unauthenticated endpoints.
func (h *Handler) RegisterPublicRoutes(api *echo.Group) {
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
}

// RegisterProtectedRoutes mounts endpoints that require a valid session
// token; the group must already carry auth.Middleware.
func (h *Handler) RegisterProtectedRoutes(api *echo.Group) {
	api.GET("/auth/me", h.Me)
	api.GET("/accounts", h.List, auth.RequireRole(string(RoleAdmin), string(RoleReceptionist)))
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type registerResponse struct {
	Account Summary          `json:"account"`
	Profile *patient.Profile `json:"profile,omitempty"`
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	a, profile, err := h.svc.Register(c.Request().Context(), RegisterInput{
		Email:     req.Email,
		Secret:    req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      Role(req.Role),
	})
	if err != nil {
		var ve *ValidationError
		switch {
		case errors.As(err, &ve):
			return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
				"message": "validation failed",
				"fields":  ve.Fields,
			})
		case errors.Is(err, ErrDuplicateEmail):
			return echo.NewHTTPError(http.StatusConflict, "email already registered")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "registration failed").SetInternal(err)
		}
	}

	return c.JSON(http.StatusCreated, registerResponse{Account: a.Summary(), Profile: profile})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string  `json:"token"`
	Account Summary `json:"account"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	token, a, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed").SetInternal(err)
	}

	return c.JSON(http.StatusOK, loginResponse{Token: token, Account: a.Summary()})
}

func (h *Handler) Me(c echo.Context) error {
	id := auth.AccountIDFromContext(c.Request().Context())

	a, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		// Valid token for an account that no longer exists.
		return echo.NewHTTPError(http.StatusUnauthorized, "account no longer exists")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load account").SetInternal(err)
	}

	return c.JSON(http.StatusOK, a.Summary())
}

func (h *Handler) List(c echo.Context) error {
	params := pagination.FromContext(c)

	summaries, total, err := h.svc.List(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list accounts").SetInternal(err)
	}

	return c.JSON(http.StatusOK, pagination.NewResponse(summaries, total, params.Limit, params.Offset))
}
