package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	AccountIDKey contextKey = "account_id"
	RoleKey      contextKey = "role"
)

// Middleware validates the bearer token on incoming requests and places the
// account id and role on the request context. All verification failures are
// reported uniformly as 401 to the caller.
func Middleware(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			accountID, role, err := issuer.Verify(parts[1])
			if err != nil {
				// Keep the precise failure for logs but not for the caller.
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token").SetInternal(err)
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, AccountIDKey, accountID)
			ctx = context.WithValue(ctx, RoleKey, role)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequireRole returns middleware that rejects requests whose token role is
// not in the allowed set. It must run after Middleware.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Request().Context().Value(RoleKey).(string)
			if !allowed[role] {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}
			return next(c)
		}
	}
}

// AccountIDFromContext returns the authenticated account id, or uuid.Nil
// when the request was not authenticated.
func AccountIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(AccountIDKey).(uuid.UUID)
	return id
}

// RoleFromContext returns the authenticated role, or an empty string.
func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(RoleKey).(string)
	return role
}
