package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
)

// Session resolves the caller's booking session and exposes it, along with
// the profile role used by RBAC. It must run after Auth.
func Session(resolver ports.SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := c.Get("user_id").(string)
			if userID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}

			raw := domain.RawIdentity{ID: userID}
			raw.Email, _ = c.Get("email").(string)
			raw.DisplayName, _ = c.Get("name").(string)
			raw.PhotoURL, _ = c.Get("picture").(string)
			raw.Provider, _ = c.Get("provider").(string)

			session, err := resolver.Resolve(c.Request().Context(), raw)
			if err != nil {
				return err
			}

			role := domain.RolePatient
			if id := session.Snapshot().Identity; id != nil && id.Role != "" {
				role = id.Role
			}
			c.Set("session", session)
			c.Set("role", role)

			return next(c)
		}
	}
}
