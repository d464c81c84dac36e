package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/docbook/booking-system/internal/core/ports"
)

// ctxClaims extracts the token claims injected by the Auth middleware.
// A missing user_id means the middleware did not run.
func ctxClaims(c echo.Context) (userID, tokenID string, expiresAt time.Time, err error) {
	userID, _ = c.Get("user_id").(string)
	if userID == "" {
		return "", "", time.Time{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	tokenID, _ = c.Get("token_id").(string)
	expiresAt, _ = c.Get("token_exp").(time.Time)
	return userID, tokenID, expiresAt, nil
}

// ctxSession returns the booking session resolved by the Session middleware.
func ctxSession(c echo.Context) (ports.BookingSession, error) {
	session, ok := c.Get("session").(ports.BookingSession)
	if !ok || session == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}
	return session, nil
}
