package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/docbook/booking-system/internal/core/ports"
)

// TokenVerifier checks a session token's signature and expiry.
type TokenVerifier interface {
	Parse(token string) (jwt.MapClaims, error)
}

// Auth validates the bearer token, rejects revoked ones and injects the
// caller's identity claims into context.
func Auth(verifier TokenVerifier, denylist ports.TokenDenylist, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := verifier.Parse(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			sub, _ := claims["sub"].(string)
			if sub == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			jti, _ := claims["jti"].(string)
			if denylist != nil && jti != "" {
				revoked, err := denylist.IsRevoked(c.Request().Context(), jti)
				if err != nil {
					// Fail open on denylist outages.
					log.Warn().Err(err).Str("user_id", sub).Msg("denylist lookup failed")
				} else if revoked {
					return echo.NewHTTPError(http.StatusUnauthorized, "token revoked")
				}
			}

			c.Set("user_id", sub)
			c.Set("email", claims["email"])
			c.Set("name", claims["name"])
			c.Set("picture", claims["picture"])
			c.Set("provider", claims["provider"])
			c.Set("token_id", jti)
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				c.Set("token_exp", exp.Time)
			} else {
				c.Set("token_exp", time.Time{})
			}

			return next(c)
		}
	}
}
