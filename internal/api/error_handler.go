package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/docbook/booking-system/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps classified core errors to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	var de *domain.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case domain.KindUnauthenticated:
			return http.StatusUnauthorized, domain.Message(err)
		case domain.KindForbidden:
			return http.StatusForbidden, domain.Message(err)
		case domain.KindNotFound:
			return http.StatusNotFound, domain.Message(err)
		case domain.KindSlotConflict:
			return http.StatusConflict, domain.Message(err)
		case domain.KindInvalidInput:
			if errors.Is(err, domain.ErrInvalidTransition) {
				return http.StatusUnprocessableEntity, domain.Message(err)
			}
			return http.StatusBadRequest, domain.Message(err)
		case domain.KindRemoteUnavailable:
			log.Warn().Err(err).Str("path", c.Path()).Msg("directory unavailable")
			return http.StatusServiceUnavailable, domain.ErrRemoteUnavailable.Msg
		case domain.KindProviderRejected:
			return reasonStatus(de.Reason), de.Reason.Message()
		}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

func reasonStatus(r domain.ProviderReason) int {
	switch r {
	case domain.ReasonInvalidEmail, domain.ReasonWeakPassword:
		return http.StatusBadRequest
	case domain.ReasonUserNotFound:
		return http.StatusNotFound
	case domain.ReasonUserDisabled:
		return http.StatusForbidden
	case domain.ReasonTooManyRequests:
		return http.StatusTooManyRequests
	case domain.ReasonAlreadyInUse:
		return http.StatusConflict
	case domain.ReasonNetworkError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnauthorized
	}
}
