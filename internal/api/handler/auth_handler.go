package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docbook/booking-system/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a password account and signs it in.
//
// @Summary      Register with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      credentialsRequest  true  "Email and password"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}

	cred, err := h.authService.SignUpWithEmail(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toAuthResponse(cred))
}

// Login authenticates with email and password and returns a session token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      credentialsRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}

	cred, err := h.authService.SignInWithEmail(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toAuthResponse(cred))
}

// Google exchanges a Google ID token for a session token.
//
// @Summary      Sign in with Google
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      googleRequest  true  "Google ID token"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /auth/google [post]
func (h *AuthHandler) Google(c echo.Context) error {
	var req googleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	cred, err := h.authService.SignInWithGoogle(c.Request().Context(), req.IDToken)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toAuthResponse(cred))
}

// Logout revokes the presented token and ends the caller's session.
//
// @Summary      Logout
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	userID, tokenID, expiresAt, err := ctxClaims(c)
	if err != nil {
		return err
	}

	if err := h.authService.SignOut(c.Request().Context(), userID, tokenID, expiresAt); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
