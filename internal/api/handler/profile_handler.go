package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type ProfileHandler struct{}

func NewProfileHandler() *ProfileHandler {
	return &ProfileHandler{}
}

// Me handles GET /v1/me.
//
// @Summary      Current user
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/me [get]
func (h *ProfileHandler) Me(c echo.Context) error {
	session, err := ctxSession(c)
	if err != nil {
		return err
	}
	snap := session.Snapshot()
	return c.JSON(http.StatusOK, meResponse{
		User:      toProfileResponse(snap.Identity),
		IsLoading: snap.IsLoading,
		LastError: snap.LastError,
	})
}

// Update handles PATCH /v1/me.
//
// @Summary      Update my profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to change"
// @Success      200   {object}  profileResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/me [patch]
func (h *ProfileHandler) Update(c echo.Context) error {
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	session, err := ctxSession(c)
	if err != nil {
		return err
	}

	id, err := session.UpdateProfile(c.Request().Context(), toProfileUpdate(req))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toProfileResponse(id))
}
