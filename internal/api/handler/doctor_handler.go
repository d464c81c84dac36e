package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docbook/booking-system/internal/core/ports"
)

type DoctorHandler struct {
	service ports.DoctorService
}

func NewDoctorHandler(service ports.DoctorService) *DoctorHandler {
	return &DoctorHandler{service: service}
}

// List handles GET /v1/doctors.
//
// @Summary      List doctors
// @Tags         doctors
// @Produce      json
// @Security     BearerAuth
// @Param        speciality  query     string  false  "Filter by speciality"
// @Success      200         {object}  listDoctorsResponse
// @Failure      503         {object}  errorResponse
// @Router       /v1/doctors [get]
func (h *DoctorHandler) List(c echo.Context) error {
	doctors, err := h.service.List(c.Request().Context(), c.QueryParam("speciality"))
	if err != nil {
		return err
	}

	items := make([]doctorResponse, 0, len(doctors))
	for _, d := range doctors {
		items = append(items, toDoctorResponse(d))
	}
	return c.JSON(http.StatusOK, listDoctorsResponse{Items: items})
}

// Get handles GET /v1/doctors/:id.
//
// @Summary      Get a doctor
// @Tags         doctors
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Doctor ID"
// @Success      200  {object}  doctorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/doctors/{id} [get]
func (h *DoctorHandler) Get(c echo.Context) error {
	d, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDoctorResponse(*d))
}

// Create handles POST /v1/doctors. Admin only.
//
// @Summary      Add a doctor to the catalogue
// @Tags         doctors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      doctorRequest  true  "Doctor"
// @Success      201   {object}  doctorResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /v1/doctors [post]
func (h *DoctorHandler) Create(c echo.Context) error {
	var req doctorRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	d, err := h.service.Add(c.Request().Context(), toDoctor(req))
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderLocation, "/v1/doctors/"+d.ID)
	return c.JSON(http.StatusCreated, toDoctorResponse(*d))
}
