package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
)

// AppointmentHandler exposes the caller's booking session.
type AppointmentHandler struct {
	doctors ports.DoctorService
}

func NewAppointmentHandler(doctors ports.DoctorService) *AppointmentHandler {
	return &AppointmentHandler{doctors: doctors}
}

// List handles GET /v1/appointments.
//
// @Summary      List my appointments
// @Description  Returns the cached appointment list, newest first.
// @Tags         appointments
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listAppointmentsResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/appointments [get]
func (h *AppointmentHandler) List(c echo.Context) error {
	session, err := ctxSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListAppointmentsResponse(session.Snapshot()))
}

// Refresh handles POST /v1/appointments/refresh.
//
// @Summary      Reload my appointments from the directory
// @Tags         appointments
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listAppointmentsResponse
// @Failure      401  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /v1/appointments/refresh [post]
func (h *AppointmentHandler) Refresh(c echo.Context) error {
	session, err := ctxSession(c)
	if err != nil {
		return err
	}
	if err := session.RefreshAppointments(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListAppointmentsResponse(session.Snapshot()))
}

// Book handles POST /v1/appointments.
//
// When doctor_info is omitted the doctor snapshot is taken from the
// catalogue. patient_info defaults to the caller's profile.
//
// @Summary      Book an appointment
// @Tags         appointments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      bookAppointmentRequest  true  "Slot and snapshots"
// @Success      201   {object}  appointmentResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/appointments [post]
func (h *AppointmentHandler) Book(c echo.Context) error {
	var req bookAppointmentRequest
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
	ctx := c.Request().Context()

	var doctor domain.DoctorInfo
	if req.DoctorInfo == nil {
		d, err := h.doctors.Get(ctx, req.DoctorID)
		if err != nil {
			return err
		}
		doctor = d.Snapshot()
	}

	appt, err := session.Book(ctx, req.DoctorID, toBookingRequest(req, doctor, defaultPatient(session.Snapshot().Identity)))
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderLocation, "/v1/appointments/"+appt.ID)
	return c.JSON(http.StatusCreated, toAppointmentResponse(*appt))
}

// Cancel handles POST /v1/appointments/:id/cancel.
//
// @Summary      Cancel one of my appointments
// @Tags         appointments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Appointment ID"
// @Success      200  {object}  appointmentResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /v1/appointments/{id}/cancel [post]
func (h *AppointmentHandler) Cancel(c echo.Context) error {
	session, err := ctxSession(c)
	if err != nil {
		return err
	}

	appt, err := session.Cancel(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toAppointmentResponse(*appt))
}
