package handler

import (
	"time"

	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
)

// --- Request → core input ---

func toBookingRequest(req bookAppointmentRequest, doctor domain.DoctorInfo, patient domain.PatientInfo) domain.BookingRequest {
	if req.DoctorInfo != nil {
		doctor = domain.DoctorInfo{
			Name:       req.DoctorInfo.Name,
			Speciality: req.DoctorInfo.Speciality,
			Degree:     req.DoctorInfo.Degree,
			Experience: req.DoctorInfo.Experience,
			Image:      req.DoctorInfo.Image,
			Fees:       req.DoctorInfo.Fees,
			Address:    req.DoctorInfo.Address,
		}
	}
	if p := req.PatientInfo; p != nil {
		if p.Name != "" {
			patient.Name = p.Name
		}
		if p.Email != "" {
			patient.Email = p.Email
		}
		if p.Phone != "" {
			patient.Phone = p.Phone
		}
		patient.Notes = p.Notes
	}
	return domain.BookingRequest{
		Date:        req.Date,
		Time:        req.Time,
		DoctorInfo:  doctor,
		PatientInfo: patient,
	}
}

// defaultPatient fills the patient snapshot from the signed-in profile.
func defaultPatient(id *domain.Identity) domain.PatientInfo {
	if id == nil {
		return domain.PatientInfo{}
	}
	return domain.PatientInfo{Name: id.PatientName(), Email: id.Email, Phone: id.Phone}
}

func toDoctor(req doctorRequest) domain.Doctor {
	available := true
	if req.Available != nil {
		available = *req.Available
	}
	return domain.Doctor{
		Name:       req.Name,
		Image:      req.Image,
		Speciality: req.Speciality,
		Degree:     req.Degree,
		Experience: req.Experience,
		About:      req.About,
		Fees:       req.Fees,
		Address:    req.Address,
		Available:  available,
	}
}

func toProfileUpdate(req updateProfileRequest) domain.ProfileUpdate {
	return domain.ProfileUpdate{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
		Phone:       req.Phone,
	}
}

// --- Core output → response ---

func toAuthResponse(cred *ports.Credential) authResponse {
	return authResponse{
		Token:     cred.Token,
		ExpiresAt: cred.ExpiresAt.UTC().Format(time.RFC3339),
		User: userResponse{
			ID:          cred.Identity.ID,
			Email:       cred.Identity.Email,
			DisplayName: cred.Identity.DisplayName,
			PhotoURL:    cred.Identity.PhotoURL,
			Provider:    cred.Identity.Provider,
		},
	}
}

func toProfileResponse(id *domain.Identity) *profileResponse {
	if id == nil {
		return nil
	}
	resp := &profileResponse{
		ID:          id.ID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		Role:        id.Role,
		PhotoURL:    id.PhotoURL,
		Phone:       id.Phone,
	}
	if !id.LastLogin.IsZero() {
		resp.LastLogin = id.LastLogin.UTC().Format(time.RFC3339)
	}
	return resp
}

func toDoctorResponse(d domain.Doctor) doctorResponse {
	return doctorResponse{
		ID:         d.ID,
		Name:       d.Name,
		Image:      d.Image,
		Speciality: d.Speciality,
		Degree:     d.Degree,
		Experience: d.Experience,
		About:      d.About,
		Fees:       d.Fees,
		Address:    d.Address,
		Available:  d.Available,
	}
}

func toAppointmentResponse(a domain.Appointment) appointmentResponse {
	links := appointmentLinks{Self: "/v1/appointments/" + a.ID}
	if a.Status.CanTransitionTo(domain.StatusCancelled) {
		links.Cancel = "/v1/appointments/" + a.ID + "/cancel"
	}
	return appointmentResponse{
		ID:       a.ID,
		DoctorID: a.DoctorID,
		DoctorInfo: doctorInfoResponse{
			Name:       a.DoctorInfo.Name,
			Speciality: a.DoctorInfo.Speciality,
			Degree:     a.DoctorInfo.Degree,
			Experience: a.DoctorInfo.Experience,
			Image:      a.DoctorInfo.Image,
			Fees:       a.DoctorInfo.Fees,
			Address:    a.DoctorInfo.Address,
		},
		AppointmentDate: a.AppointmentDate,
		AppointmentTime: a.AppointmentTime,
		PatientInfo: patientInfoResponse{
			Name:  a.PatientInfo.Name,
			Email: a.PatientInfo.Email,
			Phone: a.PatientInfo.Phone,
			Notes: a.PatientInfo.Notes,
		},
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
		Links:     links,
	}
}

func toListAppointmentsResponse(s domain.Session) listAppointmentsResponse {
	items := make([]appointmentResponse, 0, len(s.Appointments))
	for _, a := range s.Appointments {
		items = append(items, toAppointmentResponse(a))
	}
	return listAppointmentsResponse{Items: items, IsLoading: s.IsLoading, LastError: s.LastError}
}
