package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Auth ---

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Provider    string `json:"provider,omitempty"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	User      userResponse `json:"user"`
}

// --- Profile ---

type updateProfileRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,min=1,max=100"`
	PhotoURL    *string `json:"photo_url"    validate:"omitempty,url"`
	Phone       *string `json:"phone"        validate:"omitempty,max=32"`
}

type profileResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Phone       string `json:"phone,omitempty"`
	LastLogin   string `json:"last_login,omitempty"`
}

type meResponse struct {
	User      *profileResponse `json:"user"`
	IsLoading bool             `json:"is_loading"`
	LastError string           `json:"last_error,omitempty"`
}

// --- Doctors ---

type doctorRequest struct {
	Name       string  `json:"name"       validate:"required"`
	Image      string  `json:"image"      validate:"omitempty,url"`
	Speciality string  `json:"speciality" validate:"required"`
	Degree     string  `json:"degree"`
	Experience string  `json:"experience"`
	About      string  `json:"about"`
	Fees       float64 `json:"fees"       validate:"gte=0"`
	Address    string  `json:"address"`
	Available  *bool   `json:"available"`
}

type doctorResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Image      string  `json:"image,omitempty"`
	Speciality string  `json:"speciality"`
	Degree     string  `json:"degree,omitempty"`
	Experience string  `json:"experience,omitempty"`
	About      string  `json:"about,omitempty"`
	Fees       float64 `json:"fees"`
	Address    string  `json:"address,omitempty"`
	Available  bool    `json:"available"`
}

type listDoctorsResponse struct {
	Items []doctorResponse `json:"items"`
}

// --- Appointments ---

type doctorInfoRequest struct {
	Name       string  `json:"name"       validate:"required"`
	Speciality string  `json:"speciality"`
	Degree     string  `json:"degree"`
	Experience string  `json:"experience"`
	Image      string  `json:"image"`
	Fees       float64 `json:"fees"       validate:"gte=0"`
	Address    string  `json:"address"`
}

type patientInfoRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
	Notes string `json:"notes" validate:"max=1000"`
}

type bookAppointmentRequest struct {
	DoctorID    string              `json:"doctor_id"    validate:"required"`
	Date        string              `json:"date"         validate:"required,slotdate"`
	Time        string              `json:"time"         validate:"required,slottime"`
	DoctorInfo  *doctorInfoRequest  `json:"doctor_info"  validate:"omitempty"`
	PatientInfo *patientInfoRequest `json:"patient_info" validate:"omitempty"`
}

type doctorInfoResponse struct {
	Name       string  `json:"name"`
	Speciality string  `json:"speciality,omitempty"`
	Degree     string  `json:"degree,omitempty"`
	Experience string  `json:"experience,omitempty"`
	Image      string  `json:"image,omitempty"`
	Fees       float64 `json:"fees,omitempty"`
	Address    string  `json:"address,omitempty"`
}

type patientInfoResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Notes string `json:"notes,omitempty"`
}

type appointmentLinks struct {
	Self   string `json:"self"`
	Cancel string `json:"cancel,omitempty"`
}

type appointmentResponse struct {
	ID              string              `json:"id"`
	DoctorID        string              `json:"doctor_id"`
	DoctorInfo      doctorInfoResponse  `json:"doctor_info"`
	AppointmentDate string              `json:"appointment_date"`
	AppointmentTime string              `json:"appointment_time"`
	PatientInfo     patientInfoResponse `json:"patient_info"`
	Status          string              `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
	Links           appointmentLinks    `json:"_links"`
}

type listAppointmentsResponse struct {
	Items     []appointmentResponse `json:"items"`
	IsLoading bool                  `json:"is_loading"`
	LastError string                `json:"last_error,omitempty"`
}
