package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// AppointmentStatus represents the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// validTransitions defines the allowed state machine transitions.
var validTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending: {StatusCancelled, StatusCompleted},
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

const DateLayout = "2006-01-02"

var timeLayouts = []string{"15:04", "3:04 PM", "03:04 PM", "3:04PM", "03:04PM", "3:04 pm", "3:04pm"}

// ParseDate parses an appointment date (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// ParseTime parses an appointment time in 24h or 12h notation, returning
// the offset from midnight.
func ParseTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
		}
	}
	return 0, fmt.Errorf("unrecognised time %q", s)
}

// TimeLayout is the stored form of an appointment time.
const TimeLayout = "15:04"

// CanonicalDate rewrites a date to DateLayout.
func CanonicalDate(s string) (string, error) {
	d, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return d.Format(DateLayout), nil
}

// CanonicalTime rewrites any accepted spelling of a time of day to
// TimeLayout, so "10:00 AM", "10:00am" and "10:00" name the same slot.
func CanonicalTime(s string) (string, error) {
	offset, err := ParseTime(s)
	if err != nil {
		return "", err
	}
	return time.Time{}.Add(offset).Format(TimeLayout), nil
}

// Slot is the unit of double-booking prevention.
type Slot struct {
	DoctorID string
	Date     string
	Time     string
}

// Key is a stable identifier for the slot, used for locking.
func (s Slot) Key() string {
	return s.DoctorID + "|" + s.Date + "|" + s.Time
}

// DoctorInfo is the doctor snapshot stored on an appointment.
type DoctorInfo struct {
	Name       string  `json:"name"`
	Speciality string  `json:"speciality,omitempty"`
	Degree     string  `json:"degree,omitempty"`
	Experience string  `json:"experience,omitempty"`
	Image      string  `json:"image,omitempty"`
	Fees       float64 `json:"fees,omitempty"`
	Address    string  `json:"address,omitempty"`
}

// PatientInfo is the patient snapshot stored on an appointment.
type PatientInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// BookingRequest is the appointment data supplied when booking.
type BookingRequest struct {
	Date        string
	Time        string
	DoctorInfo  DoctorInfo
	PatientInfo PatientInfo
}

// Validate checks the fields required to book a slot.
func (r BookingRequest) Validate(doctorID string) error {
	if strings.TrimSpace(doctorID) == "" {
		return InvalidInput("doctor id is required")
	}
	if strings.TrimSpace(r.Date) == "" {
		return InvalidInput("appointment date is required")
	}
	if strings.TrimSpace(r.Time) == "" {
		return InvalidInput("appointment time is required")
	}
	if _, err := ParseDate(r.Date); err != nil {
		return InvalidInput("appointment date must be YYYY-MM-DD")
	}
	if _, err := ParseTime(r.Time); err != nil {
		return InvalidInput("appointment time is not a valid time of day")
	}
	return nil
}

// Canonical validates r and returns it with date and time in their stored
// layouts.
func (r BookingRequest) Canonical(doctorID string) (BookingRequest, error) {
	if err := r.Validate(doctorID); err != nil {
		return BookingRequest{}, err
	}
	date, err := CanonicalDate(r.Date)
	if err != nil {
		return BookingRequest{}, InvalidInput("appointment date must be YYYY-MM-DD")
	}
	tm, err := CanonicalTime(r.Time)
	if err != nil {
		return BookingRequest{}, InvalidInput("appointment time is not a valid time of day")
	}
	r.Date, r.Time = date, tm
	return r, nil
}

// Appointment is the core aggregate. Only Status changes after creation.
type Appointment struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	DoctorID        string            `json:"doctor_id"`
	DoctorInfo      DoctorInfo        `json:"doctor_info"`
	AppointmentDate string            `json:"appointment_date"`
	AppointmentTime string            `json:"appointment_time"`
	PatientInfo     PatientInfo       `json:"patient_info"`
	Status          AppointmentStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Slot returns the (doctor, date, time) triple the appointment occupies.
func (a Appointment) Slot() Slot {
	return Slot{DoctorID: a.DoctorID, Date: a.AppointmentDate, Time: a.AppointmentTime}
}

// Occupies reports whether the appointment holds its slot.
func (a Appointment) Occupies() bool {
	return a.Status != StatusCancelled
}

// ScheduledAt combines date and time. Unparsable values yield the zero time.
func (a Appointment) ScheduledAt() time.Time {
	d, err := ParseDate(a.AppointmentDate)
	if err != nil {
		return time.Time{}
	}
	offset, err := ParseTime(a.AppointmentTime)
	if err != nil {
		return d
	}
	return d.Add(offset)
}

// SortNewestFirst orders appointments by scheduled date+time, newest first.
// Ties fall back to creation time.
func SortNewestFirst(list []Appointment) {
	sort.SliceStable(list, func(i, j int) bool {
		ti, tj := list[i].ScheduledAt(), list[j].ScheduledAt()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

// Fields returns the directory representation of the appointment.
func (a Appointment) Fields() map[string]any {
	return map[string]any{
		"userId":   a.UserID,
		"doctorId": a.DoctorID,
		"doctorInfo": map[string]any{
			"name":       a.DoctorInfo.Name,
			"speciality": a.DoctorInfo.Speciality,
			"degree":     a.DoctorInfo.Degree,
			"experience": a.DoctorInfo.Experience,
			"image":      a.DoctorInfo.Image,
			"fees":       a.DoctorInfo.Fees,
			"address":    a.DoctorInfo.Address,
		},
		"appointmentDate": a.AppointmentDate,
		"appointmentTime": a.AppointmentTime,
		"patientInfo": map[string]any{
			"name":  a.PatientInfo.Name,
			"email": a.PatientInfo.Email,
			"phone": a.PatientInfo.Phone,
			"notes": a.PatientInfo.Notes,
		},
		"status":    string(a.Status),
		"createdAt": a.CreatedAt,
	}
}

// AppointmentFromFields decodes a directory document into an Appointment.
func AppointmentFromFields(id string, fields map[string]any) (Appointment, error) {
	a := Appointment{
		ID:              id,
		UserID:          stringField(fields, "userId"),
		DoctorID:        stringField(fields, "doctorId"),
		AppointmentDate: stringField(fields, "appointmentDate"),
		AppointmentTime: stringField(fields, "appointmentTime"),
		Status:          AppointmentStatus(stringField(fields, "status")),
		CreatedAt:       timeField(fields, "createdAt"),
	}
	if a.UserID == "" || a.DoctorID == "" {
		return Appointment{}, fmt.Errorf("appointment %s: missing owner or doctor", id)
	}
	if !a.Status.Valid() {
		return Appointment{}, fmt.Errorf("appointment %s: unknown status %q", id, a.Status)
	}
	if d := mapField(fields, "doctorInfo"); d != nil {
		a.DoctorInfo = DoctorInfo{
			Name:       stringField(d, "name"),
			Speciality: stringField(d, "speciality"),
			Degree:     stringField(d, "degree"),
			Experience: stringField(d, "experience"),
			Image:      stringField(d, "image"),
			Fees:       floatField(d, "fees"),
			Address:    stringField(d, "address"),
		}
	}
	if p := mapField(fields, "patientInfo"); p != nil {
		a.PatientInfo = PatientInfo{
			Name:  stringField(p, "name"),
			Email: stringField(p, "email"),
			Phone: stringField(p, "phone"),
			Notes: stringField(p, "notes"),
		}
	}
	return a, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func floatField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func timeField(m map[string]any, key string) time.Time {
	switch v := m[key].(type) {
	case time.Time:
		return v.UTC()
	case *time.Time:
		if v != nil {
			return v.UTC()
		}
	}
	return time.Time{}
}

func mapField(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}
