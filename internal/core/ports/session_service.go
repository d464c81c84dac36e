package ports

import (
	"context"

	"github.com/docbook/booking-system/internal/core/domain"
)

// BookingSession is everything one signed-in user can do against the core.
type BookingSession interface {
	Snapshot() domain.Session
	RefreshAppointments(ctx context.Context) error
	UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.Identity, error)
	Book(ctx context.Context, doctorID string, req domain.BookingRequest) (*domain.Appointment, error)
	Cancel(ctx context.Context, appointmentID string) (*domain.Appointment, error)
}

// SessionResolver returns the live session of an authenticated caller,
// loading it when the process has not seen that user yet.
type SessionResolver interface {
	Resolve(ctx context.Context, raw domain.RawIdentity) (BookingSession, error)
}

// DoctorService exposes the doctor catalogue.
type DoctorService interface {
	List(ctx context.Context, speciality string) ([]domain.Doctor, error)
	Get(ctx context.Context, id string) (*domain.Doctor, error)
	Add(ctx context.Context, doctor domain.Doctor) (*domain.Doctor, error)
}
