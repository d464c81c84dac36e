package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
	"github.com/docbook/booking-system/internal/pkg/metrics"
)

// LifecycleService moves appointments of the store's identity through their
// status transitions.
type LifecycleService struct {
	store  *SessionStore
	remote remote
	logger zerolog.Logger
}

func NewLifecycleService(store *SessionStore, dir ports.RemoteDirectory, opts Options, logger zerolog.Logger) *LifecycleService {
	opts = opts.withDefaults()
	return &LifecycleService{store: store, remote: newRemote(dir, opts), logger: logger}
}

// Cancel marks an owned appointment as cancelled. Ownership is checked
// against the cached list, so an appointment the store has not loaded is
// NotFound. Only the status field is written. The cached entry is updated
// in place and stays in the list.
func (s *LifecycleService) Cancel(ctx context.Context, appointmentID string) (*domain.Appointment, error) {
	s.store.begin()

	appt, changed, err := s.cancel(ctx, appointmentID)
	if err != nil {
		return nil, s.store.finish(err)
	}
	if changed {
		s.store.replaceAppointment(*appt)
		metrics.AppointmentsCancelledTotal.Inc()
		s.logger.Info().Str("appointment_id", appt.ID).Str("user_id", appt.UserID).Msg("appointment cancelled")
	}
	return appt, s.store.finish(nil)
}

func (s *LifecycleService) cancel(ctx context.Context, appointmentID string) (*domain.Appointment, bool, error) {
	identity, ok := s.store.Identity()
	if !ok {
		return nil, false, domain.ErrUnauthenticated
	}

	appt, ok := s.store.Appointment(appointmentID)
	if !ok {
		return nil, false, domain.NewError(domain.KindNotFound, "appointment not found", nil)
	}
	if appt.UserID != identity.ID {
		return nil, false, domain.NewError(domain.KindForbidden, "appointment belongs to another user", nil)
	}

	if appt.Status == domain.StatusCancelled {
		return &appt, false, nil
	}
	if !appt.Status.CanTransitionTo(domain.StatusCancelled) {
		return nil, false, domain.NewError(domain.KindInvalidInput,
			fmt.Sprintf("a %s appointment cannot be cancelled", appt.Status),
			domain.ErrInvalidTransition)
	}

	fields := map[string]any{"status": string(domain.StatusCancelled)}
	if err := s.remote.set(ctx, ports.CollectionAppointments, appt.ID, fields, true); err != nil {
		return nil, false, classifyRemote("cancel appointment", err)
	}

	appt.Status = domain.StatusCancelled
	return &appt, true, nil
}
