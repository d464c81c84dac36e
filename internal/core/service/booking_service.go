package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
	"github.com/docbook/booking-system/internal/pkg/metrics"
)

// BookingService creates appointments for the identity held by its store.
//
// The conflict check and the insert are serialised per slot by locker and,
// when the directory implements ports.Transactor, run in one transaction.
// Without either, two processes booking the same slot at the same moment
// can both succeed.
type BookingService struct {
	store  *SessionStore
	remote remote
	locker ports.SlotLocker
	tx     ports.Transactor
	now    func() time.Time
	logger zerolog.Logger
}

// NewBookingService wires a booking service. locker and tx may be nil.
func NewBookingService(store *SessionStore, dir ports.RemoteDirectory, locker ports.SlotLocker, tx ports.Transactor, opts Options, logger zerolog.Logger) *BookingService {
	opts = opts.withDefaults()
	if locker == nil {
		locker = NewLocalSlotLocker()
	}
	return &BookingService{
		store:  store,
		remote: newRemote(dir, opts),
		locker: locker,
		tx:     tx,
		now:    opts.Now,
		logger: logger,
	}
}

// Book persists a pending appointment for doctorID at req's date and time.
// It fails with SlotConflict, without writing, when a non-cancelled
// appointment already holds the slot.
func (s *BookingService) Book(ctx context.Context, doctorID string, req domain.BookingRequest) (*domain.Appointment, error) {
	s.store.begin()

	appt, err := s.book(ctx, doctorID, req)
	if err != nil {
		metrics.BookingRejectedTotal.WithLabelValues(string(domain.KindOf(err))).Inc()
		return nil, s.store.finish(err)
	}

	s.store.appendAppointment(*appt)
	metrics.AppointmentsBookedTotal.WithLabelValues(appt.DoctorInfo.Speciality).Inc()
	s.logger.Info().
		Str("appointment_id", appt.ID).
		Str("user_id", appt.UserID).
		Str("doctor_id", appt.DoctorID).
		Str("date", appt.AppointmentDate).
		Str("time", appt.AppointmentTime).
		Msg("appointment booked")

	return appt, s.store.finish(nil)
}

func (s *BookingService) book(ctx context.Context, doctorID string, req domain.BookingRequest) (*domain.Appointment, error) {
	identity, ok := s.store.Identity()
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	req, err := req.Canonical(doctorID)
	if err != nil {
		return nil, err
	}

	appt := domain.Appointment{
		UserID:          identity.ID,
		DoctorID:        strings.TrimSpace(doctorID),
		DoctorInfo:      req.DoctorInfo,
		AppointmentDate: req.Date,
		AppointmentTime: req.Time,
		PatientInfo:     req.PatientInfo,
		Status:          domain.StatusPending,
	}

	release, err := s.locker.Acquire(ctx, appt.Slot())
	if err != nil {
		if errors.Is(err, ports.ErrSlotBusy) {
			return nil, domain.NewError(domain.KindSlotConflict, domain.ErrSlotConflict.Msg, err)
		}
		return nil, domain.Unavailable("lock slot", err)
	}
	defer release()

	create := func(ctx context.Context) error {
		if err := s.checkSlot(ctx, appt.Slot()); err != nil {
			return err
		}
		// Mongo keeps milliseconds; truncating keeps refetched copies equal.
		appt.CreatedAt = s.now().UTC().Truncate(time.Millisecond)

		id, err := s.remote.add(ctx, ports.CollectionAppointments, appt.Fields())
		if err != nil {
			if errors.Is(err, ports.ErrDocumentConflict) {
				return domain.NewError(domain.KindSlotConflict, domain.ErrSlotConflict.Msg, err)
			}
			return classifyRemote("create appointment", err)
		}
		appt.ID = id
		return nil
	}

	if s.tx != nil {
		err = s.tx.RunInTransaction(ctx, create)
		if err != nil && domain.KindOf(err) == domain.KindUnknown {
			err = classifyRemote("create appointment", err)
		}
	} else {
		err = create(ctx)
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// checkSlot fails with SlotConflict when a non-cancelled appointment
// already occupies slot.
func (s *BookingService) checkSlot(ctx context.Context, slot domain.Slot) error {
	docs, err := s.remote.query(ctx, ports.CollectionAppointments,
		ports.Eq("doctorId", slot.DoctorID),
		ports.Eq("appointmentDate", slot.Date),
		ports.Eq("appointmentTime", slot.Time),
	)
	if err != nil {
		return classifyRemote("check slot", err)
	}
	for _, doc := range docs {
		if status, _ := doc.Fields["status"].(string); status != string(domain.StatusCancelled) {
			s.logger.Debug().Str("slot", slot.Key()).Str("appointment_id", doc.ID).Msg("slot already taken")
			return domain.ErrSlotConflict
		}
	}
	return nil
}
