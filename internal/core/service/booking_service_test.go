package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
)

type countingTransactor struct {
	mu    sync.Mutex
	calls int
}

func (c *countingTransactor) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return fn(ctx)
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, domain.Slot) (func(), error) {
	return nil, ports.ErrSlotBusy
}

func newTestBooking(dir ports.RemoteDirectory) (*BookingService, *SessionStore) {
	store := newTestStore(dir)
	return NewBookingService(store, dir, nil, nil, testOptions(), zerolog.Nop()), store
}

func TestBook_Unauthenticated(t *testing.T) {
	dir := newMemDirectory()
	svc, store := newTestBooking(dir)

	_, err := svc.Book(context.Background(), "doc1", bookingRequest("2024-05-01", "10:00"))

	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Zero(t, dir.count("add"))
	assert.Zero(t, dir.count("query"))
	assert.NotEmpty(t, store.Snapshot().LastError)
}

func TestBook_SuccessThenConflict(t *testing.T) {
	dir := newMemDirectory()
	svc, store := newTestBooking(dir)
	signIn(t, store, "u1", "alice@example.com")

	appt, err := svc.Book(context.Background(), "doc1", bookingRequest("2024-05-01", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, appt.Status)
	assert.Equal(t, "u1", appt.UserID)
	assert.Equal(t, "doc1", appt.DoctorID)
	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, testNow.Truncate(time.Millisecond), appt.CreatedAt)
	assert.Equal(t, bookingRequest("", "").DoctorInfo, appt.DoctorInfo)
	assert.Equal(t, bookingRequest("", "").PatientInfo, appt.PatientInfo)

	cached, ok := store.Appointment(appt.ID)
	require.True(t, ok, "booked appointment is appended to the cache")
	assert.Equal(t, *appt, cached)

	_, err = svc.Book(context.Background(), "doc1", bookingRequest("2024-05-01", "10:00"))
	assert.ErrorIs(t, err, domain.ErrSlotConflict)
	assert.Equal(t, 1, dir.count("add"), "conflict performs no write")
	assert.Equal(t, domain.ErrSlotConflict.Msg, store.Snapshot().LastError)
	assert.Len(t, store.Snapshot().Appointments, 1)
}

func TestBook_SequentialBookersOnlyOneWins(t *testing.T) {
	dir := newMemDirectory()
	locker := NewLocalSlotLocker()

	wins := 0
	for i := 0; i < 5; i++ {
		store := newTestStore(dir)
		signIn(t, store, fmt.Sprintf("u%d", i), fmt.Sprintf("u%d@example.com", i))
		svc := NewBookingService(store, dir, locker, nil, testOptions(), zerolog.Nop())

		_, err := svc.Book(context.Background(), "doc1", bookingRequest("2024-05-01", "10:00"))
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrSlotConflict)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, dir.count("add"))
}

func TestBook_ConcurrentBookersOnlyOneWins(t *testing.T) {
	dir := newMemDirectory()
	locker := NewLocalSlotLocker()

	const bookers = 12
	services := make([]*BookingService, bookers)
	for i := range services {
		store := newTestStore(dir)
		signIn(t, store, fmt.Sprintf("u%d", i), fmt.Sprintf("u%d@example.com", i))
		services[i] = NewBookingService(store, dir, locker, nil, testOptions(), zerolog.Nop())
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for _, svc := range services {
		wg.Add(1)
		go func(svc *BookingService) {
			defer wg.Done()
			_, err := svc.Book(context.Background(), "doc1", bookingRequest("2024-05-01", "10:00"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrSlotConflict):
				conflicts++
			}
		}(svc)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, bookers-1, conflicts)
	assert.Zero(t, locker.held(), "every slot lock is released")
}

func TestBook_CancelledAppointmentFreesSlot(t *testing.T) {
	dir := newMemDirectory()
	dir.put(ports.CollectionAppointments, "old", appointmentFields("u9", "doc1", "2024-05-01", "10:00", domain.StatusCancelled))
	svc, store := newTestBooking(dir)
	signIn(t, store, "u1", "alice@example.com")

	_, err := svc.Book(context.Background(), "doc1", bookingRequest("2024-05-01", "10:00"))
	assert.NoError(t, err)
}

func TestBook_DifferentSlotsDoNotConflict(t *testing.T) {
	dir := newMemDirectory()
	svc, store := newTestBooking(dir)
	signIn(t, store, "u1", "alice@example.com")

	_, err := svc.Book(context.Background(), "doc1", bookingRequest("2024-05-01", "10:00"))
	require.NoError(t, err)
	_, err = svc.Book(context.Background(), "doc1", bookingRequest("2024-05-01", "10:30"))
	require.NoError(t, err)
	_, err = svc.Book(context.Background(), "doc2", bookingRequest("2024-05-01", "10:00"))
	require.NoError(t, err)

	assert.Len(t, store.Snapshot().Appointments, 3)
}

func TestBook_InvalidInput(t *testing.T) {
	dir := newMemDirectory()
	svc, store := newTestBooking(dir)
	signIn(t, store, "u1", "alice@example.com")

	cases := []struct {
		name     string
		doctorID string
		req      domain.BookingRequest
	}{
		{"missing doctor", "", bookingRequest("2024-05-01", "10:00")},
		{"missing date", "doc1", bookingRequest("", "10:00")},
		{"missing time", "doc1", bookingRequest("2024-05-01", " ")},
		{"bad date", "doc1", bookingRequest("01/05/2024", "10:00")},
		{"bad time", "doc1", bookingRequest("2024-05-01", "25:99")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Book(context.Background(), tc.doctorID, tc.req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	assert.Zero(t, dir.count("add"))
}

func TestBook_RoundTripThroughRefresh(t *testing.T) {
	dir := newMemDirectory()
	svc, store := newTestBooking(dir)
	signIn(t, store, "u1", "alice@example.com")

	appt, err := svc.Book(context.Background(), "doc1", bookingRequest("2024-05-01", "10:00"))
	require.NoError(t, err)

	require.NoError(t, store.RefreshAppointments(context.Background()))
	refreshed, ok := store.Appointment(appt.ID)
	require.True(t, ok)
	assert.Equal(t, *appt, refreshed)
}

func TestBook_AddFailureIsNotRetried(t *testing.T) {
	dir := newMemDirectory()
	store := newTestStore(dir)
	opts := testOptions()
	opts.Retry = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 1}
	svc := NewBookingService(store, dir, nil, nil, opts, zerolog.Nop())
	signIn(t, store, "u1", "alice@example.com")

	dir.failOn("add", fmt.Errorf("write: %w", ports.ErrDirectoryUnavailable))
	_, err := svc.Book(context.Background(), "doc1", bookingRequest("2024-05-01", "10:00"))

	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.Equal(t, 1, dir.count("add"))
	assert.Empty(t, store.Snapshot().Appointments)
	assert.False(t, store.Snapshot().IsLoading)
}

func TestBook_QueryFailure(t *testing.T) {
	dir := newMemDirectory()
	svc, store := newTestBooking(dir)
	signIn(t, store, "u1", "alice@example.com")

	dir.failOn("query", ports.ErrDirectoryUnavailable)
	_, err := svc.Book(context.Background(), "doc1", bookingRequest("2024-05-01", "10:00"))

	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.Zero(t, dir.count("add"))
}

func TestBook_DirectoryConflictMapsToSlotConflict(t *testing.T) {
	dir := newMemDirectory()
	svc, store := newTestBooking(dir)
	signIn(t, store, "u1", "alice@example.com")

	dir.failOn("add", fmt.Errorf("insert: %w", ports.ErrDocumentConflict))
	_, err := svc.Book(context.Background(), "doc1", bookingRequest("2024-05-01", "10:00"))

	assert.ErrorIs(t, err, domain.ErrSlotConflict)
}

func TestBook_BusySlotIsAConflict(t *testing.T) {
	dir := newMemDirectory()
	store := newTestStore(dir)
	svc := NewBookingService(store, dir, busyLocker{}, nil, testOptions(), zerolog.Nop())
	signIn(t, store, "u1", "alice@example.com")

	_, err := svc.Book(context.Background(), "doc1", bookingRequest("2024-05-01", "10:00"))

	assert.ErrorIs(t, err, domain.ErrSlotConflict)
	assert.Zero(t, dir.count("query"))
}

func TestBook_UsesTransactionWhenAvailable(t *testing.T) {
	dir := newMemDirectory()
	store := newTestStore(dir)
	tx := &countingTransactor{}
	svc := NewBookingService(store, dir, nil, tx, testOptions(), zerolog.Nop())
	signIn(t, store, "u1", "alice@example.com")

	_, err := svc.Book(context.Background(), "doc1", bookingRequest("2024-05-01", "10:00"))
	require.NoError(t, err)
	_, err = svc.Book(context.Background(), "doc1", bookingRequest("2024-05-01", "10:00"))
	assert.ErrorIs(t, err, domain.ErrSlotConflict)

	assert.Equal(t, 2, tx.calls)
}

func TestBook_EquivalentTimeSpellingsShareASlot(t *testing.T) {
	dir := newMemDirectory()
	svc, store := newTestBooking(dir)
	signIn(t, store, "u1", "alice@example.com")

	appt, err := svc.Book(context.Background(), "doc1", bookingRequest("2024-05-01", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, "10:00", appt.AppointmentTime)

	for _, tm := range []string{"10:00 AM", "10:00am", "10:00AM"} {
		_, err := svc.Book(context.Background(), "doc1", bookingRequest("2024-05-01", tm))
		assert.ErrorIs(t, err, domain.ErrSlotConflict, tm)
	}
	assert.Equal(t, 1, dir.count("add"))
}

func TestBook_StoresCanonicalSlot(t *testing.T) {
	dir := newMemDirectory()
	svc, store := newTestBooking(dir)
	signIn(t, store, "u1", "alice@example.com")

	appt, err := svc.Book(context.Background(), "doc1", bookingRequest("2024-05-01", "9:05 PM"))
	require.NoError(t, err)
	assert.Equal(t, "21:05", appt.AppointmentTime)

	_, err = svc.Book(context.Background(), "doc1", bookingRequest("2024-05-01", "21:05"))
	assert.ErrorIs(t, err, domain.ErrSlotConflict)
}
