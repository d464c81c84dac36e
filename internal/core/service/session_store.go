package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
)

var errAlreadyAttached = errors.New("session store is already subscribed to a provider")

// SessionStore is the process-local cache of who is signed in and what they
// see. All fields are guarded by mu; readers always receive copies.
//
// IsLoading is raised when an operation starts and lowered when it ends.
// Overlapping operations are allowed and the last write wins.
type SessionStore struct {
	remote remote
	log    zerolog.Logger

	mu           sync.RWMutex
	identity     *domain.Identity
	loading      bool
	lastError    string
	appointments []domain.Appointment

	subMu       sync.Mutex
	unsubscribe func()
}

// NewSessionStore returns an empty, signed-out store.
func NewSessionStore(dir ports.RemoteDirectory, opts Options, log zerolog.Logger) *SessionStore {
	opts = opts.withDefaults()
	return &SessionStore{
		remote: newRemote(dir, opts),
		log:    log,
	}
}

// Attach subscribes the store to provider. At most one subscription is
// active per store; call Detach on shutdown. ctx bounds every change handled.
// The store stays loading until the provider delivers the first change.
func (s *SessionStore) Attach(ctx context.Context, provider ports.IdentityProvider) error {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if s.unsubscribe != nil {
		return errAlreadyAttached
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	s.unsubscribe = provider.Subscribe(func(change domain.IdentityChange) {
		if change.Err != nil {
			s.SetError(domain.Message(change.Err))
			return
		}
		if change.Identity == nil && !s.isSignedInAs(change.UserID) {
			return
		}
		if err := s.OnIdentityChanged(ctx, change.Identity); err != nil {
			s.log.Warn().Err(err).Str("user_id", change.UserID).Msg("identity change applied with error")
		}
	})
	return nil
}

// Detach tears down the provider subscription, if any.
func (s *SessionStore) Detach() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// OnIdentityChanged applies a provider notification. A nil raw identity
// signs the session out. Otherwise the users profile document is merged in.
// A missing or unreadable profile leaves a minimal identity and records no
// error. The appointment list is refetched after the identity is set.
func (s *SessionStore) OnIdentityChanged(ctx context.Context, raw *domain.RawIdentity) error {
	s.begin()

	if raw == nil {
		s.reset()
		return nil
	}

	identity := s.loadIdentity(ctx, *raw)

	s.mu.Lock()
	if s.identity == nil || s.identity.ID != identity.ID {
		s.appointments = nil
	}
	s.identity = &identity
	s.mu.Unlock()

	return s.finish(s.refresh(ctx))
}

func (s *SessionStore) loadIdentity(ctx context.Context, raw domain.RawIdentity) domain.Identity {
	doc, err := s.remote.get(ctx, ports.CollectionUsers, raw.ID)
	switch {
	case err == nil:
		return domain.MergeProfile(raw, doc.Fields)
	case errors.Is(err, ports.ErrDocumentNotFound):
		return domain.MinimalIdentity(raw)
	default:
		s.log.Warn().Err(err).Str("user_id", raw.ID).Msg("profile fetch failed, using provider identity")
		return domain.MinimalIdentity(raw)
	}
}

// RefreshAppointments refetches the signed-in user's appointments. Without
// an identity the list is emptied and the directory is not queried.
func (s *SessionStore) RefreshAppointments(ctx context.Context) error {
	s.begin()
	return s.finish(s.refresh(ctx))
}

func (s *SessionStore) refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.identity == nil {
		s.appointments = nil
		s.mu.Unlock()
		return nil
	}
	userID := s.identity.ID
	s.mu.Unlock()

	docs, err := s.remote.query(ctx, ports.CollectionAppointments, ports.Eq("userId", userID))
	if err != nil {
		return classifyRemote("fetch appointments", err)
	}

	list := make([]domain.Appointment, 0, len(docs))
	for _, doc := range docs {
		appt, err := domain.AppointmentFromFields(doc.ID, doc.Fields)
		if err != nil {
			s.log.Warn().Err(err).Str("appointment_id", doc.ID).Msg("skipping malformed appointment")
			continue
		}
		list = append(list, appt)
	}
	domain.SortNewestFirst(list)

	s.mu.Lock()
	defer s.mu.Unlock()
	// The user may have signed out or switched while the query ran.
	if s.identity != nil && s.identity.ID == userID {
		s.appointments = list
	}
	return nil
}

// UpdateProfile merge-writes the editable profile fields and updates the
// cached identity.
func (s *SessionStore) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.Identity, error) {
	s.begin()

	identity, ok := s.Identity()
	if !ok {
		return nil, s.finish(domain.ErrUnauthenticated)
	}
	fields := update.Fields()
	if len(fields) == 0 {
		return nil, s.finish(domain.InvalidInput("nothing to update"))
	}

	if err := s.remote.set(ctx, ports.CollectionUsers, identity.ID, fields, true); err != nil {
		return nil, s.finish(classifyRemote("update profile", err))
	}

	updated := update.Apply(identity)
	s.mu.Lock()
	if s.identity != nil && s.identity.ID == updated.ID {
		s.identity = &updated
	}
	s.mu.Unlock()

	return &updated, s.finish(nil)
}

// SetError records msg as the single active error.
func (s *SessionStore) SetError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
}

// ClearError drops the active error.
func (s *SessionStore) ClearError() {
	s.SetError("")
}

// Snapshot returns a copy of the whole session.
func (s *SessionStore) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := domain.Session{
		IsLoading:    s.loading,
		LastError:    s.lastError,
		Appointments: make([]domain.Appointment, len(s.appointments)),
	}
	copy(snap.Appointments, s.appointments)
	if s.identity != nil {
		id := *s.identity
		snap.Identity = &id
	}
	return snap
}

// Identity returns the signed-in identity, if any.
func (s *SessionStore) Identity() (domain.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.identity == nil {
		return domain.Identity{}, false
	}
	return *s.identity, true
}

// Appointment returns the cached appointment with the given id.
func (s *SessionStore) Appointment(id string) (domain.Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.appointments {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Appointment{}, false
}

func (s *SessionStore) isSignedInAs(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil && s.identity.ID == userID
}

// appendAppointment adds a freshly booked appointment, keeping the order.
// The new list replaces the old one so earlier snapshots stay intact.
func (s *SessionStore) appendAppointment(a domain.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity == nil || s.identity.ID != a.UserID {
		return
	}
	list := make([]domain.Appointment, 0, len(s.appointments)+1)
	list = append(list, s.appointments...)
	list = append(list, a)
	domain.SortNewestFirst(list)
	s.appointments = list
}

// replaceAppointment swaps the cached entry with the same id in place.
func (s *SessionStore) replaceAppointment(a domain.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]domain.Appointment, len(s.appointments))
	copy(list, s.appointments)
	for i := range list {
		if list[i].ID == a.ID {
			list[i] = a
		}
	}
	s.appointments = list
}

// begin marks an operation as started: loading on, stale error dropped.
func (s *SessionStore) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastError = ""
	s.mu.Unlock()
}

// finish lowers the loading flag and records err, which it returns.
func (s *SessionStore) finish(err error) error {
	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastError = domain.Message(err)
	}
	s.mu.Unlock()
	return err
}

func (s *SessionStore) reset() {
	s.mu.Lock()
	s.identity = nil
	s.loading = false
	s.lastError = ""
	s.appointments = nil
	s.mu.Unlock()
}
