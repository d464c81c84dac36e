package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
	"github.com/docbook/booking-system/internal/pkg/metrics"
)

// Session bundles one user's store with the services acting on it.
type Session struct {
	*SessionStore
	booking   *BookingService
	lifecycle *LifecycleService
}

func (s *Session) Book(ctx context.Context, doctorID string, req domain.BookingRequest) (*domain.Appointment, error) {
	return s.booking.Book(ctx, doctorID, req)
}

func (s *Session) Cancel(ctx context.Context, appointmentID string) (*domain.Appointment, error) {
	return s.lifecycle.Cancel(ctx, appointmentID)
}

type registryEntry struct {
	session  *Session
	ready    chan struct{}
	err      error
	lastSeen time.Time // guarded by SessionRegistry.mu
}

// SessionRegistry keeps one Session per signed-in user for a multi-user
// host. Sessions are created on first use and dropped on sign-out or once
// idle for longer than the eviction timeout. Provider notifications reach
// it through Apply.
type SessionRegistry struct {
	dir    ports.RemoteDirectory
	locker ports.SlotLocker
	tx     ports.Transactor
	opts   Options
	logger zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*registryEntry
}

// NewSessionRegistry builds an empty registry. All sessions share locker,
// so bookers from different users still serialise on the same slot.
func NewSessionRegistry(dir ports.RemoteDirectory, locker ports.SlotLocker, tx ports.Transactor, opts Options, logger zerolog.Logger) *SessionRegistry {
	if locker == nil {
		locker = NewLocalSlotLocker()
	}
	return &SessionRegistry{
		dir:      dir,
		locker:   locker,
		tx:       tx,
		opts:     opts.withDefaults(),
		logger:   logger,
		sessions: make(map[string]*registryEntry),
	}
}

// Resolve returns the caller's session, loading identity and appointments
// the first time the user is seen. Concurrent first requests share one load.
func (r *SessionRegistry) Resolve(ctx context.Context, raw domain.RawIdentity) (ports.BookingSession, error) {
	if raw.ID == "" {
		return nil, domain.ErrUnauthenticated
	}

	r.mu.Lock()
	now := r.opts.Now()
	if e, ok := r.sessions[raw.ID]; ok {
		e.lastSeen = now
		r.mu.Unlock()
		if err := r.wait(ctx, e); err != nil {
			return nil, err
		}
		return e.session, nil
	}
	e := &registryEntry{session: r.newSession(), ready: make(chan struct{}), lastSeen: now}
	r.sessions[raw.ID] = e
	r.mu.Unlock()

	err := e.session.OnIdentityChanged(ctx, &raw)
	if err != nil {
		r.mu.Lock()
		if r.sessions[raw.ID] == e {
			delete(r.sessions, raw.ID)
		}
		r.mu.Unlock()
		e.err = err
		close(e.ready)
		return nil, err
	}
	close(e.ready)

	metrics.ActiveSessions.Inc()
	r.logger.Debug().Str("user_id", raw.ID).Msg("session loaded")
	return e.session, nil
}

func (r *SessionRegistry) newSession() *Session {
	store := NewSessionStore(r.dir, r.opts, r.logger)
	return &Session{
		SessionStore: store,
		booking:      NewBookingService(store, r.dir, r.locker, r.tx, r.opts, r.logger),
		lifecycle:    NewLifecycleService(store, r.dir, r.opts, r.logger),
	}
}

func (r *SessionRegistry) wait(ctx context.Context, e *registryEntry) error {
	select {
	case <-e.ready:
		return e.err
	case <-ctx.Done():
		return domain.Unavailable("load session", ctx.Err())
	}
}

// Apply routes one provider notification to the session it concerns.
// Sign-ins of users without a live session are ignored; their session is
// built on their first request.
func (r *SessionRegistry) Apply(ctx context.Context, change domain.IdentityChange) error {
	r.mu.Lock()
	e, ok := r.sessions[change.UserID]
	if ok && change.Err == nil && change.Identity == nil {
		delete(r.sessions, change.UserID)
	}
	r.mu.Unlock()

	switch {
	case change.Err != nil:
		metrics.IdentityChangesTotal.WithLabelValues("error").Inc()
		r.logger.Warn().Err(change.Err).Str("user_id", change.UserID).Msg("identity provider reported an error")
		if ok && r.wait(ctx, e) == nil {
			e.session.SetError(domain.Message(change.Err))
		}
		return nil

	case change.Identity == nil:
		metrics.IdentityChangesTotal.WithLabelValues("sign_out").Inc()
		if !ok || r.wait(ctx, e) != nil {
			return nil
		}
		metrics.ActiveSessions.Dec()
		return e.session.OnIdentityChanged(ctx, nil)

	default:
		metrics.IdentityChangesTotal.WithLabelValues("sign_in").Inc()
		if !ok {
			return nil
		}
		if err := r.wait(ctx, e); err != nil {
			return nil
		}
		return e.session.OnIdentityChanged(ctx, change.Identity)
	}
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Evict drops loaded sessions not resolved for at least idle and returns
// how many were dropped. Sessions still loading are left alone.
func (r *SessionRegistry) Evict(idle time.Duration) int {
	cutoff := r.opts.Now().Add(-idle)

	r.mu.Lock()
	var stale []*registryEntry
	for id, e := range r.sessions {
		if e.lastSeen.After(cutoff) {
			continue
		}
		select {
		case <-e.ready:
		default:
			continue
		}
		if e.err == nil {
			stale = append(stale, e)
		}
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, e := range stale {
		e.session.reset()
		metrics.ActiveSessions.Dec()
	}
	if len(stale) > 0 {
		r.logger.Debug().Int("evicted", len(stale)).Msg("idle sessions evicted")
	}
	return len(stale)
}

// RunEviction calls Evict every interval until ctx is done.
func (r *SessionRegistry) RunEviction(ctx context.Context, idle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Evict(idle)
		}
	}
}

// Close signs every live session out.
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, e := range sessions {
		select {
		case <-e.ready:
			if e.err == nil {
				e.session.reset()
				metrics.ActiveSessions.Dec()
			}
		default:
		}
	}
}
