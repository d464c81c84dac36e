package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
)

type stubAuthService struct {
	signUpFn  func(ctx context.Context, email, password string) (*ports.Credential, error)
	signInFn  func(ctx context.Context, email, password string) (*ports.Credential, error)
	googleFn  func(ctx context.Context, idToken string) (*ports.Credential, error)
	signOutFn func(ctx context.Context, userID, tokenID string, expiresAt time.Time) error
}

func (s *stubAuthService) SignUpWithEmail(ctx context.Context, email, password string) (*ports.Credential, error) {
	return s.signUpFn(ctx, email, password)
}

func (s *stubAuthService) SignInWithEmail(ctx context.Context, email, password string) (*ports.Credential, error) {
	return s.signInFn(ctx, email, password)
}

func (s *stubAuthService) SignInWithGoogle(ctx context.Context, idToken string) (*ports.Credential, error) {
	return s.googleFn(ctx, idToken)
}

func (s *stubAuthService) SignOut(ctx context.Context, userID, tokenID string, expiresAt time.Time) error {
	return s.signOutFn(ctx, userID, tokenID, expiresAt)
}

type stubDoctorService struct {
	doctors map[string]domain.Doctor
	added   []domain.Doctor
	err     error
}

func (s *stubDoctorService) List(_ context.Context, speciality string) ([]domain.Doctor, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Doctor
	for _, d := range s.doctors {
		if speciality == "" || d.Speciality == speciality {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *stubDoctorService) Get(_ context.Context, id string) (*domain.Doctor, error) {
	if s.err != nil {
		return nil, s.err
	}
	d, ok := s.doctors[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (s *stubDoctorService) Add(_ context.Context, d domain.Doctor) (*domain.Doctor, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	d.ID = "doc-new"
	s.added = append(s.added, d)
	return &d, nil
}

type stubSession struct {
	snapshot domain.Session

	refreshErr error
	refreshed  bool

	bookFn   func(doctorID string, req domain.BookingRequest) (*domain.Appointment, error)
	cancelFn func(id string) (*domain.Appointment, error)
	update   domain.ProfileUpdate
}

func (s *stubSession) Snapshot() domain.Session { return s.snapshot }

func (s *stubSession) RefreshAppointments(context.Context) error {
	s.refreshed = true
	return s.refreshErr
}

func (s *stubSession) UpdateProfile(_ context.Context, update domain.ProfileUpdate) (*domain.Identity, error) {
	s.update = update
	if s.snapshot.Identity == nil {
		return nil, domain.ErrUnauthenticated
	}
	id := update.Apply(*s.snapshot.Identity)
	return &id, nil
}

func (s *stubSession) Book(_ context.Context, doctorID string, req domain.BookingRequest) (*domain.Appointment, error) {
	return s.bookFn(doctorID, req)
}

func (s *stubSession) Cancel(_ context.Context, id string) (*domain.Appointment, error) {
	return s.cancelFn(id)
}

func signedInSession() *stubSession {
	return &stubSession{snapshot: domain.Session{
		Identity: &domain.Identity{ID: "user-1", Email: "alice@example.com", DisplayName: "Alice", Role: domain.RolePatient, Phone: "555-0100"},
	}}
}

// newContext builds a request context with the validator installed and, when
// session is non-nil, the values the auth and session middleware would set.
func newContext(method, target string, body io.Reader, session ports.BookingSession) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if session != nil {
		c.Set("user_id", "user-1")
		c.Set("session", session)
	}
	return c, rec
}

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}
