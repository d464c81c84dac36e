package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
)

type roleSession struct {
	ports.BookingSession
	identity *domain.Identity
}

func (s roleSession) Snapshot() domain.Session {
	return domain.Session{Identity: s.identity}
}

type stubResolver struct {
	got     domain.RawIdentity
	session ports.BookingSession
	err     error
}

func (r *stubResolver) Resolve(_ context.Context, raw domain.RawIdentity) (ports.BookingSession, error) {
	r.got = raw
	return r.session, r.err
}

func TestSession_ResolvesAndSetsRole(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.Set("user_id", "user-1")
	c.Set("email", "alice@example.com")
	c.Set("name", "Alice")

	sess := roleSession{identity: &domain.Identity{ID: "user-1", Role: domain.RoleAdmin}}
	resolver := &stubResolver{session: sess}

	called := false
	err := Session(resolver)(func(c echo.Context) error {
		called = true
		if c.Get("role") != domain.RoleAdmin {
			t.Fatalf("role = %v", c.Get("role"))
		}
		if _, ok := c.Get("session").(ports.BookingSession); !ok {
			t.Fatalf("session not set")
		}
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	want := domain.RawIdentity{ID: "user-1", Email: "alice@example.com", DisplayName: "Alice"}
	if resolver.got != want {
		t.Fatalf("resolved %+v, want %+v", resolver.got, want)
	}
}

func TestSession_DefaultsToPatientRole(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.Set("user_id", "user-1")

	resolver := &stubResolver{session: roleSession{}}
	err := Session(resolver)(func(c echo.Context) error {
		if c.Get("role") != domain.RolePatient {
			t.Fatalf("role = %v", c.Get("role"))
		}
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSession_RequiresAuth(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	err := Session(&stubResolver{})(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})(c)
	e.HTTPErrorHandler(err, c)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSession_ResolveErrorPropagates(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.Set("user_id", "user-1")

	resolver := &stubResolver{err: domain.Unavailable("load profile", nil)}
	err := Session(resolver)(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})(c)
	if domain.KindOf(err) != domain.KindRemoteUnavailable {
		t.Fatalf("expected remote unavailable, got %v", err)
	}
}
