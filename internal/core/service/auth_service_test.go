package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
)

type stubFederated struct {
	raw domain.RawIdentity
	err error
}

func (f *stubFederated) SignInWithIDToken(_ context.Context, idToken string) (*ports.Credential, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ports.Credential{Identity: f.raw, Token: "session-for-" + idToken}, nil
}

type stubDenylist struct {
	revoked map[string]time.Time
	err     error
}

func (d *stubDenylist) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	if d.err != nil {
		return d.err
	}
	d.revoked[tokenID] = expiresAt
	return nil
}

func (d *stubDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := d.revoked[tokenID]
	return ok, nil
}

func newTestAuth(dir *memDirectory, p *fakeProvider, f ports.FederatedProvider, dl ports.TokenDenylist) *AuthService {
	return NewAuthService(p, f, dl, dir, testOptions(), zerolog.Nop())
}

func TestAuthService_SignUp_WritesProfile(t *testing.T) {
	dir := newMemDirectory()
	p := newFakeProvider()
	p.signUp = func(email, _ string) (*ports.Credential, error) { return credentialFor("u1", email), nil }
	svc := newTestAuth(dir, p, nil, nil)

	cred, err := svc.SignUpWithEmail(context.Background(), "  alice@example.com ", "s3cret!")
	if err != nil {
		t.Fatalf("SignUpWithEmail returned error: %v", err)
	}
	if cred.Identity.ID != "u1" {
		t.Fatalf("unexpected identity: %+v", cred.Identity)
	}

	profile, ok := dir.raw(ports.CollectionUsers, "u1")
	if !ok {
		t.Fatalf("expected users/u1 to be written")
	}
	if profile["email"] != "alice@example.com" {
		t.Fatalf("unexpected email: %v", profile["email"])
	}
	if profile["displayName"] != "alice" {
		t.Fatalf("expected display name from email local part, got %v", profile["displayName"])
	}
	if profile["role"] != domain.RolePatient {
		t.Fatalf("expected patient role, got %v", profile["role"])
	}
	if profile["createdAt"] != testNow || profile["lastLogin"] != testNow {
		t.Fatalf("expected timestamps to be set: %v", profile)
	}
}

func TestAuthService_SignUp_Validation(t *testing.T) {
	svc := newTestAuth(newMemDirectory(), newFakeProvider(), nil, nil)

	if _, err := svc.SignUpWithEmail(context.Background(), "", "pass"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
	if _, err := svc.SignInWithEmail(context.Background(), "alice@example.com", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestAuthService_SignUp_ProviderRejection(t *testing.T) {
	dir := newMemDirectory()
	p := newFakeProvider()
	p.signUp = func(string, string) (*ports.Credential, error) {
		return nil, domain.Rejected(domain.ReasonAlreadyInUse, nil)
	}
	svc := newTestAuth(dir, p, nil, nil)

	_, err := svc.SignUpWithEmail(context.Background(), "bob@example.com", "pass123")
	if !errors.Is(err, &domain.Error{Kind: domain.KindProviderRejected, Reason: domain.ReasonAlreadyInUse}) {
		t.Fatalf("expected AlreadyInUse rejection, got %v", err)
	}
	if dir.count("set") != 0 {
		t.Fatalf("no profile should be written on rejection")
	}
}

func TestAuthService_SignIn_MergesLastLogin(t *testing.T) {
	dir := newMemDirectory()
	dir.put(ports.CollectionUsers, "u1", map[string]any{"email": "carol@example.com", "role": "admin"})
	p := newFakeProvider()
	p.signIn = func(email, _ string) (*ports.Credential, error) { return credentialFor("u1", email), nil }
	svc := newTestAuth(dir, p, nil, nil)

	if _, err := svc.SignInWithEmail(context.Background(), "carol@example.com", "s3cret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	profile, _ := dir.raw(ports.CollectionUsers, "u1")
	if profile["role"] != "admin" {
		t.Fatalf("merge write must keep the role, got %v", profile["role"])
	}
	if profile["lastLogin"] != testNow {
		t.Fatalf("expected lastLogin to be refreshed, got %v", profile["lastLogin"])
	}
}

func TestAuthService_SignIn_ProfileWriteFailureIgnored(t *testing.T) {
	dir := newMemDirectory()
	dir.failOn("set", ports.ErrDirectoryUnavailable)
	p := newFakeProvider()
	p.signIn = func(email, _ string) (*ports.Credential, error) { return credentialFor("u1", email), nil }
	svc := newTestAuth(dir, p, nil, nil)

	if _, err := svc.SignInWithEmail(context.Background(), "dave@example.com", "goodpass"); err != nil {
		t.Fatalf("expected sign-in to succeed despite profile write failure, got %v", err)
	}
}

func TestAuthService_SignIn_WrongPassword(t *testing.T) {
	p := newFakeProvider()
	p.signIn = func(string, string) (*ports.Credential, error) {
		return nil, domain.Rejected(domain.ReasonWrongCredential, nil)
	}
	svc := newTestAuth(newMemDirectory(), p, nil, nil)

	_, err := svc.SignInWithEmail(context.Background(), "dave@example.com", "badpass")
	if domain.ReasonOf(err) != domain.ReasonWrongCredential {
		t.Fatalf("expected WrongCredential, got %v", err)
	}
	if domain.Message(err) != "Incorrect password." {
		t.Fatalf("unexpected message: %q", domain.Message(err))
	}
}

func TestAuthService_Google_NewUser(t *testing.T) {
	dir := newMemDirectory()
	f := &stubFederated{raw: domain.RawIdentity{
		ID: "g1", Email: "erin@gmail.com", DisplayName: "Erin", PhotoURL: "https://example.com/e.png", Provider: domain.ProviderGoogle,
	}}
	svc := newTestAuth(dir, newFakeProvider(), f, nil)

	if _, err := svc.SignInWithGoogle(context.Background(), "id-token"); err != nil {
		t.Fatalf("google sign-in failed: %v", err)
	}

	profile, ok := dir.raw(ports.CollectionUsers, "g1")
	if !ok {
		t.Fatalf("expected a profile for a new Google user")
	}
	if profile["role"] != domain.RolePatient || profile["createdAt"] != testNow {
		t.Fatalf("new profile missing role or createdAt: %v", profile)
	}
	if profile["photoURL"] != "https://example.com/e.png" || profile["displayName"] != "Erin" {
		t.Fatalf("provider fields not copied: %v", profile)
	}
}

func TestAuthService_Google_ExistingUserKeepsRole(t *testing.T) {
	dir := newMemDirectory()
	dir.put(ports.CollectionUsers, "g1", map[string]any{"role": "admin", "phone": "555-0100"})
	f := &stubFederated{raw: domain.RawIdentity{ID: "g1", Email: "erin@gmail.com", DisplayName: "Erin"}}
	svc := newTestAuth(dir, newFakeProvider(), f, nil)

	if _, err := svc.SignInWithGoogle(context.Background(), "id-token"); err != nil {
		t.Fatalf("google sign-in failed: %v", err)
	}

	profile, _ := dir.raw(ports.CollectionUsers, "g1")
	if profile["role"] != "admin" || profile["phone"] != "555-0100" {
		t.Fatalf("existing fields must survive: %v", profile)
	}
	if profile["displayName"] != "Erin" {
		t.Fatalf("display name not refreshed: %v", profile)
	}
	if _, ok := profile["createdAt"]; ok {
		t.Fatalf("createdAt must not be set for existing users")
	}
}

func TestAuthService_Google_Disabled(t *testing.T) {
	svc := newTestAuth(newMemDirectory(), newFakeProvider(), nil, nil)
	if _, err := svc.SignInWithGoogle(context.Background(), "id-token"); !errors.Is(err, domain.ErrProviderRejected) {
		t.Fatalf("expected ProviderRejected, got %v", err)
	}
}

func TestAuthService_SignOut_RevokesToken(t *testing.T) {
	p := newFakeProvider()
	dl := &stubDenylist{revoked: map[string]time.Time{}}
	svc := newTestAuth(newMemDirectory(), p, nil, dl)
	exp := testNow.Add(time.Hour)

	if err := svc.SignOut(context.Background(), "u1", "jti-1", exp); err != nil {
		t.Fatalf("sign-out failed: %v", err)
	}
	if got, ok := dl.revoked["jti-1"]; !ok || !got.Equal(exp) {
		t.Fatalf("token not revoked: %v", dl.revoked)
	}
	if len(p.signOut) != 1 || p.signOut[0] != "u1" {
		t.Fatalf("provider sign-out not called: %v", p.signOut)
	}
}

func TestAuthService_SignOut_DenylistFailure(t *testing.T) {
	p := newFakeProvider()
	dl := &stubDenylist{revoked: map[string]time.Time{}, err: errors.New("redis down")}
	svc := newTestAuth(newMemDirectory(), p, nil, dl)

	err := svc.SignOut(context.Background(), "u1", "jti-1", testNow)
	if !errors.Is(err, domain.ErrRemoteUnavailable) {
		t.Fatalf("expected RemoteUnavailable, got %v", err)
	}
	if len(p.signOut) != 0 {
		t.Fatalf("provider must not sign out when revocation failed")
	}
}
