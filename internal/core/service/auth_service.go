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

// AuthService implements registration, login and logout on top of the
// identity provider and writes the matching users profile documents.
// Profile writes never fail a sign-in; they are logged and dropped.
type AuthService struct {
	provider  ports.IdentityProvider
	federated ports.FederatedProvider
	denylist  ports.TokenDenylist
	remote    remote
	now       func() time.Time
	logger    zerolog.Logger
}

// NewAuthService wires the auth flows. federated and denylist may be nil,
// which disables Google sign-in and token revocation respectively.
func NewAuthService(provider ports.IdentityProvider, federated ports.FederatedProvider, denylist ports.TokenDenylist, dir ports.RemoteDirectory, opts Options, logger zerolog.Logger) *AuthService {
	opts = opts.withDefaults()
	return &AuthService{
		provider:  provider,
		federated: federated,
		denylist:  denylist,
		remote:    newRemote(dir, opts),
		now:       opts.Now,
		logger:    logger,
	}
}

var errCredentialsRequired = domain.InvalidInput("Email and password are required")

func (s *AuthService) SignUpWithEmail(ctx context.Context, email, password string) (*ports.Credential, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errCredentialsRequired
	}

	cred, err := s.provider.SignUpWithPassword(ctx, email, password)
	s.observe("password_sign_up", err)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	profile := map[string]any{
		"email":       cred.Identity.Email,
		"displayName": domain.DefaultDisplayName(cred.Identity.Email),
		"role":        domain.RolePatient,
		"createdAt":   now,
		"lastLogin":   now,
	}
	s.writeProfile(ctx, cred.Identity.ID, profile, false)

	s.logger.Info().Str("user_id", cred.Identity.ID).Msg("account registered")
	return cred, nil
}

func (s *AuthService) SignInWithEmail(ctx context.Context, email, password string) (*ports.Credential, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errCredentialsRequired
	}

	cred, err := s.provider.SignInWithPassword(ctx, email, password)
	s.observe("password_sign_in", err)
	if err != nil {
		return nil, err
	}

	s.writeProfile(ctx, cred.Identity.ID, map[string]any{"lastLogin": s.now().UTC()}, true)
	return cred, nil
}

// SignInWithGoogle verifies a Google ID token. First-time users get a full
// patient profile; returning users have their provider fields refreshed.
func (s *AuthService) SignInWithGoogle(ctx context.Context, idToken string) (*ports.Credential, error) {
	if s.federated == nil {
		return nil, domain.NewError(domain.KindProviderRejected, "Google sign-in is not enabled", nil)
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, domain.InvalidInput("Google ID token is required")
	}

	cred, err := s.federated.SignInWithIDToken(ctx, idToken)
	s.observe("google", err)
	if err != nil {
		return nil, err
	}

	raw := cred.Identity
	now := s.now().UTC()
	profile := map[string]any{
		"email":       raw.Email,
		"displayName": raw.DisplayName,
		"photoURL":    raw.PhotoURL,
		"lastLogin":   now,
	}

	_, err = s.remote.get(ctx, ports.CollectionUsers, raw.ID)
	switch {
	case errors.Is(err, ports.ErrDocumentNotFound):
		profile["role"] = domain.RolePatient
		profile["createdAt"] = now
		s.writeProfile(ctx, raw.ID, profile, false)
	case err != nil:
		s.logger.Warn().Err(err).Str("user_id", raw.ID).Msg("profile lookup failed, merging provider fields")
		s.writeProfile(ctx, raw.ID, profile, true)
	default:
		s.writeProfile(ctx, raw.ID, profile, true)
	}
	return cred, nil
}

// SignOut revokes the token first so a failed provider call still leaves it
// unusable.
func (s *AuthService) SignOut(ctx context.Context, userID, tokenID string, expiresAt time.Time) error {
	if userID == "" {
		return domain.ErrUnauthenticated
	}
	if s.denylist != nil && tokenID != "" {
		if err := s.denylist.Revoke(ctx, tokenID, expiresAt); err != nil {
			return domain.Unavailable("revoke token", err)
		}
	}
	if err := s.provider.SignOut(ctx, userID); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", userID).Msg("signed out")
	return nil
}

func (s *AuthService) writeProfile(ctx context.Context, userID string, fields map[string]any, merge bool) {
	if err := s.remote.set(ctx, ports.CollectionUsers, userID, fields, merge); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Bool("merge", merge).Msg("profile write failed")
	}
}

func (s *AuthService) observe(method string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(domain.ReasonOf(err))
		if outcome == "" {
			outcome = string(domain.KindOf(err))
		}
	}
	metrics.AuthAttemptsTotal.WithLabelValues(method, outcome).Inc()
}
