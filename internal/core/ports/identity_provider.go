package ports

import (
	"context"
	"time"

	"github.com/docbook/booking-system/internal/core/domain"
)

// Credential is returned by a successful sign-in or sign-up.
type Credential struct {
	Identity  domain.RawIdentity
	Token     string
	ExpiresAt time.Time
}

// IdentityProvider issues and validates credentials and notifies
// subscribers of session changes in the order they happen.
// Errors are *domain.Error of kind ProviderRejected.
type IdentityProvider interface {
	Subscribe(onChange func(domain.IdentityChange)) (unsubscribe func())
	SignInWithPassword(ctx context.Context, email, password string) (*Credential, error)
	SignUpWithPassword(ctx context.Context, email, password string) (*Credential, error)
	SignOut(ctx context.Context, userID string) error
}

// FederatedProvider signs in with an ID token issued by an external
// identity platform (Google).
type FederatedProvider interface {
	SignInWithIDToken(ctx context.Context, idToken string) (*Credential, error)
}

// IdentityChangeHandler consumes provider notifications.
type IdentityChangeHandler interface {
	Apply(ctx context.Context, change domain.IdentityChange) error
}
