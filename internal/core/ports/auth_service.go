package ports

import (
	"context"
	"time"
)

// AuthService runs the sign-in flows and keeps the users profile documents
// in step with the identity provider.
type AuthService interface {
	SignUpWithEmail(ctx context.Context, email, password string) (*Credential, error)
	SignInWithEmail(ctx context.Context, email, password string) (*Credential, error)
	SignInWithGoogle(ctx context.Context, idToken string) (*Credential, error)
	// SignOut ends the user's session and revokes the token identified by
	// tokenID until expiresAt.
	SignOut(ctx context.Context, userID, tokenID string, expiresAt time.Time) error
}
