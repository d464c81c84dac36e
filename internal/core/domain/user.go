package domain

import "time"

const (
	ProviderPassword = "password"
	ProviderGoogle   = "google.com"
)

// Account is the credential record kept by the built-in identity provider.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name,omitempty"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	Provider     string    `json:"provider"`
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Raw returns the provider-side view of the account.
func (a Account) Raw() RawIdentity {
	return RawIdentity{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		PhotoURL:    a.PhotoURL,
		Provider:    a.Provider,
	}
}
