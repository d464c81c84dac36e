package domain

import (
	"strings"
	"time"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

// RawIdentity is what the identity provider knows about an account.
type RawIdentity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Provider    string `json:"provider,omitempty"`
}

// Identity is the signed-in user: provider fields merged with the stored profile.
type Identity struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	Role        string    `json:"role"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	LastLogin   time.Time `json:"last_login,omitempty"`
}

// IdentityChange is one provider notification. Identity is nil on sign-out;
// UserID always names the account whose state changed.
type IdentityChange struct {
	UserID   string
	Identity *RawIdentity
	Err      error
}

// MinimalIdentity keeps only the fields the provider guarantees.
func MinimalIdentity(raw RawIdentity) Identity {
	return Identity{ID: raw.ID, Email: raw.Email, Role: RolePatient}
}

// MergeProfile overlays a stored profile document on the provider identity.
// ID and Email always come from the provider.
func MergeProfile(raw RawIdentity, profile map[string]any) Identity {
	id := Identity{
		ID:          raw.ID,
		Email:       raw.Email,
		DisplayName: raw.DisplayName,
		PhotoURL:    raw.PhotoURL,
		Role:        RolePatient,
	}
	if profile == nil {
		return id
	}
	if v := stringField(profile, "displayName"); v != "" {
		id.DisplayName = v
	}
	if v := stringField(profile, "photoURL"); v != "" {
		id.PhotoURL = v
	}
	if v := stringField(profile, "role"); v != "" {
		id.Role = v
	}
	id.Phone = stringField(profile, "phone")
	id.LastLogin = timeField(profile, "lastLogin")

	id.ID = raw.ID
	id.Email = raw.Email
	return id
}

// PatientName is the name shown on bookings made by this identity.
func (i Identity) PatientName() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Email
}

// DefaultDisplayName derives a display name from an email's local part.
func DefaultDisplayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// ProfileUpdate carries the user-editable profile fields; nil means unchanged.
type ProfileUpdate struct {
	DisplayName *string
	PhotoURL    *string
	Phone       *string
}

// Fields returns the merge-write payload for the users collection.
func (u ProfileUpdate) Fields() map[string]any {
	fields := map[string]any{}
	if u.DisplayName != nil {
		fields["displayName"] = *u.DisplayName
	}
	if u.PhotoURL != nil {
		fields["photoURL"] = *u.PhotoURL
	}
	if u.Phone != nil {
		fields["phone"] = *u.Phone
	}
	return fields
}

// Apply returns a copy of id with the update applied.
func (u ProfileUpdate) Apply(id Identity) Identity {
	if u.DisplayName != nil {
		id.DisplayName = *u.DisplayName
	}
	if u.PhotoURL != nil {
		id.PhotoURL = *u.PhotoURL
	}
	if u.Phone != nil {
		id.Phone = *u.Phone
	}
	return id
}
