package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestMergeProfile_ProviderFieldsWin(t *testing.T) {
	raw := RawIdentity{ID: "uid-1", Email: "ana@example.com", DisplayName: "ana"}
	profile := map[string]any{
		"email":       "stale@example.com",
		"displayName": "Ana Lopez",
		"role":        RoleAdmin,
		"phone":       "+52 555",
	}

	id := MergeProfile(raw, profile)
	if id.ID != "uid-1" || id.Email != "ana@example.com" {
		t.Fatalf("provider id/email must win, got %+v", id)
	}
	if id.DisplayName != "Ana Lopez" || id.Role != RoleAdmin || id.Phone != "+52 555" {
		t.Fatalf("profile fields not merged: %+v", id)
	}
}

func TestMergeProfile_NoProfileDefaultsToPatient(t *testing.T) {
	id := MergeProfile(RawIdentity{ID: "u", Email: "e@x.io"}, nil)
	if id.Role != RolePatient {
		t.Fatalf("expected default role %q, got %q", RolePatient, id.Role)
	}
}

func TestProfileUpdate_OnlyTouchesSetFields(t *testing.T) {
	name := "New Name"
	u := ProfileUpdate{DisplayName: &name}

	fields := u.Fields()
	if len(fields) != 1 || fields["displayName"] != name {
		t.Fatalf("unexpected fields: %v", fields)
	}
	got := u.Apply(Identity{ID: "u", DisplayName: "Old", Phone: "123"})
	if got.DisplayName != name || got.Phone != "123" {
		t.Fatalf("unexpected identity: %+v", got)
	}
}

func TestDefaultDisplayName(t *testing.T) {
	if got := DefaultDisplayName("maria.g@example.com"); got != "maria.g" {
		t.Fatalf("got %q", got)
	}
}

func TestError_IsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("book: %w", NewError(KindSlotConflict, "taken", nil))
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatal("expected slot conflict to match sentinel")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("slot conflict must not match not found")
	}
	if KindOf(err) != KindSlotConflict {
		t.Fatalf("unexpected kind %q", KindOf(err))
	}
}

func TestError_ProviderReason(t *testing.T) {
	err := Rejected(ReasonWrongCredential, errors.New("bcrypt mismatch"))
	if !errors.Is(err, ErrProviderRejected) {
		t.Fatal("expected provider rejection")
	}
	if !errors.Is(err, &Error{Kind: KindProviderRejected, Reason: ReasonWrongCredential}) {
		t.Fatal("expected reason match")
	}
	if errors.Is(err, &Error{Kind: KindProviderRejected, Reason: ReasonUserDisabled}) {
		t.Fatal("different reason must not match")
	}
	if Message(err) != "Incorrect password." {
		t.Fatalf("unexpected message %q", Message(err))
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatal("plain errors are unclassified")
	}
}
