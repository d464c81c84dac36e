package ports

import (
	"context"
	"errors"
	"time"

	"github.com/docbook/booking-system/internal/core/domain"
)

// ErrSlotBusy is returned by Acquire when another booker holds the slot.
var ErrSlotBusy = errors.New("slot is being booked by someone else")

// SlotLocker serialises bookers of the same slot. Release must be called
// exactly once after a successful Acquire.
type SlotLocker interface {
	Acquire(ctx context.Context, slot domain.Slot) (release func(), err error)
}

// TokenDenylist records revoked session tokens until they expire.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
