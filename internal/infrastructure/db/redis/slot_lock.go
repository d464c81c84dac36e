package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
)

const defaultLockTTL = 15 * time.Second

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock taken over by another booker is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SlotLocker is a cross-process slot lock. Key format:
// slotlock:<doctor_id>:<date>:<time>
type SlotLocker struct {
	client redis.Cmdable
	ttl    time.Duration
	log    zerolog.Logger
}

// NewSlotLocker creates a SlotLocker; ttl bounds how long a crashed booker
// can hold a slot. Zero uses defaultLockTTL.
func NewSlotLocker(client redis.Cmdable, ttl time.Duration, log zerolog.Logger) *SlotLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &SlotLocker{client: client, ttl: ttl, log: log}
}

// Acquire takes the slot or fails fast with ports.ErrSlotBusy.
func (l *SlotLocker) Acquire(ctx context.Context, slot domain.Slot) (func(), error) {
	key := l.key(slot)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("slot lock: %w", err)
	}
	if !ok {
		return nil, ports.ErrSlotBusy
	}

	return func() {
		// The booking ctx may already be done; release on a fresh one.
		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.log.Warn().Err(err).Str("key", key).Msg("slot lock release failed")
		}
	}, nil
}

func (l *SlotLocker) key(slot domain.Slot) string {
	return fmt.Sprintf("slotlock:%s:%s:%s", slot.DoctorID, slot.Date, slot.Time)
}
