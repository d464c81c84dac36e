package service

import (
	"context"
	"sync"

	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
)

// LocalSlotLocker serialises bookers of the same slot within one process.
// A second booker waits for the first to finish, then runs its own conflict
// check, which is what turns the race into a clean SlotConflict.
type LocalSlotLocker struct {
	mu    sync.Mutex
	slots map[string]*slotEntry
}

type slotEntry struct {
	ch   chan struct{} // capacity 1; holding the token means owning the slot
	refs int
}

func NewLocalSlotLocker() *LocalSlotLocker {
	return &LocalSlotLocker{slots: make(map[string]*slotEntry)}
}

// Acquire blocks until the slot is free or ctx is done.
func (l *LocalSlotLocker) Acquire(ctx context.Context, slot domain.Slot) (func(), error) {
	key := slot.Key()

	l.mu.Lock()
	e, ok := l.slots[key]
	if !ok {
		e = &slotEntry{ch: make(chan struct{}, 1)}
		l.slots[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.drop(key, e)
		})
	}, nil
}

func (l *LocalSlotLocker) drop(key string, e *slotEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.slots, key)
	}
}

// held reports how many slots currently have waiters or an owner.
func (l *LocalSlotLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

type chainedLocker []ports.SlotLocker

// ChainLockers acquires every locker in order and releases them in reverse.
// Nil lockers are skipped.
func ChainLockers(lockers ...ports.SlotLocker) ports.SlotLocker {
	chain := make(chainedLocker, 0, len(lockers))
	for _, l := range lockers {
		if l != nil {
			chain = append(chain, l)
		}
	}
	return chain
}

func (c chainedLocker) Acquire(ctx context.Context, slot domain.Slot) (func(), error) {
	releases := make([]func(), 0, len(c))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, l := range c {
		release, err := l.Acquire(ctx, slot)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}
