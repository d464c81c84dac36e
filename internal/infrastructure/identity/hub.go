package identity

import (
	"sync"

	"github.com/docbook/booking-system/internal/core/domain"
)

// hub fans identity changes out to subscribers. Emits are serialised, so
// every subscriber sees changes in the order they happened.
type hub struct {
	emitMu sync.Mutex

	mu   sync.RWMutex
	subs map[uint64]func(domain.IdentityChange)
	next uint64
}

func newHub() *hub {
	return &hub{subs: make(map[uint64]func(domain.IdentityChange))}
}

func (h *hub) subscribe(fn func(domain.IdentityChange)) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

func (h *hub) emit(change domain.IdentityChange) {
	h.emitMu.Lock()
	defer h.emitMu.Unlock()

	h.mu.RLock()
	ids := make([]uint64, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.mu.RLock()
		fn, ok := h.subs[id]
		h.mu.RUnlock()
		if ok {
			fn(change)
		}
	}
}

func (h *hub) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
