package emitter

import "sync"

type busHandler struct {
	id uint64
	h  Handler
}

// Bus is a Source that dispatches fired events to its handlers in the order
// they were registered. The zero value is ready to use.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]busHandler
}

// On registers h for event. The returned function removes it and may be
// called any number of times.
func (b *Bus) On(event string, h Handler) (off func()) {
	if h == nil {
		return func() {}
	}

	b.mu.Lock()
	if b.handlers == nil {
		b.handlers = make(map[string][]busHandler)
	}
	b.nextID++
	id := b.nextID
	b.handlers[event] = append(b.handlers[event], busHandler{id: id, h: h})
	b.mu.Unlock()

	return func() { b.off(event, id) }
}

// Fire calls every handler registered for event with args. Handlers added or
// removed while firing take effect on the next Fire.
func (b *Bus) Fire(event string, args ...any) {
	b.mu.RLock()
	hs := make([]busHandler, len(b.handlers[event]))
	copy(hs, b.handlers[event])
	b.mu.RUnlock()

	for _, bh := range hs {
		bh.h(args...)
	}
}

// Len returns the number of handlers registered for event.
func (b *Bus) Len(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}

// Empty reports whether the bus has no handlers at all.
func (b *Bus) Empty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers) == 0
}

func (b *Bus) off(event string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	hs := b.handlers[event]
	for i, bh := range hs {
		if bh.id == id {
			hs = append(hs[:i:i], hs[i+1:]...)
			break
		}
	}
	if len(hs) == 0 {
		delete(b.handlers, event)
		return
	}
	b.handlers[event] = hs
}
