// Package emitter provides the listener bookkeeping shared by DOM nodes and
// observable models.
//
// A Source is anything that can register a handler for a named event and
// hand back a function that removes it. A Bus is the default Source
// implementation. An Emitter remembers every subscription it made through
// ListenTo so that all of them can be torn down symmetrically, whether the
// source is a DOM node or a model attribute:
//
//	em := emitter.New()
//	stop := em.ListenTo(model, "change:label", func(args ...any) { ... })
//	...
//	stop()                       // one subscription
//	em.StopListening(nil, "")    // everything
package emitter

import "sync"

// Handler receives the arguments an event was fired with.
type Handler func(args ...any)

// Source registers handlers for named events.
//
// Implementations used with Emitter.StopListening must be comparable
// (pointers or structs of pointers).
type Source interface {
	On(event string, h Handler) (off func())
}

// subscription is one ListenTo registration.
type subscription struct {
	id    uint64
	src   Source
	event string
	off   func()
}

// Emitter tracks the subscriptions it creates on other sources.
type Emitter struct {
	mu     sync.Mutex
	nextID uint64
	subs   []*subscription
}

// New creates an empty Emitter.
func New() *Emitter {
	return &Emitter{}
}

// ListenTo subscribes h to event on src and returns a function that removes
// that one subscription. The returned function is safe to call more than
// once; only the first call has an effect.
func (e *Emitter) ListenTo(src Source, event string, h Handler) (stop func()) {
	off := src.On(event, h)

	e.mu.Lock()
	e.nextID++
	sub := &subscription{id: e.nextID, src: src, event: event, off: off}
	e.subs = append(e.subs, sub)
	e.mu.Unlock()

	return func() { e.remove(sub.id) }
}

// StopListening removes subscriptions. A nil src matches every source and an
// empty event matches every event, so StopListening(nil, "") detaches
// everything this emitter is listening to. Subscriptions are removed in the
// order they were made.
func (e *Emitter) StopListening(src Source, event string) {
	e.mu.Lock()
	var matched []*subscription
	kept := e.subs[:0]
	for _, sub := range e.subs {
		if (src == nil || sub.src == src) && (event == "" || sub.event == event) {
			matched = append(matched, sub)
			continue
		}
		kept = append(kept, sub)
	}
	for i := len(kept); i < len(e.subs); i++ {
		e.subs[i] = nil
	}
	e.subs = kept
	e.mu.Unlock()

	for _, sub := range matched {
		sub.off()
	}
}

// Count returns the number of live subscriptions.
func (e *Emitter) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

// remove drops a single subscription by id. Unknown ids are ignored.
func (e *Emitter) remove(id uint64) {
	e.mu.Lock()
	var found *subscription
	for i, sub := range e.subs {
		if sub.id == id {
			found = sub
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			break
		}
	}
	e.mu.Unlock()

	if found != nil {
		found.off()
	}
}
