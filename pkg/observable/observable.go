// Package observable defines the model contract the template engine binds
// to, and a default map-backed implementation.
//
// An Observable exposes named attributes and announces every attribute
// change as a "change:<name>" event carrying (name, value, oldValue). Any
// type implementing the interface can be bound; no embedding is required.
package observable

import (
	"reflect"
	"sort"
	"sync"

	"github.com/vango-dev/vtemplate/pkg/emitter"
)

// Observable is the model side of a binding.
type Observable interface {
	emitter.Source

	// Get returns the current value of an attribute, or nil.
	Get(name string) any

	// Fire emits an arbitrary event to the observable's listeners.
	Fire(event string, args ...any)

	// Subscribe registers h for changes of one attribute.
	Subscribe(name string, h emitter.Handler) (unsubscribe func())
}

// ChangeEvent returns the event name fired when attribute name changes.
func ChangeEvent(name string) string {
	return "change:" + name
}

// SetEvent returns the event name fired before attribute name is assigned.
func SetEvent(name string) string {
	return "set:" + name
}

// Model is a map-backed Observable. The zero value is not usable; create
// models with NewModel.
type Model struct {
	bus emitter.Bus

	mu    sync.RWMutex
	attrs map[string]any
}

// NewModel creates a model holding a copy of initial.
func NewModel(initial map[string]any) *Model {
	m := &Model{attrs: make(map[string]any, len(initial))}
	for k, v := range initial {
		m.attrs[k] = v
	}
	return m
}

// Get implements Observable.
func (m *Model) Get(name string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attrs[name]
}

// Has reports whether the attribute was ever set.
func (m *Model) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.attrs[name]
	return ok
}

// Keys returns the attribute names in sorted order.
func (m *Model) Keys() []string {
	m.mu.RLock()
	keys := make([]string, 0, len(m.attrs))
	for k := range m.attrs {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Set assigns an attribute. "set:<name>" is fired on every call; the
// "change:<name>" event only when the value actually changed or the
// attribute did not exist yet.
func (m *Model) Set(name string, value any) {
	m.mu.Lock()
	old, existed := m.attrs[name]
	changed := !existed || !valuesEqual(old, value)
	m.attrs[name] = value
	m.mu.Unlock()

	m.bus.Fire(SetEvent(name), name, value, old)
	if changed {
		m.bus.Fire(ChangeEvent(name), name, value, old)
	}
}

// SetAll assigns several attributes, in sorted key order.
func (m *Model) SetAll(values map[string]any) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.Set(k, values[k])
	}
}

// On implements emitter.Source.
func (m *Model) On(event string, h emitter.Handler) (off func()) {
	return m.bus.On(event, h)
}

// Fire implements Observable.
func (m *Model) Fire(event string, args ...any) {
	m.bus.Fire(event, args...)
}

// Subscribe implements Observable.
func (m *Model) Subscribe(name string, h emitter.Handler) (unsubscribe func()) {
	return m.bus.On(ChangeEvent(name), h)
}

// Listeners returns the number of handlers registered for event.
func (m *Model) Listeners(event string) int {
	return m.bus.Len(event)
}

// valuesEqual compares two attribute values.
func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return reflect.DeepEqual(a, b)
}
