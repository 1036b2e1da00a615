package dom

import (
	"github.com/vango-dev/vtemplate/pkg/emitter"
	"golang.org/x/net/html"
)

// Event is a DOM event travelling from its target up to the document.
type Event struct {
	Type          string
	Target        *html.Node
	CurrentTarget *html.Node
	Detail        any

	stopped   bool
	prevented bool
}

// StopPropagation keeps the event from reaching further ancestors.
// Listeners on the current node still run.
func (e *Event) StopPropagation() { e.stopped = true }

// PreventDefault marks the event's default action as cancelled.
func (e *Event) PreventDefault() { e.prevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.prevented }

// AddEventListener registers fn for events of type typ reaching n.
func (d *Document) AddEventListener(n *html.Node, typ string, fn func(*Event)) (remove func()) {
	return d.Target(n).On(typ, func(args ...any) {
		fn(args[0].(*Event))
	})
}

// ListenerCount returns the number of listeners for typ on n.
func (d *Document) ListenerCount(n *html.Node, typ string) int {
	if bus, ok := d.listeners[n]; ok {
		return bus.Len(typ)
	}
	return 0
}

// Dispatch fires an event at target and bubbles it through every ancestor.
func (d *Document) Dispatch(target *html.Node, typ string, detail any) *Event {
	evt := &Event{Type: typ, Target: target, Detail: detail}

	var path []*html.Node
	for n := target; n != nil; n = n.Parent {
		path = append(path, n)
	}
	for _, n := range path {
		bus, ok := d.listeners[n]
		if !ok {
			continue
		}
		evt.CurrentTarget = n
		bus.Fire(typ, evt)
		if evt.stopped {
			break
		}
	}
	evt.CurrentTarget = nil
	return evt
}

// Target adapts a node into an emitter.Source so that DOM listeners and
// model listeners are managed by the same Emitter.
func (d *Document) Target(n *html.Node) EventTarget {
	return EventTarget{doc: d, node: n}
}

// EventTarget is a node viewed as an event source. Handlers receive the
// *Event as their only argument. EventTarget values are comparable.
type EventTarget struct {
	doc  *Document
	node *html.Node
}

// Node returns the underlying node.
func (t EventTarget) Node() *html.Node { return t.node }

// On implements emitter.Source.
func (t EventTarget) On(event string, h emitter.Handler) (off func()) {
	bus, ok := t.doc.listeners[t.node]
	if !ok {
		bus = &emitter.Bus{}
		t.doc.listeners[t.node] = bus
	}
	remove := bus.On(event, h)
	return func() {
		remove()
		if bus.Empty() && t.doc.listeners[t.node] == bus {
			delete(t.doc.listeners, t.node)
		}
	}
}
