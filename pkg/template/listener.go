package template

import (
	"github.com/vango-dev/vtemplate/pkg/dom"
	"github.com/vango-dev/vtemplate/pkg/emitter"
	"golang.org/x/net/html"
)

// Listener handles a native DOM event reaching a template node.
// *ValueBinding, *GuardBinding and ListenerFunc implement it.
type Listener interface {
	handleEvent(evt *dom.Event)
	listenerEmitter() *emitter.Emitter
}

// ListenerFunc adapts a plain callback into a Listener.
type ListenerFunc func(evt *dom.Event)

func (f ListenerFunc) handleEvent(evt *dom.Event)        { f(evt) }
func (f ListenerFunc) listenerEmitter() *emitter.Emitter { return nil }

// activate attaches exactly one native listener for the schema's event on
// node. The items present at activation time are the ones invoked. With a
// selector, only events whose target matches it against the live tree
// reach them.
func (ls *ListenerSchema) activate(doc *dom.Document, node *html.Node) (stop func()) {
	items := append([]Listener(nil), ls.Items...)
	match := ls.match
	if match == nil && ls.Selector != "" {
		if sel, err := dom.Compile(ls.Selector); err == nil {
			ls.match, match = sel, sel
		}
	}

	handler := func(args ...any) {
		evt, ok := args[0].(*dom.Event)
		if !ok {
			return
		}
		if match != nil && !dom.Matches(match, evt.Target) {
			return
		}
		for _, l := range items {
			l.handleEvent(evt)
		}
	}

	target := doc.Target(node)
	for _, l := range items {
		if em := l.listenerEmitter(); em != nil {
			return em.ListenTo(target, ls.Event, handler)
		}
	}
	return target.On(ls.Event, handler)
}
