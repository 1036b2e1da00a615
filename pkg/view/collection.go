package view

import (
	"errors"
	"fmt"
	"iter"

	"github.com/vango-dev/vtemplate/pkg/dom"
	"github.com/vango-dev/vtemplate/pkg/emitter"
	"github.com/vango-dev/vtemplate/pkg/template"
	"golang.org/x/net/html"
)

// Collection events. Handlers receive the view and its index.
const (
	EventAdd    = "add"
	EventRemove = "remove"
)

// Collection is an ordered set of views. Once a parent node is set, the
// views' elements are kept in the parent in collection order as views are
// added and removed.
type Collection struct {
	doc   *dom.Document
	views []Viewer
	bus   emitter.Bus

	parent *html.Node
	anchor *html.Node

	delegations []*Delegation
	emitter     *emitter.Emitter
}

// NewCollection creates an empty collection for views rendering into doc.
func NewCollection(doc *dom.Document) *Collection {
	return &Collection{doc: doc, emitter: emitter.New()}
}

// On implements emitter.Source for EventAdd and EventRemove.
func (c *Collection) On(event string, h emitter.Handler) (off func()) {
	return c.bus.On(event, h)
}

// Len returns the number of views.
func (c *Collection) Len() int { return len(c.views) }

// Get returns the view at i, or nil.
func (c *Collection) Get(i int) Viewer {
	if i < 0 || i >= len(c.views) {
		return nil
	}
	return c.views[i]
}

// Index returns the position of v, or -1.
func (c *Collection) Index(v Viewer) int { return indexOf(c.views, v) }

// Items returns a copy of the views in order.
func (c *Collection) Items() []Viewer { return append([]Viewer(nil), c.views...) }

// All iterates the views in order.
func (c *Collection) All() iter.Seq2[int, Viewer] {
	return func(yield func(int, Viewer) bool) {
		for i, v := range c.views {
			if !yield(i, v) {
				return
			}
		}
	}
}

// Views implements template.ViewCollection.
func (c *Collection) Views() []template.ViewNode {
	out := make([]template.ViewNode, len(c.views))
	for i, v := range c.views {
		out[i] = v
	}
	return out
}

// Parent returns the node the collection renders into.
func (c *Collection) Parent() *html.Node { return c.parent }

// SetParent makes parent the owner of the views' elements. before is the
// node the collection's block ends at, nil when it is last. Elements not
// yet under parent are moved there.
func (c *Collection) SetParent(parent, before *html.Node) {
	c.parent = parent
	c.anchor = before
	if parent == nil {
		return
	}
	for _, v := range c.views {
		if el := v.Element(); el != nil && el.Parent != parent {
			c.doc.InsertBefore(parent, el, before)
		}
	}
}

// Add appends views, rendering them if needed.
func (c *Collection) Add(views ...Viewer) error {
	return c.AddAt(len(c.views), views...)
}

// AddAt inserts views at index i.
func (c *Collection) AddAt(i int, views ...Viewer) error {
	if i < 0 || i > len(c.views) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(c.views))
	}
	for j, v := range views {
		if c.Index(v) >= 0 || indexOf(views[:j], v) >= 0 {
			return ErrDuplicateView
		}
	}

	for _, v := range views {
		if !v.IsRendered() {
			if err := v.Render(); err != nil {
				return err
			}
		}
		c.views = append(c.views, nil)
		copy(c.views[i+1:], c.views[i:])
		c.views[i] = v

		c.place(i)
		for _, d := range c.delegations {
			d.attach(v)
		}
		c.bus.Fire(EventAdd, v, i)
		i++
	}
	return nil
}

// place inserts the element of the view at i before the next sibling view
// already in the parent.
func (c *Collection) place(i int) {
	if c.parent == nil {
		return
	}
	el := c.views[i].Element()
	if el == nil {
		return
	}
	var ref *html.Node
	for _, next := range c.views[i+1:] {
		if n := next.Element(); n != nil && n.Parent == c.parent {
			ref = n
			break
		}
	}
	if ref == nil && c.anchor != nil && c.anchor.Parent == c.parent {
		ref = c.anchor
	}
	c.doc.InsertBefore(c.parent, el, ref)
}

// Remove takes v out of the collection and its element out of the parent.
func (c *Collection) Remove(v Viewer) error {
	i := c.Index(v)
	if i < 0 {
		return fmt.Errorf("%w: view not in collection", ErrIndexOutOfRange)
	}
	_, err := c.RemoveAt(i)
	return err
}

// RemoveAt removes the view at i and returns it. The view is not destroyed.
func (c *Collection) RemoveAt(i int) (Viewer, error) {
	if i < 0 || i >= len(c.views) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(c.views))
	}
	v := c.views[i]
	c.views = append(c.views[:i], c.views[i+1:]...)

	if el := v.Element(); el != nil && c.parent != nil && el.Parent == c.parent {
		c.doc.RemoveNode(el)
	}
	c.emitter.StopListening(v, "")
	c.bus.Fire(EventRemove, v, i)
	return v, nil
}

// Destroy destroys every view and drops the delegations. The collection is
// empty afterwards.
func (c *Collection) Destroy() error {
	views := c.views
	c.views = nil
	c.emitter.StopListening(nil, "")
	c.delegations = nil

	var errs []error
	for _, v := range views {
		errs = append(errs, v.Destroy())
	}
	return errors.Join(errs...)
}

// Firer receives delegated events.
type Firer interface {
	Fire(event string, args ...any)
}

// Delegation re-fires events of the collection's views elsewhere.
type Delegation struct {
	c      *Collection
	events []string
	dest   Firer
	rename func(string) string
}

// Delegate starts a delegation of events; To completes it.
func (c *Collection) Delegate(events ...string) *Delegation {
	return &Delegation{c: c, events: events}
}

// To fires every delegated event on dest, for current and future views.
// The originating view is prepended to the event arguments. rename, if
// given, maps the event name fired on dest.
func (d *Delegation) To(dest Firer, rename ...func(event string) string) {
	d.dest = dest
	if len(rename) > 0 {
		d.rename = rename[0]
	}
	d.c.delegations = append(d.c.delegations, d)
	for _, v := range d.c.views {
		d.attach(v)
	}
}

func (d *Delegation) attach(v Viewer) {
	for _, event := range d.events {
		name := event
		if d.rename != nil {
			name = d.rename(event)
		}
		d.c.emitter.ListenTo(v, event, func(args ...any) {
			d.dest.Fire(name, append([]any{v}, args...)...)
		})
	}
}
