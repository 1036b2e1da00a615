package template

import (
	"fmt"
	"iter"
	"strings"

	"github.com/vango-dev/vtemplate/pkg/dom"
	"golang.org/x/net/html"
)

// Template owns one normalized definition tree and the node it was
// rendered into or applied onto.
type Template struct {
	root Node

	doc    *dom.Document
	node   *html.Node
	ledger *Ledger

	// teardowns of a rendered (not applied) tree, run by Detach.
	teardowns []func()
}

// New normalizes def into a Template. def is cloned first, so the caller
// may keep mutating its own maps and slices.
func New(def any) (*Template, error) {
	root, err := Normalize(cloneValue(def))
	if err != nil {
		return nil, err
	}
	return &Template{root: root}, nil
}

// MustNew is like New but panics on a malformed definition.
func MustNew(def any) *Template {
	t, err := New(def)
	if err != nil {
		panic(err)
	}
	return t
}

// Root returns the normalized definition.
func (t *Template) Root() Node { return t.root }

// IsRendered reports whether the template was rendered or applied.
func (t *Template) IsRendered() bool { return t.root.isRendered() }

// Node returns the rendered node, or the node the template was applied to.
func (t *Template) Node() *html.Node { return t.node }

// Ledger returns the revert ledger of an applied template, or nil.
func (t *Template) Ledger() *Ledger { return t.ledger }

// Render creates a new node tree from the definition and activates its
// bindings. Listeners are registered through their bindings' emitters;
// Detach removes them all.
func (t *Template) Render(doc *dom.Document) (*html.Node, error) {
	if err := checkFresh(t.root); err != nil {
		return nil, err
	}

	r := &renderer{doc: doc}
	node, err := r.render(t.root, nil, nil, true)
	if err != nil {
		r.stop()
		resetRendered(t.root)
		return nil, err
	}
	t.doc = doc
	t.node = node
	t.teardowns = r.teardowns
	return node, nil
}

// Apply grafts the definition onto node, which must have the same shape:
// element definitions on elements, text definitions on text nodes and equal
// child counts throughout. The shape is verified before anything changes.
func (t *Template) Apply(doc *dom.Document, node *html.Node) error {
	if err := checkFresh(t.root); err != nil {
		return err
	}
	if err := checkShape(t.root, node); err != nil {
		return err
	}

	ledger := newLedger(nil)
	r := &renderer{doc: doc}
	if _, err := r.render(t.root, node, ledger, false); err != nil {
		return err
	}
	t.doc = doc
	t.node = node
	t.ledger = ledger
	return nil
}

// Revert undoes Apply on node: every binding and listener is torn down in
// activation order, then text and attributes are restored. The template
// can be applied again afterwards.
//
// If node no longer has the applied shape, the bindings and listeners are
// still torn down but nothing is restored, and the ledger is kept.
func (t *Template) Revert(node *html.Node) error {
	if t.ledger == nil || node == nil || node != t.node {
		return ErrRevertWithoutApply
	}
	t.ledger.teardown()
	if err := t.ledger.check(node); err != nil {
		return fmt.Errorf("%w: %w", ErrRevertWithoutApply, err)
	}

	t.ledger.restore(t.doc, node)

	t.ledger = nil
	t.node = nil
	t.doc = nil
	resetRendered(t.root)
	return nil
}

// Detach removes every listener of a rendered or applied tree without
// restoring anything. It is safe to call more than once. The node stays
// where it is.
func (t *Template) Detach() {
	teardowns := t.teardowns
	t.teardowns = nil
	for _, fn := range teardowns {
		fn()
	}
	if t.ledger != nil {
		t.ledger.teardown()
	}
}

// Views yields the views placed directly in the definition tree. Views held
// by collections are not included.
func (t *Template) Views() iter.Seq[ViewNode] {
	return func(yield func(ViewNode) bool) {
		walkViews(t.root, yield)
	}
}

func walkViews(n Node, yield func(ViewNode) bool) bool {
	el, ok := n.(*Element)
	if !ok {
		return true
	}
	for _, child := range el.Children {
		switch c := child.(type) {
		case Node:
			if !walkViews(c, yield) {
				return false
			}
		case ViewCollection:
		case ViewNode:
			if !yield(c) {
				return false
			}
		}
	}
	return true
}

// checkFresh fails if any definition node in the tree was already
// materialized.
func checkFresh(n Node) error {
	if n.isRendered() {
		return ErrAlreadyRendered
	}
	if el, ok := n.(*Element); ok {
		for _, child := range el.Children {
			if c, ok := child.(Node); ok {
				if err := checkFresh(c); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func resetRendered(n Node) {
	n.setRendered(false)
	if el, ok := n.(*Element); ok {
		for _, child := range el.Children {
			if c, ok := child.(Node); ok {
				resetRendered(c)
			}
		}
	}
}

// checkShape verifies that def can be applied onto node.
func checkShape(def Node, node *html.Node) error {
	if node == nil {
		return fmt.Errorf("%w: no node to apply onto", ErrStructuralMismatch)
	}
	switch d := def.(type) {
	case *Text:
		if node.Type != html.TextNode {
			return fmt.Errorf("%w: text definition applied onto <%s>", ErrStructuralMismatch, node.Data)
		}
	case *Element:
		if node.Type != html.ElementNode {
			return fmt.Errorf("%w: element definition applied onto a non-element", ErrStructuralMismatch)
		}
		if n := dom.ChildCount(node); n != len(d.Children) {
			return fmt.Errorf("%w: <%s> has %d children, definition has %d", ErrStructuralMismatch, node.Data, n, len(d.Children))
		}
		i := 0
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			childDef, ok := d.Children[i].(Node)
			if !ok {
				return fmt.Errorf("%w: only definitions can be applied, child %d is %T", ErrStructuralMismatch, i, d.Children[i])
			}
			if err := checkShape(childDef, c); err != nil {
				return err
			}
			i++
		}
	}
	return nil
}

// renderer walks a definition tree once, either creating nodes (render
// mode) or mutating existing ones (apply mode, with a ledger).
type renderer struct {
	doc       *dom.Document
	teardowns []func()
}

func (r *renderer) stop() {
	for _, fn := range r.teardowns {
		fn()
	}
	r.teardowns = nil
}

// collect keeps teardowns in the ledger when applying, on the renderer
// otherwise.
func (r *renderer) collect(ledger *Ledger, teardowns ...func()) {
	if ledger != nil {
		ledger.push(teardowns...)
		return
	}
	r.teardowns = append(r.teardowns, teardowns...)
}

func (r *renderer) render(def Node, existing *html.Node, ledger *Ledger, intoFragment bool) (*html.Node, error) {
	switch d := def.(type) {
	case *Element:
		return r.renderElement(d, existing, ledger, intoFragment)
	case *Text:
		return r.renderText(d, existing, ledger), nil
	}
	return nil, fmt.Errorf("%w: unknown node %T", ErrMalformedDefinition, def)
}

func (r *renderer) renderText(d *Text, existing *html.Node, ledger *Ledger) *html.Node {
	node := existing
	if node == nil {
		node = r.doc.CreateTextNode("")
	} else {
		ledger.snapshotText(node.Data)
	}

	s := &schemaSync{
		schema: d.Content,
		update: textUpdater{doc: r.doc, node: node},
		node:   node,
	}
	s.sync()
	r.activate(s, ledger)

	d.setRendered(true)
	return node
}

func (r *renderer) renderElement(d *Element, existing *html.Node, ledger *Ledger, intoFragment bool) (*html.Node, error) {
	node := existing
	if node == nil {
		node = r.doc.CreateElement(d.NS, d.Tag)
	}

	var err error
	if existing != nil {
		err = r.applyChildren(d, node, ledger)
	} else {
		err = r.renderChildren(d, node, intoFragment)
	}
	if err != nil {
		return nil, err
	}

	r.renderAttributes(d, node, ledger)
	r.renderListeners(d, node, ledger)

	d.setRendered(true)
	return node, nil
}

type placedCollection struct {
	collection ViewCollection
	end        int
}

func (r *renderer) renderChildren(d *Element, node *html.Node, intoFragment bool) error {
	container := node
	if intoFragment {
		container = r.doc.CreateFragment()
	}

	var collections []placedCollection
	for i, child := range d.Children {
		switch c := child.(type) {
		case Node:
			n, err := r.render(c, nil, nil, false)
			if err != nil {
				return err
			}
			r.doc.AppendChild(container, n)
		case *html.Node:
			r.doc.AppendChild(container, c)
		case ViewCollection:
			for _, v := range c.Views() {
				el, err := renderView(v)
				if err != nil {
					return err
				}
				r.doc.AppendChild(container, el)
			}
			collections = append(collections, placedCollection{collection: c, end: dom.ChildCount(container)})
		case ViewNode:
			el, err := renderView(c)
			if err != nil {
				return err
			}
			r.doc.AppendChild(container, el)
		default:
			return fmt.Errorf("%w: child %d is %T", ErrMalformedDefinition, i, child)
		}
	}

	if intoFragment {
		r.doc.AppendFragment(node, container)
	}
	for _, pc := range collections {
		pc.collection.SetParent(node, dom.ChildAt(node, pc.end))
	}
	return nil
}

func renderView(v ViewNode) (*html.Node, error) {
	if !v.IsRendered() {
		if err := v.Render(); err != nil {
			return nil, err
		}
	}
	el := v.Element()
	if el == nil {
		return nil, fmt.Errorf("%w: view %T has no element", ErrMalformedDefinition, v)
	}
	return el, nil
}

func (r *renderer) applyChildren(d *Element, node *html.Node, ledger *Ledger) error {
	i := 0
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if _, err := r.render(d.Children[i].(Node), c, ledger.child(), false); err != nil {
			return err
		}
		i++
	}
	return nil
}

func (r *renderer) renderAttributes(d *Element, node *html.Node, ledger *Ledger) {
	for _, name := range sortedKeys(d.Attributes) {
		schema := d.Attributes[name]
		if ledger != nil {
			ledger.snapshotAttribute(node, schema.NS, name)
		}
		if schema.Style != nil {
			r.renderStyle(schema.Style, node, ledger)
			continue
		}

		values := schema.Values
		if ledger != nil && schema.NS == "" && (name == "class" || name == "style") {
			if prior, ok := dom.GetAttribute(node, "", name); ok && prior != "" {
				if name == "style" && !strings.HasSuffix(strings.TrimSpace(prior), ";") {
					prior = strings.TrimSpace(prior) + ";"
				}
				values = append([]any{prior}, values...)
			}
		}

		s := &schemaSync{
			schema: values,
			update: attrUpdater{doc: r.doc, node: node, ns: schema.NS, name: name},
			node:   node,
		}
		s.sync()
		r.activate(s, ledger)
	}
}

func (r *renderer) renderStyle(style Style, node *html.Node, ledger *Ledger) {
	for _, prop := range sortedKeys(style) {
		values, _ := normalizeValues(style[prop])
		s := &schemaSync{
			schema: values,
			update: styleUpdater{doc: r.doc, node: node, prop: prop},
			node:   node,
		}
		s.sync()
		r.activate(s, ledger)
	}
}

// activate subscribes every binding of a schema and collects the
// teardowns as one group.
func (r *renderer) activate(s *schemaSync, ledger *Ledger) {
	if !hasBinding(s.schema) {
		return
	}
	var teardowns []func()
	for _, v := range s.schema {
		if b, ok := v.(Binding); ok {
			teardowns = append(teardowns, activateAttributeListener(b, s))
		}
	}
	r.collect(ledger, teardowns...)
}

func (r *renderer) renderListeners(d *Element, node *html.Node, ledger *Ledger) {
	for _, key := range sortedKeys(d.Events) {
		ls := d.Events[key]
		if len(ls.Items) == 0 {
			continue
		}
		r.collect(ledger, ls.activate(r.doc, node))
	}
}
