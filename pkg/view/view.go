// Package view provides composable views: a model, an emitter and an
// optional template rendered once into a DOM node.
//
// A View is itself an observable. Bindings created with BindTemplate read
// the view's own attributes, and every listener they register is tracked by
// the view's emitter, so Destroy can remove all of them at once:
//
//	v := view.New(doc, view.WithState(map[string]any{"label": "Bold"}))
//	bind := v.BindTemplate()
//	err := v.SetTemplate(template.Def{
//	    Tag:      "button",
//	    Children: []any{template.Def{Text: bind.To("label")}},
//	    On:       map[string]any{"click": bind.To("execute")},
//	})
//	err = v.Render()
//	...
//	err = v.Destroy()
package view

import (
	"errors"
	"fmt"

	"github.com/vango-dev/vtemplate/pkg/dom"
	"github.com/vango-dev/vtemplate/pkg/emitter"
	"github.com/vango-dev/vtemplate/pkg/observable"
	"github.com/vango-dev/vtemplate/pkg/template"
	"golang.org/x/net/html"
)

var (
	// ErrNoTemplate is returned when a view without a template is rendered
	// or extended.
	ErrNoTemplate = errors.New("view: no template")

	// ErrDuplicateView is returned when a view is added to a collection
	// that already holds it.
	ErrDuplicateView = errors.New("view: view already in collection")

	// ErrIndexOutOfRange is returned for collection positions past the end.
	ErrIndexOutOfRange = errors.New("view: index out of range")
)

// Viewer is what collections and parent views manage.
type Viewer interface {
	template.ViewNode
	emitter.Source
	Destroy() error
}

// View owns a model, an emitter, an optional template and its children.
type View struct {
	doc     *dom.Document
	model   *observable.Model
	emitter *emitter.Emitter
	binder  *template.Binder

	template *template.Template
	element  *html.Node
	applied  bool

	collections []*Collection
	children    []Viewer
	destroyed   bool
}

// Option configures a View.
type Option func(*View)

// WithModel uses m as the view's state instead of a fresh model.
func WithModel(m *observable.Model) Option {
	return func(v *View) { v.model = m }
}

// WithState seeds the view's model.
func WithState(values map[string]any) Option {
	return func(v *View) {
		if v.model == nil {
			v.model = observable.NewModel(values)
			return
		}
		v.model.SetAll(values)
	}
}

// New creates a view rendering into doc.
func New(doc *dom.Document, opts ...Option) *View {
	v := &View{doc: doc, emitter: emitter.New()}
	for _, opt := range opts {
		opt(v)
	}
	if v.model == nil {
		v.model = observable.NewModel(nil)
	}
	return v
}

// Document returns the document the view renders into.
func (v *View) Document() *dom.Document { return v.doc }

// Model returns the view's state.
func (v *View) Model() *observable.Model { return v.model }

// Emitter returns the emitter tracking the view's listeners.
func (v *View) Emitter() *emitter.Emitter { return v.emitter }

// Get returns a model attribute.
func (v *View) Get(name string) any { return v.model.Get(name) }

// Set changes a model attribute.
func (v *View) Set(name string, value any) { v.model.Set(name, value) }

// SetAll changes several model attributes.
func (v *View) SetAll(values map[string]any) { v.model.SetAll(values) }

// On implements emitter.Source.
func (v *View) On(event string, h emitter.Handler) (off func()) { return v.model.On(event, h) }

// Fire fires an event on the view's model.
func (v *View) Fire(event string, args ...any) { v.model.Fire(event, args...) }

// Subscribe listens to change:<name>.
func (v *View) Subscribe(name string, h emitter.Handler) (unsubscribe func()) {
	return v.model.Subscribe(name, h)
}

// ListenTo subscribes to another source through the view's emitter, so the
// subscription ends with Destroy at the latest.
func (v *View) ListenTo(src emitter.Source, event string, h emitter.Handler) (stop func()) {
	return v.emitter.ListenTo(src, event, h)
}

// BindTemplate returns the binding factory for this view's own attributes.
func (v *View) BindTemplate() *template.Binder {
	if v.binder == nil {
		v.binder = template.Bind(v, v.emitter)
	}
	return v.binder
}

// SetTemplate replaces the view's definition. It fails once the view is
// rendered.
func (v *View) SetTemplate(def any) error {
	if v.IsRendered() {
		return fmt.Errorf("%w: cannot replace the template", template.ErrAlreadyRendered)
	}
	tpl, err := template.New(def)
	if err != nil {
		return err
	}
	v.template = tpl
	return nil
}

// ExtendTemplate merges a partial definition into the view's template.
func (v *View) ExtendTemplate(partial any) error {
	if v.template == nil {
		return ErrNoTemplate
	}
	return v.template.Extend(partial)
}

// Template returns the view's template, or nil.
func (v *View) Template() *template.Template { return v.template }

// Render creates the view's element from its template. Views placed in the
// template become children of this view.
func (v *View) Render() error {
	if v.IsRendered() {
		return template.ErrAlreadyRendered
	}
	if v.template == nil {
		return ErrNoTemplate
	}
	node, err := v.template.Render(v.doc)
	if err != nil {
		return err
	}
	v.element = node
	v.registerTemplateViews()
	return nil
}

// ApplyTo grafts the view's template onto an existing node. Destroy
// reverts it.
func (v *View) ApplyTo(node *html.Node) error {
	if v.IsRendered() {
		return template.ErrAlreadyRendered
	}
	if v.template == nil {
		return ErrNoTemplate
	}
	if err := v.template.Apply(v.doc, node); err != nil {
		return err
	}
	v.element = node
	v.applied = true
	v.registerTemplateViews()
	return nil
}

func (v *View) registerTemplateViews() {
	for child := range v.template.Views() {
		if viewer, ok := child.(Viewer); ok {
			v.RegisterChild(viewer)
		}
	}
}

// Element returns the view's node, nil before rendering.
func (v *View) Element() *html.Node { return v.element }

// SetElement adopts a node built elsewhere as the view's element. It fails
// once the view is rendered.
func (v *View) SetElement(node *html.Node) error {
	if v.IsRendered() {
		return template.ErrAlreadyRendered
	}
	v.element = node
	return nil
}

// IsRendered reports whether the view has an element.
func (v *View) IsRendered() bool { return v.element != nil }

// CreateCollection returns a collection owned by this view and destroyed
// with it.
func (v *View) CreateCollection(views ...Viewer) (*Collection, error) {
	c := NewCollection(v.doc)
	if len(views) > 0 {
		if err := c.Add(views...); err != nil {
			return nil, err
		}
	}
	v.collections = append(v.collections, c)
	return c, nil
}

// Collections returns the collections created by this view.
func (v *View) Collections() []*Collection { return v.collections }

// RegisterChild ties the lifecycle of children to this view. Registering a
// child twice has no effect.
func (v *View) RegisterChild(children ...Viewer) {
	for _, child := range children {
		if indexOf(v.children, child) < 0 {
			v.children = append(v.children, child)
		}
	}
}

// DeregisterChild releases children registered with RegisterChild.
func (v *View) DeregisterChild(children ...Viewer) {
	for _, child := range children {
		if i := indexOf(v.children, child); i >= 0 {
			v.children = append(v.children[:i], v.children[i+1:]...)
		}
	}
}

// Children returns the registered children.
func (v *View) Children() []Viewer { return append([]Viewer(nil), v.children...) }

// Destroy removes every listener of the view, destroys its collections and
// children, and reverts the template if it was applied to a foreign node.
// Calling Destroy again does nothing.
func (v *View) Destroy() error {
	if v.destroyed {
		return nil
	}
	v.destroyed = true

	v.emitter.StopListening(nil, "")

	var errs []error
	for _, c := range v.collections {
		errs = append(errs, c.Destroy())
	}
	for _, child := range v.children {
		errs = append(errs, child.Destroy())
	}

	if v.template != nil {
		if v.applied {
			errs = append(errs, v.template.Revert(v.element))
		} else {
			v.template.Detach()
		}
	}
	return errors.Join(errs...)
}

// IsDestroyed reports whether Destroy was called.
func (v *View) IsDestroyed() bool { return v.destroyed }

func indexOf(views []Viewer, target Viewer) int {
	for i, v := range views {
		if v == target {
			return i
		}
	}
	return -1
}
