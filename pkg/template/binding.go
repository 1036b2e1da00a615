package template

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vango-dev/vtemplate/pkg/dom"
	"github.com/vango-dev/vtemplate/pkg/emitter"
	"github.com/vango-dev/vtemplate/pkg/observable"
	"golang.org/x/net/html"
)

// Transform maps a bound attribute value before it reaches the DOM.
type Transform func(value any, node *html.Node) any

// Predicate decides the truthiness of a guard binding's value.
type Predicate func(value any, node *html.Node) bool

// Binding is a live pointer from a DOM value to an observable attribute.
type Binding interface {
	// Observable returns the bound model.
	Observable() observable.Observable
	// Attribute returns the bound attribute name.
	Attribute() string
	// Value evaluates the binding for node.
	Value(node *html.Node) any

	bindingEmitter() *emitter.Emitter
}

// Binder creates bindings to one observable, registering every listener
// through one emitter.
type Binder struct {
	observable observable.Observable
	emitter    *emitter.Emitter
}

// Bind returns a Binder for obs. A nil em gets a private emitter.
func Bind(obs observable.Observable, em *emitter.Emitter) *Binder {
	if em == nil {
		em = emitter.New()
	}
	return &Binder{observable: obs, emitter: em}
}

// Observable returns the bound model.
func (b *Binder) Observable() observable.Observable { return b.observable }

// Emitter returns the emitter used for listener bookkeeping.
func (b *Binder) Emitter() *emitter.Emitter { return b.emitter }

// To binds to attribute name, optionally transformed. Used in an events
// map, the binding fires the event name on the observable instead, with the
// *dom.Event as payload.
func (b *Binder) To(name string, transform ...Transform) *ValueBinding {
	vb := &ValueBinding{observable: b.observable, emitter: b.emitter, attribute: name}
	if len(transform) > 0 {
		vb.transform = transform[0]
	}
	return vb
}

// ToFunc returns a listener that calls fn with the native event.
func (b *Binder) ToFunc(fn func(*dom.Event)) *ValueBinding {
	return &ValueBinding{observable: b.observable, emitter: b.emitter, fn: fn}
}

// If binds to the truthiness of attribute name. It evaluates to
// valueIfTruthy (true when valueIfTruthy itself is falsy) or to false. A
// predicate, if given, replaces the falsy test.
func (b *Binder) If(name string, valueIfTruthy any, predicate ...Predicate) *GuardBinding {
	gb := &GuardBinding{
		observable:    b.observable,
		emitter:       b.emitter,
		attribute:     name,
		valueIfTruthy: valueIfTruthy,
	}
	if len(predicate) > 0 {
		gb.predicate = predicate[0]
	}
	return gb
}

// ValueBinding reads an attribute, or acts as an event listener.
type ValueBinding struct {
	observable observable.Observable
	emitter    *emitter.Emitter
	attribute  string
	transform  Transform
	fn         func(*dom.Event)
}

// Observable implements Binding.
func (b *ValueBinding) Observable() observable.Observable { return b.observable }

// Attribute implements Binding.
func (b *ValueBinding) Attribute() string { return b.attribute }

// Value implements Binding.
func (b *ValueBinding) Value(node *html.Node) any {
	if b.fn != nil {
		return nil
	}
	v := b.observable.Get(b.attribute)
	if b.transform != nil {
		v = b.transform(v, node)
	}
	return v
}

func (b *ValueBinding) bindingEmitter() *emitter.Emitter { return b.emitter }

func (b *ValueBinding) handleEvent(evt *dom.Event) {
	if b.fn != nil {
		b.fn(evt)
		return
	}
	b.observable.Fire(b.attribute, evt)
}

func (b *ValueBinding) listenerEmitter() *emitter.Emitter { return b.emitter }

// GuardBinding collapses an attribute to a fixed value or false.
type GuardBinding struct {
	observable    observable.Observable
	emitter       *emitter.Emitter
	attribute     string
	valueIfTruthy any
	predicate     Predicate
}

// Observable implements Binding.
func (b *GuardBinding) Observable() observable.Observable { return b.observable }

// Attribute implements Binding.
func (b *GuardBinding) Attribute() string { return b.attribute }

// Value implements Binding.
func (b *GuardBinding) Value(node *html.Node) any {
	v := b.observable.Get(b.attribute)
	truthy := !IsFalsy(v)
	if b.predicate != nil {
		truthy = b.predicate(v, node)
	}
	if !truthy {
		return false
	}
	if IsFalsy(b.valueIfTruthy) {
		return true
	}
	return b.valueIfTruthy
}

func (b *GuardBinding) bindingEmitter() *emitter.Emitter { return b.emitter }

func (b *GuardBinding) handleEvent(evt *dom.Event) {
	b.observable.Fire(b.attribute, evt)
}

func (b *GuardBinding) listenerEmitter() *emitter.Emitter { return b.emitter }

// IsFalsy reports whether v is false, nil or the empty string. Zero
// numbers are not falsy.
func IsFalsy(v any) bool {
	switch vv := v.(type) {
	case nil:
		return true
	case bool:
		return !vv
	case string:
		return vv == ""
	}
	return false
}

// updater writes one evaluated schema to the DOM.
type updater interface {
	set(value string)
	remove()
}

type attrUpdater struct {
	doc  *dom.Document
	node *html.Node
	ns   string
	name string
}

func (u attrUpdater) set(value string) { u.doc.SetAttribute(u.node, u.ns, u.name, value) }

func (u attrUpdater) remove() {
	if _, ok := dom.GetAttribute(u.node, u.ns, u.name); ok {
		u.doc.RemoveAttribute(u.node, u.ns, u.name)
	}
}

type textUpdater struct {
	doc  *dom.Document
	node *html.Node
}

func (u textUpdater) set(value string) { u.doc.SetTextContent(u.node, value) }
func (u textUpdater) remove()          { u.doc.SetTextContent(u.node, "") }

type styleUpdater struct {
	doc  *dom.Document
	node *html.Node
	prop string
}

func (u styleUpdater) set(value string) { u.doc.SetStyleProperty(u.node, u.prop, value) }
func (u styleUpdater) remove()          { u.doc.RemoveStyleProperty(u.node, u.prop) }

// schemaSync re-evaluates a whole schema into one updater.
type schemaSync struct {
	schema []any
	update updater
	node   *html.Node
}

func (s *schemaSync) sync() {
	values := evaluate(s.schema, s.node)

	var v any
	if _, ok := singleGuard(s.schema); ok {
		v = values[0]
	} else {
		v = joinValues(values)
	}

	if IsFalsy(v) {
		s.update.remove()
		return
	}
	s.update.set(toString(v))
}

// activateAttributeListener re-syncs the owning schema whenever the bound
// attribute changes.
func activateAttributeListener(b Binding, s *schemaSync) (stop func()) {
	event := observable.ChangeEvent(b.Attribute())
	handler := func(...any) { s.sync() }
	if em := b.bindingEmitter(); em != nil {
		return em.ListenTo(b.Observable(), event, handler)
	}
	return b.Observable().On(event, handler)
}

func singleGuard(schema []any) (*GuardBinding, bool) {
	if len(schema) != 1 {
		return nil, false
	}
	g, ok := schema[0].(*GuardBinding)
	return g, ok
}

func evaluate(schema []any, node *html.Node) []any {
	out := make([]any, len(schema))
	for i, v := range schema {
		if b, ok := v.(Binding); ok {
			out[i] = b.Value(node)
			continue
		}
		out[i] = v
	}
	return out
}

func hasBinding(schema []any) bool {
	for _, v := range schema {
		if _, ok := v.(Binding); ok {
			return true
		}
	}
	return false
}

// joinValues joins the non-falsy values of a text or attribute schema with
// single spaces. It returns nil when nothing is left.
func joinValues(values []any) any {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if IsFalsy(v) {
			continue
		}
		parts = append(parts, toString(v))
	}
	if len(parts) == 0 {
		return nil
	}
	return strings.Join(parts, " ")
}

// toString converts a value for the DOM.
func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
