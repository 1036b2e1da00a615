package template

import (
	"fmt"
	"sort"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/vango-dev/vtemplate/pkg/dom"
	"golang.org/x/net/html"
)

// Def is the shorthand form of a definition. Exactly one of Tag and Text
// must be set. Attribute values may be a plain value, a Binding, a []any of
// those, or an NS wrapper; "style" may also be a Style map. On values may be
// a Listener, a func(*dom.Event), or a slice of them.
type Def struct {
	Tag        string
	NS         string
	Attributes map[string]any
	Children   []any
	On         map[string]any
	Text       any
}

// NS puts an attribute value in a namespace, e.g. xlink:href on SVG.
type NS struct {
	NS    string
	Value any
}

// Style is the map form of the style attribute: property to value or
// Binding.
type Style map[string]any

// ViewNode is a composable view placed among a definition's children.
type ViewNode interface {
	Render() error
	IsRendered() bool
	Element() *html.Node
}

// ViewCollection is an ordered set of views rendered into a parent node.
// SetParent receives the parent and the node the collection's block ends
// before (nil when it is last), so later insertions keep their position.
type ViewCollection interface {
	Views() []ViewNode
	SetParent(parent, before *html.Node)
}

// Node is a normalized definition node: *Element or *Text.
type Node interface {
	isRendered() bool
	setRendered(bool)
}

// Element is the element variant of a normalized definition.
type Element struct {
	Tag        string
	NS         string
	Attributes map[string]*AttributeSchema
	Children   []any // Node, *html.Node, ViewNode or ViewCollection
	Events     map[string]*ListenerSchema

	rendered bool
}

func (e *Element) isRendered() bool   { return e.rendered }
func (e *Element) setRendered(v bool) { e.rendered = v }

// Text is the text variant of a normalized definition.
type Text struct {
	Content []any

	rendered bool
}

func (t *Text) isRendered() bool   { return t.rendered }
func (t *Text) setRendered(v bool) { t.rendered = v }

// AttributeSchema is the normalized value of one attribute.
type AttributeSchema struct {
	NS     string
	Values []any
	Style  Style // set instead of Values for the map form of "style"
}

// ListenerSchema holds the listeners of one events key.
type ListenerSchema struct {
	Event    string
	Selector string
	Items    []Listener

	match cascadia.Selector
}

// Normalize converts shorthand into a definition tree. Already normalized
// nodes are returned unchanged.
func Normalize(def any) (Node, error) {
	return normalize(def, false)
}

func normalize(def any, partial bool) (Node, error) {
	switch d := def.(type) {
	case string:
		return &Text{Content: []any{d}}, nil
	case *Element:
		return d, nil
	case *Text:
		return d, nil
	case Def:
		return normalizeDef(d, partial)
	case *Def:
		if d == nil {
			return nil, fmt.Errorf("%w: nil definition", ErrMalformedDefinition)
		}
		return normalizeDef(*d, partial)
	case Binding:
		content, err := normalizeValues(d)
		if err != nil {
			return nil, err
		}
		return &Text{Content: content}, nil
	}
	return nil, fmt.Errorf("%w: unsupported definition %T", ErrMalformedDefinition, def)
}

func normalizeDef(d Def, partial bool) (Node, error) {
	hasTag, hasText := d.Tag != "", d.Text != nil
	switch {
	case hasTag && hasText:
		return nil, fmt.Errorf("%w: %q declares both a tag and text", ErrMalformedDefinition, d.Tag)
	case !hasTag && !hasText && !partial:
		return nil, fmt.Errorf("%w: definition declares neither a tag nor text", ErrMalformedDefinition)
	}

	if hasText {
		if d.NS != "" || len(d.Attributes) > 0 || len(d.Children) > 0 || len(d.On) > 0 {
			return nil, fmt.Errorf("%w: text definition with element fields", ErrMalformedDefinition)
		}
		content, err := normalizeValues(d.Text)
		if err != nil {
			return nil, err
		}
		return &Text{Content: content}, nil
	}

	el := &Element{
		Tag:        d.Tag,
		NS:         d.NS,
		Attributes: make(map[string]*AttributeSchema, len(d.Attributes)),
		Events:     make(map[string]*ListenerSchema, len(d.On)),
	}
	for name, v := range d.Attributes {
		schema, err := normalizeAttribute(name, v)
		if err != nil {
			return nil, err
		}
		el.Attributes[name] = schema
	}
	for _, child := range d.Children {
		c, err := normalizeChild(child, partial)
		if err != nil {
			return nil, err
		}
		el.Children = append(el.Children, c)
	}
	for key, v := range d.On {
		ls, err := normalizeListeners(key, v)
		if err != nil {
			return nil, err
		}
		el.Events[key] = ls
	}
	return el, nil
}

func normalizeChild(child any, partial bool) (any, error) {
	switch c := child.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil child", ErrMalformedDefinition)
	case *html.Node, ViewCollection, ViewNode:
		return c, nil
	}
	return normalize(child, partial)
}

func normalizeAttribute(name string, v any) (*AttributeSchema, error) {
	switch av := v.(type) {
	case NS:
		values, err := normalizeValues(av.Value)
		if err != nil {
			return nil, err
		}
		return &AttributeSchema{NS: av.NS, Values: values}, nil
	case *NS:
		return normalizeAttribute(name, *av)
	case Style:
		if name == "style" {
			return normalizeStyle(av)
		}
	case map[string]any:
		if name == "style" {
			return normalizeStyle(av)
		}
	}
	values, err := normalizeValues(v)
	if err != nil {
		return nil, err
	}
	return &AttributeSchema{Values: values}, nil
}

func normalizeStyle(s map[string]any) (*AttributeSchema, error) {
	out := make(Style, len(s))
	for prop, v := range s {
		if _, err := normalizeValues(v); err != nil {
			return nil, fmt.Errorf("%w (style property %q)", err, prop)
		}
		out[prop] = v
	}
	return &AttributeSchema{Style: out}, nil
}

// normalizeValues flattens a value shorthand into a sequence.
func normalizeValues(v any) ([]any, error) {
	switch vv := v.(type) {
	case nil:
		return []any{}, nil
	case []any:
		out := make([]any, 0, len(vv))
		for _, item := range vv {
			flat, err := normalizeValues(item)
			if err != nil {
				return nil, err
			}
			if item == nil {
				flat = []any{nil}
			}
			out = append(out, flat...)
		}
		return out, nil
	case []string:
		out := make([]any, 0, len(vv))
		for _, s := range vv {
			out = append(out, s)
		}
		return out, nil
	case *ValueBinding:
		if vv.fn != nil {
			return nil, fmt.Errorf("%w: callback binding used as a value", ErrMalformedDefinition)
		}
		return []any{vv}, nil
	case Binding:
		return []any{vv}, nil
	case map[string]any, Style, Def, *Def, NS, *NS:
		return nil, fmt.Errorf("%w: %T is not a value", ErrMalformedDefinition, v)
	}
	return []any{v}, nil
}

func normalizeListeners(key string, v any) (*ListenerSchema, error) {
	event, selector, _ := strings.Cut(key, "@")
	event = strings.TrimSpace(event)
	selector = strings.TrimSpace(selector)
	if event == "" {
		return nil, fmt.Errorf("%w: empty event name in %q", ErrMalformedDefinition, key)
	}

	ls := &ListenerSchema{Event: event, Selector: selector}
	if selector != "" {
		sel, err := dom.Compile(selector)
		if err != nil {
			return nil, fmt.Errorf("%w: selector %q: %v", ErrMalformedDefinition, selector, err)
		}
		ls.match = sel
	}

	var items []any
	switch lv := v.(type) {
	case []any:
		items = lv
	case []Listener:
		for _, l := range lv {
			items = append(items, l)
		}
	default:
		items = []any{v}
	}
	for _, item := range items {
		l, err := toListener(item)
		if err != nil {
			return nil, fmt.Errorf("%w (event %q)", err, key)
		}
		ls.Items = append(ls.Items, l)
	}
	return ls, nil
}

func toListener(v any) (Listener, error) {
	switch l := v.(type) {
	case Listener:
		return l, nil
	case func(*dom.Event):
		return ListenerFunc(l), nil
	}
	return nil, fmt.Errorf("%w: %T is not a listener", ErrMalformedDefinition, v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
